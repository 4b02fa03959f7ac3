package config

// DefaultProfile is the profile used when none is selected.
const DefaultProfile = "default"

// CLIConfig is the configuration for tradegate-cli.
type CLIConfig struct {
	// Output is the default output format: table, json or yaml.
	Output string `yaml:"output"`

	// Current is the active profile name.
	Current string `yaml:"current"`

	// Profiles are the saved server connections.
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile stores one server connection.
type Profile struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Output:   "table",
		Current:  DefaultProfile,
		Profiles: map[string]Profile{DefaultProfile: {Server: "http://127.0.0.1:8000"}},
	}
}

// Profile returns the named profile, or the active one when name is empty.
func (c *CLIConfig) Profile(name string) Profile {
	if name == "" {
		name = c.Current
	}
	if p, ok := c.Profiles[name]; ok {
		return p
	}
	return Default().Profiles[DefaultProfile]
}

// SetProfile stores p under name and makes it active.
func (c *CLIConfig) SetProfile(name string, p Profile) {
	if name == "" {
		name = DefaultProfile
	}
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	c.Profiles[name] = p
	c.Current = name
}
