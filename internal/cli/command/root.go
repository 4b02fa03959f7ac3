package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/tradegate-go/internal/cli/config"
	"github.com/yndnr/tradegate-go/internal/cli/connection"
	"github.com/yndnr/tradegate-go/internal/cli/output"
	"github.com/yndnr/tradegate-go/internal/infra/buildinfo"
)

const metaConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "tradegate-cli",
		Usage:   "TradeGate administration tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			KeygenCommand(),
			EncryptCommand(),
			DecryptCommand(),
			HashPasswordCommand(),
			TokenCommand(),
			UserCommand(),
			LoginCommand(),
			StatusCommand(),
			BlocklistCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := cliconfig.Load(c.String("cli-config"))
			if err != nil {
				return err
			}
			if c.App.Metadata == nil {
				c.App.Metadata = make(map[string]any)
			}
			c.App.Metadata[metaConfig] = cfg
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "TradeGate server address (default: the profile's server)",
			EnvVars: []string{"TRADEGATE_SERVER"},
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "Bearer token (default: the profile's saved token)",
			EnvVars: []string{"TRADEGATE_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "CLI profile name",
			EnvVars: []string{"TRADEGATE_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "cli-config",
			Usage:   "Path to the CLI config file",
			Value:   cliconfig.DefaultConfigPath(),
			EnvVars: []string{"TRADEGATE_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// GlobalFlags holds the resolved global settings. Flags and environment
// variables win over the CLI config file.
type GlobalFlags struct {
	Server  string
	Token   string
	Profile string
	Output  output.Format
	Wide    bool
}

// ParseGlobalFlags resolves global flags against the CLI config.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg := cliConfig(c)
	profile := cfg.Profile(c.String("profile"))

	flags := &GlobalFlags{
		Server:  c.String("server"),
		Token:   c.String("token"),
		Profile: c.String("profile"),
		Wide:    c.Bool("wide"),
	}
	if flags.Server == "" {
		flags.Server = profile.Server
	}
	if flags.Token == "" {
		flags.Token = profile.Token
	}

	format := c.String("output")
	if format == "" {
		format = cfg.Output
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	flags.Output = f
	return flags, nil
}

// cliConfig returns the config loaded by Before, or the defaults.
func cliConfig(c *cli.Context) *cliconfig.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*cliconfig.CLIConfig); ok {
		return cfg
	}
	return cliconfig.Default()
}

// newClient builds an HTTP client for the selected server. requireToken
// fails early when no token is available.
func newClient(c *cli.Context, requireToken bool) (*connection.HTTPClient, *GlobalFlags, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, nil, err
	}
	if requireToken && flags.Token == "" {
		return nil, nil, errors.New("not logged in: run 'tradegate-cli login' or pass --token")
	}
	return connection.NewHTTPClient(flags.Server, flags.Token), flags, nil
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}

// readInput returns the first argument, or the first line of stdin when
// the argument is absent or "-".
func readInput(c *cli.Context, what string) (string, error) {
	if arg := c.Args().First(); arg != "" && arg != "-" {
		return arg, nil
	}

	reader := c.App.Reader
	if reader == nil {
		reader = os.Stdin
	}
	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", what, err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return line, nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
