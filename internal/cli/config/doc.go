// Package config stores tradegate-cli settings in ~/.tradegate/cli.yaml.
//
// The file holds named server profiles. `tradegate-cli login` writes the
// bearer token of the active profile; remote commands read it back when
// --token is not given. The file is written with mode 0600.
package config
