// Package commands implements CLI command handlers for zing-stats.
package commands

// RootFlags carries the root command's persistent flag values into
// subcommands.
type RootFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	LogJSON    bool
}
