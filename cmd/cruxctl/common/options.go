// Package common holds option types shared across cruxctl subcommands.
package common

// RootOptions are the persistent flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}
