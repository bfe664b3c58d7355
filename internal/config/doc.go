// Package config loads sqlqueue CLI configuration.
//
// Values are layered: Default, then an optional TOML file, then environment
// variables (a .env file in the working directory is loaded first), and finally
// command-line flags applied by the caller.
package config
