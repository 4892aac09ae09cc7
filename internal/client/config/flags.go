package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/xplit/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string   identity provider base URL
//	-k string   identity provider public API key
//	-d string   data directory
//	-l string   log level
//
// Args are filtered through flagx.FilterArgs first so flags owned by other
// components do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-u", "-k", "-d", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ProviderURL, "u", cfg.ProviderURL, "identity provider base URL")
	fs.StringVar(&cfg.ProviderAPIKey, "k", cfg.ProviderAPIKey, "identity provider public API key")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug|info|warn|error)")

	return fs.Parse(args)
}
