package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/moneyxfer/internal/flagx"
)

// parseFlags populates cfg from command-line flags.
//
// args is filtered with flagx.FilterArgs first, so flags owned by other
// components (-c) do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-i", "-t", "-w", "-l"}, "-watch")

	fs := flag.NewFlagSet("moneyxfer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the backend")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local session database")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "backend request timeout")
	fs.DurationVar(&cfg.ExpiryWarning, "w", cfg.ExpiryWarning, "warn this long before the session expires")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.WatchStore, "watch", cfg.WatchStore, "follow session changes made by other processes")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// -i is whole seconds; only an explicit -i may replace a finer value
	// from the JSON file.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		}
	})
	return nil
}
