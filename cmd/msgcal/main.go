package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"msgcal/internal/config"
	appLog "msgcal/internal/log"
	"msgcal/internal/temporal"
)

const version = "0.1.0"

// defaultConfigPath is used by serve when --config is not given.
const defaultConfigPath = "/etc/msgcal/config.yaml"

// errNoEvent is returned by parse when the message has no date or time.
var errNoEvent = errors.New("no event found")

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errNoEvent) {
			os.Exit(2)
		}
		appLog.Error("msgcal failed", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "msgcal",
		Short: "Turn chat messages into calendar events",
		Long: `msgcal finds the date or time in a short message ("Team meeting tmr 3pm",
"29th 5am", "Meeting Friday") and renders the event as an .ics document and a
Google Calendar link.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	root.AddCommand(newParseCmd())
	root.AddCommand(newServeCmd())
	return root
}

// loadConfig reads the config file. With allowDefault and no --config it
// returns in-memory defaults without touching the filesystem.
func loadConfig(allowDefault bool) (*config.Config, string, error) {
	path := configPath
	if path == "" {
		if allowDefault {
			return config.DefaultConfig(), "", nil
		}
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.Log.Level))
	return cfg, path, nil
}

// newResolver builds the cascade, adding the natural-language fallback when
// the config enables it.
func newResolver(cfg *config.Config) *temporal.Resolver {
	if cfg.Resolver.Fallback {
		return temporal.New(temporal.WithFallback(temporal.NewNaturalParser()))
	}
	return temporal.New()
}
