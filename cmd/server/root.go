package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/Canopy/backend/internal/infrastructure/config"
)

// overrides holds flags that take precedence over the environment
type overrides struct {
	port        string
	host        string
	store       string
	sqlitePath  string
	contentRoot string
	webRoot     string
	theme       string
	logLevel    string
	dev         bool
	watch       bool
}

func newRootCmd() *cobra.Command {
	o := &overrides{}
	root := &cobra.Command{
		Use:   "server",
		Short: "Canopy extension registry and widget area engine",
		Long: `Canopy discovers installed themes and widgets, stores widget settings and
composes them into system and theme widget areas.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.store, "store", "", "Storage driver: memory, sqlite, redis or postgres (STORE_DRIVER)")
	flags.StringVar(&o.sqlitePath, "sqlite-path", "", "SQLite database file (STORE_SQLITE_PATH)")
	flags.StringVar(&o.contentRoot, "content-root", "", "Directory holding Themes/ and Widgets/ (CONTENT_ROOT)")
	flags.StringVar(&o.webRoot, "web-root", "", "Directory extension assets are installed into (WEB_ROOT)")
	flags.StringVar(&o.theme, "theme", "", "Current theme folder (THEME)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error (LOG_LEVEL)")
	flags.BoolVar(&o.dev, "dev", false, "Development logging (LOG_DEV)")

	root.AddCommand(
		newServeCmd(o),
		newManifestsCmd(o),
		newActivateCmd(o),
	)
	return root
}

// load reads the environment and applies the flags the user set
func (o *overrides) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("port", &cfg.Server.Port, o.port)
	set("host", &cfg.Server.Host, o.host)
	set("store", &cfg.Storage.Driver, o.store)
	set("sqlite-path", &cfg.Storage.SQLitePath, o.sqlitePath)
	set("content-root", &cfg.Extensions.ContentRoot, o.contentRoot)
	set("web-root", &cfg.Extensions.WebRoot, o.webRoot)
	set("theme", &cfg.Theme.Current, o.theme)
	set("log-level", &cfg.Logging.Level, o.logLevel)
	if flags.Changed("dev") {
		cfg.Logging.Development = o.dev
	}
	if flags.Changed("watch") {
		cfg.Extensions.Watch = o.watch
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// quiet keeps one-shot commands' stdout free of info logs unless asked for
func quiet(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = "warn"
	}
}
