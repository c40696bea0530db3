// Package command defines the tidechat-cli commands.
//
// It uses urfave/cli/v2 for parsing. Global flags override the config
// file and environment; the assembled SDK runtime (config, credential
// store, API client, session manager) is shared through app metadata.
package command

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tidechat/tidechat-go/internal/cli/config"
	"github.com/tidechat/tidechat-go/internal/cli/output"
	"github.com/tidechat/tidechat-go/internal/telemetry/logger"
	"github.com/tidechat/tidechat-go/internal/telemetry/metric"
	"github.com/tidechat/tidechat-go/pkg/auth"
	"github.com/tidechat/tidechat-go/pkg/client"
	"github.com/tidechat/tidechat-go/pkg/storage"
	"github.com/tidechat/tidechat-go/pkg/transport"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "tidechat-cli",
		Usage:   "TideChat command-line client",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			LoginCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			SendCommand(),
			MessageCommand(),
			ChannelsCommand(),
			UserCommand(),
			UploadCommand(),
			ConfigCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path",
			EnvVars: []string{"TIDECHAT_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Backend URL (e.g. https://chat.example.com)",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"k"},
			Usage:   "Application API key",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

// runtime is the assembled SDK stack shared by all commands.
type runtime struct {
	cfg      *config.Config
	log      *slog.Logger
	store    storage.TokenStore
	api      *client.Client
	sessions *auth.Manager
	out      output.Formatter
	closers  []func() error
}

// setup builds the runtime from config and flags. Cached in metadata so
// nested subcommands share one instance.
func setup(c *cli.Context) (*runtime, error) {
	if rt, ok := c.App.Metadata["runtime"].(*runtime); ok {
		return rt, nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	store, closers, err := buildStore(cfg, log)
	if err != nil {
		return nil, err
	}

	deviceID, err := config.DeviceID("")
	if err != nil {
		log.Warn("device id unavailable", "error", err)
	}

	api := client.New(client.Config{
		BaseURL:  cfg.Server.URL,
		APIKey:   cfg.Server.APIKey,
		DeviceID: deviceID,
		HTTP: transport.HTTPConfig{
			Timeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		},
		Logger:  log,
		Metrics: metric.New(),
	})

	sessions := auth.NewManager(store, api, auth.Config{
		RefreshThreshold: time.Duration(cfg.Auth.RefreshThresholdSeconds) * time.Second,
		AnonymousTokens:  api,
		Logger:           log,
	})
	api.SetTokenSource(sessions)

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		store:    store,
		api:      api,
		sessions: sessions,
		out:      output.NewFormatter(output.Format(cfg.Output)),
		closers:  closers,
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata["runtime"] = rt
	return rt, nil
}

// loadConfig merges the config file, environment, and global flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	overrides := make(map[string]any)
	if v := c.String("server"); v != "" {
		overrides["server.url"] = v
	}
	if v := c.String("api-key"); v != "" {
		overrides["server.api_key"] = v
	}
	if v := c.String("output"); v != "" {
		overrides["output"] = v
	}
	if v := c.String("log-level"); v != "" {
		overrides["log.level"] = v
	}
	return config.NewLoader(config.WithConfigFile(c.String("config"))).Load(overrides)
}

// buildStore creates the credential store named by the config.
func buildStore(cfg *config.Config, log *slog.Logger) (storage.TokenStore, []func() error, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil, nil
	case "badger":
		s, err := storage.NewBadgerStore(storage.BadgerConfig{
			Dir:    cfg.Storage.Path,
			Logger: log,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, []func() error{s.Close}, nil
	default: // file
		var passphrase []byte
		if cfg.Storage.Passphrase != "" {
			passphrase = []byte(cfg.Storage.Passphrase)
		}
		s, err := storage.NewFileStore(storage.FileStoreConfig{
			Path:       cfg.Storage.Path,
			Passphrase: passphrase,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
}

// close releases runtime resources.
func (rt *runtime) close() {
	for _, fn := range rt.closers {
		if err := fn(); err != nil {
			rt.log.Warn("close store", "error", err)
		}
	}
}

// run wraps a command action with runtime setup and teardown. Errors
// are returned as-is; main prints them and sets the exit code.
func run(fn func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		defer rt.close()
		return fn(c, rt)
	}
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
