package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tidechat/tidechat-go/internal/cli/config"
)

// ConfigCommand inspects the effective configuration.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect tidechat-cli configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: run(func(c *cli.Context, rt *runtime) error {
					shown := *rt.cfg
					if shown.Storage.Passphrase != "" {
						shown.Storage.Passphrase = "***REDACTED***"
					}
					return rt.out.Format(os.Stdout, shown)
				}),
			},
			{
				Name:  "path",
				Usage: "Print the config file path",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if path == "" {
						path = config.DefaultConfigPath()
					}
					fmt.Fprintln(os.Stdout, path)
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "Write a default config file",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if path == "" {
						path = config.DefaultConfigPath()
					}
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists", path)
					}
					if err := config.Save(config.Default(), path); err != nil {
						return err
					}
					fmt.Fprintln(os.Stdout, path)
					return nil
				},
			},
		},
	}
}
