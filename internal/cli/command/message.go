package command

import (
	"errors"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tidechat/tidechat-go/internal/cli/output"
	"github.com/tidechat/tidechat-go/pkg/models"
)

// SendCommand posts a message to a channel.
func SendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a message to a channel",
		ArgsUsage: "<cid> <text...>",
		Action: run(func(c *cli.Context, rt *runtime) error {
			if c.NArg() < 2 {
				return errors.New("usage: tidechat-cli send <cid> <text>")
			}
			cid := c.Args().Get(0)
			text := strings.Join(c.Args().Slice()[1:], " ")

			if err := requireSession(c, rt); err != nil {
				return err
			}
			msg, err := rt.api.SendMessage(c.Context, cid, &models.Message{Text: text})
			if err != nil {
				return err
			}
			return rt.out.Format(os.Stdout, output.MessageTable(msg))
		}),
	}
}

// MessageCommand groups message editing operations.
func MessageCommand() *cli.Command {
	return &cli.Command{
		Name:  "message",
		Usage: "Edit or delete messages",
		Subcommands: []*cli.Command{
			{
				Name:      "update",
				Usage:     "Replace a message's text",
				ArgsUsage: "<message-id> <text...>",
				Action: run(func(c *cli.Context, rt *runtime) error {
					if c.NArg() < 2 {
						return errors.New("usage: tidechat-cli message update <message-id> <text>")
					}
					if err := requireSession(c, rt); err != nil {
						return err
					}
					msg, err := rt.api.UpdateMessage(c.Context, &models.Message{
						ID:   c.Args().Get(0),
						Text: strings.Join(c.Args().Slice()[1:], " "),
					})
					if err != nil {
						return err
					}
					return rt.out.Format(os.Stdout, output.MessageTable(msg))
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a message",
				ArgsUsage: "<message-id>",
				Action: run(func(c *cli.Context, rt *runtime) error {
					if c.NArg() != 1 {
						return errors.New("usage: tidechat-cli message delete <message-id>")
					}
					if err := requireSession(c, rt); err != nil {
						return err
					}
					msg, err := rt.api.DeleteMessage(c.Context, c.Args().Get(0))
					if err != nil {
						return err
					}
					return rt.out.Format(os.Stdout, output.MessageTable(msg))
				}),
			},
		},
	}
}

// requireSession restores the stored session and fails when none exists.
func requireSession(c *cli.Context, rt *runtime) error {
	user, err := rt.sessions.RestoreSession(c.Context)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("not authenticated: run tidechat-cli login")
	}
	return nil
}
