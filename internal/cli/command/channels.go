package command

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tidechat/tidechat-go/internal/cli/output"
	"github.com/tidechat/tidechat-go/pkg/client"
)

// ChannelsCommand lists channels visible to the session.
func ChannelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "List channels",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Filter by channel type (e.g. messaging)",
			},
			&cli.StringFlag{
				Name:  "member",
				Usage: "Filter to channels the given user is a member of",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Page size",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Page offset",
			},
		},
		Action: run(func(c *cli.Context, rt *runtime) error {
			if err := requireSession(c, rt); err != nil {
				return err
			}
			channels, err := rt.api.QueryChannels(c.Context, client.QueryChannelsRequest{
				Type:   c.String("type"),
				Member: c.String("member"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return err
			}
			return rt.out.Format(os.Stdout, output.ChannelTable(channels))
		}),
	}
}
