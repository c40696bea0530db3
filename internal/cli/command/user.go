package command

import (
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tidechat/tidechat-go/internal/cli/output"
)

// UserCommand fetches a user by id.
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:      "user",
		Usage:     "Show a user",
		ArgsUsage: "<user-id>",
		Action: run(func(c *cli.Context, rt *runtime) error {
			if c.NArg() != 1 {
				return errors.New("usage: tidechat-cli user <user-id>")
			}
			if err := requireSession(c, rt); err != nil {
				return err
			}
			user, err := rt.api.GetUser(c.Context, c.Args().Get(0))
			if err != nil {
				return err
			}
			return rt.out.Format(os.Stdout, output.UserTable(user))
		}),
	}
}
