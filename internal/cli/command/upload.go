package command

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

// UploadCommand uploads a file for attaching to messages.
func UploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a file",
		ArgsUsage: "<path>",
		Action: run(func(c *cli.Context, rt *runtime) error {
			if c.NArg() != 1 {
				return errors.New("usage: tidechat-cli upload <path>")
			}
			path := c.Args().Get(0)
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			if err := requireSession(c, rt); err != nil {
				return err
			}
			name := filepath.Base(path)
			up, err := rt.api.UploadFile(c.Context, name, mime.TypeByExtension(filepath.Ext(name)), data)
			if err != nil {
				return err
			}
			return rt.out.Format(os.Stdout, up)
		}),
	}
}
