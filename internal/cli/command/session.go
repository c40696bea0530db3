package command

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tidechat/tidechat-go/internal/cli/output"
)

// LoginCommand authenticates and persists the session.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Authenticate against the backend and store the session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "User ID to authenticate as",
			},
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "Session token (reads TIDECHAT_TOKEN or --token-file when empty)",
				EnvVars: []string{"TIDECHAT_TOKEN"},
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "Read the session token from a file",
			},
			&cli.BoolFlag{
				Name:  "anonymous",
				Usage: "Start a guest session (no token required)",
			},
		},
		Action: run(func(c *cli.Context, rt *runtime) error {
			userID := c.String("user")
			if userID == "" {
				userID = rt.cfg.Auth.UserID
			}

			if c.Bool("anonymous") {
				user, err := rt.sessions.AuthenticateAnonymously(c.Context, userID)
				if err != nil {
					return err
				}
				return rt.out.Format(os.Stdout, output.UserTable(user))
			}

			tok, err := resolveToken(c)
			if err != nil {
				return err
			}
			user, err := rt.sessions.Authenticate(c.Context, userID, tok, false)
			if err != nil {
				return err
			}
			return rt.out.Format(os.Stdout, output.UserTable(user))
		}),
	}
}

// resolveToken picks the token from --token or --token-file.
func resolveToken(c *cli.Context) (string, error) {
	if tok := c.String("token"); tok != "" {
		return tok, nil
	}
	if path := c.String("token-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", errors.New("a token is required: pass --token, --token-file, or set TIDECHAT_TOKEN")
}

// LogoutCommand ends the stored session.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the session and clear stored credentials",
		Action: run(func(c *cli.Context, rt *runtime) error {
			// Restore so the backend gets notified; logout succeeds either way.
			if _, err := rt.sessions.RestoreSession(c.Context); err != nil {
				rt.log.Warn("session restore before logout failed", "error", err)
			}
			rt.sessions.Logout(c.Context)
			fmt.Fprintln(os.Stdout, "logged out")
			return nil
		}),
	}
}

// WhoamiCommand shows the current session's user.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the authenticated user",
		Action: run(func(c *cli.Context, rt *runtime) error {
			user, err := rt.sessions.RestoreSession(c.Context)
			if err != nil {
				return err
			}
			if user == nil {
				return errors.New("not authenticated: run tidechat-cli login")
			}
			return rt.out.Format(os.Stdout, output.UserTable(user))
		}),
	}
}
