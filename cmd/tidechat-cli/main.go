// Package main provides the entry point for tidechat-cli.
//
// tidechat-cli is a command-line client for a TideChat backend: it
// manages the local session (login, logout, whoami) and exercises the
// messaging API (send, channels, upload).
package main

import (
	"fmt"
	"os"

	"github.com/tidechat/tidechat-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
