// Package main implements the reloop CLI.
// It recovers structured control flow from graph files and Go functions.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/l3aro/go-relooper/cmd/reloop/commands"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.RootCmd.SetVersionTemplate(`reloop version {{.Version}}
`)
	commands.RootCmd.Version = version

	if err := commands.RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
