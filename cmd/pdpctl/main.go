// Command pdpctl is a development CLI over the policy decision engine: it
// evaluates one subscription against a static policy directory and prints
// the resulting decision (or, with --watch, every decision until
// interrupted), or serves a single-shot HTTP /decide endpoint over the same
// engine (serve-demo).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "pdpctl",
		Usage: "Evaluate SAPL-style authorization subscriptions",
		Commands: []*cli.Command{
			evaluateCommand(),
			serveDemoCommand(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
