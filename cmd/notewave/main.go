// Command notewave runs the collaborative workspace service.
//
//	notewave run     -backend memory                   # serve HTTP
//	notewave migrate -backend postgres -postgres-dsn … # initialize schema
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/notewave/notewave/pkg/notewave"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "notewave:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, cmd, err := notewave.Parse(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := notewave.New(ctx, cfg)
	if err != nil {
		return err
	}

	switch cmd {
	case notewave.CommandMigrate:
		return app.Migrate(ctx)
	default:
		return app.Run(ctx)
	}
}
