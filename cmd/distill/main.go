// Command distill summarises conversations into artifacts and answers
// structured queries over them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/distill/internal/adapters/driving/cli"
	"github.com/custodia-labs/distill/internal/app"
	"github.com/custodia-labs/distill/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	a, err := app.Build(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}()

	cli.SetVersion(version)
	cli.SetServices(a.Services)
	return cli.Execute(ctx)
}
