// Command sbuild configures, builds, runs, debugs and packages Samplore.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samplore/sbuild/cmd/sbuild/internal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := internal.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(internal.ExitCode(err))
}
