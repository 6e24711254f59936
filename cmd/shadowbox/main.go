// Package main is the entry point for the shadowbox CLI.
//
// Usage:
//
//	shadowbox versions              # list supported platform versions
//	shadowbox fetch                 # warm the artifact cache
//	shadowbox doctor                # boot every version through a probe test
//	shadowbox mirror --port 8765    # serve the artifact cache over HTTP
//
// Signals:
//   - SIGINT, SIGTERM: cancel the running command; the mirror shuts down gracefully
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/shadowbox/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
