// Command planner is an operator CLI over a trip's schedule. It opens the
// same synchronized day view a client holds, so its edits go through the
// client-side ordering engine and its watch mode follows live changes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
