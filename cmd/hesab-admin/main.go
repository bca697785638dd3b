package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"hesab/internal/admin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := admin.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
