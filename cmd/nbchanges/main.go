package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/atvirokodosprendimai/nbchanges/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := app.Run(ctx, os.Args, app.Options{})
	stop()
	os.Exit(code)
}
