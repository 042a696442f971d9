package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, defaultCLIDeps(), os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
