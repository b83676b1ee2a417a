// Command bqtools loads prescribing data into BigQuery and runs queries.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.prescribing.dev/bqtools"
)

const (
	exitError  = 1
	exitConfig = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		var cerr *bqtools.ConfigError
		if errors.As(err, &cerr) {
			os.Exit(exitConfig)
		}
		os.Exit(exitError)
	}
}
