package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"cv-optimizer/internal/cli"
	"cv-optimizer/internal/shared/telemetry"
)

func main() {
	// Client logs are off unless CVOPT_LOG_LEVEL is set.
	if level := os.Getenv("CVOPT_LOG_LEVEL"); level != "" {
		telemetry.Init(level, "console")
	} else {
		telemetry.SetLogger(nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
