package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.followtheprocess.codes/snip/internal/cmd"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cli, err := cmd.Build()
	if err != nil {
		return fmt.Errorf("could not build the CLI: %w", err)
	}

	return cli.Execute(ctx)
}
