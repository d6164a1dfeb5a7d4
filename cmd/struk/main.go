package main

import (
	"context"
	"os"

	"struk/internal/cli"
	"struk/internal/commands"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
