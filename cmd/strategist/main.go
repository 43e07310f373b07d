// Command strategist validates and prices generated option strategies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"option-strategist/internal/cli"
	"option-strategist/internal/logging"
	"option-strategist/internal/security"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Config is loaded from --config once flags are parsed.
	rootCmd := cli.NewRootCmd(nil, logging.NewLogger())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", security.MaskSensitive(err.Error()))
		stop()
		os.Exit(1)
	}
}
