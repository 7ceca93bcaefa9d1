package main

import (
	"context"
	"os"

	"github.com/desertthunder/floater/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := &cli.Command{
		Name:     "floater",
		Usage:    "A floating Spotify player for the terminal",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   runner.Before,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
