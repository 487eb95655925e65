package concertdb

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Main is the entry point of the concertdb command. It loads a .env file if
// one exists, parses args, and runs the selected command until it finishes or
// ctx is cancelled.
func Main(ctx context.Context, args []string) error {
	_ = godotenv.Load()

	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	logger, err := NewLogger(os.Stderr, config.LogLevel, config.LogFormat)
	if err != nil {
		return err
	}

	app, err := New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case *MigrateCommand:
		if _, err := app.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *StatusCommand:
		if err := app.PrintStatus(os.Stdout, c); err != nil {
			return fmt.Errorf("failed to print status: %w", err)
		}
	case *ResetCommand:
		app.Reset(c)
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
