package main

import (
	"fmt"
	"log/slog"
	"os"

	"trawlscope/internal/app"
)

func main() {
	if err := run(); err != nil {
		slog.Error("trawlscope server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	application, err := app.NewApplication()
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	return application.Run()
}
