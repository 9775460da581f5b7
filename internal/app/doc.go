// Package app wires configuration, the survey pipeline, services and
// transport into a runnable TrawlScope server and manages its lifecycle.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and OpenTelemetry
//	3. Build the pipeline components and the run manager
//	4. Wire services over the in-memory snapshot store
//	5. Set up HTTP handlers and middleware
//	6. Configure the HTTP server and optional cron scheduler
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM to ensure active requests
// complete, WebSocket connections close cleanly, the scheduler drains,
// and telemetry providers flush.
//
// On startup the application restores the cleaned snapshot from a previous
// run when one exists, so the API serves data across restarts without
// re-running the pipeline.
package app
