// Package config provides centralized configuration management for
// TrawlScope. It loads configuration from defaults, an optional YAML file,
// and TRAWL_* environment variables (highest precedence), validates the
// result, and resolves every filesystem path against the executable
// directory.
//
// # Configuration Sources
//
// Configuration is loaded in order of precedence:
//
//	1. Environment variables (TRAWL_* namespace, highest priority)
//	2. config.yaml / configs/config.yaml (optional)
//	3. Default values (lowest priority)
//
// Nested fields compose their env names from the section and field tags:
//
//	TRAWL_SERVER_PORT=8080
//	TRAWL_PIPELINE_RAW_FORMAT=xlsx
//	TRAWL_SCHEDULER_ENABLED=true
//	TRAWL_LOGGING_LEVEL=debug
//
// # Path Management
//
// Relative configured paths are anchored at the executable directory, never
// the working directory, so the binary behaves identically wherever it is
// launched from:
//
//	paths, err := config.ResolvePaths(&cfg.Paths)
//	raw := paths.RawSnapshot
//	clean := paths.CleanSnapshot
//
// # Survey Constants
//
// The cleaning thresholds that define the well-sampled survey core (stratum
// bounds, excluded taxa, coverage rules) are fixed properties of the survey
// design and live in constants.go rather than in the loadable Config.
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
