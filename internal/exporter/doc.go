// Package exporter provides CSV export functionality for the TrawlScope
// pipeline.
//
// This package contains two main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// streaming, and UTF-8 BOM for Excel compatibility. Fresh files are staged
// in a temporary sibling and renamed into place on Close.
//
// SnapshotExporter: Writes the pipeline's output tables: the cleaned
// snapshot plus the annual and seasonal summary tables. Headers match the
// loader's expected columns so every exported file is reloadable.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(logger, true)
//	snapshots := exporter.NewSnapshotExporter(writer)
//
//	// Stream the cleaned dataset
//	err := snapshots.ExportCleanSnapshot(records, paths.CleanSnapshot)
//
//	// Write summary tables
//	err = snapshots.ExportAnnualSummary(annual, paths.AnnualSummary)
//	err = snapshots.ExportSeasonalSummary(seasonal, paths.SeasonalSummary)
package exporter
