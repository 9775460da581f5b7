package exporter

import (
	"fmt"

	"trawlscope/pkg/contracts/domain"
)

// SnapshotExporter persists the pipeline's output tables: the cleaned
// dataset and the annual and seasonal summary tables. Column names match
// what the loader expects back, so a written snapshot is always reloadable.
type SnapshotExporter struct {
	csvWriter *CSVWriter
}

// NewSnapshotExporter creates a snapshot exporter on top of a CSV writer.
func NewSnapshotExporter(csvWriter *CSVWriter) *SnapshotExporter {
	return &SnapshotExporter{csvWriter: csvWriter}
}

// ExportCleanSnapshot streams the cleaned dataset to disk. The input is
// already sorted by the pipeline, so repeated runs over the same raw
// snapshot produce byte-identical files.
func (e *SnapshotExporter) ExportCleanSnapshot(records []domain.CleanedBiomassRecord, path string) error {
	stream, err := e.csvWriter.CreateStreamWriter(path, cleanSnapshotHeaders())
	if err != nil {
		return fmt.Errorf("failed to create clean snapshot writer: %w", err)
	}

	for _, record := range records {
		if err := stream.WriteRecord(cleanRecordRow(record)); err != nil {
			stream.Discard()
			return fmt.Errorf("failed to write clean record: %w", err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close clean snapshot: %w", err)
	}
	return nil
}

// ExportAnnualSummary writes the annual summary table.
func (e *SnapshotExporter) ExportAnnualSummary(summaries []domain.WeightedSummaryRecord, path string) error {
	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, summaryRow(s, false))
	}
	return e.csvWriter.WriteSimpleCSV(path, summaryHeaders(false), records)
}

// ExportSeasonalSummary writes the seasonal summary table used by the map
// view.
func (e *SnapshotExporter) ExportSeasonalSummary(summaries []domain.WeightedSummaryRecord, path string) error {
	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, summaryRow(s, true))
	}
	return e.csvWriter.WriteSimpleCSV(path, summaryHeaders(true), records)
}

func cleanSnapshotHeaders() []string {
	return []string{
		"id", "svspp", "comname", "sciname",
		"year", "month", "day", "season", "strat_num",
		"lat", "lon", "surftemp", "bottemp", "depth",
		"est_towdate", "total_biomass_kg",
	}
}

func cleanRecordRow(r domain.CleanedBiomassRecord) []string {
	return []string{
		r.TowID,
		r.SpeciesCode,
		r.CommonName,
		r.ScientificName,
		formatInt(r.Year),
		formatInt(r.Month),
		formatInt(r.Day),
		r.Season,
		r.StratNum,
		formatFloat(r.Latitude),
		formatFloat(r.Longitude),
		formatFloat(r.SurfaceTemp),
		formatFloat(r.BottomTemp),
		formatFloat(r.Depth),
		r.TowDate,
		formatFloat(r.TotalBiomassKg),
	}
}

func summaryHeaders(seasonal bool) []string {
	headers := []string{"species"}
	if seasonal {
		headers = append(headers, "season")
	}
	return append(headers,
		"year", "decade", "tow_count",
		"total_biomass", "avg_biomass", "biomass_sd",
		"avg_lat", "avg_lon", "avg_sst", "avg_bot", "avg_depth",
	)
}

func summaryRow(s domain.WeightedSummaryRecord, seasonal bool) []string {
	row := []string{s.Species}
	if seasonal {
		row = append(row, s.Season)
	}
	return append(row,
		formatInt(s.Year),
		formatInt(s.Decade),
		formatInt(s.TowCount),
		formatFloat(s.TotalBiomass),
		formatFloat(s.AvgBiomass),
		formatFloat(s.BiomassSD),
		formatFloat(s.AvgLat),
		formatFloat(s.AvgLon),
		formatFloat(s.AvgSST),
		formatFloat(s.AvgBot),
		formatFloat(s.AvgDepth),
	)
}
