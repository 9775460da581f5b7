package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "trawlscope/internal/errors"
	"trawlscope/pkg/contracts/domain"
)

// Loader reads snapshot tables from disk.
type Loader struct {
	logger *slog.Logger
}

// New creates a snapshot loader.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// RawSnapshot reads a raw tow-catch extract from a CSV file.
func (l *Loader) RawSnapshot(ctx context.Context, path string) ([]domain.RawTowCatch, error) {
	rows, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	return l.parseRawRows(ctx, rows, filepath.Base(path))
}

// SpeciesNames reads the species reference list from a CSV file.
func (l *Loader) SpeciesNames(ctx context.Context, path string) ([]domain.SpeciesName, error) {
	rows, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("species list %s is empty", filepath.Base(path)),
			apperrors.ErrSchemaMismatch,
		)
	}

	idx, err := headerIndex(rows[0], speciesColumns, "species list "+filepath.Base(path))
	if err != nil {
		return nil, err
	}

	names := make([]domain.SpeciesName, 0, len(rows)-1)
	for _, record := range rows[1:] {
		code := cell(record, idx[ColSpeciesCode])
		if code == "" {
			continue
		}
		names = append(names, domain.SpeciesName{
			Code:           code,
			CommonName:     cell(record, idx[ColCommonName]),
			ScientificName: cell(record, idx[ColScientificName]),
		})
	}

	l.logger.InfoContext(ctx, "species reference list loaded",
		slog.String("path", path),
		slog.Int("species", len(names)),
	)
	return names, nil
}

// CleanSnapshot reads a cleaned dataset persisted by an earlier pipeline
// run, so the serving layer can come up without recleaning the raw extract.
func (l *Loader) CleanSnapshot(ctx context.Context, path string) ([]domain.CleanedBiomassRecord, error) {
	rows, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("cleaned snapshot %s is empty", filepath.Base(path)),
			apperrors.ErrSchemaMismatch,
		)
	}

	idx, err := headerIndex(rows[0], cleanColumns, "cleaned snapshot "+filepath.Base(path))
	if err != nil {
		return nil, err
	}

	records := make([]domain.CleanedBiomassRecord, 0, len(rows)-1)
	for i, record := range rows[1:] {
		year, err := parseIntCell(cell(record, idx[ColYear]))
		if err != nil {
			l.logger.WarnContext(ctx, "skipping cleaned row with invalid year",
				slog.Int("line", i+2),
				slog.String("error", err.Error()))
			continue
		}
		biomass, err := parseFloatCell(cell(record, idx[ColTotalBiomass]))
		if err != nil || domain.IsMissing(biomass) {
			l.logger.WarnContext(ctx, "skipping cleaned row without biomass",
				slog.Int("line", i+2))
			continue
		}
		month, _ := parseIntCell(cell(record, idx[ColMonth]))
		day, _ := parseIntCell(cell(record, idx[ColDay]))

		records = append(records, domain.CleanedBiomassRecord{
			TowID:          cell(record, idx[ColTowID]),
			SpeciesCode:    cell(record, idx[ColSpeciesCode]),
			CommonName:     cell(record, idx[ColCommonName]),
			ScientificName: cell(record, idx[ColScientificName]),
			Year:           year,
			Month:          month,
			Day:            day,
			Season:         cell(record, idx[ColSeason]),
			StratNum:       cell(record, idx[ColStratNum]),
			Latitude:       floatOrMissing(cell(record, idx[ColLatitude])),
			Longitude:      floatOrMissing(cell(record, idx[ColLongitude])),
			SurfaceTemp:    floatOrMissing(cell(record, idx[ColSurfaceTemp])),
			BottomTemp:     floatOrMissing(cell(record, idx[ColBottomTemp])),
			Depth:          floatOrMissing(cell(record, idx[ColDepth])),
			TowDate:        cell(record, idx[ColTowDate]),
			TotalBiomassKg: biomass,
		})
	}

	l.logger.InfoContext(ctx, "cleaned snapshot loaded",
		slog.String("path", path),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// parseRawRows converts header-plus-data rows into raw catch records. Rows
// that cannot be placed at all (no parseable year) are logged and skipped;
// missing numeric cells become the missing sentinel and are the cleaning
// pipeline's business.
func (l *Loader) parseRawRows(ctx context.Context, rows [][]string, source string) ([]domain.RawTowCatch, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("raw snapshot %s is empty", source),
			apperrors.ErrSchemaMismatch,
		)
	}

	idx, err := headerIndex(rows[0], rawColumns, "raw snapshot "+source)
	if err != nil {
		return nil, err
	}

	records := make([]domain.RawTowCatch, 0, len(rows)-1)
	skipped := 0
	for i, record := range rows[1:] {
		year, err := parseIntCell(cell(record, idx[ColYear]))
		if err != nil {
			skipped++
			l.logger.WarnContext(ctx, "skipping raw row with invalid year",
				slog.String("source", source),
				slog.Int("line", i+2),
				slog.String("error", err.Error()))
			continue
		}

		records = append(records, domain.RawTowCatch{
			Cruise:      cell(record, idx[ColCruise]),
			Station:     cell(record, idx[ColStation]),
			Stratum:     cell(record, idx[ColStratum]),
			SpeciesCode: cell(record, idx[ColSpeciesCode]),
			Sex:         cell(record, idx[ColSex]),
			Year:        year,
			TowDate:     cell(record, idx[ColTowDate]),
			Season:      cell(record, idx[ColSeason]),
			Latitude:    floatOrMissing(cell(record, idx[ColLatitude])),
			Longitude:   floatOrMissing(cell(record, idx[ColLongitude])),
			SurfaceTemp: floatOrMissing(cell(record, idx[ColSurfaceTemp])),
			BottomTemp:  floatOrMissing(cell(record, idx[ColBottomTemp])),
			Depth:       floatOrMissing(cell(record, idx[ColDepth])),
			Biomass:     floatOrMissing(cell(record, idx[ColBiomass])),
			Abundance:   floatOrMissing(cell(record, idx[ColAbundance])),
		})
	}

	l.logger.InfoContext(ctx, "raw snapshot loaded",
		slog.String("source", source),
		slog.Int("records", len(records)),
		slog.Int("skipped", skipped),
	)
	return records, nil
}

// readCSVFile reads all rows of a CSV file, tolerating ragged records.
func readCSVFile(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrSnapshotNotFound, path)
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read %s", filepath.Base(path)), err)
	}
	return rows, nil
}

// parseFloatCell parses a numeric cell. Empty and NA cells are missing, not
// zero; the cleaning rules depend on that distinction.
func parseFloatCell(s string) (float64, error) {
	if isNACell(s) {
		return domain.Missing(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Missing(), fmt.Errorf("parse number %q: %w", s, err)
	}
	return v, nil
}

// floatOrMissing is parseFloatCell with unparseable values degraded to
// missing instead of failing the row.
func floatOrMissing(s string) float64 {
	v, err := parseFloatCell(s)
	if err != nil {
		return domain.Missing()
	}
	return v
}

func parseIntCell(s string) (int, error) {
	if isNACell(s) {
		return 0, fmt.Errorf("missing integer cell")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse integer %q: %w", s, err)
	}
	return v, nil
}

func isNACell(s string) bool {
	return s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan")
}
