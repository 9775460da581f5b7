package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apperrors "trawlscope/internal/errors"
	"trawlscope/pkg/contracts/domain"
)

// RawWorkbook reads a raw tow-catch extract from an XLSX workbook. An empty
// sheet name selects the first sheet that holds data. The rows then flow
// through the same header-mapped parsing as the CSV path.
func (l *Loader) RawWorkbook(ctx context.Context, path, sheet string) ([]domain.RawTowCatch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrSnapshotNotFound, path)
		}
		return nil, apperrors.NewParsingError(fmt.Sprintf("open workbook %s", filepath.Base(path)), err)
	}
	defer f.Close()

	rows, sheetName, err := workbookRows(f, sheet)
	if err != nil {
		return nil, err
	}

	l.logger.DebugContext(ctx, "reading raw workbook",
		slog.String("path", path),
		slog.String("sheet", sheetName),
		slog.Int("rows", len(rows)),
	)
	return l.parseRawRows(ctx, rows, filepath.Base(path))
}

// workbookRows returns the rows of the named sheet, or of the first sheet
// with more than a header row when no name is given.
func workbookRows(f *excelize.File, sheet string) ([][]string, string, error) {
	if sheet != "" {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, "", apperrors.NewParsingError(fmt.Sprintf("read sheet %q", sheet), err)
		}
		return rows, sheet, nil
	}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if len(rows) > 1 {
			return rows, name, nil
		}
	}
	return nil, "", apperrors.NewSchemaError("workbook contains no data sheet", apperrors.ErrSchemaMismatch)
}
