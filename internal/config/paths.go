package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the resolved filesystem layout. Relative configured paths are
// anchored at the executable directory, never the working directory, so the
// binary behaves identically wherever it is launched from.
//
// Layout:
//
//	<exe dir>/
//	  ├── data/
//	  │   ├── raw/        raw survey extracts + species reference list
//	  │   └── snapshots/  cleaned dataset and summary tables
//	  ├── logs/
//	  └── web/            dashboard assets
type Paths struct {
	ExecutableDir string
	DataDir       string
	LogsDir       string
	WebDir        string

	RawSnapshot     string
	SpeciesCodes    string
	CleanSnapshot   string
	AnnualSummary   string
	SeasonalSummary string
}

// ResolvePaths anchors the configured paths at the executable directory.
func ResolvePaths(cfg *PathsConfig) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	exeDir := filepath.Dir(exe)

	anchor := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(exeDir, p)
	}

	return &Paths{
		ExecutableDir:   exeDir,
		DataDir:         anchor(cfg.DataDir),
		LogsDir:         anchor(cfg.LogsDir),
		WebDir:          anchor(cfg.WebDir),
		RawSnapshot:     anchor(cfg.RawSnapshot),
		SpeciesCodes:    anchor(cfg.SpeciesCodes),
		CleanSnapshot:   anchor(cfg.CleanSnapshot),
		AnnualSummary:   anchor(cfg.AnnualSummary),
		SeasonalSummary: anchor(cfg.SeasonalSummary),
	}, nil
}

// EnsureDirectories creates every directory the application writes to.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.DataDir,
		p.LogsDir,
		filepath.Dir(p.RawSnapshot),
		filepath.Dir(p.CleanSnapshot),
		filepath.Dir(p.AnnualSummary),
		filepath.Dir(p.SeasonalSummary),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
