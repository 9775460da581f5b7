package operations

import (
	"context"
	"fmt"
	"log/slog"

	"trawlscope/internal/config"
	"trawlscope/internal/survey"
	"trawlscope/pkg/contracts/domain"
)

// RawSource loads raw survey extracts and the species reference list.
// *loader.Loader satisfies this.
type RawSource interface {
	RawSnapshot(ctx context.Context, path string) ([]domain.RawTowCatch, error)
	RawWorkbook(ctx context.Context, path, sheet string) ([]domain.RawTowCatch, error)
	SpeciesNames(ctx context.Context, path string) ([]domain.SpeciesName, error)
}

// Cleaner turns a raw snapshot into the canonical cleaned dataset.
// *survey.Pipeline satisfies this.
type Cleaner interface {
	Clean(ctx context.Context, raw []domain.RawTowCatch, names []domain.SpeciesName) (*survey.Result, error)
}

// Aggregator computes weighted summaries for one grouping.
// *aggregate.Engine satisfies this.
type Aggregator interface {
	Aggregate(ctx context.Context, records []domain.CleanedBiomassRecord, key domain.GroupKey) ([]domain.WeightedSummaryRecord, error)
}

// SnapshotWriter persists the cleaned dataset and the summary tables.
// *exporter.SnapshotExporter satisfies this.
type SnapshotWriter interface {
	ExportCleanSnapshot(records []domain.CleanedBiomassRecord, path string) error
	ExportAnnualSummary(summaries []domain.WeightedSummaryRecord, path string) error
	ExportSeasonalSummary(summaries []domain.WeightedSummaryRecord, path string) error
}

// Publisher receives a finished dataset for serving. The services layer
// implements this; the publish step hands it the run's outputs atomically.
type Publisher interface {
	PublishDataset(records []domain.CleanedBiomassRecord, annual, seasonal []domain.WeightedSummaryRecord, audit domain.CleaningAudit)
}

// LoadStep reads the raw tow-catch snapshot and the species reference list
// from disk into the run context.
type LoadStep struct {
	source RawSource
	paths  *config.Paths
	format string
	logger *slog.Logger
}

// NewLoadStep creates the loading step. format selects the raw reader,
// "csv" or "xlsx".
func NewLoadStep(source RawSource, paths *config.Paths, format string, logger *slog.Logger) *LoadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadStep{
		source: source,
		paths:  paths,
		format: format,
		logger: logger.With(slog.String("step", domain.StepIDLoad)),
	}
}

func (s *LoadStep) ID() string   { return domain.StepIDLoad }
func (s *LoadStep) Name() string { return domain.StepNameLoad }

// Validate checks the step wiring before the run starts it.
func (s *LoadStep) Validate(state *OperationState) error {
	if s.source == nil {
		return fmt.Errorf("load step has no raw source")
	}
	if s.paths == nil {
		return fmt.Errorf("load step has no resolved paths")
	}
	_, format := s.snapshotSource(state)
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("unknown raw snapshot format: %q", format)
	}
	return nil
}

// snapshotSource resolves the raw snapshot path and reader format, applying
// per-run overrides over the configured defaults.
func (s *LoadStep) snapshotSource(state *OperationState) (path, format string) {
	path, format = s.paths.RawSnapshot, s.format
	opts := state.Options()
	if opts.Source != "" {
		path = opts.Source
	}
	if opts.Format != "" {
		format = opts.Format
	}
	return path, format
}

// Execute reads the raw snapshot and species names. A missing species list
// is not fatal: cleaning falls back to species codes for display names.
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	path, format := s.snapshotSource(state)
	state.StepProgress(s.ID(), 5, "Reading raw snapshot")

	var (
		raw []domain.RawTowCatch
		err error
	)
	switch format {
	case "xlsx":
		raw, err = s.source.RawWorkbook(ctx, path, "")
	default:
		raw, err = s.source.RawSnapshot(ctx, path)
	}
	if err != nil {
		return fmt.Errorf("failed to load raw snapshot: %w", err)
	}

	state.StepProgress(s.ID(), 60, fmt.Sprintf("Loaded %d raw rows", len(raw)))

	names, err := s.source.SpeciesNames(ctx, s.paths.SpeciesCodes)
	if err != nil {
		s.logger.WarnContext(ctx, "species reference list unavailable, display names fall back to codes",
			slog.String("path", s.paths.SpeciesCodes),
			slog.String("error", err.Error()),
		)
		names = nil
	}

	state.SetContext(ctxKeyRawRecords, raw)
	state.SetContext(ctxKeySpeciesNames, names)

	state.StepProgress(s.ID(), 100, fmt.Sprintf("Loaded %d rows, %d species names", len(raw), len(names)))
	return nil
}

// CleanStep runs the cleaning pipeline over the loaded raw snapshot.
type CleanStep struct {
	cleaner Cleaner
	logger  *slog.Logger
}

// NewCleanStep creates the cleaning step.
func NewCleanStep(cleaner Cleaner, logger *slog.Logger) *CleanStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanStep{
		cleaner: cleaner,
		logger:  logger.With(slog.String("step", domain.StepIDClean)),
	}
}

func (s *CleanStep) ID() string   { return domain.StepIDClean }
func (s *CleanStep) Name() string { return domain.StepNameClean }

func (s *CleanStep) Validate(state *OperationState) error {
	if s.cleaner == nil {
		return fmt.Errorf("clean step has no cleaner")
	}
	if _, ok := state.GetContext(ctxKeyRawRecords); !ok {
		return fmt.Errorf("run context missing raw records")
	}
	return nil
}

func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	raw, err := rawFromState(state)
	if err != nil {
		return err
	}
	names := namesFromState(state)

	state.StepProgress(s.ID(), 10, fmt.Sprintf("Cleaning %d raw rows", len(raw)))

	result, err := s.cleaner.Clean(ctx, raw, names)
	if err != nil {
		return fmt.Errorf("cleaning pipeline failed: %w", err)
	}

	state.SetContext(ctxKeyCleanRecords, result.Records)
	state.SetContext(ctxKeyAudit, &result.Audit)

	state.StepProgress(s.ID(), 100, fmt.Sprintf("Kept %d of %d rows, %d eligible species",
		result.Audit.CleanRows, result.Audit.RawRows, result.Audit.SpeciesEligible))
	return nil
}

// AggregateStep computes the annual and seasonal weighted summaries from the
// cleaned dataset.
type AggregateStep struct {
	engine Aggregator
	logger *slog.Logger
}

// NewAggregateStep creates the aggregation step.
func NewAggregateStep(engine Aggregator, logger *slog.Logger) *AggregateStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AggregateStep{
		engine: engine,
		logger: logger.With(slog.String("step", domain.StepIDAggregate)),
	}
}

func (s *AggregateStep) ID() string   { return domain.StepIDAggregate }
func (s *AggregateStep) Name() string { return domain.StepNameAggregate }

func (s *AggregateStep) Validate(state *OperationState) error {
	if s.engine == nil {
		return fmt.Errorf("aggregate step has no engine")
	}
	if _, ok := state.GetContext(ctxKeyCleanRecords); !ok {
		return fmt.Errorf("run context missing cleaned records")
	}
	return nil
}

func (s *AggregateStep) Execute(ctx context.Context, state *OperationState) error {
	records, err := cleanFromState(state)
	if err != nil {
		return err
	}

	state.StepProgress(s.ID(), 10, "Computing annual summaries")
	annual, err := s.engine.Aggregate(ctx, records, domain.GroupAnnual)
	if err != nil {
		return fmt.Errorf("annual aggregation failed: %w", err)
	}

	state.StepProgress(s.ID(), 55, "Computing seasonal summaries")
	seasonal, err := s.engine.Aggregate(ctx, records, domain.GroupSeasonal)
	if err != nil {
		return fmt.Errorf("seasonal aggregation failed: %w", err)
	}

	state.SetContext(ctxKeyAnnual, annual)
	state.SetContext(ctxKeySeasonal, seasonal)

	state.StepProgress(s.ID(), 100, fmt.Sprintf("Computed %d annual and %d seasonal summaries",
		len(annual), len(seasonal)))
	return nil
}

// ExportStep writes the cleaned snapshot and both summary tables to disk.
type ExportStep struct {
	writer SnapshotWriter
	paths  *config.Paths
	logger *slog.Logger
}

// NewExportStep creates the export step.
func NewExportStep(writer SnapshotWriter, paths *config.Paths, logger *slog.Logger) *ExportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportStep{
		writer: writer,
		paths:  paths,
		logger: logger.With(slog.String("step", domain.StepIDExport)),
	}
}

func (s *ExportStep) ID() string   { return domain.StepIDExport }
func (s *ExportStep) Name() string { return domain.StepNameExport }

func (s *ExportStep) Validate(state *OperationState) error {
	if s.writer == nil {
		return fmt.Errorf("export step has no snapshot writer")
	}
	if s.paths == nil {
		return fmt.Errorf("export step has no resolved paths")
	}
	if _, ok := state.GetContext(ctxKeyCleanRecords); !ok {
		return fmt.Errorf("run context missing cleaned records")
	}
	if _, ok := state.GetContext(ctxKeyAnnual); !ok {
		return fmt.Errorf("run context missing annual summaries")
	}
	return nil
}

func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	if state.Options().DryRun {
		state.StepProgress(s.ID(), 100, "Dry run: snapshots not written")
		return nil
	}

	records, err := cleanFromState(state)
	if err != nil {
		return err
	}
	annual, err := summariesFromState(state, ctxKeyAnnual)
	if err != nil {
		return err
	}
	seasonal, err := summariesFromState(state, ctxKeySeasonal)
	if err != nil {
		return err
	}

	state.StepProgress(s.ID(), 10, fmt.Sprintf("Writing clean snapshot (%d rows)", len(records)))
	if err := s.writer.ExportCleanSnapshot(records, s.paths.CleanSnapshot); err != nil {
		return fmt.Errorf("failed to export clean snapshot: %w", err)
	}

	state.StepProgress(s.ID(), 60, "Writing annual summary")
	if err := s.writer.ExportAnnualSummary(annual, s.paths.AnnualSummary); err != nil {
		return fmt.Errorf("failed to export annual summary: %w", err)
	}

	state.StepProgress(s.ID(), 85, "Writing seasonal summary")
	if err := s.writer.ExportSeasonalSummary(seasonal, s.paths.SeasonalSummary); err != nil {
		return fmt.Errorf("failed to export seasonal summary: %w", err)
	}

	state.StepProgress(s.ID(), 100, "Snapshots written")
	return nil
}

// PublishStep pushes the finished dataset into the serving layer so the API
// and dashboard switch to it atomically.
type PublishStep struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewPublishStep creates the publication step.
func NewPublishStep(publisher Publisher, logger *slog.Logger) *PublishStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishStep{
		publisher: publisher,
		logger:    logger.With(slog.String("step", domain.StepIDPublish)),
	}
}

func (s *PublishStep) ID() string   { return domain.StepIDPublish }
func (s *PublishStep) Name() string { return domain.StepNamePublish }

func (s *PublishStep) Validate(state *OperationState) error {
	if s.publisher == nil {
		return fmt.Errorf("publish step has no publisher")
	}
	if _, ok := state.GetContext(ctxKeyCleanRecords); !ok {
		return fmt.Errorf("run context missing cleaned records")
	}
	return nil
}

func (s *PublishStep) Execute(ctx context.Context, state *OperationState) error {
	if state.Options().DryRun {
		state.StepProgress(s.ID(), 100, "Dry run: dataset not published")
		return nil
	}

	records, err := cleanFromState(state)
	if err != nil {
		return err
	}
	annual, err := summariesFromState(state, ctxKeyAnnual)
	if err != nil {
		return err
	}
	seasonal, err := summariesFromState(state, ctxKeySeasonal)
	if err != nil {
		return err
	}
	audit, err := auditFromState(state)
	if err != nil {
		return err
	}

	state.StepProgress(s.ID(), 50, "Publishing dataset")
	s.publisher.PublishDataset(records, annual, seasonal, *audit)

	state.StepProgress(s.ID(), 100, fmt.Sprintf("Published %d records", len(records)))
	return nil
}

func rawFromState(state *OperationState) ([]domain.RawTowCatch, error) {
	val, ok := state.GetContext(ctxKeyRawRecords)
	if !ok {
		return nil, fmt.Errorf("run context missing raw records")
	}
	raw, ok := val.([]domain.RawTowCatch)
	if !ok {
		return nil, fmt.Errorf("run context holds unexpected raw records type %T", val)
	}
	return raw, nil
}

func namesFromState(state *OperationState) []domain.SpeciesName {
	val, ok := state.GetContext(ctxKeySpeciesNames)
	if !ok {
		return nil
	}
	names, _ := val.([]domain.SpeciesName)
	return names
}

func cleanFromState(state *OperationState) ([]domain.CleanedBiomassRecord, error) {
	val, ok := state.GetContext(ctxKeyCleanRecords)
	if !ok {
		return nil, fmt.Errorf("run context missing cleaned records")
	}
	records, ok := val.([]domain.CleanedBiomassRecord)
	if !ok {
		return nil, fmt.Errorf("run context holds unexpected cleaned records type %T", val)
	}
	return records, nil
}

func summariesFromState(state *OperationState, key string) ([]domain.WeightedSummaryRecord, error) {
	val, ok := state.GetContext(key)
	if !ok {
		return nil, fmt.Errorf("run context missing %s", key)
	}
	summaries, ok := val.([]domain.WeightedSummaryRecord)
	if !ok {
		return nil, fmt.Errorf("run context holds unexpected %s type %T", key, val)
	}
	return summaries, nil
}

func auditFromState(state *OperationState) (*domain.CleaningAudit, error) {
	val, ok := state.GetContext(ctxKeyAudit)
	if !ok {
		return nil, fmt.Errorf("run context missing cleaning audit")
	}
	audit, ok := val.(*domain.CleaningAudit)
	if !ok {
		return nil, fmt.Errorf("run context holds unexpected audit type %T", val)
	}
	return audit, nil
}
