package aggregate

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"trawlscope/pkg/contracts/domain"
)

// Engine computes weighted summary statistics over the cleaned dataset. Each
// species' groups are independent and produce disjoint output rows, so the
// engine fans out across species bounded by maxConcurrency.
type Engine struct {
	logger         *slog.Logger
	maxConcurrency int
}

// NewEngine creates an aggregation engine. A non-positive concurrency bound
// falls back to GOMAXPROCS.
func NewEngine(logger *slog.Logger, maxConcurrency int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		logger:         logger.With(slog.String("component", "aggregate_engine")),
		maxConcurrency: maxConcurrency,
	}
}

// Aggregate produces one WeightedSummaryRecord per (species, year) group, or
// per (species, season, year) when the seasonal key is selected. Output is
// sorted by species, season and year so repeated runs are byte-identical.
func (e *Engine) Aggregate(ctx context.Context, records []domain.CleanedBiomassRecord, key domain.GroupKey) ([]domain.WeightedSummaryRecord, error) {
	start := time.Now()
	if len(records) == 0 {
		return []domain.WeightedSummaryRecord{}, nil
	}

	bySpecies := make(map[string][]domain.CleanedBiomassRecord)
	for _, r := range records {
		name := displaySpecies(r)
		bySpecies[name] = append(bySpecies[name], r)
	}

	species := make([]string, 0, len(bySpecies))
	for name := range bySpecies {
		species = append(species, name)
	}
	sort.Strings(species)

	e.logger.DebugContext(ctx, "starting aggregation",
		"group_key", string(key),
		"records", len(records),
		"species", len(species),
		"max_concurrency", e.maxConcurrency,
	)

	results := make([][]domain.WeightedSummaryRecord, len(species))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)
	for i, name := range species {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = summarizeSpecies(name, bySpecies[name], key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.WeightedSummaryRecord
	for _, rows := range results {
		out = append(out, rows...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Species != out[j].Species {
			return out[i].Species < out[j].Species
		}
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Year < out[j].Year
	})

	e.logger.InfoContext(ctx, "aggregation completed",
		"group_key", string(key),
		"summary_rows", len(out),
		"species", len(species),
		"duration", time.Since(start),
	)
	return out, nil
}

// summaryGroup is one (season, year) cell of a single species' records.
type summaryGroup struct {
	season string
	year   int
}

// summarizeSpecies computes every summary row for one species.
func summarizeSpecies(name string, records []domain.CleanedBiomassRecord, key domain.GroupKey) []domain.WeightedSummaryRecord {
	groups := make(map[summaryGroup][]domain.CleanedBiomassRecord)
	for _, r := range records {
		gk := summaryGroup{year: r.Year}
		if key == domain.GroupSeasonal {
			gk.season = r.Season
		}
		groups[gk] = append(groups[gk], r)
	}

	out := make([]domain.WeightedSummaryRecord, 0, len(groups))
	for gk, rows := range groups {
		weights := make([]float64, len(rows))
		lat := make([]float64, len(rows))
		lon := make([]float64, len(rows))
		sst := make([]float64, len(rows))
		bot := make([]float64, len(rows))
		depth := make([]float64, len(rows))
		for i, r := range rows {
			weights[i] = r.TotalBiomassKg
			lat[i] = r.Latitude
			lon[i] = r.Longitude
			sst[i] = r.SurfaceTemp
			bot[i] = r.BottomTemp
			depth[i] = r.Depth
		}

		out = append(out, domain.WeightedSummaryRecord{
			Species:      name,
			Season:       gk.season,
			Year:         gk.year,
			Decade:       domain.DecadeOf(gk.year),
			TowCount:     len(rows),
			TotalBiomass: Sum(weights),
			AvgBiomass:   Mean(weights),
			BiomassSD:    SampleStdDev(weights),
			AvgLat:       WeightedMean(lat, weights),
			AvgLon:       WeightedMean(lon, weights),
			AvgSST:       WeightedMean(sst, weights),
			AvgBot:       WeightedMean(bot, weights),
			AvgDepth:     WeightedMean(depth, weights),
		})
	}
	return out
}

// displaySpecies is the species label summaries are keyed by: the
// title-cased common name, or the raw code when the reference list had no
// match.
func displaySpecies(r domain.CleanedBiomassRecord) string {
	if r.CommonName == "" {
		return r.SpeciesCode
	}
	return domain.TitleCase(r.CommonName)
}
