package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"trawlscope/internal/aggregate"
	apperrors "trawlscope/internal/errors"
	"trawlscope/pkg/contracts/domain"
)

// SpeciesService answers the dashboard's species queries from the published
// dataset: the selector list, the annual trend series, and the seasonal
// series with decade centroids for the map view.
type SpeciesService struct {
	store  *SnapshotStore
	logger *slog.Logger
}

// NewSpeciesService creates a species service backed by the given store.
func NewSpeciesService(store *SnapshotStore, logger *slog.Logger) *SpeciesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeciesService{
		store:  store,
		logger: logger.With(slog.String("component", "species_service")),
	}
}

// SpeciesInfo is one entry of the species selector: the display name plus
// enough context to sort and label it.
type SpeciesInfo struct {
	Name          string  `json:"name"`
	FirstYear     int     `json:"first_year"`
	LastYear      int     `json:"last_year"`
	YearsObserved int     `json:"years_observed"`
	TotalBiomass  float64 `json:"total_biomass"`
}

// SeasonalSeries bundles the seasonal summary rows for one species with the
// per-decade biomass-weighted centroids derived from them.
type SeasonalSeries struct {
	Summaries []domain.WeightedSummaryRecord `json:"summaries"`
	Centroids []domain.DecadeCentroid        `json:"centroids"`
}

// List returns every eligible species, sorted by display name. Each annual
// summary row is one observed year for its species.
func (s *SpeciesService) List(ctx context.Context) ([]SpeciesInfo, error) {
	annual, err := s.store.Annual()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*SpeciesInfo)
	for _, row := range annual {
		info, ok := byName[row.Species]
		if !ok {
			info = &SpeciesInfo{
				Name:      row.Species,
				FirstYear: row.Year,
				LastYear:  row.Year,
			}
			byName[row.Species] = info
		}
		if row.Year < info.FirstYear {
			info.FirstYear = row.Year
		}
		if row.Year > info.LastYear {
			info.LastYear = row.Year
		}
		info.YearsObserved++
		info.TotalBiomass += row.TotalBiomass
	}

	out := make([]SpeciesInfo, 0, len(byName))
	for _, info := range byName {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	s.logger.DebugContext(ctx, "species list computed", slog.Int("species", len(out)))
	return out, nil
}

// AnnualSeries returns the annual summary rows for one species, oldest year
// first. Name matching is case-insensitive against the display name.
func (s *SpeciesService) AnnualSeries(ctx context.Context, name string) ([]domain.WeightedSummaryRecord, error) {
	annual, err := s.store.Annual()
	if err != nil {
		return nil, err
	}

	series := filterSpecies(annual, name)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSpecies, name)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
	return series, nil
}

// Seasonal returns the seasonal summary rows for one species together with
// the decade centroids computed from them. season narrows the result to
// "Spring" or "Fall"; empty keeps both.
func (s *SpeciesService) Seasonal(ctx context.Context, name, season string) (*SeasonalSeries, error) {
	canonical, err := canonicalSeason(season)
	if err != nil {
		return nil, err
	}

	seasonal, err := s.store.Seasonal()
	if err != nil {
		return nil, err
	}

	series := filterSpecies(seasonal, name)
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownSpecies, name)
	}

	if canonical != "" {
		narrowed := series[:0:0]
		for _, row := range series {
			if row.Season == canonical {
				narrowed = append(narrowed, row)
			}
		}
		series = narrowed
	}

	sort.Slice(series, func(i, j int) bool {
		if series[i].Season != series[j].Season {
			return series[i].Season < series[j].Season
		}
		return series[i].Year < series[j].Year
	})

	return &SeasonalSeries{
		Summaries: series,
		Centroids: aggregate.Centroids(series),
	}, nil
}

// filterSpecies selects rows whose display name matches case-insensitively.
func filterSpecies(rows []domain.WeightedSummaryRecord, name string) []domain.WeightedSummaryRecord {
	var out []domain.WeightedSummaryRecord
	for _, row := range rows {
		if strings.EqualFold(row.Species, name) {
			out = append(out, row)
		}
	}
	return out
}

// canonicalSeason maps a query value onto the normalized season labels.
func canonicalSeason(season string) (string, error) {
	switch {
	case season == "":
		return "", nil
	case strings.EqualFold(season, domain.SeasonSpring):
		return domain.SeasonSpring, nil
	case strings.EqualFold(season, domain.SeasonFall):
		return domain.SeasonFall, nil
	default:
		return "", apperrors.NewAppValidationError(fmt.Sprintf("unknown season %q, expected Spring or Fall", season))
	}
}
