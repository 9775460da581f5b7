// Package aggregate implements the weighted aggregation engine: it turns the
// cleaned survey dataset into decade-binned, biomass-weighted summary
// statistics per species, grouped annually for the trend plots or by season
// for the map view.
//
// All statistics treat NaN as a missing value and exclude it pairwise; a
// group whose weights are all zero or missing yields a missing statistic,
// never a division-by-zero fault. Aggregation is pure and side-effect-free,
// so concurrent callers may share one engine and the cleaned dataset without
// locking.
package aggregate
