// Package services implements the serving layer between the HTTP handlers
// and the pipeline output. The SnapshotStore holds the published dataset
// behind an RWMutex; it is replaced wholesale when a pipeline run publishes
// and never mutated, so readers share it without copying.
//
// # Available Services
//
//	- SnapshotStore: holds the currently served dataset (records, summary
//	  tables, audit); implements the operations publish contract
//	- SpeciesService: species selector list, annual trend series, seasonal
//	  series with decade centroids
//	- DatasetService: dataset and snapshot-file status
//	- HealthService: liveness, readiness, version, system stats
//
// Services return the sentinel errors from internal/errors (for example
// ErrDatasetNotLoaded and ErrUnknownSpecies); the transport layer maps them
// onto RFC 7807 problem responses.
package services
