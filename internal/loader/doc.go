// Package loader reads the tabular snapshots the pipeline consumes: the raw
// tow-catch extract (CSV or XLSX), the species reference list, and the
// cleaned snapshot persisted by an earlier run.
//
// Columns are located by header name, not position, and a snapshot missing a
// required column aborts the load with an error naming every absent column;
// silent column absence would corrupt every downstream stage. Empty and "NA"
// cells load as the missing sentinel, never as zero. Individual rows that
// fail to parse are logged and skipped.
package loader
