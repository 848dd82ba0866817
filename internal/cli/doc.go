// Package cli implements the command-line interface for trackstats.
//
// The cli package provides the Cobra-based CLI: load ingests meet documents,
// records import loads historical school records, and prs, bests and stats
// query the database. Output is a table or JSON, and the exit status tells
// a clean run (0) from a fatal error (1) and a run with warnings (2).
package cli
