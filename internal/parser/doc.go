// Package parser extracts raw result rows from scraped meet result files.
//
// Four variants are registered, tried in this order when a source asks for
// "auto" detection:
//
//   - hytek_text: HyTek Meet Manager text output, plain or inside <pre>
//   - milesplit_multi: MileSplit pages with p.eventName headers and tables
//   - milesplit_single: MileSplit pages with one event table
//   - generic_table: any table (HTML or tab separated) with a header row
//
// Parsers are pure: they read only the bytes they are given and never touch
// the database. Rows that cannot be read are returned as Rejected with a
// reason rather than failing the whole file. Identical repeated rows are
// collapsed by their fingerprint.
package parser
