// Package storage provides the SQLite persistence for track results.
//
// The store holds athletes, events, meets, results and relay members, plus
// the derived views consumed by the web front end (v_personal_records,
// v_team_bests and v_team_bests_by_season). The schema is embedded and
// applied on Open.
//
// Every write goes through a Tx obtained from WithTx so one meet is loaded
// all-or-nothing. Entities are found or created by natural key with
// INSERT ... ON CONFLICT DO NOTHING followed by a lookup, never by a read
// before the write.
//
// The database file is the only concurrency guard: callers must not run two
// loads against the same file at once. Readers are unrestricted.
package storage
