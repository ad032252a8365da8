// Package storage persists transformed users in PostgreSQL through bun.
//
// Two tables are managed: random_users holds one row per ingested user and
// ingest_runs keeps an audit row per batch run, including the indices that
// were skipped because every fetch attempt failed. Both are created with
// CREATE TABLE IF NOT EXISTS; there is no migration tooling.
package storage
