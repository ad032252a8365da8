// Package checkpoint persists the ingestion high-water mark: the index of the
// last row that was fetched, transformed and committed.
//
// The file holds a single base-10 integer. A missing file reads as None (-1),
// so a first run starts at index 0. Writes go through a temporary file that is
// synced and renamed over the old one.
package checkpoint
