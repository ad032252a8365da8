// Package ingest drives one batch run: it reads the checkpoint, then for each
// index fetches a user, transforms it, inserts it and advances the
// checkpoint.
//
// The checkpoint is a high-water mark. Under the default skip policy an index
// whose fetch failed is lost for good once a later index succeeds; the
// skipped indices are returned in the Result and stored in ingest_runs.
// Under the stop policy the batch ends at the first failed fetch so the next
// run retries that index.
package ingest
