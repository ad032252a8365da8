// Package ui holds the terminal output helpers: colored status lines that
// honor quiet and no-color modes, and the per-index progress printer used
// during a batch.
package ui
