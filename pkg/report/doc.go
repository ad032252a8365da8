// Package report turns one run's batch into the end-of-run statistics and a
// horizontal country chart drawn in the terminal.
package report
