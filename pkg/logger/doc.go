// Package logger provides the structured logging interface used across useretl.
//
// It wraps zerolog. Console output is colored and written to stderr so that
// the progress lines and the final report on stdout stay clean; when a log
// file is configured every entry is also appended to it as JSON.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//
//	logger.WithField("index", 37).Warn("fetch failed, skipping index")
//
//	log := logger.GetLogger().WithField("component", "ingest")
//	log.InfoWithFields("run finished", map[string]interface{}{
//	    "inserted": 149,
//	    "skipped":  1,
//	})
package logger
