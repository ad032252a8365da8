package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"useretl/pkg/config"
	errs "useretl/pkg/errors"
	"useretl/pkg/logger"
	"useretl/pkg/metrics"
	"useretl/pkg/models"
	"useretl/pkg/storage"
	"useretl/pkg/transform"
)

// DefaultBatchSize is the number of indices processed per run
const DefaultBatchSize = 150

// Options configures an Orchestrator
type Options struct {
	BatchSize int
	// OnFetchFailure is config.OnFetchFailureSkip or config.OnFetchFailureStop
	OnFetchFailure string
	// Now is used for age calculation and run timestamps
	Now func() time.Time
}

// Result describes one batch run
type Result struct {
	RunID            string
	Batch            []models.UserInfo
	Skipped          []int
	StartIndex       int
	EndIndex         int
	CheckpointBefore int
	CheckpointAfter  int
	// Fetched counts successful fetches, including rows later rejected by
	// transform or insert
	Fetched int
	// HaltedAt is the index that ended the batch under the stop policy, or -1
	HaltedAt int
}

// Inserted returns the number of rows committed in this run
func (r *Result) Inserted() int {
	return len(r.Batch)
}

// Orchestrator runs the fetch, transform, insert, checkpoint loop
type Orchestrator struct {
	fetcher    Fetcher
	store      Store
	checkpoint Checkpointer
	progress   Progress
	opts       Options
	logger     logger.Logger
}

// New creates an orchestrator
func New(fetcher Fetcher, store Store, checkpoint Checkpointer, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.OnFetchFailure == "" {
		opts.OnFetchFailure = config.OnFetchFailureSkip
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		fetcher:    fetcher,
		store:      store,
		checkpoint: checkpoint,
		opts:       opts,
		logger:     logger.GetLogger().WithField("component", "ingest"),
	}
}

// SetProgress installs a per-index progress callback
func (o *Orchestrator) SetProgress(p Progress) {
	o.progress = p
}

// SetLogger replaces the orchestrator logger
func (o *Orchestrator) SetLogger(l logger.Logger) {
	o.logger = l
}

// Run processes indices checkpoint+1 through checkpoint+BatchSize.
//
// A fetch failure skips the index (or ends the batch under the stop policy)
// and never advances the checkpoint for it. Each row is committed on its own
// and the checkpoint is written after the commit. Parse, persist and
// checkpoint errors end the run; the returned Result then holds the partial
// batch.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	started := o.opts.Now()

	last, err := o.checkpoint.Read()
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:            uuid.NewString(),
		StartIndex:       last + 1,
		EndIndex:         last + o.opts.BatchSize,
		CheckpointBefore: last,
		CheckpointAfter:  last,
		HaltedAt:         -1,
	}

	log := o.logger.WithField("run_id", result.RunID)
	log.InfoWithFields("starting batch", map[string]interface{}{
		"start_index": result.StartIndex,
		"end_index":   result.EndIndex,
		"policy":      o.opts.OnFetchFailure,
	})

	runErr := o.loop(ctx, result, log)

	o.finish(ctx, result, started, runErr, log)
	return result, runErr
}

func (o *Orchestrator) loop(ctx context.Context, result *Result, log logger.Logger) error {
	for i := result.StartIndex; i <= result.EndIndex; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted before index %d: %w", i, err)
		}

		raw, err := o.fetcher.FetchUser(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("run interrupted at index %d: %w", i, ctxErr)
			}
			if !errs.IsFetch(err) {
				return err
			}

			metrics.IndicesTotal.WithLabelValues(metrics.ResultSkipped).Inc()
			o.attempted(i, false)

			if o.opts.OnFetchFailure == config.OnFetchFailureStop {
				result.HaltedAt = i
				log.WarnWithFields("fetch failed, stopping batch", map[string]interface{}{
					"index": i,
					"error": err.Error(),
				})
				return nil
			}

			result.Skipped = append(result.Skipped, i)
			log.WarnWithFields("fetch failed, skipping index", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		result.Fetched++

		user, err := transform.TransformAt(raw, o.opts.Now())
		if err != nil {
			metrics.IndicesTotal.WithLabelValues(metrics.ResultFailed).Inc()
			return fmt.Errorf("index %d: %w", i, err)
		}

		if err := o.store.InsertUser(ctx, &user); err != nil {
			metrics.IndicesTotal.WithLabelValues(metrics.ResultFailed).Inc()
			return fmt.Errorf("index %d: %w", i, err)
		}
		metrics.RowsInserted.Inc()

		// The row is already committed, so it belongs to the batch even if
		// recording the checkpoint fails below.
		result.Batch = append(result.Batch, user)

		if err := o.checkpoint.Write(i); err != nil {
			metrics.IndicesTotal.WithLabelValues(metrics.ResultFailed).Inc()
			return fmt.Errorf("index %d: %w", i, err)
		}
		result.CheckpointAfter = i
		metrics.CheckpointIndex.Set(float64(i))
		metrics.IndicesTotal.WithLabelValues(metrics.ResultInserted).Inc()

		o.attempted(i, true)
	}
	return nil
}

func (o *Orchestrator) attempted(index int, inserted bool) {
	if o.progress != nil {
		o.progress.Attempted(index, inserted)
	}
}

// finish records run metrics and the audit row. A failure to write the audit
// row is logged and does not change the run outcome.
func (o *Orchestrator) finish(ctx context.Context, result *Result, started time.Time, runErr error, log logger.Logger) {
	finished := o.opts.Now()
	metrics.RunDuration.Set(finished.Sub(started).Seconds())
	if runErr == nil {
		metrics.LastRunSuccess.Set(1)
	} else {
		metrics.LastRunSuccess.Set(0)
	}

	run := &storage.RunDao{
		RunID:            result.RunID,
		StartIndex:       result.StartIndex,
		EndIndex:         result.EndIndex,
		CheckpointBefore: result.CheckpointBefore,
		CheckpointAfter:  result.CheckpointAfter,
		Fetched:          result.Fetched,
		Inserted:         len(result.Batch),
		Skipped:          len(result.Skipped),
		SkippedIndices:   toInt64(result.Skipped),
		Policy:           o.opts.OnFetchFailure,
		StartedAt:        started.UTC(),
		FinishedAt:       finished.UTC(),
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}

	// The audit row is written even when ctx was cancelled.
	recordCtx := context.WithoutCancel(ctx)
	if err := o.store.RecordRun(recordCtx, run); err != nil {
		log.WithError(err).Error("failed to record run")
	}

	fields := map[string]interface{}{
		"fetched":          result.Fetched,
		"inserted":         len(result.Batch),
		"skipped":          len(result.Skipped),
		"checkpoint_after": result.CheckpointAfter,
		"duration":         finished.Sub(started),
	}
	if len(result.Skipped) > 0 {
		fields["skipped_indices"] = result.Skipped
	}
	if runErr != nil {
		log.WithError(runErr).ErrorWithFields("batch aborted", fields)
		return
	}
	log.InfoWithFields("batch finished", fields)
}

func toInt64(in []int) []int64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
