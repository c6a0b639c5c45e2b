package worker

import (
	"context"
	"fmt"

	"github.com/ppiankov/compliance-radar/internal/model"
)

// Triager assesses one incident
type Triager interface {
	Triage(ctx context.Context, incident model.Incident) (*model.Assessment, error)
}

// TriageJob assesses the incident at Index of a batch
type TriageJob struct {
	Index    int
	Incident model.Incident
	Triager  Triager
}

// Execute runs the triage
func (j *TriageJob) Execute(ctx context.Context) Result {
	assessment, err := j.Triager.Triage(ctx, j.Incident)
	return &TriageResult{
		Index:      j.Index,
		Assessment: assessment,
		Error:      err,
	}
}

// TriageResult is the outcome for one incident
type TriageResult struct {
	Index      int
	Assessment *model.Assessment
	Error      error
}

// GetError returns the triage error, if any
func (r *TriageResult) GetError() error {
	return r.Error
}

// ProgressFunc is called after each incident finishes with the number done
// so far and the batch size
type ProgressFunc func(done, total int)

// BatchProcessor triages many incidents concurrently
type BatchProcessor struct {
	triager     Triager
	concurrency int
	progress    ProgressFunc
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(triager Triager, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		triager:     triager,
		concurrency: concurrency,
	}
}

// OnProgress registers a progress callback
func (b *BatchProcessor) OnProgress(fn ProgressFunc) *BatchProcessor {
	b.progress = fn
	return b
}

// Process triages every incident and returns results in input order.
// Incidents left unprocessed because ctx was cancelled carry ctx's error.
func (b *BatchProcessor) Process(ctx context.Context, incidents []model.Incident) []*TriageResult {
	results := make([]*TriageResult, len(incidents))
	if len(incidents) == 0 {
		return results
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Cancellation drops queued incidents instead of draining them
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			pool.Shutdown()
		case <-finished:
		}
	}()

	go func() {
		for i, incident := range incidents {
			job := &TriageJob{Index: i, Incident: incident, Triager: b.triager}
			if !pool.Submit(job) {
				break
			}
		}
		pool.Close()
	}()

	done := 0
	for res := range pool.Results() {
		tr := res.(*TriageResult)
		results[tr.Index] = tr
		done++
		if b.progress != nil {
			b.progress(done, len(incidents))
		}
	}

	for i := range results {
		if results[i] != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("incident %d was not processed", i)
		}
		results[i] = &TriageResult{Index: i, Error: err}
	}

	return results
}
