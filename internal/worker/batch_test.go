package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/compliance-radar/internal/model"
)

type mockTriager struct {
	calls int32
	delay func(id string) time.Duration
	fail  map[string]bool
}

func (m *mockTriager) Triage(ctx context.Context, incident model.Incident) (*model.Assessment, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay != nil {
		select {
		case <-time.After(m.delay(incident.ID)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.fail[incident.ID] {
		return nil, errors.New("triage failed")
	}
	return &model.Assessment{Incident: incident}, nil
}

func incidents(ids ...string) []model.Incident {
	out := make([]model.Incident, len(ids))
	for i, id := range ids {
		out[i] = model.Incident{ID: id, Narrative: "narrative " + id}
	}
	return out
}

func TestBatchProcessor_PreservesOrder(t *testing.T) {
	// Earlier incidents finish last
	triager := &mockTriager{delay: func(id string) time.Duration {
		return time.Duration(10-len(strings.TrimPrefix(id, "n"))) * 3 * time.Millisecond
	}}
	processor := NewBatchProcessor(triager, 4)

	in := incidents("n1", "n22", "n333", "n4444", "n55555", "n666666")
	results := processor.Process(context.Background(), in)

	if len(results) != len(in) {
		t.Fatalf("expected %d results, got %d", len(in), len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Fatalf("unexpected error at %d: %v", i, res.Error)
		}
		if res.Index != i {
			t.Errorf("expected index %d, got %d", i, res.Index)
		}
		if res.Assessment.Incident.ID != in[i].ID {
			t.Errorf("expected %s at %d, got %s", in[i].ID, i, res.Assessment.Incident.ID)
		}
	}
}

func TestBatchProcessor_Errors(t *testing.T) {
	triager := &mockTriager{fail: map[string]bool{"b": true}}
	processor := NewBatchProcessor(triager, 2)

	results := processor.Process(context.Background(), incidents("a", "b", "c"))

	if results[1].GetError() == nil {
		t.Error("expected error for b")
	}
	if results[1].Assessment != nil {
		t.Error("expected nil assessment on error")
	}
	if results[0].GetError() != nil || results[2].GetError() != nil {
		t.Error("expected other incidents to succeed")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockTriager{}, 2)

	results := processor.Process(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ManyIncidents(t *testing.T) {
	triager := &mockTriager{}
	processor := NewBatchProcessor(triager, 3)

	ids := make([]string, 200)
	for i := range ids {
		ids[i] = string(rune('a'+i%26)) + strings.Repeat("x", i/26)
	}

	var progressCalls int32
	processor.OnProgress(func(done, total int) {
		atomic.AddInt32(&progressCalls, 1)
		if total != 200 {
			t.Errorf("expected total 200, got %d", total)
		}
	})

	results := processor.Process(context.Background(), incidents(ids...))

	if len(results) != 200 {
		t.Fatalf("expected 200 results, got %d", len(results))
	}
	if atomic.LoadInt32(&triager.calls) != 200 {
		t.Errorf("expected 200 triage calls, got %d", triager.calls)
	}
	if atomic.LoadInt32(&progressCalls) != 200 {
		t.Errorf("expected 200 progress callbacks, got %d", progressCalls)
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	triager := &mockTriager{delay: func(string) time.Duration { return 50 * time.Millisecond }}
	processor := NewBatchProcessor(triager, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	results := processor.Process(ctx, incidents("a", "b", "c", "d"))

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("expected placeholder result at %d", i)
		}
		if !errors.Is(res.Error, context.DeadlineExceeded) {
			t.Errorf("expected deadline error for incident %d, got %v", i, res.Error)
		}
	}
}

func TestBatchProcessor_CancelDropsQueue(t *testing.T) {
	triager := &mockTriager{delay: func(string) time.Duration { return time.Second }}
	processor := NewBatchProcessor(triager, 2)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	results := processor.Process(ctx, incidents("a", "b", "c", "d", "e", "f", "g", "h"))

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("expected cancellation to return promptly, took %s", elapsed)
	}
	for i, res := range results {
		if !errors.Is(res.GetError(), context.Canceled) {
			t.Errorf("expected canceled error for incident %d, got %v", i, res.GetError())
		}
	}
}

func TestTriageResult_GetError(t *testing.T) {
	r1 := &TriageResult{Index: 0}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("gateway down")
	r2 := &TriageResult{Index: 1, Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
