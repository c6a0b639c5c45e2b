package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/report"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 20, 18, 30, 0, 0, time.UTC) }

type fakeClassifier struct {
	byKeyword map[string]model.Category
	err       error
	calls     int32
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Classify(ctx context.Context, text string, labels []model.Category) ([]model.Prediction, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	for kw, c := range f.byKeyword {
		if strings.Contains(text, kw) {
			return []model.Prediction{{Category: c, Confidence: 0.9, Status: model.PredictionClassified}}, nil
		}
	}
	return []model.Prediction{}, nil
}

type fakeRecognizer struct {
	err error
}

func (f *fakeRecognizer) Name() string { return "fake-ner" }

func (f *fakeRecognizer) Recognize(ctx context.Context, text string) ([]model.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Entity{{Text: "Quito", Type: model.EntityLocation, Confidence: 0.9}}, nil
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestTriage_FullPath(t *testing.T) {
	p := NewPipeline(model.DefaultConfig(),
		WithClassifier(&fakeClassifier{byKeyword: map[string]model.Category{"threat": model.CategoryCoercion}}),
		WithRecognizer(&fakeRecognizer{}),
		WithClock(fixedNow),
	)

	incident := model.Incident{Narrative: "On 15/03/2024 a man made a threat with a weapon and demanded $1,500."}
	a, err := p.Triage(context.Background(), incident)
	if err != nil {
		t.Fatalf("Triage failed: %v", err)
	}

	if a.Prediction.Category != model.CategoryCoercion || !a.Prediction.Available() {
		t.Errorf("expected classified coercion, got %+v", a.Prediction)
	}
	if len(a.Entities) != 1 {
		t.Errorf("expected 1 entity, got %d", len(a.Entities))
	}
	if len(a.Fields.Dates) != 1 || a.Fields.Dates[0] != "15/03/2024" {
		t.Errorf("unexpected dates %v", a.Fields.Dates)
	}
	// severe 3 + amount 1 + violence 1 + recent 1
	if a.Risk.Score != 6 {
		t.Errorf("expected risk 6, got %d (%+v)", a.Risk.Score, a.Risk.Signals)
	}
	if len(a.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", a.Warnings)
	}
}

func TestTriage_Offline(t *testing.T) {
	p := NewPipeline(model.DefaultConfig(), WithClock(fixedNow))

	a, err := p.Triage(context.Background(), model.Incident{Narrative: "routine patrol, nothing to report"})
	if err != nil {
		t.Fatalf("Triage failed: %v", err)
	}
	if a.Prediction != model.UnavailablePrediction() {
		t.Errorf("expected unavailable fallback, got %+v", a.Prediction)
	}
	if a.Risk.Score != 0 {
		t.Errorf("expected risk 0, got %d", a.Risk.Score)
	}
	if len(a.Warnings) != 0 {
		t.Errorf("offline mode should not warn per row, got %v", a.Warnings)
	}
}

func TestTriage_GatewayFailuresBecomeWarnings(t *testing.T) {
	p := NewPipeline(model.DefaultConfig(),
		WithClassifier(&fakeClassifier{err: errors.New("HTTP 503")}),
		WithRecognizer(&fakeRecognizer{err: errors.New("HTTP 500")}),
		WithClock(fixedNow),
	)

	a, err := p.Triage(context.Background(), model.Incident{Narrative: "they paid 300 for silence"})
	if err != nil {
		t.Fatalf("Triage should not fail on gateway errors: %v", err)
	}
	if a.Prediction.Available() {
		t.Error("expected unavailable prediction")
	}
	if len(a.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", a.Warnings)
	}
	if a.Risk.Score != 1 {
		t.Errorf("expected amount-only risk 1, got %d", a.Risk.Score)
	}
}

func TestTriage_Cancelled(t *testing.T) {
	p := NewPipeline(model.DefaultConfig(), WithClassifier(&fakeClassifier{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Triage(ctx, model.Incident{Narrative: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTriage_DateSource(t *testing.T) {
	narrativeOld := "reported on 01/01/2020"
	tests := []struct {
		source    string
		narrative string
		incident  *time.Time
		want      int
	}{
		{model.DateSourceMerge, narrativeOld, day(2024, 3, 18), 1},
		{model.DateSourceMerge, narrativeOld, nil, 0},
		{model.DateSourceIncident, narrativeOld, day(2024, 3, 18), 1},
		{model.DateSourceIncident, "seen 19/03/2024", day(2023, 1, 1), 0},
		{model.DateSourceIncident, "seen 19/03/2024", nil, 1},
		{model.DateSourceNarrative, narrativeOld, day(2024, 3, 18), 0},
		{model.DateSourceNarrative, "seen 19/03/2024", nil, 1},
	}

	for _, tt := range tests {
		cfg := model.DefaultConfig()
		cfg.Scoring.DateSource = tt.source
		p := NewPipeline(cfg, WithClock(fixedNow))

		a, _ := p.Triage(context.Background(), model.Incident{Narrative: tt.narrative, IncidentDate: tt.incident})

		// Year digits also count as amounts; only recency matters here
		got := 0
		for _, s := range a.Risk.Signals {
			if s.Rule == "recent_incident" {
				got = s.Weight
			}
		}
		if got != tt.want {
			t.Errorf("source=%s narrative=%q incident=%s: expected recency %d, got %d",
				tt.source, tt.narrative, model.FormatDate(tt.incident), tt.want, got)
		}
	}
}

func TestAnalyze(t *testing.T) {
	csv := "id,rama,grado,unidad,provincia,canton,fecha_incidente,relato\n" +
		"a,Ejército,Tropa,U,P,C,2024-03-19,routine patrol\n" +
		"b,Marina,Oficial,U,P,C,bad-date,threat with a weapon and $500\n" +
		"c,Aviación,Tropa,U,P,C,,bribe offered\n"

	table, err := report.ReadTable(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	classifier := &fakeClassifier{byKeyword: map[string]model.Category{
		"threat": model.CategoryCoercion,
		"bribe":  model.CategoryBribery,
	}}
	p := NewPipeline(model.DefaultConfig(), WithClassifier(classifier), WithClock(fixedNow))

	var progressCalls int32
	result, err := p.Analyze(context.Background(), table, 2, func(done, total int) {
		atomic.AddInt32(&progressCalls, 1)
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	order := []string{
		result.Rows[0].Assessment.Incident.ID,
		result.Rows[1].Assessment.Incident.ID,
		result.Rows[2].Assessment.Incident.ID,
	}
	// b: 3+1+1 = 5, c: 2, a: recency 1
	if strings.Join(order, ",") != "b,c,a" {
		t.Errorf("expected priority order b,c,a, got %v", order)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "line 3") {
		t.Errorf("expected date warning for line 3, got %v", result.Warnings)
	}
	if len(result.Counts) != 3 {
		t.Errorf("expected 3 category counts, got %+v", result.Counts)
	}
	if atomic.LoadInt32(&progressCalls) != 3 {
		t.Errorf("expected 3 progress calls, got %d", progressCalls)
	}
	if atomic.LoadInt32(&classifier.calls) != 3 {
		t.Errorf("expected 3 classifier calls, got %d", classifier.calls)
	}
}

func TestValidateDateSource(t *testing.T) {
	for _, ok := range []string{"merge", "incident", "narrative"} {
		if err := ValidateDateSource(ok); err != nil {
			t.Errorf("expected %s to be valid, got %v", ok, err)
		}
	}
	if err := ValidateDateSource("latest"); err == nil {
		t.Error("expected error for unknown source")
	}
}
