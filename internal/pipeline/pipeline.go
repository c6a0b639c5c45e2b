package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/compliance-radar/internal/extract"
	"github.com/ppiankov/compliance-radar/internal/gateway"
	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/score"
)

// Pipeline triages single incidents: classification, entities, field
// extraction, then risk scoring
type Pipeline struct {
	classifier gateway.Classifier       // nil when classification is unavailable
	recognizer gateway.EntityRecognizer // nil when NER is off
	scorer     *score.Scorer
	labels     []model.Category
	dateSource string
	now        func() time.Time
	logger     *zap.Logger
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithClassifier sets the classification gateway
func WithClassifier(c gateway.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithRecognizer sets the entity gateway
func WithRecognizer(r gateway.EntityRecognizer) Option {
	return func(p *Pipeline) { p.recognizer = r }
}

// WithClock sets the reference date source for the recency rule
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline from cfg. Gateways are attached with
// options; without them every incident gets the unavailable prediction.
func NewPipeline(cfg *model.Config, opts ...Option) *Pipeline {
	recency := cfg.Scoring.RecencyDays
	if recency <= 0 {
		recency = score.DefaultRecencyDays
	}

	p := &Pipeline{
		scorer:     score.NewScorer(score.DefaultRules(recency)...),
		labels:     model.Categories(),
		dateSource: cfg.Scoring.DateSource,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Triage assesses one incident. Gateway failures never fail the incident:
// they are logged, recorded as warnings, and replaced by the fallback. The
// only error is ctx cancellation.
func (p *Pipeline) Triage(ctx context.Context, incident model.Incident) (*model.Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assessment := &model.Assessment{
		Incident:   incident,
		Prediction: model.UnavailablePrediction(),
		Entities:   []model.Entity{},
		Warnings:   []string{},
	}

	if p.classifier != nil {
		predictions, err := p.classifier.Classify(ctx, incident.Narrative, p.labels)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.warn(assessment, "classification failed", incident, err)
		} else {
			assessment.Prediction = gateway.Top(predictions)
		}
	}

	if p.recognizer != nil {
		entities, err := p.recognizer.Recognize(ctx, incident.Narrative)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.warn(assessment, "entity recognition failed", incident, err)
		} else {
			assessment.Entities = entities
		}
	}

	assessment.Fields = extract.ExtractFields(incident.Narrative)
	assessment.Dates = extract.ParseDates(assessment.Fields.Dates)

	input := p.scoringInput(assessment)
	assessment.Risk = p.scorer.Calculate(input, model.Day(p.now()))

	return assessment, nil
}

// scoringInput applies the date source policy
func (p *Pipeline) scoringInput(a *model.Assessment) score.Input {
	in := score.Input{
		Category:  a.Prediction.Category,
		Narrative: a.Incident.Narrative,
	}

	switch p.dateSource {
	case model.DateSourceNarrative:
		in.NarrativeDates = a.Dates
	case model.DateSourceIncident:
		if a.Incident.IncidentDate != nil {
			in.IncidentDate = a.Incident.IncidentDate
		} else {
			in.NarrativeDates = a.Dates
		}
	default:
		in.NarrativeDates = a.Dates
		in.IncidentDate = a.Incident.IncidentDate
	}
	return in
}

func (p *Pipeline) warn(a *model.Assessment, msg string, incident model.Incident, err error) {
	p.logger.Warn(msg, zap.String("incident", incidentLabel(incident)), zap.Error(err))
	a.Warnings = append(a.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

func incidentLabel(incident model.Incident) string {
	if incident.ID != "" {
		return incident.ID
	}
	return fmt.Sprintf("%s/%s", incident.Province, incident.Canton)
}

// ValidateDateSource checks that s names a date source policy
func ValidateDateSource(s string) error {
	switch s {
	case model.DateSourceMerge, model.DateSourceIncident, model.DateSourceNarrative:
		return nil
	}
	return errors.New("date source must be merge, incident or narrative")
}
