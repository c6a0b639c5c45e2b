package cli

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ppiankov/compliance-radar/internal/gateway"
	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/pipeline"
)

// gatewaySet is the outcome of wiring the remote services for one command
type gatewaySet struct {
	classifier gateway.Classifier
	recognizer gateway.EntityRecognizer
}

// options converts the set into pipeline options
func (g gatewaySet) options() []pipeline.Option {
	var opts []pipeline.Option
	if g.classifier != nil {
		opts = append(opts, pipeline.WithClassifier(g.classifier))
	}
	if g.recognizer != nil {
		opts = append(opts, pipeline.WithRecognizer(g.recognizer))
	}
	return opts
}

// buildGateways creates the classifier and recognizer described by cfg. A
// disabled gateway is not an error: triage continues with the fallback
// prediction. Unknown providers are.
func buildGateways(cfg *model.Config, log *zap.Logger, classify, entities bool) (gatewaySet, error) {
	var set gatewaySet
	deps := gateway.NewDeps(cfg, log)

	if classify {
		c, err := gateway.NewClassifier(cfg, deps)
		switch {
		case err == nil:
			set.classifier = c
		case errors.Is(err, gateway.ErrDisabled):
			log.Warn("classification disabled", zap.Error(err))
		default:
			return set, err
		}
	}

	if entities {
		r, err := gateway.NewEntityRecognizer(cfg, deps)
		switch {
		case err == nil:
			set.recognizer = r
		case errors.Is(err, gateway.ErrDisabled):
			log.Debug("entity recognition disabled", zap.Error(err))
		default:
			return set, err
		}
	}

	return set, nil
}

func banner(w io.Writer, title string) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
}
