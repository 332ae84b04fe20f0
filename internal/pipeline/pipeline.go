package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/userpulse/backend/internal/analyzer"
	"github.com/userpulse/backend/internal/event"
	"github.com/userpulse/backend/internal/insight"
	"github.com/userpulse/backend/internal/predictive"
	"github.com/userpulse/backend/pkg/logger"
)

// Pipeline chains the processing stages behind the event store: every
// flushed batch is analyzed, fed to the predictive engine, and turned into
// insights. A failing stage logs and the remaining stages run with what is
// available.
type Pipeline struct {
	store     *event.Store
	analyzer  *analyzer.Analyzer
	engine    *predictive.Engine
	generator *insight.Generator

	unsubscribe func()
}

func New(store *event.Store, a *analyzer.Analyzer, engine *predictive.Engine, generator *insight.Generator) (*Pipeline, error) {
	p := &Pipeline{
		store:     store,
		analyzer:  a,
		engine:    engine,
		generator: generator,
	}

	unsubscribe, err := store.FlushTopic.Subscribe(p.processBatch)
	if err != nil {
		return nil, err
	}
	p.unsubscribe = unsubscribe
	return p, nil
}

func (p *Pipeline) processBatch(batch []*event.Event) {
	if len(batch) == 0 {
		return
	}
	ctx := context.Background()
	log := logger.GetLogger()

	analysis, err := p.analyzer.AnalyzeEvents(ctx, batch)
	if err != nil {
		log.Error("Behavior analysis failed", zap.Error(err), zap.Int("batch_size", len(batch)))
		analysis = &analyzer.Result{}
	}

	prediction, err := p.engine.Run(ctx, batch, analysis)
	if err != nil {
		log.Error("Predictive stage failed", zap.Error(err), zap.Int("batch_size", len(batch)))
		prediction = &predictive.Output{}
	}

	insights, err := p.generator.GenerateInsights(ctx, batch, analysis, prediction)
	if err != nil {
		log.Error("Insight generation failed", zap.Error(err), zap.Int("batch_size", len(batch)))
		return
	}

	log.Debug("Processed event batch",
		zap.Int("events", len(batch)),
		zap.Int("patterns", len(analysis.Patterns)),
		zap.Int("predictions", len(prediction.Predictions)),
		zap.Int("insights", len(insights)),
	)
}

// Close detaches the pipeline from the flush topic.
func (p *Pipeline) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}
