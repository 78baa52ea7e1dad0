package dsp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fankto/EchoQuest-sub000/internal/metrics"
)

// Processor is a single-responsibility audio transform. Implementations must
// return a buffer of the same length as the input; sample rate and clip count
// never change, only content.
type Processor interface {
	Name() string
	Process(samples []float64) ([]float64, error)
}

// Chain runs processors in a fixed order over a full waveform.
type Chain struct {
	processors []Processor
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewChain creates a processing chain. The order of processors is preserved;
// metrics may be nil.
func NewChain(logger *slog.Logger, m *metrics.Metrics, processors ...Processor) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{processors: processors, logger: logger, metrics: m}
}

// Process applies every processor in order. A stage returning an error or a
// length-changed buffer aborts the chain.
func (c *Chain) Process(samples []float64) ([]float64, error) {
	current := samples
	for _, p := range c.processors {
		start := time.Now()
		out, err := p.Process(current)
		elapsed := time.Since(start)
		if c.metrics != nil {
			c.metrics.StageDuration.WithLabelValues(p.Name()).Observe(elapsed.Seconds())
		}
		if err != nil {
			if c.metrics != nil {
				c.metrics.StageErrors.WithLabelValues(p.Name()).Inc()
			}
			return nil, fmt.Errorf("processor %s: %w", p.Name(), err)
		}
		if len(out) != len(current) {
			if c.metrics != nil {
				c.metrics.StageErrors.WithLabelValues(p.Name()).Inc()
			}
			return nil, fmt.Errorf("processor %s changed sample count from %d to %d", p.Name(), len(current), len(out))
		}
		c.logger.Debug("processor stage complete",
			slog.String("processor", p.Name()),
			slog.Int("samples", len(out)),
			slog.Duration("elapsed", elapsed),
		)
		current = out
	}
	return current, nil
}

// Processors returns the chain's processors in execution order.
func (c *Chain) Processors() []Processor {
	return c.processors
}
