package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// Request carries one control row into the generator.
type Request struct {
	Title       string
	Description string
}

// Generator composes prompts and runs the strategy chain for single rows.
type Generator struct {
	template   string
	strategies []Strategy
	logger     *slog.Logger
}

// New constructs a Generator from a loaded template and an ordered strategy
// chain.
func New(template string, strategies []Strategy, logger *slog.Logger) (*Generator, error) {
	if template == "" {
		return nil, errors.New("generate: template required")
	}
	if len(strategies) == 0 {
		return nil, errors.New("generate: at least one strategy required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Generator{
		template:   template,
		strategies: strategies,
		logger:     logging.NewComponentLogger(logger, "generate"),
	}, nil
}

// Result is one successfully generated description plus the strategy that
// produced it.
type Result struct {
	Text     string
	Strategy string
}

// Describe produces the generated description for one row. Strategies run in
// order; a failure tagged as endpoint-missing or transient falls through to
// the next strategy, any other failure is final. Successful text is
// normalized before being returned.
func (g *Generator) Describe(ctx context.Context, req Request) (Result, error) {
	prompt := BuildPrompt(g.template, req.Title, req.Description)

	var prior error
	var priorName string
	for index, strategy := range g.strategies {
		strategyCtx := services.WithStrategy(ctx, strategy.Name())
		if err := strategy.Ready(); err != nil {
			if prior != nil {
				return Result{}, fmt.Errorf("%w (%s previously failed: %v)", err, priorName, prior)
			}
			return Result{}, err
		}
		text, err := strategy.Generate(strategyCtx, prompt)
		if err == nil {
			return Result{
				Text:     Normalize(text, req.Title),
				Strategy: strategy.Name(),
			}, nil
		}
		if !fallbackEligible(err) || index == len(g.strategies)-1 {
			if prior != nil {
				// Keep the earlier attempt visible in the recorded detail.
				return Result{}, fmt.Errorf("%w (%s previously failed: %v)", err, priorName, prior)
			}
			return Result{}, err
		}
		prior = err
		priorName = strategy.Name()
		logging.WithContext(strategyCtx, g.logger).Warn("strategy failed, trying next",
			logging.Error(err))
	}
	return Result{}, prior
}

// fallbackEligible reports whether a strategy failure should hand the row to
// the next strategy in the chain.
func fallbackEligible(err error) bool {
	return errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrTransient)
}
