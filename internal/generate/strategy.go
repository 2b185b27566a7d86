package generate

import (
	"context"
	"errors"
	"fmt"

	"scribe/internal/config"
	"scribe/internal/services"
	"scribe/internal/services/llm"
)

// Strategy is one way of producing a description from a composed prompt.
// Strategies are tried in configuration order; see Generator.Describe.
type Strategy interface {
	Name() string
	// Ready reports whether the strategy can run at all. A non-nil error is a
	// configuration failure and ends the attempt chain.
	Ready() error
	Generate(ctx context.Context, prompt string) (string, error)
}

// Strategies builds the ordered strategy chain from configured names.
func Strategies(client *llm.Client, names []string) ([]Strategy, error) {
	if client == nil {
		return nil, errors.New("generate: client required")
	}
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		switch name {
		case config.StrategyCompletion:
			strategies = append(strategies, &completionStrategy{client: client})
		case config.StrategyAgent:
			strategies = append(strategies, &agentStrategy{client: client})
		default:
			return nil, fmt.Errorf("generate: unknown strategy %q", name)
		}
	}
	if len(strategies) == 0 {
		return nil, errors.New("generate: at least one strategy required")
	}
	return strategies, nil
}

type completionStrategy struct {
	client *llm.Client
}

func (s *completionStrategy) Name() string { return config.StrategyCompletion }

func (s *completionStrategy) Ready() error { return nil }

func (s *completionStrategy) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := s.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", classifyCompletionError(err)
	}
	return text, nil
}

func classifyCompletionError(err error) error {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.NotFound() {
			return services.Wrap(services.ErrNotFound, "generate", "completion", "chat completions endpoint not available", err)
		}
		return services.Wrap(services.ErrTransient, "generate", "completion", "chat completions request failed", err)
	}
	return services.Wrap(services.ErrTransient, "generate", "completion", "chat completions endpoint unreachable", err)
}

type agentStrategy struct {
	client *llm.Client
}

func (s *agentStrategy) Name() string { return config.StrategyAgent }

func (s *agentStrategy) Ready() error {
	if !s.client.AgentConfigured() {
		return services.Wrap(
			services.ErrConfiguration,
			"generate",
			"agent",
			"repository not configured for the agent API. Pass --repository or set CURSOR_REPOSITORY in the environment or .env file",
			nil,
		)
	}
	return nil
}

func (s *agentStrategy) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := s.client.RunAgent(ctx, prompt)
	if err != nil {
		return "", classifyAgentError(err)
	}
	return text, nil
}

func classifyAgentError(err error) error {
	if errors.Is(err, llm.ErrAgentTimeout) {
		return services.Wrap(services.ErrTimeout, "generate", "agent", "agent polling timed out", err)
	}
	var failure *llm.AgentFailureError
	if errors.As(err, &failure) {
		return services.Wrap(services.ErrExternalTool, "generate", "agent", "agent run failed", err)
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return services.Wrap(services.ErrTransient, "generate", "agent", "agent api request failed", err)
	}
	return services.Wrap(services.ErrTransient, "generate", "agent", "agent api unreachable", err)
}
