package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const agentSourceRef = "main"

// ErrAgentTimeout is returned when an agent is still running after the
// configured number of status checks.
var ErrAgentTimeout = errors.New("agent did not complete within timeout period")

// AgentFailureError reports an agent run that ended in a terminal failure
// status (ERROR, EXPIRED, or FAILED).
type AgentFailureError struct {
	Status  string
	Message string
}

func (e *AgentFailureError) Error() string {
	return fmt.Sprintf("agent ended with status %s: %s", e.Status, e.Message)
}

// RunAgent launches a background agent with the supplied prompt and waits for
// it to finish, returning the produced text.
func (c *Client) RunAgent(ctx context.Context, prompt string) (string, error) {
	agentID, err := c.CreateAgent(ctx, prompt)
	if err != nil {
		return "", err
	}
	return c.WaitForAgent(ctx, agentID)
}

// CreateAgent launches a background agent against the configured repository
// and returns its identifier.
func (c *Client) CreateAgent(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("agent create: prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("agent create: api key required")
	}
	if c.cfg.Repository == "" {
		return "", errors.New("agent create: repository required")
	}
	payload := agentCreateRequest{
		Prompt: agentPrompt{Text: prompt},
		Source: agentSource{Repository: c.cfg.Repository, Ref: agentSourceRef},
	}
	body, err := c.send(ctx, http.MethodPost, agentsPath, payload, "agent create")
	if err != nil {
		return "", err
	}
	var created agentCreateResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("agent create: decode response: %w", err)
	}
	agentID := strings.TrimSpace(created.ID)
	if agentID == "" {
		return "", errors.New("agent create: no agent id returned")
	}
	return agentID, nil
}

// WaitForAgent polls the agent status endpoint until the run reaches a
// terminal state. Every non-terminal check is followed by one poll-interval
// wait, so the total budget is pollMaxAttempts checks and as many waits.
func (c *Client) WaitForAgent(ctx context.Context, agentID string) (string, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return "", errors.New("agent wait: agent id required")
	}
	for attempt := 0; attempt < c.pollMaxAttempts; attempt++ {
		status, err := c.agentStatus(ctx, agentID)
		if err != nil {
			return "", err
		}
		switch strings.ToUpper(strings.TrimSpace(status.Status)) {
		case "FINISHED":
			return firstAgentField(status.Summary, status.Result, status.Output), nil
		case "ERROR", "EXPIRED", "FAILED":
			message := agentFieldString(status.Error)
			if message == "" {
				message = "Unknown error"
			}
			return "", &AgentFailureError{
				Status:  strings.ToUpper(strings.TrimSpace(status.Status)),
				Message: message,
			}
		default:
			if err := c.sleep(ctx, c.pollInterval); err != nil {
				return "", err
			}
		}
	}
	return "", ErrAgentTimeout
}

func (c *Client) agentStatus(ctx context.Context, agentID string) (agentStatusResponse, error) {
	var status agentStatusResponse
	body, err := c.send(ctx, http.MethodGet, agentsPath+"/"+agentID, nil, "agent status")
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, fmt.Errorf("agent status: decode response: %w", err)
	}
	return status, nil
}

type agentCreateRequest struct {
	Prompt agentPrompt `json:"prompt"`
	Source agentSource `json:"source"`
}

type agentPrompt struct {
	Text string `json:"text"`
}

type agentSource struct {
	Repository string `json:"repository"`
	Ref        string `json:"ref"`
}

type agentCreateResponse struct {
	ID string `json:"id"`
}

type agentStatusResponse struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Summary json.RawMessage `json:"summary"`
	Result  json.RawMessage `json:"result"`
	Output  json.RawMessage `json:"output"`
	Error   json.RawMessage `json:"error"`
}

// firstAgentField returns the first field with usable text. The API reports
// the produced text under summary, result, or output depending on agent age.
func firstAgentField(fields ...json.RawMessage) string {
	for _, field := range fields {
		if text := agentFieldString(field); text != "" {
			return text
		}
	}
	return ""
}

// agentFieldString renders a response field as trimmed text, tolerating both
// plain strings and structured payloads.
func agentFieldString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(trimmed))
}
