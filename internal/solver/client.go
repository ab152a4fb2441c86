// Package solver talks to the external schedule optimization service over
// HTTP. The service solves one month at a time and is polled by problem id.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shift_planner_backend/internal/models"
)

// Client implements the solver contract against the optimizer's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a solver client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type submitResponse struct {
	ProblemID string `json:"problemId"`
}

type statusResponse struct {
	ProblemID    string `json:"problemId"`
	SolverStatus string `json:"solverStatus"`
}

type resultAssignment struct {
	ShiftID  string `json:"shiftId"`
	MemberID string `json:"employeeId"`
}

// Submit asks the optimizer to start solving one scheduling window and
// returns the problem id to poll.
func (c *Client) Submit(ctx context.Context, year, month int) (string, error) {
	body, err := json.Marshal(submitRequest{Year: year, Month: month})
	if err != nil {
		return "", fmt.Errorf("failed to encode solve request: %w", err)
	}

	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/solve", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	if resp.ProblemID == "" {
		return "", fmt.Errorf("solver returned an empty problem id")
	}
	return resp.ProblemID, nil
}

// Status reports the solver's current state for one problem.
func (c *Client) Status(ctx context.Context, problemID string) (models.SolverStatus, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, "/solve/"+problemID+"/status", nil, &resp); err != nil {
		return "", err
	}
	return models.SolverStatus(resp.SolverStatus), nil
}

// Result fetches the proposed assignments for a finished problem.
func (c *Client) Result(ctx context.Context, problemID string) ([]models.SolverAssignment, error) {
	var raw []resultAssignment
	if err := c.do(ctx, http.MethodGet, "/solve/"+problemID+"/result", nil, &raw); err != nil {
		return nil, err
	}

	assignments := make([]models.SolverAssignment, 0, len(raw))
	for _, a := range raw {
		assignment, err := parseAssignment(a)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build solver request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("solver request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("solver returned %d: %s", resp.StatusCode, string(payload))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode solver response: %w", err)
	}
	return nil
}
