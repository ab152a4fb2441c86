package solver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
)

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/solve" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Year  int `json:"year"`
			Month int `json:"month"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if body.Year != 2026 || body.Month != 9 {
			t.Errorf("request window = %d-%d, want 2026-9", body.Year, body.Month)
		}
		json.NewEncoder(w).Encode(map[string]string{"problemId": "job-42"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	problemID, err := client.Submit(context.Background(), 2026, 9)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if problemID != "job-42" {
		t.Errorf("problem id = %q, want job-42", problemID)
	}
}

func TestSubmitRejectsEmptyProblemID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.Submit(context.Background(), 2026, 9); err == nil {
		t.Fatal("expected an error for an empty problem id")
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/solve/job-42/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"problemId": "job-42", "solverStatus": "FEASIBLE"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	status, err := client.Status(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status != models.SolverStatusFeasible {
		t.Errorf("status = %s, want FEASIBLE", status)
	}
}

func TestResult(t *testing.T) {
	shiftID := uuid.New()
	memberID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/solve/job-42/result" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]string{
			{"shiftId": shiftID.String(), "employeeId": memberID.String()},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	assignments, err := client.Result(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("Result returned error: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("got %d assignments, want 1", len(assignments))
	}
	if assignments[0].ShiftID != shiftID || assignments[0].MemberID != memberID {
		t.Error("assignment ids do not match the response")
	}
}

func TestResultRejectsMalformedIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"shiftId": "not-a-uuid", "employeeId": uuid.New().String()},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Result(context.Background(), "job-42")
	if err == nil || !strings.Contains(err.Error(), "invalid shift id") {
		t.Fatalf("Result error = %v, want invalid shift id", err)
	}
}

func TestErrorStatusIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "solver overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Status(context.Background(), "job-42")
	if err == nil {
		t.Fatal("expected an error for a 503 response")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "solver overloaded") {
		t.Errorf("error %q missing status code or body sample", err)
	}
}

func TestContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	if _, err := client.Status(ctx, "job-42"); err == nil {
		t.Fatal("expected an error after context cancellation")
	}
}
