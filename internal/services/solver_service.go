package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/pkg/utils"

	"github.com/google/uuid"
)

// --- SolverService Interface ---

// SolverService submits monthly scheduling problems to the external solver
// and tracks each run in memory until it reaches a terminal state. At most
// one job may be active per (year, month) window. When a run finishes
// FEASIBLE the proposed assignments are replayed through the shift registry,
// each one validated independently. Terminal jobs are evicted after a
// retention window of one max duration; a fresh submit also discards the
// window's superseded job.
type SolverService interface {
	StartSolve(actorUserID uuid.UUID, year, month int) (*models.SolverJob, error)
	PollStatus(problemID string) (*models.SolverJob, error)
	Close()
}

type solverWindow struct {
	year  int
	month int
}

type solverService struct {
	client   SolverClient
	registry ShiftRegistryService
	authz    Authorizer
	notifier Notifier

	pollInterval time.Duration
	maxDuration  time.Duration

	mu        sync.Mutex
	byProblem map[string]*models.SolverJob
	byWindow  map[solverWindow]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSolverService creates a new instance of SolverService. pollInterval and
// maxDuration fall back to 5s and 10m when non-positive.
func NewSolverService(
	client SolverClient,
	registry ShiftRegistryService,
	authz Authorizer,
	notifier Notifier,
	pollInterval, maxDuration time.Duration,
) SolverService {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxDuration <= 0 {
		maxDuration = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &solverService{
		client:       client,
		registry:     registry,
		authz:        authz,
		notifier:     notifier,
		pollInterval: pollInterval,
		maxDuration:  maxDuration,
		byProblem:    make(map[string]*models.SolverJob),
		byWindow:     make(map[solverWindow]string),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// StartSolve submits a solve for one scheduling window and starts the
// background poller for it. A second submit for the same window while a job
// is still running is rejected; a window whose previous job reached a
// terminal state may be solved again.
func (s *solverService) StartSolve(actorUserID uuid.UUID, year, month int) (*models.SolverJob, error) {
	manager, err := s.authz.HasManagerCapability(actorUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check manager capability: %w", err)
	}
	if !manager {
		return nil, fmt.Errorf("%w: starting a solver run requires manager capability", ErrUnauthorized)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d is out of range", ErrInvalidTransition, month)
	}

	window := solverWindow{year: year, month: month}

	s.mu.Lock()
	s.sweepTerminalLocked(time.Now())
	if problemID, ok := s.byWindow[window]; ok {
		if job := s.byProblem[problemID]; job != nil && !job.Status.IsTerminal() {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: problem %s for %d-%02d", ErrJobAlreadyRunning, problemID, year, month)
		}
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	problemID, err := s.client.Submit(ctx, year, month)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: submit for %d-%02d: %v", ErrSolverUnavailable, year, month, err)
	}

	job := &models.SolverJob{
		ProblemID:   problemID,
		Year:        year,
		Month:       month,
		Status:      models.SolverStatusScheduled,
		RequestedBy: actorUserID,
		StartedAt:   time.Now(),
	}

	s.mu.Lock()
	// A racing submit for the same window may have won while the network call
	// was in flight; the later job still tracks its own problem id.
	if existingID, ok := s.byWindow[window]; ok {
		if existing := s.byProblem[existingID]; existing != nil && !existing.Status.IsTerminal() {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: problem %s for %d-%02d", ErrJobAlreadyRunning, existingID, year, month)
		}
		// The fresh submit supersedes the window's finished job.
		delete(s.byProblem, existingID)
	}
	s.byProblem[problemID] = job
	s.byWindow[window] = problemID
	s.mu.Unlock()

	utils.LogInfo("solver job submitted", map[string]interface{}{
		"problem_id": problemID, "year": year, "month": month,
	})

	s.wg.Add(1)
	go s.poll(job)

	return s.snapshot(problemID)
}

// PollStatus returns the tracked state of a job. Clients poll this instead of
// the solver itself.
func (s *solverService) PollStatus(problemID string) (*models.SolverJob, error) {
	job, err := s.snapshot(problemID)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Close stops all pollers and waits for them to finish.
func (s *solverService) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *solverService) snapshot(problemID string) (*models.SolverJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.byProblem[problemID]
	if !ok {
		return nil, fmt.Errorf("%w: problem %s", ErrSolverJobNotFound, problemID)
	}
	copied := *job
	if job.Replay != nil {
		replay := *job.Replay
		copied.Replay = &replay
	}
	return &copied, nil
}

// sweepTerminalLocked drops jobs that finished more than one max duration
// ago. Jobs only live for their polling window; a terminal job stays
// queryable long enough for clients to read its outcome and is collected on
// the next submit. Callers must hold s.mu.
func (s *solverService) sweepTerminalLocked(now time.Time) {
	for problemID, job := range s.byProblem {
		if !job.Status.IsTerminal() || job.FinishedAt == nil {
			continue
		}
		if now.Sub(*job.FinishedAt) < s.maxDuration {
			continue
		}
		delete(s.byProblem, problemID)
		window := solverWindow{year: job.Year, month: job.Month}
		if s.byWindow[window] == problemID {
			delete(s.byWindow, window)
		}
	}
}

func (s *solverService) setStatus(problemID string, status models.SolverStatus) {
	s.mu.Lock()
	if job, ok := s.byProblem[problemID]; ok {
		job.Status = status
	}
	s.mu.Unlock()
}

func (s *solverService) finish(problemID string, status models.SolverStatus, replay *models.ReplaySummary) {
	now := time.Now()
	s.mu.Lock()
	if job, ok := s.byProblem[problemID]; ok {
		job.Status = status
		job.FinishedAt = &now
		job.Replay = replay
	}
	s.mu.Unlock()
}

// poll drives one job to a terminal state. The solver going quiet past the
// configured max duration closes the job as BROKEN; the window is then free
// for a fresh submit.
func (s *solverService) poll(job *models.SolverJob) {
	defer s.wg.Done()

	deadline := time.NewTimer(s.maxDuration)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.finish(job.ProblemID, models.SolverStatusBroken, nil)
			return
		case <-deadline.C:
			utils.LogError(fmt.Errorf("solver job %s exceeded %s", job.ProblemID, s.maxDuration), "solver job timed out")
			s.finish(job.ProblemID, models.SolverStatusBroken, nil)
			s.notifyRequester(job, fmt.Sprintf("Schedule generation for %d-%02d timed out.", job.Year, job.Month))
			return
		case <-ticker.C:
			status, err := s.client.Status(s.ctx, job.ProblemID)
			if err != nil {
				utils.LogError(err, "solver status poll failed")
				continue
			}
			if !status.IsTerminal() {
				s.setStatus(job.ProblemID, status)
				continue
			}
			s.settle(job, status)
			return
		}
	}
}

func (s *solverService) settle(job *models.SolverJob, status models.SolverStatus) {
	switch status {
	case models.SolverStatusFeasible, models.SolverStatusNotSolving:
		replay := s.replayResult(job)
		s.finish(job.ProblemID, status, replay)
		s.notifyRequester(job, fmt.Sprintf(
			"Schedule for %d-%02d is ready: %d assignments applied, %d already in place, %d failed.",
			job.Year, job.Month, replay.Applied, replay.AlreadyApplied, replay.Failed))
	case models.SolverStatusUnfeasible:
		s.finish(job.ProblemID, status, nil)
		s.notifyRequester(job, fmt.Sprintf("No feasible schedule exists for %d-%02d with the current constraints.", job.Year, job.Month))
	default:
		s.finish(job.ProblemID, status, nil)
		s.notifyRequester(job, fmt.Sprintf("Schedule generation for %d-%02d failed.", job.Year, job.Month))
	}
}

// replayResult applies the solver's proposal through the registry. Each
// assignment stands alone: one that races a manual operation and loses is
// counted as failed without affecting the rest.
func (s *solverService) replayResult(job *models.SolverJob) *models.ReplaySummary {
	assignments, err := s.client.Result(s.ctx, job.ProblemID)
	if err != nil {
		utils.LogError(err, "failed to fetch solver result")
		return &models.ReplaySummary{}
	}

	summary := &models.ReplaySummary{Assignments: len(assignments)}
	for _, a := range assignments {
		result, err := s.registry.Assign(a.ShiftID, a.MemberID)
		if err != nil {
			summary.Failed++
			utils.LogError(err, "solver assignment rejected")
			continue
		}
		if result.Applied {
			summary.Applied++
		} else {
			summary.AlreadyApplied++
		}
	}
	utils.LogInfo("solver result replayed", map[string]interface{}{
		"problem_id": job.ProblemID, "assignments": summary.Assignments,
		"applied": summary.Applied, "already_applied": summary.AlreadyApplied, "failed": summary.Failed,
	})
	return summary
}

func (s *solverService) notifyRequester(job *models.SolverJob, message string) {
	s.notifier.Notify([]uuid.UUID{job.RequestedBy}, message)
}
