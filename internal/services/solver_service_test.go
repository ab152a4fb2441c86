package services

import (
	"errors"
	"testing"
	"time"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
)

type solverFixture struct {
	shifts   *fakeShiftRepo
	members  *fakeMemberRepo
	client   *fakeSolverClient
	notifier *captureNotifier
	authz    *fakeAuthorizer
	manager  uuid.UUID
}

func newSolverFixture() *solverFixture {
	managerID := uuid.New()
	return &solverFixture{
		shifts:   newFakeShiftRepo(),
		members:  newFakeMemberRepo(),
		client:   &fakeSolverClient{},
		notifier: &captureNotifier{},
		authz:    &fakeAuthorizer{managers: map[uuid.UUID]bool{managerID: true}},
		manager:  managerID,
	}
}

// service builds a solver service with test-speed polling.
func (f *solverFixture) service(t *testing.T) SolverService {
	t.Helper()
	registry := NewShiftRegistryService(f.shifts, f.members, f.notifier)
	svc := NewSolverService(f.client, registry, f.authz, f.notifier, 5*time.Millisecond, time.Second)
	t.Cleanup(svc.Close)
	return svc
}

// awaitTerminal polls the tracked job until it reaches a terminal state.
func awaitTerminal(t *testing.T, svc SolverService, problemID string) *models.SolverJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.PollStatus(problemID)
		if err != nil {
			t.Fatalf("PollStatus returned error: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
	return nil
}

func TestStartSolveRequiresManagerCapability(t *testing.T) {
	f := newSolverFixture()
	svc := f.service(t)

	_, err := svc.StartSolve(uuid.New(), 2026, 9)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("StartSolve error = %v, want ErrUnauthorized", err)
	}
}

func TestStartSolveRejectsInvalidMonth(t *testing.T) {
	f := newSolverFixture()
	svc := f.service(t)

	_, err := svc.StartSolve(f.manager, 2026, 13)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("StartSolve error = %v, want ErrInvalidTransition", err)
	}
}

func TestStartSolveSubmitFailure(t *testing.T) {
	f := newSolverFixture()
	f.client.submitErr = errors.New("connection refused")
	svc := f.service(t)

	_, err := svc.StartSolve(f.manager, 2026, 9)
	if !errors.Is(err, ErrSolverUnavailable) {
		t.Fatalf("StartSolve error = %v, want ErrSolverUnavailable", err)
	}
}

func TestStartSolveRejectsDuplicateWindow(t *testing.T) {
	f := newSolverFixture()
	f.client.statuses = []models.SolverStatus{models.SolverStatusActive}
	svc := f.service(t)

	if _, err := svc.StartSolve(f.manager, 2026, 9); err != nil {
		t.Fatalf("first StartSolve returned error: %v", err)
	}
	_, err := svc.StartSolve(f.manager, 2026, 9)
	if !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("second StartSolve error = %v, want ErrJobAlreadyRunning", err)
	}

	// A different window is unaffected.
	if _, err := svc.StartSolve(f.manager, 2026, 10); err != nil {
		t.Fatalf("StartSolve for another window returned error: %v", err)
	}
}

func TestSolveFeasibleReplaysAssignments(t *testing.T) {
	f := newSolverFixture()

	member := newTestMember(nil)
	f.members.put(member)
	open := newTestShift(models.ShiftStatusOpen, nil)
	f.shifts.put(open)

	// One applicable assignment, one already confirmed elsewhere.
	taken := newTestShift(models.ShiftStatusConfirmed, &member.ID)
	f.shifts.put(taken)

	f.client.statuses = []models.SolverStatus{models.SolverStatusActive, models.SolverStatusFeasible}
	f.client.result = []models.SolverAssignment{
		{ShiftID: open.ID, MemberID: member.ID},
		{ShiftID: taken.ID, MemberID: member.ID},
	}
	svc := f.service(t)

	job, err := svc.StartSolve(f.manager, 2026, 9)
	if err != nil {
		t.Fatalf("StartSolve returned error: %v", err)
	}
	if job.Status != models.SolverStatusScheduled {
		t.Errorf("initial job status = %s, want SOLVING_SCHEDULED", job.Status)
	}

	done := awaitTerminal(t, svc, job.ProblemID)
	if done.Status != models.SolverStatusFeasible {
		t.Fatalf("terminal status = %s, want FEASIBLE", done.Status)
	}
	if done.Replay == nil {
		t.Fatal("feasible job must carry a replay summary")
	}
	if done.Replay.Assignments != 2 || done.Replay.Applied != 1 {
		t.Errorf("replay = %+v, want 2 assignments with 1 applied", *done.Replay)
	}
	// The already confirmed shift is counted as a safe no-op.
	if done.Replay.AlreadyApplied != 1 {
		t.Errorf("replay.AlreadyApplied = %d, want 1", done.Replay.AlreadyApplied)
	}
	if done.FinishedAt == nil {
		t.Error("terminal job must record a finish time")
	}

	confirmed, _ := f.shifts.GetShiftByID(open.ID)
	if confirmed.Status != models.ShiftStatusConfirmed {
		t.Errorf("replayed shift status = %s, want CONFIRMED", confirmed.Status)
	}

	if got := f.notifier.messagesFor(f.manager); len(got) != 1 {
		t.Errorf("requester received %d notifications, want 1", len(got))
	}
}

func TestSolveReplayCountsFailures(t *testing.T) {
	f := newSolverFixture()

	member := newTestMember(nil)
	f.members.put(member)

	f.client.statuses = []models.SolverStatus{models.SolverStatusFeasible}
	f.client.result = []models.SolverAssignment{
		{ShiftID: uuid.New(), MemberID: member.ID}, // unknown shift
	}
	svc := f.service(t)

	job, err := svc.StartSolve(f.manager, 2026, 9)
	if err != nil {
		t.Fatalf("StartSolve returned error: %v", err)
	}
	done := awaitTerminal(t, svc, job.ProblemID)
	if done.Replay == nil || done.Replay.Failed != 1 {
		t.Fatalf("replay = %+v, want 1 failed assignment", done.Replay)
	}
}

func TestSolveUnfeasibleNotifiesWithoutReplay(t *testing.T) {
	f := newSolverFixture()
	f.client.statuses = []models.SolverStatus{models.SolverStatusUnfeasible}
	svc := f.service(t)

	job, err := svc.StartSolve(f.manager, 2026, 9)
	if err != nil {
		t.Fatalf("StartSolve returned error: %v", err)
	}
	done := awaitTerminal(t, svc, job.ProblemID)
	if done.Status != models.SolverStatusUnfeasible {
		t.Fatalf("terminal status = %s, want UNFEASIBLE", done.Status)
	}
	if done.Replay != nil {
		t.Error("unfeasible job must not carry a replay summary")
	}
	if got := f.notifier.messagesFor(f.manager); len(got) != 1 {
		t.Errorf("requester received %d notifications, want 1", len(got))
	}
}

func TestSolveTimesOutAsBroken(t *testing.T) {
	f := newSolverFixture()
	f.client.statuses = []models.SolverStatus{models.SolverStatusActive}
	registry := NewShiftRegistryService(f.shifts, f.members, f.notifier)
	svc := NewSolverService(f.client, registry, f.authz, f.notifier, time.Millisecond, 20*time.Millisecond)
	t.Cleanup(svc.Close)

	job, err := svc.StartSolve(f.manager, 2026, 9)
	if err != nil {
		t.Fatalf("StartSolve returned error: %v", err)
	}
	done := awaitTerminal(t, svc, job.ProblemID)
	if done.Status != models.SolverStatusBroken {
		t.Fatalf("terminal status = %s, want BROKEN", done.Status)
	}

	// The window is free again once the previous job is terminal.
	if _, err := svc.StartSolve(f.manager, 2026, 9); err != nil {
		t.Fatalf("resubmit after timeout returned error: %v", err)
	}
}

func TestResubmitDiscardsSupersededJob(t *testing.T) {
	f := newSolverFixture()
	f.client.statuses = []models.SolverStatus{models.SolverStatusFeasible}
	svc := f.service(t)

	first, err := svc.StartSolve(f.manager, 2026, 9)
	if err != nil {
		t.Fatalf("first StartSolve returned error: %v", err)
	}
	awaitTerminal(t, svc, first.ProblemID)

	second, err := svc.StartSolve(f.manager, 2026, 9)
	if err != nil {
		t.Fatalf("resubmit returned error: %v", err)
	}
	if second.ProblemID == first.ProblemID {
		t.Fatal("resubmit reused the previous problem id")
	}

	if _, err := svc.PollStatus(first.ProblemID); !errors.Is(err, ErrSolverJobNotFound) {
		t.Fatalf("PollStatus for superseded job error = %v, want ErrSolverJobNotFound", err)
	}
	if _, err := svc.PollStatus(second.ProblemID); err != nil {
		t.Fatalf("PollStatus for fresh job returned error: %v", err)
	}
}

func TestTerminalJobEvictedAfterRetention(t *testing.T) {
	f := newSolverFixture()
	f.client.statuses = []models.SolverStatus{models.SolverStatusFeasible}
	registry := NewShiftRegistryService(f.shifts, f.members, f.notifier)
	svc := NewSolverService(f.client, registry, f.authz, f.notifier, 2*time.Millisecond, 30*time.Millisecond)
	t.Cleanup(svc.Close)

	job, err := svc.StartSolve(f.manager, 2026, 9)
	if err != nil {
		t.Fatalf("StartSolve returned error: %v", err)
	}
	done := awaitTerminal(t, svc, job.ProblemID)
	if done.Status != models.SolverStatusFeasible {
		t.Fatalf("terminal status = %s, want FEASIBLE", done.Status)
	}

	// Past the retention window the next submit collects the finished job.
	time.Sleep(40 * time.Millisecond)
	if _, err := svc.StartSolve(f.manager, 2026, 10); err != nil {
		t.Fatalf("StartSolve for another window returned error: %v", err)
	}

	if _, err := svc.PollStatus(job.ProblemID); !errors.Is(err, ErrSolverJobNotFound) {
		t.Fatalf("PollStatus for evicted job error = %v, want ErrSolverJobNotFound", err)
	}
}

func TestPollStatusUnknownProblem(t *testing.T) {
	f := newSolverFixture()
	svc := f.service(t)

	_, err := svc.PollStatus("no-such-problem")
	if !errors.Is(err, ErrSolverJobNotFound) {
		t.Fatalf("PollStatus error = %v, want ErrSolverJobNotFound", err)
	}
}
