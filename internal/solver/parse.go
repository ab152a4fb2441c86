package solver

import (
	"fmt"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
)

func parseAssignment(a resultAssignment) (models.SolverAssignment, error) {
	shiftID, err := uuid.Parse(a.ShiftID)
	if err != nil {
		return models.SolverAssignment{}, fmt.Errorf("solver result has invalid shift id %q: %w", a.ShiftID, err)
	}
	memberID, err := uuid.Parse(a.MemberID)
	if err != nil {
		return models.SolverAssignment{}, fmt.Errorf("solver result has invalid member id %q: %w", a.MemberID, err)
	}
	return models.SolverAssignment{ShiftID: shiftID, MemberID: memberID}, nil
}
