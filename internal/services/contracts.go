package services

import (
	"context"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
)

// Authorizer answers capability checks for an acting user. Backed by the user
// store in production; swappable in tests.
type Authorizer interface {
	HasManagerCapability(actorID uuid.UUID) (bool, error)
}

// Notifier is the narrow emission contract mutating services depend on.
// Delivery is decoupled from the mutation: Notify never fails the caller,
// emission problems are logged inside the dispatcher.
type Notifier interface {
	Notify(recipientIDs []uuid.UUID, message string)
}

// SolverClient is the start/poll contract of the external optimization
// solver.
type SolverClient interface {
	Submit(ctx context.Context, year, month int) (string, error)
	Status(ctx context.Context, problemID string) (models.SolverStatus, error)
	Result(ctx context.Context, problemID string) ([]models.SolverAssignment, error)
}

// Pusher is the fire-and-forget notification transport (webhook, websocket
// bridge, ...). Implementations must not block the dispatcher.
type Pusher interface {
	Push(recipientID uuid.UUID, notification models.Notification)
}
