package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
)

// ShiftChangeRepository defines the interface for shift change request
// database operations. UpdateStatus is conditional on the expected current
// status so two actors racing on the same request cannot both advance it.
type ShiftChangeRepository interface {
	CreateRequest(executor SQLExecutor, req *models.ShiftChangeRequest) (*models.ShiftChangeRequest, error)
	GetRequestByID(id uuid.UUID) (*models.ShiftChangeRequest, error)
	GetRequestsForMember(memberID uuid.UUID) ([]models.ShiftChangeRequest, error)
	GetRequestsByStatus(status models.ChangeRequestStatus) ([]models.ShiftChangeRequest, error)
	UpdateStatus(id uuid.UUID, expected, next models.ChangeRequestStatus, resolutionNotes *string) (*models.ShiftChangeRequest, error)
}

type shiftChangeRepository struct {
	db *sql.DB
}

// NewShiftChangeRepository creates a new instance of ShiftChangeRepository.
func NewShiftChangeRepository(db *sql.DB) ShiftChangeRepository {
	return &shiftChangeRepository{db: db}
}

const selectChangeRequestFields = `
	r.id, r.initiating_shift_id, r.initiating_member_id, r.target_shift_id, r.target_member_id,
	r.status, r.request_reason, r.resolution_notes, r.created_at, r.updated_at,
	si.shift_date, si.start_time, si.end_time, COALESCE(li.name, ''),
	st.shift_date, st.start_time, st.end_time, COALESCE(lt.name, ''),
	COALESCE(mi.first_name, ''), COALESCE(mi.last_name, ''),
	COALESCE(mt.first_name, ''), COALESCE(mt.last_name, '')
`

const getChangeRequestJoins = `
	FROM shift_change_requests r
	JOIN scheduled_shifts si ON r.initiating_shift_id = si.id
	JOIN locations li ON si.location_id = li.id
	JOIN scheduled_shifts st ON r.target_shift_id = st.id
	JOIN locations lt ON st.location_id = lt.id
	JOIN members mi ON r.initiating_member_id = mi.id
	JOIN members mt ON r.target_member_id = mt.id
`

func scanChangeRequestRow(row scanner) (*models.ShiftChangeRequest, error) {
	var req models.ShiftChangeRequest
	var initShift, targetShift models.ScheduledShift
	var initLocation, targetLocation string
	var initFirst, initLast, targetFirst, targetLast string

	err := row.Scan(
		&req.ID, &req.InitiatingShiftID, &req.InitiatingMemberID, &req.TargetShiftID, &req.TargetMemberID,
		&req.Status, &req.RequestReason, &req.ResolutionNotes, &req.CreatedAt, &req.UpdatedAt,
		&initShift.ShiftDate, &initShift.StartTime, &initShift.EndTime, &initLocation,
		&targetShift.ShiftDate, &targetShift.StartTime, &targetShift.EndTime, &targetLocation,
		&initFirst, &initLast, &targetFirst, &targetLast,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning shift change request: %v", ErrDatabaseError, err)
	}

	initShift.ID = req.InitiatingShiftID
	initShift.Location = &models.Location{Name: initLocation}
	targetShift.ID = req.TargetShiftID
	targetShift.Location = &models.Location{Name: targetLocation}
	req.InitiatingShift = &initShift
	req.TargetShift = &targetShift
	req.InitiatingMember = &models.Member{ID: req.InitiatingMemberID, FirstName: initFirst, LastName: initLast}
	req.TargetMember = &models.Member{ID: req.TargetMemberID, FirstName: targetFirst, LastName: targetLast}
	return &req, nil
}

func (r *shiftChangeRepository) CreateRequest(executor SQLExecutor, req *models.ShiftChangeRequest) (*models.ShiftChangeRequest, error) {
	if executor == nil {
		executor = r.db
	}
	query := `INSERT INTO shift_change_requests
	            (id, initiating_shift_id, initiating_member_id, target_shift_id, target_member_id,
	             status, request_reason, resolution_notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING created_at, updated_at`

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	currentTime := time.Now()
	req.CreatedAt = currentTime
	req.UpdatedAt = currentTime

	err := executor.QueryRow(query,
		req.ID, req.InitiatingShiftID, req.InitiatingMemberID, req.TargetShiftID, req.TargetMemberID,
		string(req.Status), req.RequestReason, req.ResolutionNotes, req.CreatedAt, req.UpdatedAt,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("%w: creating shift change request: %v", ErrDatabaseError, err)
	}
	return req, nil
}

func (r *shiftChangeRepository) GetRequestByID(id uuid.UUID) (*models.ShiftChangeRequest, error) {
	query := "SELECT " + selectChangeRequestFields + getChangeRequestJoins + " WHERE r.id = $1"
	return scanChangeRequestRow(r.db.QueryRow(query, id))
}

func (r *shiftChangeRepository) GetRequestsForMember(memberID uuid.UUID) ([]models.ShiftChangeRequest, error) {
	query := "SELECT " + selectChangeRequestFields + getChangeRequestJoins +
		" WHERE r.initiating_member_id = $1 OR r.target_member_id = $1 ORDER BY r.created_at DESC"
	return r.queryRequests(query, memberID)
}

func (r *shiftChangeRepository) GetRequestsByStatus(status models.ChangeRequestStatus) ([]models.ShiftChangeRequest, error) {
	query := "SELECT " + selectChangeRequestFields + getChangeRequestJoins +
		" WHERE r.status = $1 ORDER BY r.created_at ASC"
	return r.queryRequests(query, string(status))
}

// UpdateStatus advances the request from expected to next. If the request is
// no longer in the expected status the current row is returned with
// ErrConflict.
func (r *shiftChangeRepository) UpdateStatus(id uuid.UUID, expected, next models.ChangeRequestStatus, resolutionNotes *string) (*models.ShiftChangeRequest, error) {
	var res sql.Result
	var err error
	if resolutionNotes != nil {
		res, err = r.db.Exec(
			`UPDATE shift_change_requests SET status = $1, resolution_notes = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
			string(next), *resolutionNotes, time.Now(), id, string(expected),
		)
	} else {
		res, err = r.db.Exec(
			`UPDATE shift_change_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			string(next), time.Now(), id, string(expected),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: updating change request %s: %v", ErrDatabaseError, id, err)
	}
	affected, _ := res.RowsAffected()

	req, err := r.GetRequestByID(id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return req, fmt.Errorf("%w: change request %s is %s, not %s", ErrConflict, id, req.Status, expected)
	}
	return req, nil
}

func (r *shiftChangeRepository) queryRequests(query string, args ...interface{}) ([]models.ShiftChangeRequest, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying shift change requests: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	requests := []models.ShiftChangeRequest{}
	for rows.Next() {
		req, scanErr := scanChangeRequestRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		requests = append(requests, *req)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating change request rows: %v", ErrDatabaseError, err)
	}
	return requests, nil
}
