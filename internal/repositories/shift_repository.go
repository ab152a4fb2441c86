package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
)

// ShiftRepository defines the interface for scheduled shift database operations.
// The four transition methods (Assign, OpenForBidding, ConfirmFromBid, Swap)
// are conditional compare-and-set operations: each one locks the affected
// row(s) with SELECT ... FOR UPDATE inside a single transaction, re-checks the
// precondition under the lock, and either commits the transition or returns
// the current row together with ErrConflict. Concurrent callers therefore
// observe linearizable shift state.
type ShiftRepository interface {
	GetShiftByID(id uuid.UUID) (*models.ScheduledShift, error)
	GetShifts(filters models.ScheduleFilters) ([]models.ScheduledShift, error)
	Assign(shiftID, memberID uuid.UUID) (*models.ScheduledShift, error)
	OpenForBidding(shiftID uuid.UUID) (*models.ScheduledShift, error)
	ConfirmFromBid(shiftID, memberID, bidID uuid.UUID) (*models.ScheduledShift, error)
	Swap(shiftAID, memberAID, shiftBID, memberBID uuid.UUID) error
}

type shiftRepository struct {
	db *sql.DB
}

// NewShiftRepository creates a new instance of ShiftRepository.
func NewShiftRepository(db *sql.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

const selectShiftFields = `
	s.id, s.shift_date, s.start_time, s.end_time, s.location_id, s.template_id,
	s.required_qualification_id, s.status, s.member_id, s.prior_member_id, s.created_at, s.updated_at,
	COALESCE(l.name, ''),
	COALESCE(t.name, ''),
	COALESCE(m.first_name, ''), COALESCE(m.last_name, ''),
	COALESCE(q.name, '')
`

const getShiftJoins = `
	FROM scheduled_shifts s
	JOIN locations l ON s.location_id = l.id
	JOIN shift_templates t ON s.template_id = t.id
	LEFT JOIN members m ON s.member_id = m.id
	LEFT JOIN qualifications q ON s.required_qualification_id = q.id
`

// scanShiftRow scans one shift row with its joined display fields.
func scanShiftRow(row scanner) (*models.ScheduledShift, error) {
	var shift models.ScheduledShift
	var locationName, templateName, memberFirst, memberLast, qualName string

	err := row.Scan(
		&shift.ID, &shift.ShiftDate, &shift.StartTime, &shift.EndTime,
		&shift.LocationID, &shift.TemplateID, &shift.RequiredQualificationID,
		&shift.Status, &shift.MemberID, &shift.PriorMemberID, &shift.CreatedAt, &shift.UpdatedAt,
		&locationName, &templateName, &memberFirst, &memberLast, &qualName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning scheduled shift: %v", ErrDatabaseError, err)
	}

	shift.Location = &models.Location{ID: shift.LocationID, Name: locationName}
	shift.Template = &models.ShiftTemplate{ID: shift.TemplateID, Name: templateName}
	if shift.MemberID != nil {
		shift.Member = &models.Member{ID: *shift.MemberID, FirstName: memberFirst, LastName: memberLast}
	}
	if shift.RequiredQualificationID != nil {
		shift.RequiredQualification = &models.Qualification{ID: *shift.RequiredQualificationID, Name: qualName}
	}
	return &shift, nil
}

func (r *shiftRepository) GetShiftByID(id uuid.UUID) (*models.ScheduledShift, error) {
	query := "SELECT " + selectShiftFields + getShiftJoins + " WHERE s.id = $1"
	return scanShiftRow(r.db.QueryRow(query, id))
}

func (r *shiftRepository) GetShifts(filters models.ScheduleFilters) ([]models.ScheduledShift, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + selectShiftFields + getShiftJoins)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("s.shift_date >= $%d", argCount))
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("s.shift_date <= $%d", argCount))
		args = append(args, *filters.EndDate)
		argCount++
	}
	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", argCount))
		args = append(args, string(*filters.Status))
		argCount++
	}
	if filters.MemberID != nil {
		conditions = append(conditions, fmt.Sprintf("s.member_id = $%d", argCount))
		args = append(args, *filters.MemberID)
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY s.shift_date ASC, s.start_time ASC")

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying scheduled shifts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	shifts := []models.ScheduledShift{}
	for rows.Next() {
		shift, scanErr := scanShiftRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		shifts = append(shifts, *shift)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating shift rows: %v", ErrDatabaseError, err)
	}
	return shifts, nil
}

// lockedShift is the minimal row state read under FOR UPDATE.
type lockedShift struct {
	ID       uuid.UUID
	Status   models.ShiftStatus
	MemberID *uuid.UUID
}

func lockShiftRow(tx *sql.Tx, id uuid.UUID) (*lockedShift, error) {
	var ls lockedShift
	err := tx.QueryRow(
		`SELECT id, status, member_id FROM scheduled_shifts WHERE id = $1 FOR UPDATE`, id,
	).Scan(&ls.ID, &ls.Status, &ls.MemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking shift %s: %v", ErrDatabaseError, id, err)
	}
	return &ls, nil
}

// conflictShift materializes a conflict result from the locked row so callers
// can report expected vs actual without another round trip.
func (r *shiftRepository) conflictShift(ls *lockedShift, detail string) (*models.ScheduledShift, error) {
	shift, err := r.GetShiftByID(ls.ID)
	if err != nil {
		shift = &models.ScheduledShift{ID: ls.ID, Status: ls.Status, MemberID: ls.MemberID}
	}
	return shift, fmt.Errorf("%w: %s", ErrConflict, detail)
}

func (r *shiftRepository) Assign(shiftID, memberID uuid.UUID) (*models.ScheduledShift, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: beginning assign transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	ls, err := lockShiftRow(tx, shiftID)
	if err != nil {
		return nil, err
	}
	if ls.Status != models.ShiftStatusOpen {
		return r.conflictShift(ls, fmt.Sprintf("shift %s is %s, not OPEN", shiftID, ls.Status))
	}

	_, err = tx.Exec(
		`UPDATE scheduled_shifts SET status = $1, member_id = $2, updated_at = $3 WHERE id = $4`,
		string(models.ShiftStatusConfirmed), memberID, time.Now(), shiftID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: assigning shift %s: %v", ErrDatabaseError, shiftID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing assign: %v", ErrDatabaseError, err)
	}
	return r.GetShiftByID(shiftID)
}

func (r *shiftRepository) OpenForBidding(shiftID uuid.UUID) (*models.ScheduledShift, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: beginning open-for-bidding transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	ls, err := lockShiftRow(tx, shiftID)
	if err != nil {
		return nil, err
	}
	if ls.Status != models.ShiftStatusConfirmed {
		return r.conflictShift(ls, fmt.Sprintf("shift %s is %s, not CONFIRMED", shiftID, ls.Status))
	}

	_, err = tx.Exec(
		`UPDATE scheduled_shifts SET status = $1, prior_member_id = member_id, member_id = NULL, updated_at = $2 WHERE id = $3`,
		string(models.ShiftStatusBidding), time.Now(), shiftID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: opening shift %s for bidding: %v", ErrDatabaseError, shiftID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing open-for-bidding: %v", ErrDatabaseError, err)
	}
	return r.GetShiftByID(shiftID)
}

// ConfirmFromBid confirms the shift for memberID and, in the same transaction,
// marks bidID AWARDED and every other ACTIVE bid on the shift LOST.
func (r *shiftRepository) ConfirmFromBid(shiftID, memberID, bidID uuid.UUID) (*models.ScheduledShift, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: beginning confirm-from-bid transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	ls, err := lockShiftRow(tx, shiftID)
	if err != nil {
		return nil, err
	}
	if ls.Status != models.ShiftStatusBidding {
		return r.conflictShift(ls, fmt.Sprintf("shift %s is %s, not BIDDING", shiftID, ls.Status))
	}

	now := time.Now()
	res, err := tx.Exec(
		`UPDATE shift_bids SET status = $1, updated_at = $2 WHERE id = $3 AND shift_id = $4 AND status = $5`,
		string(models.BidStatusAwarded), now, bidID, shiftID, string(models.BidStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: awarding bid %s: %v", ErrDatabaseError, bidID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, fmt.Errorf("%w: bid %s is not an active bid on shift %s", ErrConflict, bidID, shiftID)
	}

	_, err = tx.Exec(
		`UPDATE shift_bids SET status = $1, updated_at = $2 WHERE shift_id = $3 AND status = $4 AND id <> $5`,
		string(models.BidStatusLost), now, shiftID, string(models.BidStatusActive), bidID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: marking losing bids on shift %s: %v", ErrDatabaseError, shiftID, err)
	}

	_, err = tx.Exec(
		`UPDATE scheduled_shifts SET status = $1, member_id = $2, updated_at = $3 WHERE id = $4`,
		string(models.ShiftStatusConfirmed), memberID, now, shiftID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: confirming shift %s from bid: %v", ErrDatabaseError, shiftID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing confirm-from-bid: %v", ErrDatabaseError, err)
	}
	return r.GetShiftByID(shiftID)
}

// Swap exchanges the assignees of two CONFIRMED shifts. Both rows are locked
// in deterministic id order so overlapping swaps cannot deadlock, and both
// ownership preconditions are re-checked under the locks.
func (r *shiftRepository) Swap(shiftAID, memberAID, shiftBID, memberBID uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: beginning swap transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	lockOrder := []uuid.UUID{shiftAID, shiftBID}
	sort.Slice(lockOrder, func(i, j int) bool { return lockOrder[i].String() < lockOrder[j].String() })

	locked := make(map[uuid.UUID]*lockedShift, 2)
	for _, id := range lockOrder {
		ls, lockErr := lockShiftRow(tx, id)
		if lockErr != nil {
			return lockErr
		}
		locked[id] = ls
	}

	for _, side := range []struct {
		shiftID  uuid.UUID
		memberID uuid.UUID
	}{{shiftAID, memberAID}, {shiftBID, memberBID}} {
		ls := locked[side.shiftID]
		if ls.Status != models.ShiftStatusConfirmed {
			return fmt.Errorf("%w: shift %s is %s, not CONFIRMED", ErrConflict, side.shiftID, ls.Status)
		}
		if ls.MemberID == nil || *ls.MemberID != side.memberID {
			return fmt.Errorf("%w: shift %s is no longer owned by member %s", ErrConflict, side.shiftID, side.memberID)
		}
	}

	now := time.Now()
	if _, err = tx.Exec(
		`UPDATE scheduled_shifts SET member_id = $1, updated_at = $2 WHERE id = $3`,
		memberBID, now, shiftAID,
	); err != nil {
		return fmt.Errorf("%w: swapping assignee of shift %s: %v", ErrDatabaseError, shiftAID, err)
	}
	if _, err = tx.Exec(
		`UPDATE scheduled_shifts SET member_id = $1, updated_at = $2 WHERE id = $3`,
		memberAID, now, shiftBID,
	); err != nil {
		return fmt.Errorf("%w: swapping assignee of shift %s: %v", ErrDatabaseError, shiftBID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing swap: %v", ErrDatabaseError, err)
	}
	return nil
}
