package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BidRepository defines the interface for shift bid database operations.
// CreateBid and Retract are conditional transitions like the shift registry
// methods: CreateBid holds a share lock on the shift row so the insert cannot
// interleave with an award's LOST sweep, Retract succeeds only while the bid
// is still ACTIVE. Both return ErrConflict when the precondition fails.
// Awarding happens in ShiftRepository.ConfirmFromBid so the shift and bid
// rows change in one transaction.
type BidRepository interface {
	CreateBid(bid *models.ShiftBid) (*models.ShiftBid, error)
	GetBidByID(id uuid.UUID) (*models.ShiftBid, error)
	GetBidsForShift(shiftID uuid.UUID) ([]models.ShiftBid, error)
	GetBidsForMember(memberID uuid.UUID) ([]models.ShiftBid, error)
	GetAwardedBidForShift(shiftID uuid.UUID) (*models.ShiftBid, error)
	Retract(bidID uuid.UUID) (*models.ShiftBid, error)
}

type bidRepository struct {
	db *sql.DB
}

// NewBidRepository creates a new instance of BidRepository.
func NewBidRepository(db *sql.DB) BidRepository {
	return &bidRepository{db: db}
}

const selectBidFields = `
	b.id, b.shift_id, b.member_id, b.status, b.notes, b.created_at, b.updated_at,
	COALESCE(m.first_name, ''), COALESCE(m.last_name, '')
`

const getBidJoins = `
	FROM shift_bids b
	JOIN members m ON b.member_id = m.id
`

func scanBidRow(row scanner) (*models.ShiftBid, error) {
	var bid models.ShiftBid
	var memberFirst, memberLast string

	err := row.Scan(
		&bid.ID, &bid.ShiftID, &bid.MemberID, &bid.Status, &bid.Notes,
		&bid.CreatedAt, &bid.UpdatedAt, &memberFirst, &memberLast,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning shift bid: %v", ErrDatabaseError, err)
	}
	bid.Member = &models.Member{ID: bid.MemberID, FirstName: memberFirst, LastName: memberLast}
	return &bid, nil
}

// CreateBid inserts an ACTIVE bid while holding a share lock on the shift
// row. The lock conflicts with the FOR UPDATE taken by ConfirmFromBid, so a
// bid validated against a BIDDING shift cannot commit after a concurrent
// award already swept the bid set. Concurrent bid placements only share-lock
// the row and do not serialize against each other.
func (r *bidRepository) CreateBid(bid *models.ShiftBid) (*models.ShiftBid, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: beginning create-bid transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	var status models.ShiftStatus
	err = tx.QueryRow(
		`SELECT status FROM scheduled_shifts WHERE id = $1 FOR SHARE`, bid.ShiftID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking shift %s for bid: %v", ErrDatabaseError, bid.ShiftID, err)
	}
	if status != models.ShiftStatusBidding {
		return nil, fmt.Errorf("%w: shift %s is %s, not BIDDING", ErrConflict, bid.ShiftID, status)
	}

	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	currentTime := time.Now()
	bid.CreatedAt = currentTime
	bid.UpdatedAt = currentTime

	err = tx.QueryRow(
		`INSERT INTO shift_bids (id, shift_id, member_id, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		bid.ID, bid.ShiftID, bid.MemberID, string(bid.Status), bid.Notes,
		bid.CreatedAt, bid.UpdatedAt,
	).Scan(&bid.CreatedAt, &bid.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
		}
		return nil, fmt.Errorf("%w: creating shift bid: %v", ErrDatabaseError, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing bid: %v", ErrDatabaseError, err)
	}
	return bid, nil
}

func (r *bidRepository) GetBidByID(id uuid.UUID) (*models.ShiftBid, error) {
	query := "SELECT " + selectBidFields + getBidJoins + " WHERE b.id = $1"
	return scanBidRow(r.db.QueryRow(query, id))
}

func (r *bidRepository) GetBidsForShift(shiftID uuid.UUID) ([]models.ShiftBid, error) {
	query := "SELECT " + selectBidFields + getBidJoins + " WHERE b.shift_id = $1 ORDER BY b.created_at ASC"
	return r.queryBids(query, shiftID)
}

// GetBidsForMember returns the member's bids with the bid shift embedded so
// the caller can render date, times and location without extra lookups.
func (r *bidRepository) GetBidsForMember(memberID uuid.UUID) ([]models.ShiftBid, error) {
	query := `SELECT b.id, b.shift_id, b.member_id, b.status, b.notes, b.created_at, b.updated_at,
	                 s.shift_date, s.start_time, s.end_time, s.status, COALESCE(l.name, '')
	          FROM shift_bids b
	          JOIN scheduled_shifts s ON b.shift_id = s.id
	          JOIN locations l ON s.location_id = l.id
	          WHERE b.member_id = $1
	          ORDER BY s.shift_date ASC, s.start_time ASC`

	rows, err := r.db.Query(query, memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying bids for member %s: %v", ErrDatabaseError, memberID, err)
	}
	defer rows.Close()

	bids := []models.ShiftBid{}
	for rows.Next() {
		var bid models.ShiftBid
		var shift models.ScheduledShift
		var locationName string
		err := rows.Scan(
			&bid.ID, &bid.ShiftID, &bid.MemberID, &bid.Status, &bid.Notes,
			&bid.CreatedAt, &bid.UpdatedAt,
			&shift.ShiftDate, &shift.StartTime, &shift.EndTime, &shift.Status, &locationName,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning member bid: %v", ErrDatabaseError, err)
		}
		shift.ID = bid.ShiftID
		shift.Location = &models.Location{Name: locationName}
		bid.Shift = &shift
		bids = append(bids, bid)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating member bid rows: %v", ErrDatabaseError, err)
	}
	return bids, nil
}

func (r *bidRepository) GetAwardedBidForShift(shiftID uuid.UUID) (*models.ShiftBid, error) {
	query := "SELECT " + selectBidFields + getBidJoins + " WHERE b.shift_id = $1 AND b.status = $2"
	return scanBidRow(r.db.QueryRow(query, shiftID, string(models.BidStatusAwarded)))
}

func (r *bidRepository) Retract(bidID uuid.UUID) (*models.ShiftBid, error) {
	res, err := r.db.Exec(
		`UPDATE shift_bids SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(models.BidStatusRetracted), time.Now(), bidID, string(models.BidStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: retracting bid %s: %v", ErrDatabaseError, bidID, err)
	}
	affected, _ := res.RowsAffected()

	bid, err := r.GetBidByID(bidID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return bid, fmt.Errorf("%w: bid %s is %s, not ACTIVE", ErrConflict, bidID, bid.Status)
	}
	return bid, nil
}

func (r *bidRepository) queryBids(query string, args ...interface{}) ([]models.ShiftBid, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying shift bids: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	bids := []models.ShiftBid{}
	for rows.Next() {
		bid, scanErr := scanBidRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		bids = append(bids, *bid)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating bid rows: %v", ErrDatabaseError, err)
	}
	return bids, nil
}
