package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MemberRepository defines the interface for member directory operations.
// HasQualification answers the qualification check the shift registry performs
// before assignment; UserIDsForMembers resolves notification recipients.
type MemberRepository interface {
	GetMembers() ([]models.Member, error)
	GetMemberByID(id uuid.UUID) (*models.Member, error)
	GetMemberByUserID(userID uuid.UUID) (*models.Member, error)
	HasQualification(memberID, qualificationID uuid.UUID) (bool, error)
	GetQualifications() ([]models.Qualification, error)
	UserIDsForMembers(memberIDs []uuid.UUID) ([]uuid.UUID, error)
}

type memberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new instance of MemberRepository.
func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

const selectMemberFields = `
	m.id, m.user_id, m.first_name, m.last_name, m.phone_number, m.employee_id,
	m.is_active, m.created_at, m.updated_at
`

func scanMemberRow(row scanner) (*models.Member, error) {
	var member models.Member
	err := row.Scan(
		&member.ID, &member.UserID, &member.FirstName, &member.LastName,
		&member.PhoneNumber, &member.EmployeeID, &member.IsActive,
		&member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning member: %v", ErrDatabaseError, err)
	}
	return &member, nil
}

func (r *memberRepository) GetMembers() ([]models.Member, error) {
	rows, err := r.db.Query("SELECT " + selectMemberFields + " FROM members m ORDER BY m.last_name, m.first_name")
	if err != nil {
		return nil, fmt.Errorf("%w: querying members: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		member, scanErr := scanMemberRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		members = append(members, *member)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating member rows: %v", ErrDatabaseError, err)
	}
	return members, nil
}

func (r *memberRepository) GetMemberByID(id uuid.UUID) (*models.Member, error) {
	member, err := scanMemberRow(r.db.QueryRow("SELECT "+selectMemberFields+" FROM members m WHERE m.id = $1", id))
	if err != nil {
		return nil, err
	}
	quals, err := r.qualificationsForMember(id)
	if err != nil {
		return nil, err
	}
	member.Qualifications = quals
	return member, nil
}

func (r *memberRepository) GetMemberByUserID(userID uuid.UUID) (*models.Member, error) {
	return scanMemberRow(r.db.QueryRow("SELECT "+selectMemberFields+" FROM members m WHERE m.user_id = $1", userID))
}

func (r *memberRepository) HasQualification(memberID, qualificationID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM member_qualifications WHERE member_id = $1 AND qualification_id = $2)`,
		memberID, qualificationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking qualification %s for member %s: %v", ErrDatabaseError, qualificationID, memberID, err)
	}
	return exists, nil
}

func (r *memberRepository) GetQualifications() ([]models.Qualification, error) {
	rows, err := r.db.Query(`SELECT id, name, description, created_at, updated_at FROM qualifications ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying qualifications: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	quals := []models.Qualification{}
	for rows.Next() {
		var q models.Qualification
		if err := rows.Scan(&q.ID, &q.Name, &q.Description, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning qualification: %v", ErrDatabaseError, err)
		}
		quals = append(quals, q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating qualification rows: %v", ErrDatabaseError, err)
	}
	return quals, nil
}

func (r *memberRepository) qualificationsForMember(memberID uuid.UUID) ([]models.Qualification, error) {
	rows, err := r.db.Query(
		`SELECT q.id, q.name, q.description, q.created_at, q.updated_at
		 FROM qualifications q
		 JOIN member_qualifications mq ON mq.qualification_id = q.id
		 WHERE mq.member_id = $1
		 ORDER BY q.name`, memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying qualifications for member %s: %v", ErrDatabaseError, memberID, err)
	}
	defer rows.Close()

	quals := []models.Qualification{}
	for rows.Next() {
		var q models.Qualification
		if err := rows.Scan(&q.ID, &q.Name, &q.Description, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning member qualification: %v", ErrDatabaseError, err)
		}
		quals = append(quals, q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating member qualification rows: %v", ErrDatabaseError, err)
	}
	return quals, nil
}

// UserIDsForMembers maps member ids to their linked user accounts. Members
// without a linked user are silently skipped.
func (r *memberRepository) UserIDsForMembers(memberIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		ids = append(ids, id.String())
	}

	rows, err := r.db.Query(
		`SELECT user_id FROM members WHERE id = ANY($1) AND user_id IS NOT NULL`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving user ids for members: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	userIDs := []uuid.UUID{}
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("%w: scanning member user id: %v", ErrDatabaseError, err)
		}
		userIDs = append(userIDs, userID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating member user id rows: %v", ErrDatabaseError, err)
	}
	return userIDs, nil
}
