package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shift_planner_backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Error
)

// AuthRepository defines the interface for authentication-related database operations.
type AuthRepository interface {
	CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (uuid.UUID, error)
	FindUserByUsername(username string) (*models.User, string, error) // Returns User, HashedPassword, Error
	FindUserByID(userID uuid.UUID) (*models.User, error)
	FindRoleByName(name string) (*models.Role, error)
	ListManagerUserIDs() ([]uuid.UUID, error)
}

// authRepository implements the AuthRepository interface.
type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

// CreateUser inserts a new user into the database.
// It expects an SQLExecutor which can be a *sql.DB or *sql.Tx.
func (r *authRepository) CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (uuid.UUID, error) {
	if executor == nil {
		executor = r.db
	}
	query := `INSERT INTO users (id, username, password_hash, email, full_name, role_id, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	currentTime := time.Now()
	isActive := true // Default to true for new users

	var userID uuid.UUID
	err := executor.QueryRow(
		query,
		user.ID,
		user.Username,
		hashedPassword,
		user.Email,    // Can be nil
		user.FullName, // Can be nil
		user.RoleID,
		isActive,
		currentTime,
		currentTime,
	).Scan(&userID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code.Name() == "unique_violation" {
				return uuid.Nil, fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
			}
		}
		return uuid.Nil, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return userID, nil
}

const selectUserQuery = `
	SELECT u.id, u.username, u.password_hash, u.email, u.full_name, u.role_id, u.is_active, u.created_at, u.updated_at,
	       COALESCE(ro.name, '') as role_name
	FROM users u
	LEFT JOIN roles ro ON u.role_id = ro.id
`

func scanUserRow(row scanner) (*models.User, string, error) {
	user := &models.User{}
	var hashedPassword string
	var roleName sql.NullString

	err := row.Scan(
		&user.ID, &user.Username, &hashedPassword, &user.Email, &user.FullName,
		&user.RoleID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
		&roleName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: scanning user: %v", ErrDatabaseError, err)
	}

	if user.RoleID != nil && roleName.Valid {
		user.Role = &models.Role{ID: *user.RoleID, Name: roleName.String}
	}
	return user, hashedPassword, nil
}

// FindUserByUsername retrieves a user by their username.
// It returns the user model, their hashed password, and an error if any.
func (r *authRepository) FindUserByUsername(username string) (*models.User, string, error) {
	return scanUserRow(r.db.QueryRow(selectUserQuery+" WHERE u.username = $1", username))
}

// FindUserByID retrieves a user by their ID. The password hash is not
// populated on the returned model.
func (r *authRepository) FindUserByID(userID uuid.UUID) (*models.User, error) {
	user, _, err := scanUserRow(r.db.QueryRow(selectUserQuery+" WHERE u.id = $1", userID))
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *authRepository) FindRoleByName(name string) (*models.Role, error) {
	role := &models.Role{}
	err := r.db.QueryRow(
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`, name,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding role %s: %v", ErrDatabaseError, name, err)
	}
	return role, nil
}

// ListManagerUserIDs returns the user ids of every active Admin or Manager,
// used to fan notifications out to the management group.
func (r *authRepository) ListManagerUserIDs() ([]uuid.UUID, error) {
	rows, err := r.db.Query(
		`SELECT u.id FROM users u
		 JOIN roles ro ON u.role_id = ro.id
		 WHERE ro.name IN ($1, $2) AND u.is_active = TRUE`,
		models.RoleAdmin, models.RoleManager,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: listing manager users: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning manager user id: %v", ErrDatabaseError, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating manager user rows: %v", ErrDatabaseError, err)
	}
	return ids, nil
}
