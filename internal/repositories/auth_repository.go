package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"botiquin_backend/internal/models"

	"github.com/lib/pq" // For pq.Error
)

// AuthRepository defines the interface for user/credential storage. The
// users table is relational (not sheet-shaped): it only exists because
// auth is not delegated to an external identity provider.
type AuthRepository interface {
	CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (int64, error)
	FindUserByUsername(username string) (*models.User, string, error) // Returns User, HashedPassword, Error
	FindUserByID(userID int64) (*models.User, error)
}

// authRepository implements AuthRepository over database/sql. The $n
// placeholder style works for both lib/pq and the sqlite driver.
type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a SQL-backed AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

func (r *authRepository) CreateUser(executor SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	query := `INSERT INTO users (username, password_hash, full_name, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`

	currentTime := time.Now()

	var userID int64
	err := executor.QueryRow(
		query,
		user.Username,
		hashedPassword,
		user.FullName, // Can be nil
		user.Role,
		true, // new users are active
		currentTime,
		currentTime,
	).Scan(&userID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Code.Name() == "unique_violation" {
				return 0, fmt.Errorf("%w: %s (constraint: %s)", ErrDuplicateKey, pqErr.Message, pqErr.Constraint)
			}
		}
		// The sqlite driver reports constraint violations as plain errors.
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return 0, fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return 0, fmt.Errorf("%w: creating user: %v", ErrDatabaseError, err)
	}
	return userID, nil
}

func (r *authRepository) FindUserByUsername(username string) (*models.User, string, error) {
	user := &models.User{}
	var hashedPassword string
	query := `SELECT id, username, password_hash, full_name, role, is_active, created_at, updated_at
	          FROM users WHERE username = $1`

	err := r.db.QueryRow(query, username).Scan(
		&user.ID, &user.Username, &hashedPassword, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: finding user by username %s: %v", ErrDatabaseError, username, err)
	}
	return user, hashedPassword, nil
}

func (r *authRepository) FindUserByID(userID int64) (*models.User, error) {
	user := &models.User{}
	var passwordHash string
	query := `SELECT id, username, password_hash, full_name, role, is_active, created_at, updated_at
	          FROM users WHERE id = $1`

	err := r.db.QueryRow(query, userID).Scan(
		&user.ID, &user.Username, &passwordHash, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding user by ID %d: %v", ErrDatabaseError, userID, err)
	}
	// PasswordHash intentionally not populated; this method serves profile
	// lookups, not credential checks.
	return user, nil
}

// memoryAuthRepository backs the memory store driver: no SQL database is
// open in that mode, so users live in-process for the lifetime of the run.
type memoryAuthRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*memoryUser // keyed by username
}

type memoryUser struct {
	user models.User
	hash string
}

// NewMemoryAuthRepository creates an empty in-process user store.
func NewMemoryAuthRepository() AuthRepository {
	return &memoryAuthRepository{nextID: 1, users: map[string]*memoryUser{}}
}

func (r *memoryAuthRepository) CreateUser(_ SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return 0, fmt.Errorf("%w: username %q", ErrDuplicateKey, user.Username)
	}
	stored := *user
	stored.ID = r.nextID
	stored.IsActive = true
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.users[user.Username] = &memoryUser{user: stored, hash: hashedPassword}
	r.nextID++
	return stored.ID, nil
}

func (r *memoryAuthRepository) FindUserByUsername(username string) (*models.User, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.users[username]
	if !ok {
		return nil, "", ErrNotFound
	}
	u := entry.user
	return &u, entry.hash, nil
}

func (r *memoryAuthRepository) FindUserByID(userID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.users {
		if entry.user.ID == userID {
			u := entry.user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}
