package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/fieldops/wms-backend/internal/models"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQL connection pool and owns all queries.
type Store struct {
	db *sql.DB
}

func InitDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- Users / Identity Directory ---

func (s *Store) CreateUser(u *models.User) (*models.User, error) {
	err := s.db.QueryRow(
		`INSERT INTO users (username, email, password_hash, full_name, role, area, region)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, is_active, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.Area, u.Region,
	).Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByUsername(username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		userColumns+` WHERE username = $1`, username))
}

// UserByUsernameAndRole resolves a user with a specific role, used by the
// room resolver to confirm a teknisi identity.
func (s *Store) UserByUsernameAndRole(username, role string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(
		userColumns+` WHERE username = $1 AND role = $2`, username, role))
}

// CoordinatorFor finds the admin regional responsible for a teknisi,
// matching by area first and falling back to region.
func (s *Store) CoordinatorFor(area, region string) (*models.User, error) {
	u, err := s.scanUser(s.db.QueryRow(
		userColumns+` WHERE role = $1 AND area = $2 ORDER BY id LIMIT 1`,
		models.RoleAdminRegional, area))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.scanUser(s.db.QueryRow(
		userColumns+` WHERE role = $1 AND region = $2 ORDER BY id LIMIT 1`,
		models.RoleAdminRegional, region))
}

const userColumns = `SELECT id, username, email, password_hash, full_name, role,
	COALESCE(area, ''), COALESCE(region, ''), is_active, created_at, updated_at FROM users`

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName,
		&u.Role, &u.Area, &u.Region, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
