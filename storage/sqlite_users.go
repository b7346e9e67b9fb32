package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SQLiteUserStorage implements UserStorage using SQLite
type SQLiteUserStorage struct {
	sqlite      *SQLite
	logger      *zap.SugaredLogger
	roleStorage RoleStorage
}

// NewSQLiteUserStorage creates a new SQLite-based user storage
func NewSQLiteUserStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteUserStorage {
	return &SQLiteUserStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

// SetRoleStorage sets the role storage used to validate role_id on create
func (sus *SQLiteUserStorage) SetRoleStorage(roleStorage RoleStorage) {
	sus.roleStorage = roleStorage
}

// CreateUser creates a new user
func (sus *SQLiteUserStorage) CreateUser(ctx context.Context, user *User) error {
	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return errors.New("user email cannot be empty")
	}

	existing, err := sus.GetUserByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return ErrUserExists
	}

	if sus.roleStorage != nil {
		if _, err := sus.roleStorage.GetRoleByID(ctx, user.RoleID); err != nil {
			return fmt.Errorf("invalid role_id: %w", err)
		}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := sus.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO users (email, org_id, role_id, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		user.Email,
		user.OrgID,
		user.RoleID,
		user.Disabled,
		user.CreatedAt.Format(time.RFC3339),
		user.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id

	sus.logger.Infof("Created user %s (ID: %d)", user.Email, user.ID)
	return nil
}

const userColumns = `id, email, org_id, role_id, disabled, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var user User
	var createdAt, updatedAt string

	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.OrgID,
		&user.RoleID,
		&user.Disabled,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (sus *SQLiteUserStorage) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := sus.sqlite.ReadDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (sus *SQLiteUserStorage) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := sus.sqlite.ReadDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetAuthUser loads a user together with its role and organisation.
// This is the view the setting access gate works from.
func (sus *SQLiteUserStorage) GetAuthUser(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT u.id, u.email, u.org_id, u.role_id, u.disabled, u.created_at, u.updated_at,
		       r.id, r.name, r.perm_site_admin, r.perm_admin, r.created_at, r.updated_at,
		       o.id, o.uuid, o.name, o.created_at
		FROM users u
		JOIN roles r ON r.id = u.role_id
		JOIN organisations o ON o.id = u.org_id
		WHERE u.id = ?
	`

	var user User
	var role Role
	var org Organisation
	var userCreated, userUpdated, roleCreated, roleUpdated, orgCreated string

	err := sus.sqlite.ReadDB.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.OrgID, &user.RoleID, &user.Disabled, &userCreated, &userUpdated,
		&role.ID, &role.Name, &role.PermSiteAdmin, &role.PermAdmin, &roleCreated, &roleUpdated,
		&org.ID, &org.UUID, &org.Name, &orgCreated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auth user: %w", err)
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339, userCreated)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, userUpdated)
	role.CreatedAt, _ = time.Parse(time.RFC3339, roleCreated)
	role.UpdatedAt, _ = time.Parse(time.RFC3339, roleUpdated)
	org.CreatedAt, _ = time.Parse(time.RFC3339, orgCreated)

	user.Role = &role
	user.Organisation = &org
	return &user, nil
}

// ListUsers retrieves all users ordered by ID
func (sus *SQLiteUserStorage) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := sus.sqlite.ReadDB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
