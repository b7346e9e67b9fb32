package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SQLiteRoleStorage implements RoleStorage using SQLite
type SQLiteRoleStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteRoleStorage creates a new SQLite-based role storage
func NewSQLiteRoleStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteRoleStorage {
	return &SQLiteRoleStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

const roleColumns = `id, name, perm_site_admin, perm_admin, created_at, updated_at`

func scanRole(row interface{ Scan(...interface{}) error }) (*Role, error) {
	var role Role
	var createdAt, updatedAt string

	if err := row.Scan(
		&role.ID,
		&role.Name,
		&role.PermSiteAdmin,
		&role.PermAdmin,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	role.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	role.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &role, nil
}

// GetRoleByID retrieves a role by ID
func (srs *SQLiteRoleStorage) GetRoleByID(ctx context.Context, id int64) (*Role, error) {
	row := srs.sqlite.ReadDB.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	role, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role by id: %w", err)
	}
	return role, nil
}

// GetRoleByName retrieves a role by name
func (srs *SQLiteRoleStorage) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	row := srs.sqlite.ReadDB.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	role, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return role, nil
}

// ListRoles retrieves all roles
func (srs *SQLiteRoleStorage) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := srs.sqlite.ReadDB.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}

// CreateRole creates a new role
func (srs *SQLiteRoleStorage) CreateRole(ctx context.Context, role *Role) error {
	if role.Name == "" {
		return errors.New("role name cannot be empty")
	}
	if len(role.Name) > 50 {
		return errors.New("role name exceeds maximum length of 50 characters")
	}

	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	result, err := srs.sqlite.WriteDB.ExecContext(ctx, `
		INSERT INTO roles (name, perm_site_admin, perm_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		role.Name,
		role.PermSiteAdmin,
		role.PermAdmin,
		role.CreatedAt.Format(time.RFC3339),
		role.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	role.ID = id

	srs.logger.Infof("Created role %s (ID: %d)", role.Name, role.ID)
	return nil
}

// SeedDefaultRoles creates any default role that does not exist yet
func (srs *SQLiteRoleStorage) SeedDefaultRoles(ctx context.Context) error {
	for _, role := range GetDefaultRoles() {
		if _, err := srs.GetRoleByName(ctx, role.Name); err == nil {
			continue
		} else if !errors.Is(err, ErrRoleNotFound) {
			return err
		}

		r := role
		if err := srs.CreateRole(ctx, &r); err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
	}
	return nil
}
