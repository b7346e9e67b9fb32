package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SQLiteOrganisationStorage implements OrganisationStorage using SQLite
type SQLiteOrganisationStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteOrganisationStorage creates a new SQLite-based organisation storage
func NewSQLiteOrganisationStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteOrganisationStorage {
	return &SQLiteOrganisationStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

// CreateOrganisation creates an organisation, generating a UUID when none is set
func (sos *SQLiteOrganisationStorage) CreateOrganisation(ctx context.Context, org *Organisation) error {
	if org.Name == "" {
		return errors.New("organisation name cannot be empty")
	}
	if org.UUID == "" {
		org.UUID = uuid.New().String()
	} else if _, err := uuid.Parse(org.UUID); err != nil {
		return fmt.Errorf("invalid organisation uuid: %w", err)
	}
	org.CreatedAt = time.Now().UTC()

	result, err := sos.sqlite.WriteDB.ExecContext(ctx,
		`INSERT INTO organisations (uuid, name, created_at) VALUES (?, ?, ?)`,
		org.UUID, org.Name, org.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create organisation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	org.ID = id

	sos.logger.Infof("Created organisation %s (ID: %d)", org.Name, org.ID)
	return nil
}

// GetOrganisationByID retrieves an organisation by ID
func (sos *SQLiteOrganisationStorage) GetOrganisationByID(ctx context.Context, id int64) (*Organisation, error) {
	return sos.getOrganisation(ctx, `SELECT id, uuid, name, created_at FROM organisations WHERE id = ?`, id)
}

// GetOrganisationByName retrieves an organisation by name
func (sos *SQLiteOrganisationStorage) GetOrganisationByName(ctx context.Context, name string) (*Organisation, error) {
	return sos.getOrganisation(ctx, `SELECT id, uuid, name, created_at FROM organisations WHERE name = ?`, name)
}

func (sos *SQLiteOrganisationStorage) getOrganisation(ctx context.Context, query string, arg interface{}) (*Organisation, error) {
	var org Organisation
	var createdAt string

	err := sos.sqlite.ReadDB.QueryRowContext(ctx, query, arg).Scan(&org.ID, &org.UUID, &org.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrganisationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organisation: %w", err)
	}

	org.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &org, nil
}
