package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"alertfilter/core"

	"go.uber.org/zap"
)

// emptySettingValue is stored when a setting is saved without a value
const emptySettingValue = "[]"

// SQLiteUserSettingStorage implements UserSettingStorage using SQLite
type SQLiteUserSettingStorage struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteUserSettingStorage creates a new SQLite-based user setting storage
func NewSQLiteUserSettingStorage(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteUserSettingStorage {
	return &SQLiteUserSettingStorage{
		sqlite: sqlite,
		logger: logger,
	}
}

func scanUserSetting(row interface{ Scan(...interface{}) error }) (*UserSetting, error) {
	var setting UserSetting
	var value string
	var ts int64

	if err := row.Scan(&setting.ID, &setting.UserID, &setting.Setting, &value, &ts); err != nil {
		return nil, err
	}

	setting.Value = json.RawMessage(value)
	setting.Timestamp = time.Unix(ts, 0).UTC()
	return &setting, nil
}

// GetUserSetting retrieves a named setting of a user
func (s *SQLiteUserSettingStorage) GetUserSetting(ctx context.Context, userID int64, name string) (*UserSetting, error) {
	row := s.sqlite.ReadDB.QueryRowContext(ctx, `
		SELECT id, user_id, setting, value, timestamp
		FROM user_settings WHERE user_id = ? AND setting = ?
	`, userID, name)

	setting, err := scanUserSetting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user setting: %w", err)
	}
	return setting, nil
}

// GetUserSettingByID retrieves a setting by its row ID
func (s *SQLiteUserSettingStorage) GetUserSettingByID(ctx context.Context, id int64) (*UserSetting, error) {
	row := s.sqlite.ReadDB.QueryRowContext(ctx, `
		SELECT id, user_id, setting, value, timestamp
		FROM user_settings WHERE id = ?
	`, id)

	setting, err := scanUserSetting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user setting: %w", err)
	}
	return setting, nil
}

// ListUserSettings retrieves every setting of a user ordered by name
func (s *SQLiteUserSettingStorage) ListUserSettings(ctx context.Context, userID int64) ([]UserSetting, error) {
	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT id, user_id, setting, value, timestamp
		FROM user_settings WHERE user_id = ? ORDER BY setting ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user settings: %w", err)
	}
	defer rows.Close()

	settings := []UserSetting{}
	for rows.Next() {
		setting, err := scanUserSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user setting: %w", err)
		}
		settings = append(settings, *setting)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user settings: %w", err)
	}

	return settings, nil
}

// SaveUserSetting inserts the setting or replaces the value of an existing
// (user_id, setting) pair. A zero Timestamp is set to now and an empty Value
// is stored as an empty list.
func (s *SQLiteUserSettingStorage) SaveUserSetting(ctx context.Context, setting *UserSetting) error {
	if setting.Setting == "" {
		return errors.New("setting name cannot be empty")
	}
	if len(bytes.TrimSpace(setting.Value)) == 0 {
		setting.Value = json.RawMessage(emptySettingValue)
	}
	if setting.Timestamp.IsZero() {
		setting.Timestamp = time.Now().UTC().Truncate(time.Second)
	}

	return s.sqlite.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_settings (user_id, setting, value, timestamp)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, setting) DO UPDATE SET
				value = excluded.value,
				timestamp = excluded.timestamp
		`, setting.UserID, setting.Setting, string(setting.Value), setting.Timestamp.Unix())
		if err != nil {
			if strings.Contains(err.Error(), "FOREIGN KEY") {
				return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
			}
			return fmt.Errorf("failed to save user setting: %w", err)
		}

		// LastInsertId is unreliable on the update branch of an upsert
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM user_settings WHERE user_id = ? AND setting = ?`,
			setting.UserID, setting.Setting).Scan(&setting.ID); err != nil {
			return fmt.Errorf("failed to read user setting id: %w", err)
		}
		return nil
	})
}

// DeleteUserSetting removes a named setting of a user
func (s *SQLiteUserSettingStorage) DeleteUserSetting(ctx context.Context, userID int64, name string) error {
	result, err := s.sqlite.WriteDB.ExecContext(ctx,
		`DELETE FROM user_settings WHERE user_id = ? AND setting = ?`, userID, name)
	if err != nil {
		return fmt.Errorf("failed to delete user setting: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSettingNotFound
	}

	s.logger.Debugw("Deleted user setting", "user_id", userID, "setting", name)
	return nil
}

// GetSettingOwner resolves the owning user and organisation of a setting row
func (s *SQLiteUserSettingStorage) GetSettingOwner(ctx context.Context, settingID int64) (core.SettingOwner, error) {
	var owner core.SettingOwner
	err := s.sqlite.ReadDB.QueryRowContext(ctx, `
		SELECT u.id, u.org_id
		FROM user_settings us
		JOIN users u ON u.id = us.user_id
		WHERE us.id = ?
	`, settingID).Scan(&owner.UserID, &owner.OrgID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SettingOwner{}, ErrSettingNotFound
	}
	if err != nil {
		return core.SettingOwner{}, fmt.Errorf("failed to get setting owner: %w", err)
	}
	return owner, nil
}
