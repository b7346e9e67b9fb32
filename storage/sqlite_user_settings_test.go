package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSaveUserSetting_InsertAndUpsert(t *testing.T) {
	sqlite := setupTestSQLite(t)
	user := seededUser(t, sqlite, "ORGNAME", "user@example.com", RoleUser)
	settings := NewSQLiteUserSettingStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	first := &UserSetting{
		UserID:    user.ID,
		Setting:   "publish_alert_filter",
		Value:     json.RawMessage(`{"EventTag.name":["tlp:white"]}`),
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, settings.SaveUserSetting(ctx, first))
	assert.NotZero(t, first.ID)

	second := &UserSetting{
		UserID:  user.ID,
		Setting: "publish_alert_filter",
		Value:   json.RawMessage(`{"Orgc.name":["ORGNAME"]}`),
	}
	require.NoError(t, settings.SaveUserSetting(ctx, second))
	assert.Equal(t, first.ID, second.ID, "upsert must keep the row id")
	assert.False(t, second.Timestamp.IsZero(), "timestamp defaults to now")

	loaded, err := settings.GetUserSetting(ctx, user.ID, "publish_alert_filter")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Orgc.name":["ORGNAME"]}`, string(loaded.Value))
	assert.Equal(t, second.Timestamp.Unix(), loaded.Timestamp.Unix())

	byID, err := settings.GetUserSettingByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, loaded.Value, byID.Value)
}

func TestSaveUserSetting_EmptyValueStoredAsList(t *testing.T) {
	sqlite := setupTestSQLite(t)
	user := seededUser(t, sqlite, "ORGNAME", "user@example.com", RoleUser)
	settings := NewSQLiteUserSettingStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, settings.SaveUserSetting(ctx, &UserSetting{UserID: user.ID, Setting: "publish_alert_filter"}))

	loaded, err := settings.GetUserSetting(ctx, user.ID, "publish_alert_filter")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(loaded.Value))
}

func TestSaveUserSetting_UnknownUser(t *testing.T) {
	sqlite := setupTestSQLite(t)
	settings := NewSQLiteUserSettingStorage(sqlite, zap.NewNop().Sugar())

	err := settings.SaveUserSetting(context.Background(), &UserSetting{UserID: 404, Setting: "publish_alert_filter"})
	assert.ErrorIs(t, err, ErrConstraintViolation)

	err = settings.SaveUserSetting(context.Background(), &UserSetting{UserID: 404})
	assert.Error(t, err)
}

func TestGetUserSetting_NotFound(t *testing.T) {
	sqlite := setupTestSQLite(t)
	settings := NewSQLiteUserSettingStorage(sqlite, zap.NewNop().Sugar())

	_, err := settings.GetUserSetting(context.Background(), 1, "publish_alert_filter")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	_, err = settings.GetUserSettingByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestDeleteUserSetting(t *testing.T) {
	sqlite := setupTestSQLite(t)
	user := seededUser(t, sqlite, "ORGNAME", "user@example.com", RoleUser)
	settings := NewSQLiteUserSettingStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, settings.SaveUserSetting(ctx, &UserSetting{UserID: user.ID, Setting: "publish_alert_filter"}))
	require.NoError(t, settings.DeleteUserSetting(ctx, user.ID, "publish_alert_filter"))

	_, err := settings.GetUserSetting(ctx, user.ID, "publish_alert_filter")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	err = settings.DeleteUserSetting(ctx, user.ID, "publish_alert_filter")
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestListUserSettings(t *testing.T) {
	sqlite := setupTestSQLite(t)
	user := seededUser(t, sqlite, "ORGNAME", "user@example.com", RoleUser)
	settings := NewSQLiteUserSettingStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	empty, err := settings.ListUserSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, settings.SaveUserSetting(ctx, &UserSetting{UserID: user.ID, Setting: "zeta"}))
	require.NoError(t, settings.SaveUserSetting(ctx, &UserSetting{UserID: user.ID, Setting: "alpha"}))

	list, err := settings.ListUserSettings(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Setting)
	assert.Equal(t, "zeta", list[1].Setting)
}

func TestGetSettingOwner(t *testing.T) {
	sqlite := setupTestSQLite(t)
	user := seededUser(t, sqlite, "ORGNAME", "user@example.com", RoleUser)
	settings := NewSQLiteUserSettingStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	setting := &UserSetting{UserID: user.ID, Setting: "publish_alert_filter"}
	require.NoError(t, settings.SaveUserSetting(ctx, setting))

	owner, err := settings.GetSettingOwner(ctx, setting.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner.UserID)
	assert.Equal(t, user.OrgID, owner.OrgID)

	_, err = settings.GetSettingOwner(ctx, 999)
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestUserSettings_CascadeOnUserDelete(t *testing.T) {
	sqlite := setupTestSQLite(t)
	user := seededUser(t, sqlite, "ORGNAME", "user@example.com", RoleUser)
	settings := NewSQLiteUserSettingStorage(sqlite, zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, settings.SaveUserSetting(ctx, &UserSetting{UserID: user.ID, Setting: "publish_alert_filter"}))

	_, err := sqlite.WriteDB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", user.ID)
	require.NoError(t, err)

	_, err = settings.GetUserSetting(ctx, user.ID, "publish_alert_filter")
	assert.ErrorIs(t, err, ErrSettingNotFound)
}
