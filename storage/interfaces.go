package storage

import (
	"context"

	"alertfilter/core"
)

// RoleStorage defines the interface for role storage
type RoleStorage interface {
	GetRoleByID(ctx context.Context, id int64) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, role *Role) error
	SeedDefaultRoles(ctx context.Context) error
}

// OrganisationStorage defines the interface for organisation storage
type OrganisationStorage interface {
	CreateOrganisation(ctx context.Context, org *Organisation) error
	GetOrganisationByID(ctx context.Context, id int64) (*Organisation, error)
	GetOrganisationByName(ctx context.Context, name string) (*Organisation, error)
}

// UserStorage defines the interface for user storage
type UserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetAuthUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// UserSettingStorage defines the interface for per-user setting storage
type UserSettingStorage interface {
	GetUserSetting(ctx context.Context, userID int64, name string) (*UserSetting, error)
	GetUserSettingByID(ctx context.Context, id int64) (*UserSetting, error)
	ListUserSettings(ctx context.Context, userID int64) ([]UserSetting, error)
	SaveUserSetting(ctx context.Context, setting *UserSetting) error
	DeleteUserSetting(ctx context.Context, userID int64, name string) error
	GetSettingOwner(ctx context.Context, settingID int64) (core.SettingOwner, error)
}

var (
	_ RoleStorage         = (*SQLiteRoleStorage)(nil)
	_ OrganisationStorage = (*SQLiteOrganisationStorage)(nil)
	_ UserStorage         = (*SQLiteUserStorage)(nil)
	_ UserSettingStorage  = (*SQLiteUserSettingStorage)(nil)
	_ UserSettingStorage  = (*RedisSettingCache)(nil)
)
