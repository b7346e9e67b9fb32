package storage

import (
	"encoding/json"
	"time"

	"alertfilter/core"
)

// Role is a named permission set. Only the two permissions read by the
// setting access gate are modelled.
type Role struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	PermSiteAdmin bool      `json:"perm_site_admin"`
	PermAdmin     bool      `json:"perm_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Predefined role names
const (
	RoleSiteAdmin = "admin"
	RoleOrgAdmin  = "org_admin"
	RoleUser      = "user"
	RoleReadOnly  = "read_only"
)

// GetDefaultRoles returns the roles seeded into an empty database
func GetDefaultRoles() []Role {
	return []Role{
		{Name: RoleSiteAdmin, PermSiteAdmin: true, PermAdmin: true},
		{Name: RoleOrgAdmin, PermAdmin: true},
		{Name: RoleUser},
		{Name: RoleReadOnly},
	}
}

// Organisation is a member organisation of the sharing community
type Organisation struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account. Role and Organisation are populated by GetAuthUser.
type User struct {
	ID           int64         `json:"id"`
	Email        string        `json:"email"`
	OrgID        int64         `json:"org_id"`
	RoleID       int64         `json:"role_id"`
	Disabled     bool          `json:"disabled"`
	Role         *Role         `json:"role,omitempty"`
	Organisation *Organisation `json:"organisation,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Actor reduces the user to the fields the access gate needs
func (u *User) Actor() core.Actor {
	actor := core.Actor{ID: u.ID, OrgID: u.OrgID}
	if u.Role != nil {
		actor.SiteAdmin = u.Role.PermSiteAdmin
		actor.OrgAdmin = u.Role.PermAdmin
	}
	return actor
}

// UserSetting is one named setting of one user. Value holds a JSON document.
type UserSetting struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Setting   string          `json:"setting"`
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}
