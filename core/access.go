package core

// Actor is the user attempting to read or change a setting, reduced to the
// fields the access gate needs.
type Actor struct {
	ID        int64
	OrgID     int64
	SiteAdmin bool
	OrgAdmin  bool
}

// SettingOwner identifies who owns a setting.
type SettingOwner struct {
	UserID int64
	OrgID  int64
}

// CheckAccess reports whether actor may manage a setting owned by owner.
// Site admins may manage any setting, org admins may manage settings of users
// in their own organisation, and every user may manage their own settings.
func CheckAccess(actor Actor, owner SettingOwner) bool {
	if actor.SiteAdmin {
		return true
	}
	if actor.OrgAdmin && actor.OrgID == owner.OrgID {
		return true
	}
	return actor.ID == owner.UserID
}
