package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAccess(t *testing.T) {
	owner := SettingOwner{UserID: 10, OrgID: 1}

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"site admin of another org", Actor{ID: 99, OrgID: 2, SiteAdmin: true}, true},
		{"org admin of same org", Actor{ID: 11, OrgID: 1, OrgAdmin: true}, true},
		{"org admin of another org", Actor{ID: 12, OrgID: 2, OrgAdmin: true}, false},
		{"owner", Actor{ID: 10, OrgID: 1}, true},
		{"owner after moving org", Actor{ID: 10, OrgID: 3}, true},
		{"colleague in same org", Actor{ID: 13, OrgID: 1}, false},
		{"stranger", Actor{ID: 14, OrgID: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckAccess(tt.actor, owner))
		})
	}
}
