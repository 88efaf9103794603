// Package access implements the role-based temporal access window: which
// forecast dates a given viewer may see relative to today.
package access

import (
	"time"

	"powdercast/internal/dates"
)

// Role is the closed set of viewer roles. Roles are derived from the auth
// session; anything outside this set falls back per FromTags.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleBasic    Role = "basic"
	RoleStandard Role = "standard"
	RoleAdvanced Role = "advanced"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

// Window limits visible dates to offsets in [-Back, Forward] days from
// today. A nil *Window means unrestricted.
type Window struct {
	Back    int
	Forward int
}

// roleWindows is the one fixed table mapping each role to its window.
// Guest gets the tightest window; elevated roles are unrestricted.
var roleWindows = map[Role]*Window{
	RoleGuest:    {Back: 0, Forward: 1},
	RoleBasic:    {Back: 3, Forward: 3},
	RoleStandard: {Back: 7, Forward: 7},
	RoleAdvanced: nil,
	RoleAdmin:    nil,
	RoleOwner:    nil,
}

// WindowFor returns the access window for a role. Unknown roles get the
// guest window: the fallback leans toward deny.
func WindowFor(r Role) *Window {
	w, ok := roleWindows[r]
	if !ok {
		return roleWindows[RoleGuest]
	}
	return w
}

// FromTags derives a Role from an auth session. No authenticated user
// means guest; an authenticated user whose tags contain no recognized
// role means basic.
func FromTags(authenticated bool, tags []string) Role {
	if !authenticated {
		return RoleGuest
	}
	for _, tag := range tags {
		switch Role(tag) {
		case RoleBasic, RoleStandard, RoleAdvanced, RoleAdmin, RoleOwner:
			return Role(tag)
		}
	}
	return RoleBasic
}

// Visible reports whether date may be shown to a viewer whose window is w,
// given today. Pure and total: nil window is always visible, otherwise the
// day offset must fall inside [-Back, Forward].
func Visible(date, today time.Time, w *Window) bool {
	if w == nil {
		return true
	}
	offset := dates.DiffDays(date, today)
	return offset >= -w.Back && offset <= w.Forward
}
