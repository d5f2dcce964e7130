package domain

import "time"

type Role string

const (
	RoleGuardian Role = "guardian"
	RoleSubject  Role = "subject"
)

type Member struct {
	UserID      string    `json:"user_id"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Family is a group of accounts. Members are ordered by join time.
type Family struct {
	FamilyID string   `json:"family_id"`
	Name     string   `json:"name"`
	Members  []Member `json:"members"`
}

// Guardians returns the members entitled to receive transition
// notifications, preserving member order.
func (f *Family) Guardians() []Member {
	var out []Member
	for _, m := range f.Members {
		if m.Role == RoleGuardian {
			out = append(out, m)
		}
	}
	return out
}

// MemberName returns the display name of a member, or "" if the user is
// not in the family.
func (f *Family) MemberName(userID string) string {
	for _, m := range f.Members {
		if m.UserID == userID {
			return m.DisplayName
		}
	}
	return ""
}

// UserToken pairs a push token with the account that registered it.
type UserToken struct {
	UserID string
	Token  string
}
