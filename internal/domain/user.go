package domain

import (
	"strings"
	"time"
)

// User is the single resource managed by the service.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserPatch carries the fields supplied on an update. Nil fields are left untouched.
type UserPatch struct {
	FullName     *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FullName == nil && p.Email == nil && p.PasswordHash == nil
}

// Fields returns the names of the supplied fields, in a stable order.
func (p UserPatch) Fields() []string {
	fields := make([]string, 0, 3)
	if p.FullName != nil {
		fields = append(fields, "fullName")
	}
	if p.Email != nil {
		fields = append(fields, "email")
	}
	if p.PasswordHash != nil {
		fields = append(fields, "password")
	}
	return fields
}

// Apply copies the supplied fields onto u and bumps its version.
func (p UserPatch) Apply(u *User, now time.Time) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	u.Version++
	u.UpdatedAt = now
}

// NormalizeEmail trims and lower-cases an address before comparison or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SortOrder selects the created-at ordering of list results.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder maps a query value to a SortOrder. Only "desc" selects descending order.
func ParseSortOrder(val string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(val), string(SortDescending)) {
		return SortDescending
	}
	return SortAscending
}

// FilterField names a user attribute that can be matched exactly in list queries.
type FilterField string

const (
	FilterFullName FilterField = "fullName"
	FilterEmail    FilterField = "email"
	FilterID       FilterField = "id"
)

// ParseFilterField returns the field and true when val names a filterable attribute.
func ParseFilterField(val string) (FilterField, bool) {
	switch FilterField(strings.TrimSpace(val)) {
	case FilterFullName:
		return FilterFullName, true
	case FilterEmail:
		return FilterEmail, true
	case FilterID:
		return FilterID, true
	}
	return "", false
}

// Profile is the externally visible projection of a User: no password hash, no version.
type Profile struct {
	ID        string
	FullName  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile projects u for read results.
func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
