// Package access resolves a user's role on a board or team and guards
// operations by the roles they allow.
package access

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Role int

const (
	RoleNone Role = iota
	RoleViewer
	RoleEditor
	RoleAdmin
)

// ParseRole parses a stored or user-supplied role case-insensitively.
// Unknown values yield RoleNone and ok=false.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "editor":
		return RoleEditor, true
	case "viewer":
		return RoleViewer, true
	default:
		return RoleNone, false
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleEditor:
		return "editor"
	case RoleViewer:
		return "viewer"
	default:
		return "none"
	}
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool { return r >= other }

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseRole(s)
	if !ok {
		return fmt.Errorf("unknown role %q", s)
	}
	*r = parsed
	return nil
}

type EntityKind string

const (
	KindBoard EntityKind = "board"
	KindTeam  EntityKind = "team"
)

func ParseEntityKind(s string) (EntityKind, bool) {
	switch EntityKind(strings.ToLower(s)) {
	case KindBoard:
		return KindBoard, true
	case KindTeam:
		return KindTeam, true
	default:
		return "", false
	}
}

// Room is the realtime room name for an entity.
func Room(kind EntityKind, id uint64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func UserRoom(userID uint64) string {
	return fmt.Sprintf("user:%d", userID)
}
