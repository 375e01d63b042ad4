// Package chat holds the closed vocabulary shared between persistence,
// prompt construction and the realtime protocol.
package chat

import "fmt"

// Role is a closed two-variant type. External text only becomes a Role
// through ParseRole, so a third value can never leak past a boundary.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func ParseRole(s string) (Role, error) {
	switch s {
	case string(RoleUser):
		return RoleUser, nil
	case string(RoleAssistant):
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("invalid message role %q", s)
	}
}

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}
