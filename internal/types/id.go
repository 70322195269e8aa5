// README: Identifier and actor value objects shared across modules.
package types

type ID string

func (id ID) String() string { return string(id) }

type Role string

const (
	RoleRequester Role = "requester"
	RoleCarrier   Role = "carrier"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleCarrier, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated identity an operation runs on behalf of.
type Actor struct {
	ID   ID
	Role Role
}
