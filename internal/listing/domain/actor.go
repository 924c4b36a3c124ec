package domain

// Role of an authenticated caller.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Actor is the identity on whose behalf an operation runs. It is passed
// explicitly to every mutating call.
type Actor struct {
	ID   string
	Role Role
}

// Operation names what the actor is attempting.
type Operation string

const (
	OpCreate             Operation = "create"
	OpUpdate             Operation = "update"
	OpDelete             Operation = "delete"
	OpToggleAvailability Operation = "toggle_availability"
	OpViewOwn            Operation = "view_own"
	OpManageAll          Operation = "manage_all"
)
