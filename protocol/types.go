package protocol

// Message types published on the change feed.
const (
	TypeProductChanged   = "product.changed"
	TypeCustomerChanged  = "customer.changed"
	TypeSessionSaved     = "session.saved"
	TypeSessionDiscarded = "session.discarded"
)

// Change actions carried by ProductChanged and CustomerChanged.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Roles for Address.Role.
const (
	RoleServer = "server"
	RoleAny    = "*"
)

// Protocol version.
const Version = 1
