package engine

const (
	EventProductChanged EventType = iota + 1
	EventCustomerChanged
	EventSessionSaved
	EventSessionDiscarded
	EventRemoteChange
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

// ProductChangedEvent is emitted after a route or stop is written to the
// store. ParentID is set for stops.
type ProductChangedEvent struct {
	ProductID int64
	ParentID  *int64
	Code      string
	Action    string
	Actor     string
}

type CustomerChangedEvent struct {
	CustomerID int64
	Name       string
	Action     string
	Actor      string
}

type SessionSavedEvent struct {
	SessionID      string
	Parents        int
	FlexRows       int
	DeletedParents int
	DeletedFlex    int
	TouchedParents []int64
}

type SessionDiscardedEvent struct {
	SessionID string
}

// RemoteChangeEvent reports a change-feed message from another instance.
type RemoteChangeEvent struct {
	Type   string
	Source string
	Detail string
}

type ConnectionEvent struct {
	Detail string
}
