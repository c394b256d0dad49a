package editing

import "context"

// Shift values for a route.
const (
	ShiftAM = "AM"
	ShiftPM = "PM"
)

// Delivery frequencies for a stop's inventory status.
const (
	DeliveryDaily   = "Daily"
	DeliveryWeekday = "Weekday"
	DeliveryAlt1    = "Alt 1"
	DeliveryAlt2    = "Alt 2"
)

// PowerModes lists the schedules a stop's machine can run on.
var PowerModes = []string{"Daily", "Alt 1", "Alt 2", "Weekday", "Monthly"}

// ValidPowerMode reports whether mode is one of PowerModes.
func ValidPowerMode(mode string) bool {
	for _, m := range PowerModes {
		if m == mode {
			return true
		}
	}
	return false
}

// ParentRow is one route in the main table. ID is session-local; StoreID is
// the Record Store id, zero until the row has been flushed.
type ParentRow struct {
	ID       int64   `json:"id"`
	StoreID  int64   `json:"storeId"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Shift    string  `json:"shift"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type Image struct {
	URL         string `json:"url"`
	Caption     string `json:"caption,omitempty"`
	Description string `json:"description,omitempty"`
}

// FlexRow is one stop in a parent's flex table. ID is unique only within
// that table, so a stop is identified by (parent id, ID).
type FlexRow struct {
	ID              int64   `json:"id"`
	StoreID         int64   `json:"storeId"`
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	Location        string  `json:"location"`
	InventoryStatus string  `json:"inventoryStatus"`
	Latitude        string  `json:"latitude"`
	Longitude       string  `json:"longitude"`
	Address         string  `json:"address"`
	OperatingHours  string  `json:"operatingHours"`
	MachineType     string  `json:"machineType"`
	PaymentMethods  string  `json:"paymentMethods"`
	LastMaintenance string  `json:"lastMaintenance"`
	Status          string  `json:"status"`
	PowerMode       string  `json:"powerMode"`
	Images          []Image `json:"images"`
}

// FlexKey identifies a stop within a session.
type FlexKey struct {
	ParentID int64 `json:"parentId"`
	RowID    int64 `json:"rowId"`
}

// Source loads rows from the Record Store.
type Source interface {
	LoadParents(ctx context.Context) ([]ParentRow, error)
	LoadFlexRows(ctx context.Context, parent ParentRow) ([]FlexRow, error)
}

// Sink writes a session's accumulated edits to the Record Store.
// Implementations that fail part way without rolling back return the ids
// they already assigned, so the session can avoid creating the same rows
// twice. Ids of rolled-back rows must not be returned.
type Sink interface {
	Flush(ctx context.Context, cs *Changeset) (*FlushResult, error)
}

// FlexChanges holds the writes for one parent's flex table.
type FlexChanges struct {
	ParentID      int64     `json:"parentId"`
	ParentStoreID int64     `json:"parentStoreId"`
	Rows          []FlexRow `json:"rows"`
	Deleted       []int64   `json:"deleted"`
}

// Changeset is what SaveAll hands to a Sink. Rows listed here were either
// edited since the last save or never persisted; Deleted holds store ids.
type Changeset struct {
	Parents        []ParentRow   `json:"parents"`
	DeletedParents []int64       `json:"deletedParents"`
	Flex           []FlexChanges `json:"flex"`
}

// Empty reports whether the changeset carries no writes.
func (cs *Changeset) Empty() bool {
	if len(cs.Parents) > 0 || len(cs.DeletedParents) > 0 {
		return false
	}
	for _, f := range cs.Flex {
		if len(f.Rows) > 0 || len(f.Deleted) > 0 {
			return false
		}
	}
	return true
}

// FlushResult maps session ids of newly created rows to their store ids.
type FlushResult struct {
	ParentIDs map[int64]int64
	FlexIDs   map[FlexKey]int64
}

// Status summarises a session for the presentation layer.
type Status struct {
	Parents         int           `json:"parents"`
	OpenParent      int64         `json:"openParent"`
	PendingChanges  int           `json:"pendingChanges"`
	PreSavedParents []int64       `json:"preSavedParents"`
	PreSavedFlex    []FlexKey     `json:"preSavedFlex"`
	ChangeCounts    map[int64]int `json:"changeCounts"`
	CachedParents   []int64       `json:"cachedParents"`
	PendingDeletes  int           `json:"pendingDeletes"`
	HasUnsaved      bool          `json:"hasUnsaved"`
	HasSnapshot     bool          `json:"hasSnapshot"`
}
