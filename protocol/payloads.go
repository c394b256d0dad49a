package protocol

// ProductChanged announces a write to a route or stop. ParentID is set for
// stops so receivers can drop that route's cached flex table.
type ProductChanged struct {
	ProductID int64  `json:"product_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	Code      string `json:"code"`
	Action    string `json:"action"`
	Actor     string `json:"actor,omitempty"`
}

type CustomerChanged struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Action     string `json:"action"`
}

// SessionSaved summarises one Save All of an editing session.
type SessionSaved struct {
	SessionID      string  `json:"session_id"`
	Parents        int     `json:"parents"`
	FlexRows       int     `json:"flex_rows"`
	DeletedParents int     `json:"deleted_parents"`
	DeletedFlex    int     `json:"deleted_flex"`
	TouchedParents []int64 `json:"touched_parents,omitempty"`
}

type SessionDiscarded struct {
	SessionID string `json:"session_id"`
}
