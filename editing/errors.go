package editing

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateCode    = errors.New("duplicate code")
	ErrNotFound         = errors.New("row not found")
	ErrFlexTableNotOpen = errors.New("flex table not open")
	ErrInvalidPowerMode = errors.New("invalid power mode")
	ErrInvalidImage     = errors.New("image url is required")
	ErrNoPendingDelete  = errors.New("no pending delete for ticket")
)

// DuplicateCodeError reports a rejected stop edit and where the code is
// already in use.
type DuplicateCodeError struct {
	Code     string
	ParentID int64
	RowID    int64
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("code %q already used by stop %d of parent %d", e.Code, e.RowID, e.ParentID)
}

func (e *DuplicateCodeError) Is(target error) bool {
	return target == ErrDuplicateCode
}

// FlushError wraps a Record Store failure during SaveAll. The session keeps
// its markers so the save can be retried.
type FlushError struct {
	Err error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush changes: %v", e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}
