package editing

import "strings"

// NormalizeCode folds a stop code for comparison.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// FindDuplicateCode scans every cached flex table for a stop, other than
// (parentID, rowID) itself, whose code matches code after normalization.
// Blank codes never conflict: new rows start blank.
func FindDuplicateCode(tables map[int64][]FlexRow, parentID, rowID int64, code string) (FlexKey, bool) {
	want := NormalizeCode(code)
	if want == "" {
		return FlexKey{}, false
	}
	for pid, rows := range tables {
		for _, r := range rows {
			if pid == parentID && r.ID == rowID {
				continue
			}
			if NormalizeCode(r.Code) == want {
				return FlexKey{ParentID: pid, RowID: r.ID}, true
			}
		}
	}
	return FlexKey{}, false
}
