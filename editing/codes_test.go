package editing

import "testing"

func TestFindDuplicateCode(t *testing.T) {
	tables := map[int64][]FlexRow{
		1: {{ID: 1, Code: "VM-001"}, {ID: 2, Code: ""}},
		2: {{ID: 1, Code: "VM-002"}},
	}
	tests := []struct {
		name     string
		parentID int64
		rowID    int64
		code     string
		want     bool
		owner    FlexKey
	}{
		{"other parent case-insensitive", 2, 1, "vm-001", true, FlexKey{1, 1}},
		{"trimmed", 2, 1, "  VM-001\t", true, FlexKey{1, 1}},
		{"same row", 1, 1, "VM-001", false, FlexKey{}},
		{"same id under other parent", 1, 1, "VM-002", true, FlexKey{2, 1}},
		{"unused", 1, 2, "VM-003", false, FlexKey{}},
		{"blank", 2, 1, "   ", false, FlexKey{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			owner, got := FindDuplicateCode(tables, tc.parentID, tc.rowID, tc.code)
			if got != tc.want {
				t.Fatalf("dup = %v, want %v", got, tc.want)
			}
			if owner != tc.owner {
				t.Errorf("owner = %+v, want %+v", owner, tc.owner)
			}
		})
	}
}

func TestValidPowerMode(t *testing.T) {
	for _, m := range PowerModes {
		if !ValidPowerMode(m) {
			t.Errorf("ValidPowerMode(%q) = false", m)
		}
	}
	if ValidPowerMode("daily") {
		t.Error("power modes are case-sensitive")
	}
}
