package editing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type deleteKind int

const (
	deleteParent deleteKind = iota
	deleteFlex
	removeImage
)

type pendingDelete struct {
	kind     deleteKind
	parentID int64
	rowID    int64
	index    int
}

// Session holds one browser's in-progress edits to the route table and the
// flex tables of its routes. All methods are safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	source Source
	sink   Sink

	parents  []ParentRow
	snapshot []ParentRow
	flex     map[int64][]FlexRow

	preSaved     map[int64]bool
	flexPreSaved map[int64]map[int64]bool
	changeCounts map[int64]int

	openParent     int64
	isOpen         bool
	pendingChanges int

	deletedParents []int64
	deletedFlex    map[int64][]int64

	pending  map[string]pendingDelete
	lastUsed time.Time
}

// NewSession creates an empty session. sink may be nil, in which case
// SaveAll only snapshots and clears markers.
func NewSession(source Source, sink Sink) *Session {
	s := &Session{source: source, sink: sink}
	s.reset()
	return s
}

// reset clears every marker, counter and cached flex table.
func (s *Session) reset() {
	s.flex = make(map[int64][]FlexRow)
	s.clearMarkers()
	s.pending = make(map[string]pendingDelete)
	s.isOpen = false
	s.openParent = 0
	s.lastUsed = time.Now()
}

func (s *Session) clearMarkers() {
	s.preSaved = make(map[int64]bool)
	s.flexPreSaved = make(map[int64]map[int64]bool)
	s.changeCounts = make(map[int64]int)
	s.pendingChanges = 0
	s.deletedParents = nil
	s.deletedFlex = make(map[int64][]int64)
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

// LastUsed returns when the session last handled a call.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// LoadParents fetches the routes and replaces the in-memory set. Markers are
// left as they are. Concurrent loads race and the last one wins.
func (s *Session) LoadParents(ctx context.Context) ([]ParentRow, error) {
	if s.source == nil {
		return nil, errors.New("load parents: no source configured")
	}
	rows, err := s.source.LoadParents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load parents: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.parents = cloneParents(rows)
	s.deletedParents = nil
	return cloneParents(s.parents), nil
}

func (s *Session) Parents() []ParentRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return cloneParents(s.parents)
}

func (s *Session) parentIndex(rowID int64) int {
	for i, p := range s.parents {
		if p.ID == rowID {
			return i
		}
	}
	return -1
}

// CommitParentEdit overwrites the route rowID with row and marks it pre-saved.
func (s *Session) CommitParentEdit(rowID int64, row ParentRow) (ParentRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	i := s.parentIndex(rowID)
	if i < 0 {
		return ParentRow{}, ErrNotFound
	}
	row.ID = rowID
	row.StoreID = s.parents[i].StoreID
	s.parents[i] = row
	s.preSaved[rowID] = true
	return row, nil
}

// AddParentRow appends a blank route with id max(ids)+1. A freed id may be
// handed out again; any stops still cached under it are dropped first.
func (s *Session) AddParentRow() ParentRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	var max int64
	for _, p := range s.parents {
		if p.ID > max {
			max = p.ID
		}
	}
	row := ParentRow{ID: max + 1, Shift: ShiftAM, Category: "New"}
	delete(s.flex, row.ID)
	delete(s.flexPreSaved, row.ID)
	delete(s.deletedFlex, row.ID)
	delete(s.changeCounts, row.ID)
	s.parents = append(s.parents, row)
	return row
}

// RequestParentDelete returns a ticket that Confirm redeems to delete the route.
func (s *Session) RequestParentDelete(rowID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.parentIndex(rowID) < 0 {
		return "", ErrNotFound
	}
	return s.addPending(pendingDelete{kind: deleteParent, rowID: rowID}), nil
}

func (s *Session) addPending(p pendingDelete) string {
	ticket := uuid.NewString()
	s.pending[ticket] = p
	return ticket
}

// Confirm carries out the delete a ticket was issued for.
func (s *Session) Confirm(ticket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	p, ok := s.pending[ticket]
	if !ok {
		return ErrNoPendingDelete
	}
	delete(s.pending, ticket)

	switch p.kind {
	case deleteParent:
		return s.removeParent(p.rowID)
	case deleteFlex:
		return s.removeFlexRow(p.parentID, p.rowID)
	case removeImage:
		return s.removeImageAt(p.parentID, p.rowID, p.index)
	}
	return ErrNoPendingDelete
}

// Cancel drops a pending delete.
func (s *Session) Cancel(ticket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if _, ok := s.pending[ticket]; !ok {
		return ErrNoPendingDelete
	}
	delete(s.pending, ticket)
	return nil
}

// removeParent deletes the route row. Its cached stops are not removed.
func (s *Session) removeParent(rowID int64) error {
	i := s.parentIndex(rowID)
	if i < 0 {
		return ErrNotFound
	}
	if id := s.parents[i].StoreID; id != 0 {
		s.deletedParents = append(s.deletedParents, id)
	}
	s.parents = append(s.parents[:i:i], s.parents[i+1:]...)
	delete(s.preSaved, rowID)
	if s.isOpen && s.openParent == rowID {
		s.isOpen = false
		s.pendingChanges = 0
	}
	return nil
}

// OpenFlexTable returns the stops of a route, loading them through the
// Source on first use. Opening a table closes any other open one.
//
// Loaded stops are not checked against codes already committed in other
// cached tables. A clash that only exists in the store surfaces as a
// duplicate error from the next edit of either row, or as a failed SaveAll.
func (s *Session) OpenFlexTable(ctx context.Context, parentID int64) ([]FlexRow, error) {
	s.mu.Lock()
	s.touch()
	i := s.parentIndex(parentID)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	parent := s.parents[i]
	_, cached := s.flex[parentID]
	s.mu.Unlock()

	var loaded []FlexRow
	if !cached {
		if s.source == nil {
			return nil, errors.New("load flex rows: no source configured")
		}
		rows, err := s.source.LoadFlexRows(ctx, parent)
		if err != nil {
			return nil, fmt.Errorf("load flex rows for parent %d: %w", parentID, err)
		}
		loaded = cloneFlexRows(rows)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parentIndex(parentID) < 0 {
		return nil, ErrNotFound
	}
	// Edits made while the load was in flight win over the fetched rows.
	if _, ok := s.flex[parentID]; !ok {
		if loaded == nil {
			loaded = []FlexRow{}
		}
		s.flex[parentID] = loaded
	}
	if s.isOpen && s.openParent != parentID {
		s.fold()
	}
	s.isOpen = true
	s.openParent = parentID
	s.pendingChanges = 0
	return cloneFlexRows(s.flex[parentID]), nil
}

// FlexRows returns a route's cached stops, if they have been loaded.
func (s *Session) FlexRows(parentID int64) ([]FlexRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	rows, ok := s.flex[parentID]
	if !ok {
		return nil, false
	}
	return cloneFlexRows(rows), true
}

func (s *Session) requireOpen(parentID int64) error {
	if !s.isOpen || s.openParent != parentID {
		return ErrFlexTableNotOpen
	}
	return nil
}

func (s *Session) flexIndex(parentID, rowID int64) int {
	for i, r := range s.flex[parentID] {
		if r.ID == rowID {
			return i
		}
	}
	return -1
}

func (s *Session) markFlex(parentID, rowID int64) {
	m := s.flexPreSaved[parentID]
	if m == nil {
		m = make(map[int64]bool)
		s.flexPreSaved[parentID] = m
	}
	m[rowID] = true
	s.pendingChanges++
}

// CommitFlexEdit overwrites a stop of the open table. The edit is rejected
// with a *DuplicateCodeError when the code is already used by any other
// cached stop, in which case nothing changes. Images and power mode are
// owned by their own editors and carried over from the current row.
func (s *Session) CommitFlexEdit(parentID, rowID int64, row FlexRow) (FlexRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.requireOpen(parentID); err != nil {
		return FlexRow{}, err
	}
	i := s.flexIndex(parentID, rowID)
	if i < 0 {
		return FlexRow{}, ErrNotFound
	}
	if owner, dup := FindDuplicateCode(s.flex, parentID, rowID, row.Code); dup {
		return FlexRow{}, &DuplicateCodeError{Code: strings.TrimSpace(row.Code), ParentID: owner.ParentID, RowID: owner.RowID}
	}
	cur := s.flex[parentID][i]
	row.ID = rowID
	row.StoreID = cur.StoreID
	row.Images = cur.Images
	row.PowerMode = cur.PowerMode
	s.flex[parentID][i] = row
	s.markFlex(parentID, rowID)
	return cloneFlexRow(row), nil
}

// AddFlexRow appends a blank stop to the open table.
func (s *Session) AddFlexRow(parentID int64) (FlexRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.requireOpen(parentID); err != nil {
		return FlexRow{}, err
	}
	var max int64
	for _, r := range s.flex[parentID] {
		if r.ID > max {
			max = r.ID
		}
	}
	row := FlexRow{ID: max + 1, InventoryStatus: DeliveryDaily}
	s.flex[parentID] = append(s.flex[parentID], row)
	return row, nil
}

// RequestFlexDelete returns a ticket that Confirm redeems to delete the stop.
func (s *Session) RequestFlexDelete(parentID, rowID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.requireOpen(parentID); err != nil {
		return "", err
	}
	if s.flexIndex(parentID, rowID) < 0 {
		return "", ErrNotFound
	}
	return s.addPending(pendingDelete{kind: deleteFlex, parentID: parentID, rowID: rowID}), nil
}

func (s *Session) removeFlexRow(parentID, rowID int64) error {
	if err := s.requireOpen(parentID); err != nil {
		return err
	}
	i := s.flexIndex(parentID, rowID)
	if i < 0 {
		return ErrNotFound
	}
	rows := s.flex[parentID]
	if id := rows[i].StoreID; id != 0 {
		s.deletedFlex[parentID] = append(s.deletedFlex[parentID], id)
	}
	s.flex[parentID] = append(rows[:i:i], rows[i+1:]...)
	if m := s.flexPreSaved[parentID]; m != nil {
		delete(m, rowID)
		if len(m) == 0 {
			delete(s.flexPreSaved, parentID)
		}
	}
	return nil
}

// CloseFlexTable folds the open table's change count into the route's badge.
func (s *Session) CloseFlexTable(parentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.requireOpen(parentID); err != nil {
		return err
	}
	s.fold()
	return nil
}

func (s *Session) fold() {
	if s.pendingChanges > 0 {
		s.changeCounts[s.openParent] += s.pendingChanges
	}
	s.pendingChanges = 0
	s.isOpen = false
	s.openParent = 0
}

// SaveAll flushes accumulated edits through the Sink, then snapshots the
// routes and clears every marker and counter. Cached stops are kept. On a
// flush failure the session is left as it was, apart from recording ids
// the Sink already assigned. It returns the changeset it handed the Sink.
func (s *Session) SaveAll(ctx context.Context) (*Changeset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	cs := s.changeset()
	if s.sink != nil && !cs.Empty() {
		res, err := s.sink.Flush(ctx, cs)
		s.applyIDs(res)
		if err != nil {
			return cs, &FlushError{Err: err}
		}
	}
	s.snapshot = cloneParents(s.parents)
	s.clearMarkers()
	return cs, nil
}

// Changeset returns the writes SaveAll would flush right now.
func (s *Session) Changeset() *Changeset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changeset()
}

func (s *Session) changeset() *Changeset {
	cs := &Changeset{DeletedParents: append([]int64(nil), s.deletedParents...)}
	for _, p := range s.parents {
		if s.preSaved[p.ID] || p.StoreID == 0 {
			cs.Parents = append(cs.Parents, p)
		}
	}
	for _, pid := range sortedKeys(s.flex) {
		i := s.parentIndex(pid)
		if i < 0 {
			continue
		}
		fc := FlexChanges{
			ParentID:      pid,
			ParentStoreID: s.parents[i].StoreID,
			Deleted:       append([]int64(nil), s.deletedFlex[pid]...),
		}
		marks := s.flexPreSaved[pid]
		for _, r := range s.flex[pid] {
			if marks[r.ID] || r.StoreID == 0 {
				fc.Rows = append(fc.Rows, cloneFlexRow(r))
			}
		}
		if len(fc.Rows) > 0 || len(fc.Deleted) > 0 {
			cs.Flex = append(cs.Flex, fc)
		}
	}
	return cs
}

func (s *Session) applyIDs(res *FlushResult) {
	if res == nil {
		return
	}
	for i := range s.parents {
		if id, ok := res.ParentIDs[s.parents[i].ID]; ok && s.parents[i].StoreID == 0 {
			s.parents[i].StoreID = id
		}
	}
	for pid, rows := range s.flex {
		for i := range rows {
			if id, ok := res.FlexIDs[FlexKey{ParentID: pid, RowID: rows[i].ID}]; ok && rows[i].StoreID == 0 {
				rows[i].StoreID = id
			}
		}
	}
}

// DiscardChanges restores the routes from the last save, or reloads them if
// nothing was saved yet, and drops every cached flex table.
func (s *Session) DiscardChanges(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.snapshot != nil {
		s.parents = cloneParents(s.snapshot)
	} else {
		if s.source == nil {
			return errors.New("discard changes: no source configured")
		}
		rows, err := s.source.LoadParents(ctx)
		if err != nil {
			return fmt.Errorf("discard changes: %w", err)
		}
		s.parents = cloneParents(rows)
	}
	s.reset()
	return nil
}

// HasUnsavedChanges reports whether any route or stop is pre-saved.
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUnsaved()
}

func (s *Session) hasUnsaved() bool {
	if len(s.preSaved) > 0 {
		return true
	}
	for _, m := range s.flexPreSaved {
		if len(m) > 0 {
			return true
		}
	}
	return false
}

// IsParentPreSaved reports whether the route was edited since the last save.
func (s *Session) IsParentPreSaved(rowID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preSaved[rowID]
}

func (s *Session) IsFlexPreSaved(parentID, rowID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flexPreSaved[parentID][rowID]
}

// ChangeCount returns the badge count of a route: stop edits from flex
// table visits that have been closed since the last save.
func (s *Session) ChangeCount(parentID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changeCounts[parentID]
}

// PendingChanges returns the edit count of the currently open flex table.
func (s *Session) PendingChanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingChanges
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Parents:        len(s.parents),
		PendingChanges: s.pendingChanges,
		ChangeCounts:   make(map[int64]int, len(s.changeCounts)),
		PendingDeletes: len(s.pending),
		HasUnsaved:     s.hasUnsaved(),
		HasSnapshot:    s.snapshot != nil,
	}
	if s.isOpen {
		st.OpenParent = s.openParent
	}
	for id := range s.preSaved {
		st.PreSavedParents = append(st.PreSavedParents, id)
	}
	sort.Slice(st.PreSavedParents, func(i, j int) bool { return st.PreSavedParents[i] < st.PreSavedParents[j] })
	for pid, m := range s.flexPreSaved {
		for rid := range m {
			st.PreSavedFlex = append(st.PreSavedFlex, FlexKey{ParentID: pid, RowID: rid})
		}
	}
	sort.Slice(st.PreSavedFlex, func(i, j int) bool {
		a, b := st.PreSavedFlex[i], st.PreSavedFlex[j]
		if a.ParentID != b.ParentID {
			return a.ParentID < b.ParentID
		}
		return a.RowID < b.RowID
	})
	for pid, n := range s.changeCounts {
		st.ChangeCounts[pid] = n
	}
	st.CachedParents = sortedKeys(s.flex)
	return st
}

func sortedKeys(m map[int64][]FlexRow) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func cloneParents(rows []ParentRow) []ParentRow {
	if rows == nil {
		return nil
	}
	out := make([]ParentRow, len(rows))
	copy(out, rows)
	return out
}

func cloneFlexRow(r FlexRow) FlexRow {
	if r.Images != nil {
		r.Images = append([]Image(nil), r.Images...)
	}
	return r
}

func cloneFlexRows(rows []FlexRow) []FlexRow {
	if rows == nil {
		return nil
	}
	out := make([]FlexRow, len(rows))
	for i, r := range rows {
		out[i] = cloneFlexRow(r)
	}
	return out
}
