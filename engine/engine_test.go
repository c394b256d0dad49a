package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"vendroute/config"
	"vendroute/editing"
	"vendroute/messaging"
	"vendroute/protocol"
	"vendroute/store"
)

func testEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	if mutate != nil {
		mutate(cfg)
	}
	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(Config{AppConfig: cfg, DB: db, LogFunc: t.Logf})
}

func seeded(t *testing.T, e *Engine) {
	t.Helper()
	if err := e.db.SeedSampleData(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := e.db.SeedFlexRows(); err != nil {
		t.Fatalf("seed flex: %v", err)
	}
}

func TestSessionEditAndSave(t *testing.T) {
	e := testEngine(t, nil)
	seeded(t, e)
	e.Start()
	defer e.Stop()

	ctx := context.Background()
	id, s, err := e.Sessions().Create(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	parents := s.Parents()
	if len(parents) != 5 {
		t.Fatalf("parents = %d, want 5", len(parents))
	}
	p1 := parents[0]

	rows, err := s.OpenFlexTable(ctx, p1.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("stops = %d, want 5", len(rows))
	}

	edit := rows[0]
	edit.Location = "Main Gate"
	if _, err := s.CommitFlexEdit(p1.ID, edit.ID, edit); err != nil {
		t.Fatalf("commit: %v", err)
	}
	clash := rows[1]
	clash.Code = edit.Code
	if _, err := s.CommitFlexEdit(p1.ID, clash.ID, clash); !errors.Is(err, editing.ErrDuplicateCode) {
		t.Errorf("err = %v, want ErrDuplicateCode", err)
	}
	if _, err := s.SetPowerMode(p1.ID, edit.ID, "Monthly"); err != nil {
		t.Fatalf("power mode: %v", err)
	}
	s.CloseFlexTable(p1.ID)

	var saved []SessionSavedEvent
	e.Events.SubscribeTypes(func(evt Event) {
		saved = append(saved, evt.Payload.(SessionSavedEvent))
	}, EventSessionSaved)

	if err := e.SaveSession(ctx, id, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := e.db.GetProduct(edit.StoreID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Location != "Main Gate" || got.PowerMode != "Monthly" {
		t.Errorf("stored stop = %+v", got)
	}
	if got.ParentID == nil || *got.ParentID != p1.StoreID {
		t.Errorf("parent_id = %v, want %d", got.ParentID, p1.StoreID)
	}
	if len(saved) != 1 || saved[0].FlexRows != 1 {
		t.Errorf("saved events = %+v, want one with 1 stop", saved)
	}
	audit, _ := e.db.ListEntityAudit("product", edit.StoreID)
	if len(audit) != 1 || audit[0].Actor != "session" {
		t.Errorf("audit = %+v, want one session entry", audit)
	}
	if s.HasUnsavedChanges() {
		t.Error("unsaved changes after save")
	}
}

func TestSessionCreatesNewRouteWithStops(t *testing.T) {
	e := testEngine(t, nil)
	e.Start()
	defer e.Stop()

	ctx := context.Background()
	_, s, err := e.Sessions().Create(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	route := s.AddParentRow()
	route.Code = "NR-01"
	route.Name = "New Route"
	if _, err := s.CommitParentEdit(route.ID, route); err != nil {
		t.Fatalf("commit parent: %v", err)
	}
	if _, err := s.OpenFlexTable(ctx, route.ID); err != nil {
		t.Fatalf("open: %v", err)
	}
	stop, _ := s.AddFlexRow(route.ID)
	stop.Code = "VM-900"
	if _, err := s.CommitFlexEdit(route.ID, stop.ID, stop); err != nil {
		t.Fatalf("commit stop: %v", err)
	}
	if _, err := s.SaveAll(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	roots, _ := e.db.ListRootProducts()
	if len(roots) != 1 || roots[0].Code != "NR-01" {
		t.Fatalf("roots = %+v, want NR-01", roots)
	}
	children, _ := e.db.ListProductsByParent(roots[0].ID)
	if len(children) != 1 {
		t.Fatalf("children = %d, want 1", len(children))
	}
	if children[0].Name != "VM-900" {
		t.Errorf("stop name = %q, want code as default", children[0].Name)
	}
	if children[0].InventoryStatus != "Daily" {
		t.Errorf("inventory status = %q, want Daily", children[0].InventoryStatus)
	}
}

func TestSaveFailureReportsFlushError(t *testing.T) {
	e := testEngine(t, nil)
	e.Start()
	defer e.Stop()

	ctx := context.Background()
	_, s, _ := e.Sessions().Create(ctx)
	s.AddParentRow() // blank code and name violate the store policy

	_, err := s.SaveAll(ctx)
	var fe *editing.FlushError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FlushError", err)
	}
	var rf *store.RequiredFieldError
	if !errors.As(err, &rf) {
		t.Errorf("err = %v, want wrapped RequiredFieldError", err)
	}
}

func TestDeletesFlushThrough(t *testing.T) {
	e := testEngine(t, nil)
	seeded(t, e)
	e.Start()
	defer e.Stop()

	ctx := context.Background()
	_, s, _ := e.Sessions().Create(ctx)
	p1 := s.Parents()[0]
	rows, _ := s.OpenFlexTable(ctx, p1.ID)
	ticket, _ := s.RequestFlexDelete(p1.ID, rows[0].ID)
	if err := s.Confirm(ticket); err != nil {
		t.Fatalf("confirm stop delete: %v", err)
	}
	s.CloseFlexTable(p1.ID)

	p2 := s.Parents()[1]
	ticket, _ = s.RequestParentDelete(p2.ID)
	s.Confirm(ticket)

	if _, err := s.SaveAll(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := e.db.GetProduct(rows[0].StoreID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted stop err = %v, want ErrNotFound", err)
	}
	if _, err := e.db.GetProduct(p2.StoreID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted route err = %v, want ErrNotFound", err)
	}
	remaining, _ := e.db.ListProductsByParent(p2.StoreID)
	if len(remaining) != 0 {
		t.Errorf("stops of deleted route = %d, want 0", len(remaining))
	}
}

func TestSaveReusesDeletedCode(t *testing.T) {
	e := testEngine(t, nil)
	seeded(t, e)
	e.Start()
	defer e.Stop()

	ctx := context.Background()
	_, s, _ := e.Sessions().Create(ctx)
	parents := s.Parents()
	p1, p2 := parents[0], parents[1]

	// Delete VM-201 under the second route, then give its code to a stop of
	// the first route, which flushes earlier.
	p2Rows, _ := s.OpenFlexTable(ctx, p2.ID)
	freed := p2Rows[0]
	ticket, _ := s.RequestFlexDelete(p2.ID, freed.ID)
	if err := s.Confirm(ticket); err != nil {
		t.Fatalf("confirm delete: %v", err)
	}
	s.CloseFlexTable(p2.ID)

	p1Rows, _ := s.OpenFlexTable(ctx, p1.ID)
	reuse := p1Rows[0]
	reuse.Code = freed.Code
	if _, err := s.CommitFlexEdit(p1.ID, reuse.ID, reuse); err != nil {
		t.Fatalf("commit reused code: %v", err)
	}

	// Swap the codes of the next two stops by way of a scratch code.
	a, b := p1Rows[1], p1Rows[2]
	codeA, codeB := a.Code, b.Code
	a.Code = "SCRATCH"
	s.CommitFlexEdit(p1.ID, a.ID, a)
	b.Code = codeA
	if _, err := s.CommitFlexEdit(p1.ID, b.ID, b); err != nil {
		t.Fatalf("commit b: %v", err)
	}
	a.Code = codeB
	if _, err := s.CommitFlexEdit(p1.ID, a.ID, a); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	s.CloseFlexTable(p1.ID)

	if _, err := s.SaveAll(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.HasUnsavedChanges() {
		t.Error("unsaved changes after save")
	}
	if _, err := e.db.GetProduct(freed.StoreID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted stop err = %v, want ErrNotFound", err)
	}
	for _, want := range []struct {
		id   int64
		code string
	}{
		{reuse.StoreID, freed.Code},
		{a.StoreID, codeB},
		{b.StoreID, codeA},
	} {
		got, err := e.db.GetProduct(want.id)
		if err != nil {
			t.Fatalf("get %d: %v", want.id, err)
		}
		if got.Code != want.code {
			t.Errorf("product %d code = %q, want %q", want.id, got.Code, want.code)
		}
	}
}

func TestSaveFailureRollsBack(t *testing.T) {
	e := testEngine(t, nil)
	seeded(t, e)
	e.Start()
	defer e.Stop()

	var changed int
	e.Events.SubscribeTypes(func(Event) { changed++ }, EventProductChanged)

	ctx := context.Background()
	_, s, _ := e.Sessions().Create(ctx)
	p1 := s.Parents()[0]
	rows, _ := s.OpenFlexTable(ctx, p1.ID)
	edit := rows[0]
	edit.Location = "Rolled Back"
	if _, err := s.CommitFlexEdit(p1.ID, edit.ID, edit); err != nil {
		t.Fatalf("commit: %v", err)
	}
	blank, _ := s.AddFlexRow(p1.ID) // no code: the insert fails after the update ran

	_, err := s.SaveAll(ctx)
	var fe *editing.FlushError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FlushError", err)
	}
	got, _ := e.db.GetProduct(edit.StoreID)
	if got.Location == "Rolled Back" {
		t.Error("update survived a failed flush")
	}
	if changed != 0 {
		t.Errorf("product events = %d, want 0", changed)
	}
	cached, _ := s.FlexRows(p1.ID)
	for _, r := range cached {
		if r.ID == blank.ID && r.StoreID != 0 {
			t.Errorf("blank stop got store id %d from a rolled-back flush", r.StoreID)
		}
	}
	if !s.HasUnsavedChanges() {
		t.Error("markers cleared despite failed flush")
	}
}

func TestPrefixFallback(t *testing.T) {
	e := testEngine(t, func(c *config.Config) { c.Editing.PrefixFallback = true })
	for _, p := range []*store.Product{
		{Code: "NX-01", Name: "Nexus Route", Category: "Route"},
		{Code: "BW-1", Name: "Bamboo Watch", Category: "Accessories"},
		{Code: "GS-1", Name: "Gaming Set", Category: "Electronics"},
	} {
		if err := e.db.CreateProduct(p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	src := &storeSource{db: e.db, flex: e.flex, prefixFallback: true}
	parents, _ := src.LoadParents(context.Background())

	rows, err := src.LoadFlexRows(context.Background(), parents[1]) // "BW-1": categories containing "b"
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %+v, want none", rows)
	}
	rows, _ = src.LoadFlexRows(context.Background(), parents[0]) // "NX-01": only "Electronics" contains "n"
	if len(rows) != 1 || rows[0].Code != "GS-1" {
		t.Errorf("rows = %+v, want GS-1", rows)
	}
}

func TestPublishQueuesOutbox(t *testing.T) {
	e := testEngine(t, nil)
	e.msgClient = messaging.NewClient(&e.cfg.Messaging)
	e.wireEventHandlers()

	parent := int64(4)
	e.Events.Emit(Event{Type: EventProductChanged, Payload: ProductChangedEvent{
		ProductID: 9, ParentID: &parent, Code: "VM-9", Action: protocol.ActionUpdated, Actor: "api",
	}})

	msgs, err := e.db.ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("outbox = %d, want 1", len(msgs))
	}
	if msgs[0].Topic != e.cfg.Messaging.ChangesTopic || msgs[0].MsgType != protocol.TypeProductChanged {
		t.Errorf("outbox row = %+v", msgs[0])
	}
	var env protocol.Envelope
	if err := json.Unmarshal(msgs[0].Payload, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Src.Node != e.cfg.Messaging.StationID {
		t.Errorf("src node = %q, want %q", env.Src.Node, e.cfg.Messaging.StationID)
	}
}

func TestNoOutboxWithoutMessaging(t *testing.T) {
	e := testEngine(t, nil)
	e.wireEventHandlers()
	e.Events.Emit(Event{Type: EventCustomerChanged, Payload: CustomerChangedEvent{CustomerID: 1, Action: "created"}})

	msgs, _ := e.db.ListPendingOutbox(10)
	if len(msgs) != 0 {
		t.Errorf("outbox = %d, want 0", len(msgs))
	}
	audit, _ := e.db.ListEntityAudit("customer", 1)
	if len(audit) != 1 {
		t.Errorf("audit = %d, want 1", len(audit))
	}
}

func TestChangeFeedHandlerEmitsRemoteChange(t *testing.T) {
	e := testEngine(t, nil)
	var got []RemoteChangeEvent
	e.Events.SubscribeTypes(func(evt Event) {
		got = append(got, evt.Payload.(RemoteChangeEvent))
	}, EventRemoteChange)

	ing := protocol.NewIngestor(&changeFeedHandler{engine: e}, nil)
	parent := int64(2)
	env, _ := protocol.NewEnvelope(protocol.TypeProductChanged,
		protocol.Address{Role: protocol.RoleServer, Node: "other"},
		protocol.Address{Role: protocol.RoleAny},
		&protocol.ProductChanged{ProductID: 5, ParentID: &parent, Action: protocol.ActionUpdated})
	data, _ := env.Encode()
	ing.HandleRaw(data)

	if len(got) != 1 || got[0].Source != "other" {
		t.Errorf("remote events = %+v", got)
	}
}
