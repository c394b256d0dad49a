package www

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"vendroute/config"
	"vendroute/editing"
	"vendroute/engine"
	"vendroute/metrics"
	"vendroute/store"
)

type testServer struct {
	*httptest.Server
	eng    *engine.Engine
	client *http.Client
}

func newTestServer(t *testing.T, seed bool) *testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if seed {
		if err := db.SeedSampleData(); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if _, err := db.SeedFlexRows(); err != nil {
			t.Fatalf("seed flex: %v", err)
		}
	}

	eng := engine.New(engine.Config{AppConfig: cfg, DB: db, LogFunc: t.Logf})
	eng.Start()
	t.Cleanup(eng.Stop)

	handler, stop := NewRouter(eng, metrics.New())
	t.Cleanup(stop)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return &testServer{Server: srv, eng: eng, client: &http.Client{Jar: jar}}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	code, body := ts.do(t, http.MethodGet, "/api/health", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if got := decode[map[string]any](t, body)["status"]; got != "OK" {
		t.Errorf("status field = %v, want OK", got)
	}
}

func TestCustomerEndpoints(t *testing.T) {
	ts := newTestServer(t, false)

	code, body := ts.do(t, http.MethodPost, "/api/customers", map[string]any{
		"name":           "James Butt",
		"country":        map[string]string{"name": "Algeria", "code": "dz"},
		"company":        "Benton",
		"representative": map[string]string{"name": "Ioni Bowcher", "image": "ionibowcher.png"},
	})
	if code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", code, body)
	}
	created := decode[store.Customer](t, body)
	if created.ID == 0 || created.Country.Code != "dz" {
		t.Errorf("created = %+v", created)
	}

	path := fmt.Sprintf("/api/customers/%d", created.ID)
	code, body = ts.do(t, http.MethodPut, path, map[string]any{"name": "James B.", "company": "Benton"})
	if code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", code, body)
	}
	if got := decode[store.Customer](t, body); got.Name != "James B." {
		t.Errorf("updated name = %q", got.Name)
	}

	code, body = ts.do(t, http.MethodGet, "/api/customers", nil)
	if list := decode[[]store.Customer](t, body); code != http.StatusOK || len(list) != 1 {
		t.Errorf("list status = %d, len = %d", code, len(list))
	}

	code, _ = ts.do(t, http.MethodDelete, path, nil)
	if code != http.StatusOK {
		t.Errorf("delete status = %d", code)
	}
	code, body = ts.do(t, http.MethodGet, path, nil)
	if code != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want 404", code)
	}
	if got := decode[map[string]string](t, body)["error"]; got != "Customer not found" {
		t.Errorf("error = %q, want Customer not found", got)
	}

	code, body = ts.do(t, http.MethodPost, "/api/customers", map[string]any{"name": "  "})
	if code != http.StatusBadRequest {
		t.Fatalf("blank name status = %d, want 400", code)
	}
	if got := decode[map[string]string](t, body)["error"]; got != "name is required" {
		t.Errorf("error = %q, want name is required", got)
	}

	audit, _ := ts.eng.DB().ListEntityAudit("customer", created.ID)
	if len(audit) != 3 {
		t.Errorf("audit entries = %d, want 3", len(audit))
	}
}

func TestProductFieldMapping(t *testing.T) {
	ts := newTestServer(t, false)

	code, body := ts.do(t, http.MethodPost, "/api/products", `{
		"code": "R-1", "name": "Route One", "price": "NaN", "quantity": null, "rating": "abc"
	}`)
	if code != http.StatusCreated {
		t.Fatalf("create route status = %d, body %s", code, body)
	}
	route := decode[map[string]any](t, body)
	if route["price"] != 0.0 || route["quantity"] != 0.0 || route["rating"] != nil {
		t.Errorf("sanitized numbers = %v %v %v", route["price"], route["quantity"], route["rating"])
	}
	routeID := int64(route["id"].(float64))

	code, body = ts.do(t, http.MethodPost, "/api/products", map[string]any{
		"code":            "VM-1",
		"name":            "Lobby",
		"inventoryStatus": "Weekday",
		"operatingHours":  "24/7",
		"powerMode":       "Daily",
		"parentId":        routeID,
		"images":          []map[string]string{{"url": "http://x/a.png"}},
	})
	if code != http.StatusCreated {
		t.Fatalf("create stop status = %d, body %s", code, body)
	}
	stop := decode[map[string]any](t, body)
	for _, k := range []string{"inventoryStatus", "operatingHours", "powerMode", "parentId", "machineType", "lastMaintenance"} {
		if _, ok := stop[k]; !ok {
			t.Errorf("response missing %q", k)
		}
	}
	for _, k := range []string{"inventory_status", "operating_hours", "power_mode", "parent_id"} {
		if _, ok := stop[k]; ok {
			t.Errorf("response has snake_case key %q", k)
		}
	}
	if stop["inventoryStatus"] != "Weekday" || stop["parentId"] != float64(routeID) {
		t.Errorf("stop = %v", stop)
	}

	stopID := int64(stop["id"].(float64))
	code, body = ts.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d", stopID), map[string]any{"machineType": "Combo"})
	if code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", code, body)
	}
	updated := decode[map[string]any](t, body)
	if updated["machineType"] != "Combo" || updated["inventoryStatus"] != "Weekday" {
		t.Errorf("partial update = %v", updated)
	}

	code, body = ts.do(t, http.MethodGet, fmt.Sprintf("/api/products/parent/%d", routeID), nil)
	if list := decode[[]map[string]any](t, body); code != http.StatusOK || len(list) != 1 {
		t.Errorf("by parent status = %d, len = %d", code, len(list))
	}

	code, _ = ts.do(t, http.MethodPost, "/api/products", map[string]any{"code": "VM-1", "name": "Again"})
	if code != http.StatusConflict {
		t.Errorf("duplicate code status = %d, want 409", code)
	}

	code, body = ts.do(t, http.MethodDelete, "/api/products/999", nil)
	if code != http.StatusNotFound {
		t.Fatalf("delete missing status = %d, want 404", code)
	}
	if got := decode[map[string]string](t, body)["error"]; got != "Product not found" {
		t.Errorf("error = %q, want Product not found", got)
	}
}

func TestSessionEditSave(t *testing.T) {
	ts := newTestServer(t, true)

	code, body := ts.do(t, http.MethodPost, "/api/session/load", nil)
	if code != http.StatusOK {
		t.Fatalf("load status = %d, body %s", code, body)
	}
	parents := decode[[]editing.ParentRow](t, body)
	if len(parents) != 5 {
		t.Fatalf("parents = %d, want 5", len(parents))
	}
	p1, p2 := parents[0], parents[1]

	// Cache the second route's stops so its codes count for duplicates.
	code, body = ts.do(t, http.MethodPost, fmt.Sprintf("/api/session/parents/%d/flex/open", p2.ID), nil)
	if code != http.StatusOK {
		t.Fatalf("open p2 status = %d, body %s", code, body)
	}
	p2Rows := decode[[]editing.FlexRow](t, body)

	code, body = ts.do(t, http.MethodPost, fmt.Sprintf("/api/session/parents/%d/flex/open", p1.ID), nil)
	if code != http.StatusOK {
		t.Fatalf("open p1 status = %d, body %s", code, body)
	}
	rows := decode[[]editing.FlexRow](t, body)

	row := rows[0]
	row.Code = strings.ToLower(p2Rows[0].Code)
	path := fmt.Sprintf("/api/session/parents/%d/flex/%d", p1.ID, row.ID)
	code, body = ts.do(t, http.MethodPut, path, row)
	if code != http.StatusConflict {
		t.Fatalf("duplicate edit status = %d, want 409 (%s)", code, body)
	}
	if got := decode[map[string]any](t, body)["parentId"]; got != float64(p2.ID) {
		t.Errorf("conflict parentId = %v, want %d", got, p2.ID)
	}

	row.Code = "VM-NEW"
	row.InventoryStatus = editing.DeliveryWeekday
	code, body = ts.do(t, http.MethodPut, path, row)
	if code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", code, body)
	}

	code, body = ts.do(t, http.MethodPut, path+"/power-mode", map[string]string{"powerMode": "Hourly"})
	if code != http.StatusBadRequest {
		t.Errorf("invalid power mode status = %d, want 400", code)
	}

	code, body = ts.do(t, http.MethodPost, fmt.Sprintf("/api/session/parents/%d/flex/close", p1.ID), nil)
	if code != http.StatusOK {
		t.Fatalf("close status = %d, body %s", code, body)
	}
	if got := decode[map[string]int](t, body)["changeCount"]; got != 1 {
		t.Errorf("changeCount = %d, want 1", got)
	}

	code, body = ts.do(t, http.MethodGet, "/api/session/status", nil)
	status := decode[editing.Status](t, body)
	if code != http.StatusOK || len(status.PreSavedFlex) != 1 {
		t.Errorf("status = %+v", status)
	}

	code, body = ts.do(t, http.MethodPost, "/api/session/save", nil)
	if code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", code, body)
	}
	got, err := ts.eng.DB().GetProduct(row.StoreID)
	if err != nil {
		t.Fatalf("get saved stop: %v", err)
	}
	if got.Code != "VM-NEW" || got.InventoryStatus != editing.DeliveryWeekday {
		t.Errorf("saved stop = %+v", got)
	}

	code, body = ts.do(t, http.MethodGet, "/api/session/status", nil)
	if status := decode[editing.Status](t, body); len(status.PreSavedFlex) != 0 {
		t.Errorf("pre-saved after save = %+v", status.PreSavedFlex)
	}
}

func TestSessionDeleteTickets(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(t, http.MethodPost, "/api/session/load", nil)

	code, body := ts.do(t, http.MethodPost, "/api/session/parents/1/delete", nil)
	if code != http.StatusOK {
		t.Fatalf("request delete status = %d, body %s", code, body)
	}
	ticket := decode[map[string]string](t, body)["ticket"]

	if code, _ = ts.do(t, http.MethodPost, "/api/session/cancel/"+ticket, nil); code != http.StatusOK {
		t.Errorf("cancel status = %d", code)
	}
	if code, _ = ts.do(t, http.MethodPost, "/api/session/confirm/"+ticket, nil); code != http.StatusNotFound {
		t.Errorf("confirm cancelled ticket status = %d, want 404", code)
	}

	_, body = ts.do(t, http.MethodPost, "/api/session/parents/1/delete", nil)
	ticket = decode[map[string]string](t, body)["ticket"]
	if code, _ = ts.do(t, http.MethodPost, "/api/session/confirm/"+ticket, nil); code != http.StatusOK {
		t.Errorf("confirm status = %d", code)
	}
	_, body = ts.do(t, http.MethodGet, "/api/session/parents", nil)
	if parents := decode[[]editing.ParentRow](t, body); len(parents) != 4 {
		t.Errorf("parents after delete = %d, want 4", len(parents))
	}

	code, _ = ts.do(t, http.MethodPost, "/api/session/discard", nil)
	if code != http.StatusOK {
		t.Fatalf("discard status = %d", code)
	}
	_, body = ts.do(t, http.MethodGet, "/api/session/parents", nil)
	if parents := decode[[]editing.ParentRow](t, body); len(parents) != 5 {
		t.Errorf("parents after discard = %d, want 5", len(parents))
	}
}

func TestSessionImages(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(t, http.MethodPost, "/api/session/load", nil)
	_, body := ts.do(t, http.MethodPost, "/api/session/parents/1/flex/open", nil)
	rows := decode[[]editing.FlexRow](t, body)
	row := rows[len(rows)-1]
	base := fmt.Sprintf("/api/session/parents/1/flex/%d/images", row.ID)

	code, _ := ts.do(t, http.MethodPost, base, map[string]string{"url": "   "})
	if code != http.StatusBadRequest {
		t.Errorf("blank url status = %d, want 400", code)
	}

	code, body = ts.do(t, http.MethodPost, base, map[string]string{"url": "http://x/a.png", "caption": "Front"})
	if code != http.StatusOK {
		t.Fatalf("add image status = %d, body %s", code, body)
	}
	added := decode[editing.FlexRow](t, body)
	if len(added.Images) != len(row.Images)+1 {
		t.Fatalf("images = %d, want %d", len(added.Images), len(row.Images)+1)
	}

	_, body = ts.do(t, http.MethodPost, fmt.Sprintf("%s/%d/delete", base, len(added.Images)-1), nil)
	ticket := decode[map[string]string](t, body)["ticket"]
	if code, _ = ts.do(t, http.MethodPost, "/api/session/confirm/"+ticket, nil); code != http.StatusOK {
		t.Fatalf("confirm remove status = %d", code)
	}
	_, body = ts.do(t, http.MethodPost, "/api/session/parents/1/flex/open", nil)
	rows = decode[[]editing.FlexRow](t, body)
	if got := rows[len(rows)-1].Images; len(got) != len(row.Images) {
		t.Errorf("images after remove = %d, want %d", len(got), len(row.Images))
	}
}

func TestSessionCookieIsolation(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(t, http.MethodPost, "/api/session/load", nil)
	ts.do(t, http.MethodPost, "/api/session/parents", nil)

	other := &testServer{Server: ts.Server, eng: ts.eng, client: &http.Client{}}
	jar, _ := cookiejar.New(nil)
	other.client.Jar = jar
	_, body := other.do(t, http.MethodGet, "/api/session/parents", nil)
	if parents := decode[[]editing.ParentRow](t, body); len(parents) != 5 {
		t.Errorf("second browser sees %d parents, want 5", len(parents))
	}
	if n := ts.eng.Sessions().Count(); n != 2 {
		t.Errorf("sessions = %d, want 2", n)
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	ts := newTestServer(t, true)
	resp, err := http.Post(ts.URL+"/api/session/load", "application/json", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	resp.Body.Close()

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatalf("no %s cookie in %v", cookieName, resp.Header.Values("Set-Cookie"))
	}
	// The default deployment is plain HTTP; a Secure cookie would never come back.
	if session.Secure {
		t.Error("session cookie is Secure under default config")
	}
	if !session.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	if s := newSessionStore("k", true); !s.Options.Secure {
		t.Error("secure_cookies did not set Secure")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, false)
	ts.do(t, http.MethodGet, "/api/health", nil)

	code, body := ts.do(t, http.MethodGet, "/metrics", nil)
	if code != http.StatusOK {
		t.Fatalf("metrics status = %d", code)
	}
	if !strings.Contains(string(body), `vendroute_http_requests_total{code="200",method="GET",route="/api/health"}`) {
		t.Errorf("metrics output missing health request series")
	}
}
