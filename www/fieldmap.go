package www

import (
	"encoding/json"
	"math"
	"strconv"

	"vendroute/store"
)

// productFields maps product column names to the camelCase keys the UI
// sends and receives. Columns not listed keep their name on the wire.
var productFields = []struct {
	column string
	wire   string
}{
	{"inventory_status", "inventoryStatus"},
	{"operating_hours", "operatingHours"},
	{"machine_type", "machineType"},
	{"payment_methods", "paymentMethods"},
	{"last_maintenance", "lastMaintenance"},
	{"parent_id", "parentId"},
	{"power_mode", "powerMode"},
	{"created_at", "createdAt"},
}

var (
	columnToWire = make(map[string]string, len(productFields))
	wireToColumn = make(map[string]string, len(productFields))
)

func init() {
	for _, f := range productFields {
		columnToWire[f.column] = f.wire
		wireToColumn[f.wire] = f.column
	}
}

func renameKeys(m map[string]json.RawMessage, names map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		if to, ok := names[k]; ok {
			k = to
		}
		out[k] = v
	}
	return out
}

// productToWire renders a product with camelCase keys.
func productToWire(p *store.Product) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return renameKeys(m, columnToWire), nil
}

func productsToWire(products []*store.Product) ([]map[string]json.RawMessage, error) {
	out := make([]map[string]json.RawMessage, 0, len(products))
	for _, p := range products {
		m, err := productToWire(p)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// productFromWire overlays a camelCase request body onto p. Keys absent
// from the body leave p unchanged. Snake_case keys are accepted as well.
func productFromWire(body []byte, p *store.Product) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return err
	}
	m = renameKeys(m, wireToColumn)
	sanitizeNumbers(m)
	for _, k := range []string{"id", "created_at"} {
		delete(m, k)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, p)
}

// sanitizeNumbers coerces price, quantity and rating. Values that are not
// finite numbers become 0 for price and quantity and null for rating.
func sanitizeNumbers(m map[string]json.RawMessage) {
	for _, k := range []string{"price", "quantity", "rating"} {
		raw, ok := m[k]
		if !ok {
			continue
		}
		f, valid := parseNumber(raw)
		switch {
		case !valid && k == "rating":
			m[k] = json.RawMessage("null")
		case !valid:
			m[k] = json.RawMessage("0")
		case k == "price":
			m[k] = json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64))
		default:
			m[k] = json.RawMessage(strconv.FormatInt(int64(math.Round(f)), 10))
		}
	}
}

// parseNumber accepts JSON numbers and numeric strings.
func parseNumber(raw json.RawMessage) (float64, bool) {
	if string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
