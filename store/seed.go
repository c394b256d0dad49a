package store

import (
	"fmt"
	"log"
)

var sampleCustomers = []Customer{
	{Name: "James Butt", Country: Country{Name: "Algeria", Code: "dz"}, Company: "Benton, John B Jr", Representative: Representative{Name: "Ioni Bowcher", Image: "ionibowcher.png"}},
	{Name: "Josephine Darakjy", Country: Country{Name: "Egypt", Code: "eg"}, Company: "Chanay, Jeffrey A Esq", Representative: Representative{Name: "Amy Elsner", Image: "amyelsner.png"}},
	{Name: "Art Venere", Country: Country{Name: "Panama", Code: "pa"}, Company: "Chemel, James L Cpa", Representative: Representative{Name: "Asiya Javayant", Image: "asiyajavayant.png"}},
	{Name: "Lenna Paprocki", Country: Country{Name: "Slovenia", Code: "si"}, Company: "Feltz Printing Service", Representative: Representative{Name: "Xuxue Feng", Image: "xuxuefeng.png"}},
	{Name: "Donette Foller", Country: Country{Name: "South Africa", Code: "za"}, Company: "Printing Dimensions", Representative: Representative{Name: "Asiya Javayant", Image: "asiyajavayant.png"}},
}

var sampleRoutes = []Product{
	{Code: "KL-01", Name: "KL Central Route", Category: "Kuala Lumpur", Shift: "AM", Location: "Warehouse A"},
	{Code: "PJ-02", Name: "Petaling Jaya Route", Category: "Petaling Jaya", Shift: "PM", Location: "Warehouse A"},
	{Code: "SA-03", Name: "Shah Alam Route", Category: "Shah Alam", Shift: "AM", Location: "Warehouse B"},
	{Code: "SB-04", Name: "Subang Route", Category: "Subang", Shift: "PM", Location: "Warehouse B"},
	{Code: "CY-05", Name: "Cyberjaya Route", Category: "Cyberjaya", Shift: "AM", Location: "Warehouse C"},
}

type sampleStop struct {
	location  string
	latitude  string
	longitude string
	address   string
	delivery  string
}

var sampleStops = []sampleStop{
	{"Lobby Area - Main Building", "3.1390", "101.6869", "Ground Floor, Main Lobby, KL Tower", "Daily"},
	{"Cafeteria - Level 2", "3.1395", "101.6875", "Level 2, Cafeteria Wing, KL Tower", "Weekday"},
	{"Office Block A - Entrance", "3.1385", "101.6880", "Block A, Main Entrance, KL Tower", "Daily"},
	{"Parking Level B1", "3.1380", "101.6865", "Basement Level 1, Parking Area, KL Tower", "Alt 1"},
	{"Gym & Fitness Center", "3.1400", "101.6870", "Level 3, Fitness Center, KL Tower", "Alt 2"},
}

var sampleGalleries = [][]Image{
	{{URL: "https://picsum.photos/400/300?random=1", Caption: "Front View"}, {URL: "https://picsum.photos/400/300?random=2", Caption: "Machine Display"}},
	{{URL: "https://picsum.photos/400/300?random=3", Caption: "Location Overview"}},
	nil,
}

var samplePowerModes = []string{"Daily", "", "Weekday", "", "Monthly"}

// SeedSampleData inserts demo customers and routes into empty tables.
func (db *DB) SeedSampleData() error {
	n, err := db.CountCustomers()
	if err != nil {
		return fmt.Errorf("count customers: %w", err)
	}
	if n == 0 {
		for i := range sampleCustomers {
			c := sampleCustomers[i]
			if err := db.CreateCustomer(&c); err != nil {
				return err
			}
		}
		log.Printf("store: seeded %d customers", len(sampleCustomers))
	}

	n, err = db.CountProducts()
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n == 0 {
		for i := range sampleRoutes {
			p := sampleRoutes[i]
			if err := db.CreateProduct(&p); err != nil {
				return err
			}
		}
		log.Printf("store: seeded %d routes", len(sampleRoutes))
	}
	return nil
}

// SeedFlexRows adds demo stops under the first three routes that have none.
// Stop codes embed the route position so they stay unique across routes.
func (db *DB) SeedFlexRows() (int, error) {
	parents, err := db.ListRootProducts()
	if err != nil {
		return 0, err
	}
	if len(parents) > 3 {
		parents = parents[:3]
	}
	added := 0
	for pi, parent := range parents {
		existing, err := db.ListProductsByParent(parent.ID)
		if err != nil {
			return added, err
		}
		if len(existing) > 0 {
			continue
		}
		for si, stop := range sampleStops {
			parentID := parent.ID
			code := fmt.Sprintf("VM-%d%02d", pi+1, si+1)
			p := &Product{
				Code:            code,
				Name:            "Vending Point " + code,
				Location:        stop.location,
				InventoryStatus: stop.delivery,
				Latitude:        stop.latitude,
				Longitude:       stop.longitude,
				Address:         stop.address,
				OperatingHours:  "24/7 Access Available",
				MachineType:     "Snack & Beverage Combo",
				PaymentMethods:  "Cash, Card, E-Wallet, QR Code",
				Status:          "Active & Operational",
				ParentID:        &parentID,
				PowerMode:       samplePowerModes[si%len(samplePowerModes)],
				Images:          sampleGalleries[si%len(sampleGalleries)],
			}
			if err := db.CreateProduct(p); err != nil {
				return added, fmt.Errorf("seed stop %s: %w", code, err)
			}
			added++
		}
	}
	return added, nil
}

// ParentStats summarises one route for the admin check command.
type ParentStats struct {
	ID       int64
	Code     string
	Name     string
	FlexRows int
	Powered  int
}

type Stats struct {
	Customers int
	Parents   []ParentStats
	FlexRows  int
}

func (db *DB) Stats() (*Stats, error) {
	customers, err := db.CountCustomers()
	if err != nil {
		return nil, err
	}
	parents, err := db.ListRootProducts()
	if err != nil {
		return nil, err
	}
	s := &Stats{Customers: customers}
	for _, p := range parents {
		rows, err := db.ListProductsByParent(p.ID)
		if err != nil {
			return nil, err
		}
		ps := ParentStats{ID: p.ID, Code: p.Code, Name: p.Name, FlexRows: len(rows)}
		for _, r := range rows {
			if r.PowerMode != "" {
				ps.Powered++
			}
		}
		s.Parents = append(s.Parents, ps)
		s.FlexRows += len(rows)
	}
	return s, nil
}
