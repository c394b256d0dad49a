package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vendroute/editing"
	"vendroute/flexcache"
	"vendroute/protocol"
	"vendroute/store"
)

// storeSource loads editing rows from the store, reading stops through the
// flex cache.
type storeSource struct {
	db             *store.DB
	flex           *flexcache.Manager
	prefixFallback bool
}

func (s *storeSource) LoadParents(ctx context.Context) ([]editing.ParentRow, error) {
	products, err := s.db.ListRootProducts()
	if err != nil {
		return nil, err
	}
	rows := make([]editing.ParentRow, len(products))
	for i, p := range products {
		rows[i] = parentFromProduct(p)
	}
	return rows, nil
}

func (s *storeSource) LoadFlexRows(ctx context.Context, parent editing.ParentRow) ([]editing.FlexRow, error) {
	if parent.StoreID == 0 {
		return nil, nil
	}
	items, err := s.flex.ListFlexRows(parent.StoreID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 && s.prefixFallback {
		return s.prefixRows(parent)
	}
	rows := make([]editing.FlexRow, len(items))
	for i, it := range items {
		rows[i] = flexFromItem(it)
	}
	return rows, nil
}

// prefixRows picks other root products whose category contains the first
// letter of the parent's code. Saving an edited one moves it under parent.
func (s *storeSource) prefixRows(parent editing.ParentRow) ([]editing.FlexRow, error) {
	code := strings.TrimSpace(parent.Code)
	if code == "" {
		return nil, nil
	}
	letter := strings.ToLower(code[:1])
	products, err := s.db.ListRootProducts()
	if err != nil {
		return nil, err
	}
	var rows []editing.FlexRow
	for _, p := range products {
		if p.ID == parent.StoreID || p.Category == "" {
			continue
		}
		if strings.Contains(strings.ToLower(p.Category), letter) {
			rows = append(rows, flexFromProduct(p))
		}
	}
	return rows, nil
}

// storeSink writes a session changeset to the store in one transaction and
// emits a ProductChangedEvent per row once it commits. All deletes run
// first, then every edited row whose code changes is parked on a
// placeholder code, so a code freed by a delete or a swap between rows can
// be taken in the same flush. A failure rolls everything back and reports
// no ids.
type storeSink struct {
	db  *store.DB
	bus *EventBus
}

func (s *storeSink) Flush(ctx context.Context, cs *editing.Changeset) (*editing.FlushResult, error) {
	tx, err := s.db.BeginProducts()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	f := &flush{tx: tx, current: make(map[int64]*store.Product)}
	if err := f.run(cs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	for _, ev := range f.events {
		s.bus.Emit(Event{Type: EventProductChanged, Payload: ev})
	}
	return f.res, nil
}

// flush carries the state of one storeSink.Flush.
type flush struct {
	tx      *store.ProductTx
	current map[int64]*store.Product // stored rows of edited products, by id
	events  []ProductChangedEvent
	res     *editing.FlushResult
}

func (f *flush) run(cs *editing.Changeset) error {
	f.res = &editing.FlushResult{
		ParentIDs: make(map[int64]int64),
		FlexIDs:   make(map[editing.FlexKey]int64),
	}

	for _, id := range cs.DeletedParents {
		if err := f.delete(id, nil); err != nil {
			return fmt.Errorf("delete parent %d: %w", id, err)
		}
	}
	for _, fc := range cs.Flex {
		var parentID *int64
		if fc.ParentStoreID != 0 {
			pid := fc.ParentStoreID
			parentID = &pid
		}
		for _, id := range fc.Deleted {
			if err := f.delete(id, parentID); err != nil {
				return fmt.Errorf("delete stop %d: %w", id, err)
			}
		}
	}

	for _, row := range cs.Parents {
		if err := f.park(row.StoreID, row.Code); err != nil {
			return fmt.Errorf("write parent %q: %w", row.Code, err)
		}
	}
	for _, fc := range cs.Flex {
		for _, row := range fc.Rows {
			if err := f.park(row.StoreID, row.Code); err != nil {
				return fmt.Errorf("write stop %q: %w", row.Code, err)
			}
		}
	}

	for _, row := range cs.Parents {
		id, err := f.writeParent(row)
		if err != nil {
			return fmt.Errorf("write parent %q: %w", row.Code, err)
		}
		if row.StoreID == 0 {
			f.res.ParentIDs[row.ID] = id
		}
	}
	for _, fc := range cs.Flex {
		parentID := fc.ParentStoreID
		if parentID == 0 {
			parentID = f.res.ParentIDs[fc.ParentID]
		}
		if parentID == 0 {
			return fmt.Errorf("flex rows of parent %d: parent has no store id", fc.ParentID)
		}
		for _, row := range fc.Rows {
			id, err := f.writeFlex(parentID, row)
			if err != nil {
				return fmt.Errorf("write stop %q: %w", row.Code, err)
			}
			if row.StoreID == 0 {
				f.res.FlexIDs[editing.FlexKey{ParentID: fc.ParentID, RowID: row.ID}] = id
			}
		}
	}
	return nil
}

func (f *flush) delete(id int64, parentID *int64) error {
	err := f.tx.DeleteProduct(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	f.emit(id, parentID, "", protocol.ActionDeleted)
	return nil
}

// park loads a stored row about to be updated and, when its code changes,
// moves it onto a placeholder code unique to its id.
func (f *flush) park(storeID int64, code string) error {
	if storeID == 0 {
		return nil
	}
	p, err := f.tx.GetProduct(storeID)
	if err != nil {
		return err
	}
	f.current[storeID] = p
	if p.Code == strings.TrimSpace(code) {
		return nil
	}
	return f.tx.SetProductCode(storeID, fmt.Sprintf("~parked-%d", storeID))
}

func (f *flush) writeParent(row editing.ParentRow) (int64, error) {
	if row.StoreID == 0 {
		p := &store.Product{}
		applyParent(p, row)
		if err := f.tx.CreateProduct(p); err != nil {
			return 0, err
		}
		f.emit(p.ID, nil, p.Code, protocol.ActionCreated)
		return p.ID, nil
	}
	p := f.current[row.StoreID]
	applyParent(p, row)
	if err := f.tx.UpdateProduct(p); err != nil {
		return 0, err
	}
	f.emit(p.ID, nil, p.Code, protocol.ActionUpdated)
	return p.ID, nil
}

func (f *flush) writeFlex(parentID int64, row editing.FlexRow) (int64, error) {
	if row.StoreID == 0 {
		p := &store.Product{}
		applyFlex(p, parentID, row)
		if err := f.tx.CreateProduct(p); err != nil {
			return 0, err
		}
		f.emit(p.ID, &parentID, p.Code, protocol.ActionCreated)
		return p.ID, nil
	}
	p := f.current[row.StoreID]
	applyFlex(p, parentID, row)
	if err := f.tx.UpdateProduct(p); err != nil {
		return 0, err
	}
	f.emit(p.ID, &parentID, p.Code, protocol.ActionUpdated)
	return p.ID, nil
}

func (f *flush) emit(id int64, parentID *int64, code, action string) {
	f.events = append(f.events, ProductChangedEvent{
		ProductID: id,
		ParentID:  parentID,
		Code:      code,
		Action:    action,
		Actor:     "session",
	})
}

// --- row conversions ---

func parentFromProduct(p *store.Product) editing.ParentRow {
	return editing.ParentRow{
		ID:       p.ID,
		StoreID:  p.ID,
		Code:     p.Code,
		Name:     p.Name,
		Shift:    p.Shift,
		Category: p.Category,
		Quantity: p.Quantity,
		Price:    p.Price,
	}
}

func applyParent(p *store.Product, row editing.ParentRow) {
	p.Code = row.Code
	p.Name = row.Name
	p.Shift = row.Shift
	p.Category = row.Category
	p.Quantity = row.Quantity
	p.Price = row.Price
	p.ParentID = nil
}

func flexFromItem(it flexcache.FlexItem) editing.FlexRow {
	return editing.FlexRow{
		ID:              it.ID,
		StoreID:         it.ID,
		Code:            it.Code,
		Name:            it.Name,
		Location:        it.Location,
		InventoryStatus: it.InventoryStatus,
		Latitude:        it.Latitude,
		Longitude:       it.Longitude,
		Address:         it.Address,
		OperatingHours:  it.OperatingHours,
		MachineType:     it.MachineType,
		PaymentMethods:  it.PaymentMethods,
		LastMaintenance: it.LastMaintenance,
		Status:          it.Status,
		PowerMode:       it.PowerMode,
		Images:          imagesFromStore(it.Images),
	}
}

func flexFromProduct(p *store.Product) editing.FlexRow {
	return editing.FlexRow{
		ID:              p.ID,
		StoreID:         p.ID,
		Code:            p.Code,
		Name:            p.Name,
		Location:        p.Location,
		InventoryStatus: p.InventoryStatus,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		Address:         p.Address,
		OperatingHours:  p.OperatingHours,
		MachineType:     p.MachineType,
		PaymentMethods:  p.PaymentMethods,
		LastMaintenance: p.LastMaintenance,
		Status:          p.Status,
		PowerMode:       p.PowerMode,
		Images:          imagesFromStore(p.Images),
	}
}

// applyFlex copies a stop onto its product row. A stop without a name takes
// its code, since the store requires both.
func applyFlex(p *store.Product, parentID int64, row editing.FlexRow) {
	p.Code = row.Code
	p.Name = row.Name
	if strings.TrimSpace(p.Name) == "" {
		p.Name = row.Code
	}
	p.Location = row.Location
	p.InventoryStatus = row.InventoryStatus
	p.Latitude = row.Latitude
	p.Longitude = row.Longitude
	p.Address = row.Address
	p.OperatingHours = row.OperatingHours
	p.MachineType = row.MachineType
	p.PaymentMethods = row.PaymentMethods
	p.LastMaintenance = row.LastMaintenance
	p.Status = row.Status
	p.PowerMode = row.PowerMode
	p.Images = imagesToStore(row.Images)
	p.ParentID = &parentID
}

func imagesFromStore(images []store.Image) []editing.Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]editing.Image, len(images))
	for i, img := range images {
		out[i] = editing.Image{URL: img.URL, Caption: img.Caption, Description: img.Description}
	}
	return out
}

func imagesToStore(images []editing.Image) []store.Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]store.Image, len(images))
	for i, img := range images {
		out[i] = store.Image{URL: img.URL, Caption: img.Caption, Description: img.Description}
	}
	return out
}
