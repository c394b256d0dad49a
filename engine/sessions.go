package engine

import (
	"context"

	"vendroute/editing"
)

// SaveSession runs Save All on a session and announces what was written.
func (e *Engine) SaveSession(ctx context.Context, id string, s *editing.Session) error {
	cs, err := s.SaveAll(ctx)
	if err != nil {
		return err
	}
	ev := SessionSavedEvent{
		SessionID:      id,
		Parents:        len(cs.Parents),
		DeletedParents: len(cs.DeletedParents),
	}
	seen := make(map[int64]bool)
	touch := func(storeID int64) {
		if storeID != 0 && !seen[storeID] {
			seen[storeID] = true
			ev.TouchedParents = append(ev.TouchedParents, storeID)
		}
	}
	for _, p := range cs.Parents {
		touch(p.StoreID)
	}
	for _, fc := range cs.Flex {
		ev.FlexRows += len(fc.Rows)
		ev.DeletedFlex += len(fc.Deleted)
		touch(fc.ParentStoreID)
	}
	e.Events.Emit(Event{Type: EventSessionSaved, Payload: ev})
	return nil
}

// DiscardSession reverts a session and announces it.
func (e *Engine) DiscardSession(ctx context.Context, id string, s *editing.Session) error {
	if err := s.DiscardChanges(ctx); err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventSessionDiscarded, Payload: SessionDiscardedEvent{SessionID: id}})
	return nil
}
