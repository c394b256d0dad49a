package engine

import (
	"fmt"

	"vendroute/protocol"
)

func (e *Engine) wireEventHandlers() {
	// Product writes: audit, keep the flex cache in step, publish
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ProductChangedEvent)
		e.db.AppendAudit("product", ev.ProductID, ev.Action, "", ev.Code, ev.Actor)
		switch {
		case ev.ParentID != nil:
			e.flex.Refresh(*ev.ParentID)
		case ev.Action == protocol.ActionDeleted:
			e.flex.Invalidate(ev.ProductID)
		}
		e.publish(protocol.TypeProductChanged, &protocol.ProductChanged{
			ProductID: ev.ProductID,
			ParentID:  ev.ParentID,
			Code:      ev.Code,
			Action:    ev.Action,
			Actor:     ev.Actor,
		})
	}, EventProductChanged)

	// Customer writes: audit and publish
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(CustomerChangedEvent)
		e.db.AppendAudit("customer", ev.CustomerID, ev.Action, "", ev.Name, ev.Actor)
		e.publish(protocol.TypeCustomerChanged, &protocol.CustomerChanged{
			CustomerID: ev.CustomerID,
			Name:       ev.Name,
			Action:     ev.Action,
		})
	}, EventCustomerChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SessionSavedEvent)
		e.logFn("engine: session %s saved: %d parents, %d stops, %d parent deletes, %d stop deletes",
			ev.SessionID, ev.Parents, ev.FlexRows, ev.DeletedParents, ev.DeletedFlex)
		e.publish(protocol.TypeSessionSaved, &protocol.SessionSaved{
			SessionID:      ev.SessionID,
			Parents:        ev.Parents,
			FlexRows:       ev.FlexRows,
			DeletedParents: ev.DeletedParents,
			DeletedFlex:    ev.DeletedFlex,
			TouchedParents: ev.TouchedParents,
		})
	}, EventSessionSaved)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SessionDiscardedEvent)
		e.logFn("engine: session %s discarded changes", ev.SessionID)
		e.publish(protocol.TypeSessionDiscarded, &protocol.SessionDiscarded{SessionID: ev.SessionID})
	}, EventSessionDiscarded)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s", ev.Detail)
	}, EventMessagingConnected, EventMessagingDisconnected)
}

// publish queues a change-feed envelope in the outbox. Nothing is queued
// while messaging is disabled.
func (e *Engine) publish(msgType string, payload any) {
	if e.msgClient == nil {
		return
	}
	src := protocol.Address{Role: protocol.RoleServer, Node: e.cfg.Messaging.StationID}
	dst := protocol.Address{Role: protocol.RoleAny}
	env, err := protocol.NewEnvelope(msgType, src, dst, payload)
	if err != nil {
		e.logFn("engine: build %s envelope: %v", msgType, err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		e.logFn("engine: encode %s envelope: %v", msgType, err)
		return
	}
	if err := e.db.EnqueueOutbox(e.cfg.Messaging.ChangesTopic, data, msgType, e.cfg.Messaging.StationID); err != nil {
		e.logFn("engine: enqueue %s: %v", msgType, err)
	}
}

// changeFeedHandler applies change-feed messages from other instances.
type changeFeedHandler struct {
	protocol.NoOpHandler
	engine *Engine
}

func (h *changeFeedHandler) HandleProductChanged(env *protocol.Envelope, p *protocol.ProductChanged) {
	switch {
	case p.ParentID != nil:
		h.engine.flex.Invalidate(*p.ParentID)
	case p.Action == protocol.ActionDeleted:
		h.engine.flex.Invalidate(p.ProductID)
	}
	h.engine.Events.Emit(Event{Type: EventRemoteChange, Payload: RemoteChangeEvent{
		Type:   env.Type,
		Source: env.Src.Node,
		Detail: fmt.Sprintf("product %d %s", p.ProductID, p.Action),
	}})
}

func (h *changeFeedHandler) HandleCustomerChanged(env *protocol.Envelope, p *protocol.CustomerChanged) {
	h.engine.Events.Emit(Event{Type: EventRemoteChange, Payload: RemoteChangeEvent{
		Type:   env.Type,
		Source: env.Src.Node,
		Detail: fmt.Sprintf("customer %d %s", p.CustomerID, p.Action),
	}})
}

func (h *changeFeedHandler) HandleSessionSaved(env *protocol.Envelope, p *protocol.SessionSaved) {
	for _, id := range p.TouchedParents {
		h.engine.flex.Invalidate(id)
	}
	h.engine.Events.Emit(Event{Type: EventRemoteChange, Payload: RemoteChangeEvent{
		Type:   env.Type,
		Source: env.Src.Node,
		Detail: fmt.Sprintf("session saved %d parents, %d stops", p.Parents, p.FlexRows),
	}})
}
