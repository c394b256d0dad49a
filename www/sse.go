package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"vendroute/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

// EventHub fans engine events out to connected browsers so open grids can
// reload rows another tab or instance has written.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
	stopOnce  sync.Once

	bus  *engine.EventBus
	subs []engine.SubscriberID
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

// Stop detaches the hub from the engine and ends the broadcast loop.
func (h *EventHub) Stop() {
	h.stopOnce.Do(func() {
		for _, id := range h.subs {
			h.bus.Unsubscribe(id)
		}
		close(h.stopChan)
	})
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.send(evt)
		case <-keepalive.C:
			h.send(SSEEvent{Event: "keepalive", Data: "ping"})
		}
	}
}

// send delivers evt to every client, dropping it for clients whose buffer
// is full.
func (h *EventHub) send(evt SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *EventHub) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("sse: marshal %s: %v", event, err)
		return
	}
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: string(data)}:
	default:
	}
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	h.bus = eng.Events
	h.listen(func(evt engine.Event) {
		ev := evt.Payload.(engine.ProductChangedEvent)
		h.Broadcast("product-update", map[string]any{
			"productId": ev.ProductID,
			"parentId":  ev.ParentID,
			"code":      ev.Code,
			"action":    ev.Action,
		})
	}, engine.EventProductChanged)

	h.listen(func(evt engine.Event) {
		ev := evt.Payload.(engine.CustomerChangedEvent)
		h.Broadcast("customer-update", map[string]any{
			"customerId": ev.CustomerID,
			"action":     ev.Action,
		})
	}, engine.EventCustomerChanged)

	h.listen(func(evt engine.Event) {
		ev := evt.Payload.(engine.SessionSavedEvent)
		h.Broadcast("session-saved", map[string]any{
			"parents":        ev.Parents,
			"flexRows":       ev.FlexRows,
			"touchedParents": ev.TouchedParents,
		})
	}, engine.EventSessionSaved)

	h.listen(func(evt engine.Event) {
		ev := evt.Payload.(engine.RemoteChangeEvent)
		h.Broadcast("remote-change", map[string]any{
			"type":   ev.Type,
			"source": ev.Source,
			"detail": ev.Detail,
		})
	}, engine.EventRemoteChange)
}

func (h *EventHub) listen(fn func(engine.Event), types ...engine.EventType) {
	h.subs = append(h.subs, h.bus.SubscribeTypes(fn, types...))
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
