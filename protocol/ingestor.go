package protocol

import (
	"encoding/json"
	"log"
)

// FilterFunc returns true if the message should be processed.
type FilterFunc func(hdr *RawHeader) bool

// MessageHandler receives decoded change-feed messages.
// Embed NoOpHandler and override only the methods you need.
type MessageHandler interface {
	HandleProductChanged(env *Envelope, p *ProductChanged)
	HandleCustomerChanged(env *Envelope, p *CustomerChanged)
	HandleSessionSaved(env *Envelope, p *SessionSaved)
	HandleSessionDiscarded(env *Envelope, p *SessionDiscarded)
}

// Ingestor performs two-phase decode and dispatches to a MessageHandler.
type Ingestor struct {
	handler MessageHandler
	filter  FilterFunc
}

func NewIngestor(handler MessageHandler, filter FilterFunc) *Ingestor {
	return &Ingestor{
		handler: handler,
		filter:  filter,
	}
}

// HandleRaw is the entry point for raw message bytes from the messaging layer.
func (ing *Ingestor) HandleRaw(data []byte) {
	var hdr RawHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		log.Printf("protocol: header decode error: %v", err)
		return
	}
	if IsExpiredHeader(&hdr) {
		log.Printf("protocol: dropping expired message %s (type=%s)", hdr.ID, hdr.Type)
		return
	}
	if ing.filter != nil && !ing.filter(&hdr) {
		return
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("protocol: envelope decode error: %v", err)
		return
	}

	switch env.Type {
	case TypeProductChanged:
		decodeAndCall(ing.handler.HandleProductChanged, &env)
	case TypeCustomerChanged:
		decodeAndCall(ing.handler.HandleCustomerChanged, &env)
	case TypeSessionSaved:
		decodeAndCall(ing.handler.HandleSessionSaved, &env)
	case TypeSessionDiscarded:
		decodeAndCall(ing.handler.HandleSessionDiscarded, &env)
	default:
		log.Printf("protocol: unknown message type: %s", env.Type)
	}
}

func decodeAndCall[T any](fn func(*Envelope, *T), env *Envelope) {
	var p T
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Printf("protocol: payload decode error for %s: %v", env.Type, err)
		return
	}
	fn(env, &p)
}
