package protocol

// NoOpHandler implements MessageHandler with no-op methods.
type NoOpHandler struct{}

func (NoOpHandler) HandleProductChanged(*Envelope, *ProductChanged)     {}
func (NoOpHandler) HandleCustomerChanged(*Envelope, *CustomerChanged)   {}
func (NoOpHandler) HandleSessionSaved(*Envelope, *SessionSaved)         {}
func (NoOpHandler) HandleSessionDiscarded(*Envelope, *SessionDiscarded) {}

var _ MessageHandler = NoOpHandler{}
