package engine

import (
	"log"
	"sync"
	"time"

	"vendroute/config"
	"vendroute/editing"
	"vendroute/flexcache"
	"vendroute/messaging"
	"vendroute/protocol"
	"vendroute/store"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig *config.Config
	DB        *store.DB
	FlexCache *flexcache.Manager
	MsgClient *messaging.Client // nil when messaging is disabled
	LogFunc   LogFunc
}

// Engine ties the store, the flex cache, the editing sessions and the change
// feed together through the EventBus.
type Engine struct {
	cfg          *config.Config
	db           *store.DB
	flex         *flexcache.Manager
	msgClient    *messaging.Client
	sessions     *editing.Manager
	Events       *EventBus
	logFn        LogFunc
	stopChan     chan struct{}
	stopOnce     sync.Once
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	flex := c.FlexCache
	if flex == nil {
		flex = flexcache.NewManager(c.DB, nil)
	}
	e := &Engine{
		cfg:       c.AppConfig,
		db:        c.DB,
		flex:      flex,
		msgClient: c.MsgClient,
		Events:    NewEventBus(),
		logFn:     logFn,
		stopChan:  make(chan struct{}),
	}
	e.sessions = editing.NewManager(
		&storeSource{db: e.db, flex: e.flex, prefixFallback: e.cfg.Editing.PrefixFallback},
		&storeSink{db: e.db, bus: e.Events},
		e.cfg.Editing.IdleTimeout,
		e.cfg.Editing.SweepInterval,
	)
	return e
}

func (e *Engine) Start() {
	e.wireEventHandlers()
	e.sessions.Start()

	if e.msgClient != nil {
		e.subscribeChanges()
		e.checkConnectionStatus()
		go e.connectionHealthLoop()
	}
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.sessions.Stop()
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                 { return e.db }
func (e *Engine) AppConfig() *config.Config     { return e.cfg }
func (e *Engine) FlexCache() *flexcache.Manager { return e.flex }
func (e *Engine) Sessions() *editing.Manager    { return e.sessions }
func (e *Engine) MsgClient() *messaging.Client  { return e.msgClient }

// subscribeChanges listens to the change feed so writes made by other
// instances drop the affected cached flex tables here.
func (e *Engine) subscribeChanges() {
	self := e.cfg.Messaging.StationID
	ing := protocol.NewIngestor(&changeFeedHandler{engine: e}, func(hdr *protocol.RawHeader) bool {
		return hdr.Src.Node != self
	})
	if err := e.msgClient.Subscribe(e.cfg.Messaging.ChangesTopic, func(_ string, payload []byte) {
		ing.HandleRaw(payload)
	}); err != nil {
		e.logFn("engine: subscribe %s: %v", e.cfg.Messaging.ChangesTopic, err)
	}
}

func (e *Engine) checkConnectionStatus() {
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else if e.msgConnected {
		e.msgConnected = false
		e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
