package bot

import (
	"context"
	"sync"
	"time"
)

type (
	LoginHandler   func(b Bot, at time.Time)
	MessageHandler func(ctx context.Context, sess *Session)
	SentHandler    func(b Bot, at time.Time)
)

// Events fans bot lifecycle and message events out to subscribers.
// Handlers run synchronously on the emitting goroutine.
type Events struct {
	mu      sync.RWMutex
	login   []LoginHandler
	message []MessageHandler
	sent    []SentHandler
}

func NewEvents() *Events {
	return &Events{}
}

// OnLogin subscribes to bots finishing their login.
func (e *Events) OnLogin(h LoginHandler) {
	e.mu.Lock()
	e.login = append(e.login, h)
	e.mu.Unlock()
}

// OnMessage subscribes to inbound messages.
func (e *Events) OnMessage(h MessageHandler) {
	e.mu.Lock()
	e.message = append(e.message, h)
	e.mu.Unlock()
}

// OnSent subscribes to messages sent by bots.
func (e *Events) OnSent(h SentHandler) {
	e.mu.Lock()
	e.sent = append(e.sent, h)
	e.mu.Unlock()
}

func (e *Events) EmitLogin(b Bot, at time.Time) {
	e.mu.RLock()
	hs := append([]LoginHandler(nil), e.login...)
	e.mu.RUnlock()
	for _, h := range hs {
		h(b, at)
	}
}

func (e *Events) EmitMessage(ctx context.Context, sess *Session) {
	e.mu.RLock()
	hs := append([]MessageHandler(nil), e.message...)
	e.mu.RUnlock()
	for _, h := range hs {
		h(ctx, sess)
	}
}

func (e *Events) EmitSent(b Bot, at time.Time) {
	e.mu.RLock()
	hs := append([]SentHandler(nil), e.sent...)
	e.mu.RUnlock()
	for _, h := range hs {
		h(b, at)
	}
}
