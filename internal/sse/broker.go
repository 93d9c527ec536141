// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types broadcast to clients.
const (
	TypeTimelineChanged = "timeline.changed"
	TypeSaveStatus      = "save.status"
	TypeSessionChanged  = "session.changed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type timelineReq struct {
	sessionID string
	kind      string
	id        string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + per-session timeline throttle). Public methods communicate with this
// loop through channels, so no mutexes are required.
//
// timeline.changed is throttled per session: the first change in a window is
// delivered at once, later ones collapse into a single trailing event carrying
// the most recent change.
type Broker struct {
	timelineMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	timelineCh    chan timelineReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given timeline throttle interval.
func NewBroker(timelineThrottle time.Duration) *Broker {
	if timelineThrottle <= 0 {
		timelineThrottle = 250 * time.Millisecond
	}

	b := &Broker{
		timelineMin:   timelineThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		timelineCh:    make(chan timelineReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func timelineEvent(req timelineReq) Event {
	return Event{Type: TypeTimelineChanged, Data: map[string]string{
		"sessionId": req.sessionID,
		"kind":      req.kind,
		"id":        req.id,
	}}
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	lastSent := make(map[string]time.Time)
	trailing := make(map[string]timelineReq)
	var flushTimer *time.Timer
	var flushC <-chan time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	armFlush := func() {
		if flushC != nil {
			return
		}
		flushTimer = time.NewTimer(b.timelineMin)
		flushC = flushTimer.C
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.timelineCh:
			now := time.Now()
			if now.Sub(lastSent[req.sessionID]) >= b.timelineMin {
				lastSent[req.sessionID] = now
				// A queued trailing event is older than req.
				delete(trailing, req.sessionID)
				broadcast(timelineEvent(req))
				continue
			}
			trailing[req.sessionID] = req
			armFlush()

		case <-flushC:
			flushC, flushTimer = nil, nil
			now := time.Now()
			for sid, req := range trailing {
				if now.Sub(lastSent[sid]) < b.timelineMin {
					continue
				}
				lastSent[sid] = now
				broadcast(timelineEvent(req))
				delete(trailing, sid)
			}
			if len(trailing) > 0 {
				armFlush()
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishTimelineChange publishes a throttled timeline.changed event for a
// session.
func (b *Broker) PublishTimelineChange(sessionID, kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.timelineCh <- timelineReq{sessionID: sessionID, kind: kind, id: id}:
	case <-b.stopped:
	}
}

// PublishSaveStatus publishes the autosave indicator of a session.
func (b *Broker) PublishSaveStatus(sessionID, status string) {
	b.Publish(Event{Type: TypeSaveStatus, Data: map[string]string{
		"sessionId": sessionID,
		"status":    status,
	}})
}

// PublishSessionEvent publishes a session document change (created,
// written, removed) observed in storage.
func (b *Broker) PublishSessionEvent(kind, sessionID string) {
	b.Publish(Event{Type: TypeSessionChanged, Data: map[string]string{
		"kind":      kind,
		"sessionId": sessionID,
	}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
