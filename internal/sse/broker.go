// Package sse streams article change notifications to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is one message pushed to every subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types.
const (
	TypeArticleCreated = "article.created"
	TypeArticleUpdated = "article.updated"
	TypeArticleDeleted = "article.deleted"
	TypeCommentCreated = "comment.created"
	TypeTagsUpdated    = "tags.updated"
)

type articleChange struct {
	kind string
	id   int64
}

// Broker fans events out to connected clients.
//
// All mutable state (the client set and the tags throttle clock) is owned by
// one loop goroutine; the exported methods only talk to it over channels.
type Broker struct {
	tagsEvery time.Duration
	logger    *slog.Logger

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan articleChange
	count   chan chan int

	quit    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
}

// NewBroker starts a broker. tags.updated is sent at most once per
// tagsThrottle, which defaults to two seconds.
func NewBroker(tagsThrottle time.Duration, logger *slog.Logger) *Broker {
	if tagsThrottle <= 0 {
		tagsThrottle = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		tagsEvery: tagsThrottle,
		logger:    logger,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		events:    make(chan Event, 256),
		changes:   make(chan articleChange, 256),
		count:     make(chan chan int),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

// eventType maps an article change kind to its wire type. Unknown kinds are
// dropped.
func eventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeArticleCreated, true
	case "updated":
		return TypeArticleUpdated, true
	case "deleted":
		return TypeArticleDeleted, true
	case "comment.created":
		return TypeCommentCreated, true
	}
	return "", false
}

func (b *Broker) loop() {
	defer close(b.done)

	clients := make(map[chan []byte]struct{})
	var tagsSent time.Time

	send := func(ev Event) {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			b.logger.Error("sse: encode event", slog.String("type", ev.Type), slog.String("error", err.Error()))
			return
		}
		frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data))
		for ch := range clients {
			select {
			case ch <- frame:
			default:
				// slow client; drop rather than stall everyone else
			}
		}
	}

	for {
		select {
		case <-b.quit:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case ev := <-b.events:
			send(ev)

		case c := <-b.changes:
			typ, ok := eventType(c.kind)
			if !ok {
				b.logger.Warn("sse: unknown article event", slog.String("kind", c.kind))
				continue
			}
			send(Event{Type: typ, Data: map[string]int64{"id": c.id}})

			if typ == TypeCommentCreated {
				continue
			}
			if now := time.Now(); now.Sub(tagsSent) >= b.tagsEvery {
				tagsSent = now
				send(Event{Type: TypeTagsUpdated, Data: struct{}{}})
			}

		case reply := <-b.count:
			reply <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.stopped.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The returned channel is closed when the
// client unsubscribes or the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.stopped.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.stopped.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.stopped.Load() {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case b.count <- reply:
	case <-b.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(ev Event) {
	if b.stopped.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// PublishArticleEvent broadcasts an article change. Article writes are
// followed by a throttled tags.updated so tag clouds can refresh.
func (b *Broker) PublishArticleEvent(kind string, articleID int64) {
	if b.stopped.Load() {
		return
	}
	select {
	case b.changes <- articleChange{kind: kind, id: articleID}:
	case <-b.done:
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, open := <-ch:
			if !open {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
