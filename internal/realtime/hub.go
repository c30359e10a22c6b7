// Package realtime fans progress changes out to a learner's open websocket
// connections so every device sees the same lesson state.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-learn/internal/progress"
)

const (
	outboundBuffer = 16
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
)

// EventProgressChanged is the only event type currently pushed.
const EventProgressChanged = "progress.changed"

// Message is what a subscriber receives.
type Message struct {
	Event  string          `json:"event"`
	Record progress.Record `json:"record"`
}

// Subscriber receives the messages of one learner.
type Subscriber struct {
	ID        string
	LearnerID string
	C         <-chan Message

	out chan Message
}

// Hub tracks subscribers per learner. It implements progress.Publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a subscriber for the learner. Call Unsubscribe when done.
func (h *Hub) Subscribe(learnerID string) *Subscriber {
	out := make(chan Message, outboundBuffer)
	s := &Subscriber{ID: uuid.NewString(), LearnerID: learnerID, C: out, out: out}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[learnerID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[learnerID] = set
	}
	set[s] = struct{}{}
	return s
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.LearnerID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.LearnerID)
	}
	close(s.out)
}

// Subscribers reports how many connections the learner has open.
func (h *Hub) Subscribers(learnerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[learnerID])
}

// Publish sends the record to the learner's subscribers. It never blocks;
// a subscriber whose buffer is full misses the message and reloads the
// snapshot on its next read.
func (h *Hub) Publish(rec progress.Record) {
	msg := Message{Event: EventProgressChanged, Record: rec}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[rec.LearnerID] {
		select {
		case s.out <- msg:
		default:
			slog.Warn("dropping realtime message, subscriber buffer full",
				"subscriber_id", s.ID,
				"learner_id", rec.LearnerID,
				"lesson_id", rec.LessonID,
			)
		}
	}
}

// Serve upgrades the request and streams the learner's messages until the
// client goes away or ctx ends. The learner must already be authenticated.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, learnerID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "learner_id", learnerID, "error", err)
		return
	}
	defer conn.CloseNow()

	sub := h.Subscribe(learnerID)
	defer h.Unsubscribe(sub)

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// once the peer closes.
	ctx := conn.CloseRead(r.Context())

	slog.Debug("realtime subscriber connected", "subscriber_id", sub.ID, "learner_id", learnerID)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "unsubscribed")
				return
			}
			if err := write(ctx, conn, msg); err != nil {
				slog.Debug("realtime write failed", "subscriber_id", sub.ID, "error", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
