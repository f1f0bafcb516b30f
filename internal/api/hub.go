package api

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/engine"
)

const (
	defaultTradeHistory = 500
	subscriberBuffer    = 8
)

// Hub keeps the latest tick report and a ring of recent trades for the HTTP
// handlers, and fans encoded reports out to stream subscribers. It
// implements engine.Sink and never blocks the simulation.
type Hub struct {
	mu      sync.RWMutex
	latest  *engine.TickReport
	trades  []engine.TradeRecord // ring buffer
	next    int
	full    bool
	total   uint64
	subs    map[uint64]chan []byte
	nextSub uint64
	dropped uint64
}

// NewHub creates a hub remembering up to tradeHistory trades.
func NewHub(tradeHistory int) *Hub {
	if tradeHistory <= 0 {
		tradeHistory = defaultTradeHistory
	}
	return &Hub{
		trades: make([]engine.TradeRecord, tradeHistory),
		subs:   make(map[uint64]chan []byte),
	}
}

// Record implements engine.Sink.
func (h *Hub) Record(r *engine.TickReport) {
	msg, err := json.Marshal(r)
	if err != nil {
		slog.Error("encode tick report", "tick", r.Tick, "error", err)
		msg = nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = r
	for _, t := range r.Trades {
		h.trades[h.next] = t
		h.next = (h.next + 1) % len(h.trades)
		if h.next == 0 {
			h.full = true
		}
		h.total++
	}
	if msg == nil {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber; it will catch up on the next report.
			h.dropped++
		}
	}
}

// Latest returns the most recent report, or nil before the first tick.
func (h *Hub) Latest() *engine.TickReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// RecentTrades returns up to limit trades, newest first.
func (h *Hub) RecentTrades(limit int) []engine.TradeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.trades)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]engine.TradeRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.trades)) % len(h.trades)
		out = append(out, h.trades[idx])
	}
	return out
}

// TotalTrades returns how many trades the hub has seen.
func (h *Hub) TotalTrades() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Subscribe registers a stream subscriber. The channel receives encoded
// reports until Unsubscribe is called.
func (h *Hub) Subscribe() (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSub++
	ch := make(chan []byte, subscriberBuffer)
	h.subs[h.nextSub] = ch
	return h.nextSub, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of active stream subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
