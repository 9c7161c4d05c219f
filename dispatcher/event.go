package dispatcher

import "github.com/jrajath94/orderbook-simulator/book"

// Kind identifies what an Event asks the dispatcher to do. The first three
// are producer-submitted; the rest are scheduled internally as a
// consequence of processing another event — stop triggers and iceberg
// refreshes never originate outside the dispatcher.
type Kind int8

const (
	KindSubmit Kind = iota + 1
	KindCancel
	KindModify
	KindStopTrigger
	KindIcebergRefresh
)

// Event is the dispatcher's unit of scheduling: every event carries a
// logical timestamp and, for events submitted at the same timestamp, an
// arrival sequence number that breaks the tie in arrival order. Only the
// fields relevant to Kind are populated.
type Event struct {
	Kind Kind
	TS   int64
	seq  uint64

	// KindSubmit
	Order *book.Order

	// KindCancel
	CancelOrderID string

	// KindModify
	ModifyOrderID string
	NewQty        int64
	NewPrice      int64
	PriceChanged  bool

	// KindStopTrigger / KindIcebergRefresh — populated by the dispatcher
	// itself when it schedules the cascade, never by a producer.
	cascadeDepth int

	// decisionMidTicks is the book's mid price at the instant Submit
	// enqueued this event — the "decision price" impact accounting
	// measures latency drift against once the event is actually matched.
	// hasDecisionMid is false if the book had no two-sided market yet.
	decisionMidTicks float64
	hasDecisionMid   bool
}

// eventHeap is a container/heap.Interface ordered by (TS, seq), the
// idiom used across the retrieved order-book repos for anything that must
// pop "the next thing to happen" in timestamp order.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].TS != h[j].TS {
		return h[i].TS < h[j].TS
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
