package publisher

import "github.com/jrajath94/orderbook-simulator/book"

// TradeRecord is one append-only trade-tape entry.
type TradeRecord struct {
	Seq           int64
	TS            int64
	PriceTicks    int64
	Qty           int64
	TakerOrderID  string
	MakerOrderID  string
	TakerOwnerTag string
	MakerOwnerTag string
	AggressorSide book.Side
}

// Snapshot is the periodic book projection:
// {best_bid, best_ask, spread, mid, bid_depth[k], ask_depth[k], last_trade}.
type Snapshot struct {
	TS           int64
	BestBid      int64
	HasBestBid   bool
	BestAsk      int64
	HasBestAsk   bool
	Spread       int64
	Mid          int64
	HasSpreadMid bool
	BidDepth     []DepthLevel
	AskDepth     []DepthLevel
	LastTrade    *TradeRecord
}

// DepthLevel is one aggregated price/quantity pair in a Snapshot's depth view.
type DepthLevel struct {
	PriceTicks int64
	Qty        int64
}

// Tape is the append-only trade tape plus the hub that fans each new record
// out synchronously to subscribers (e.g. the Candle Aggregator).
type Tape struct {
	records []TradeRecord
	hub     *Hub[TradeRecord]
	seq     int64
}

// NewTape constructs an empty trade tape.
func NewTape() *Tape {
	return &Tape{hub: NewHub[TradeRecord]()}
}

// Append records a trade and synchronously publishes it to subscribers.
func (t *Tape) Append(ts, priceTicks, qty int64, takerOrderID, makerOrderID, takerOwner, makerOwner string, aggressorSide book.Side) TradeRecord {
	t.seq++
	rec := TradeRecord{
		Seq:           t.seq,
		TS:            ts,
		PriceTicks:    priceTicks,
		Qty:           qty,
		TakerOrderID:  takerOrderID,
		MakerOrderID:  makerOrderID,
		TakerOwnerTag: takerOwner,
		MakerOwnerTag: makerOwner,
		AggressorSide: aggressorSide,
	}
	t.records = append(t.records, rec)
	t.hub.Publish(rec)
	return rec
}

// Subscribe registers fn to be called synchronously on every Append.
func (t *Tape) Subscribe(fn func(TradeRecord)) int64 { return t.hub.Subscribe(fn) }

// Unsubscribe removes a tape subscriber.
func (t *Tape) Unsubscribe(id int64) { t.hub.Unsubscribe(id) }

// Records returns the full tape so far, oldest first. The caller must not
// mutate the returned slice.
func (t *Tape) Records() []TradeRecord { return t.records }

// Last returns the most recently appended record, if any.
func (t *Tape) Last() (TradeRecord, bool) {
	if len(t.records) == 0 {
		return TradeRecord{}, false
	}
	return t.records[len(t.records)-1], true
}
