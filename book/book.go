package book

import "fmt"

// orderRef locates a resting order's side and price without walking any
// price level.
type orderRef struct {
	side  Side
	price int64
}

// Book is a single instrument's limit order book: two price-time-priority
// queues (bids, asks) plus an id index for O(1) lookup/cancel. It exposes
// only low-level primitives — InsertResting, Cancel, ReduceQuantity — and
// the read-only projections (BestBid, BestAsk, Spread, Mid, Depth, VWAP).
// Crossing, self-trade prevention, and time-in-force handling live one
// layer up, in the matching engine (match.go), which is the only caller
// expected to mutate a Book through more than one primitive per event.
type Book struct {
	TickSize int64

	bids *priceSide
	asks *priceSide

	// idIndex maps every resting order id to its side and price so
	// Cancel/ReduceQuantity/Get never probe more than one price level.
	idIndex map[string]orderRef
}

// NewBook constructs an empty book. tickSize must be positive; prices
// submitted to the book are validated against it by the matching engine,
// not by Book itself (Book trusts its caller to have already validated).
func NewBook(tickSize int64) *Book {
	return &Book{
		TickSize: tickSize,
		bids:     newPriceSide(SideBuy),
		asks:     newPriceSide(SideSell),
		idIndex:  make(map[string]orderRef),
	}
}

func (b *Book) sideFor(s Side) *priceSide {
	if s == SideBuy {
		return b.bids
	}
	return b.asks
}

// contraSideFor returns the side an order of side s would actually cross
// into: a buy sweeps asks, a sell sweeps bids.
func (b *Book) contraSideFor(s Side) *priceSide {
	if s == SideBuy {
		return b.asks
	}
	return b.bids
}

// InsertResting places o at the tail of its price level. The caller
// (match.go) is responsible for having already exhausted crossable
// liquidity and for timestamp/tick validation; InsertResting itself only
// guards against a duplicate id, since that is a correctness invariant of
// the index itself regardless of caller discipline.
func (b *Book) InsertResting(o *Order) error {
	if _, exists := b.idIndex[o.ID]; exists {
		return ErrDuplicateOrderID
	}
	side := b.sideFor(o.Side)
	lvl := side.levelAt(o.Price)
	lvl.Append(o)
	b.idIndex[o.ID] = orderRef{side: o.Side, price: o.Price}
	return nil
}

// Cancel removes orderID from the book entirely, returning the removed
// order. Returns ErrUnknownOrderID if it is not resting.
func (b *Book) Cancel(orderID string) (*Order, error) {
	ref, ok := b.idIndex[orderID]
	if !ok {
		return nil, ErrUnknownOrderID
	}
	ps := b.sideFor(ref.side)
	removed, ok := ps.levels[ref.price].Remove(orderID)
	if !ok {
		return nil, ErrUnknownOrderID
	}
	ps.dropIfEmpty(ref.price)
	delete(b.idIndex, orderID)
	return removed, nil
}

// ReduceQuantity lowers a resting order's RemainingQty by delta in place,
// preserving its position and time priority. delta must not exceed the
// order's current RemainingQty. If the reduction drains the order to zero
// it is removed, matching Cancel's bookkeeping.
func (b *Book) ReduceQuantity(orderID string, delta int64) error {
	ref, ok := b.idIndex[orderID]
	if !ok {
		return ErrUnknownOrderID
	}
	ps := b.sideFor(ref.side)
	lvl := ps.levels[ref.price]
	o, ok := lvl.Get(orderID)
	if !ok {
		return ErrUnknownOrderID
	}
	if delta <= 0 || delta > o.RemainingQty {
		return fmt.Errorf("%w: reduce delta %d exceeds remaining %d", ErrNonPositiveQuantity, delta, o.RemainingQty)
	}
	o.RemainingQty -= delta
	lvl.aggregate -= delta
	if o.RemainingQty == 0 {
		lvl.Remove(orderID)
		ps.dropIfEmpty(ref.price)
		delete(b.idIndex, orderID)
	}
	return nil
}

// Get returns the resting order with orderID, if any.
func (b *Book) Get(orderID string) (*Order, bool) {
	ref, ok := b.idIndex[orderID]
	if !ok {
		return nil, false
	}
	return b.sideFor(ref.side).levels[ref.price].Get(orderID)
}

// BestBid returns the best (highest) resting bid price and whether one exists.
func (b *Book) BestBid() (int64, bool) { return b.bids.best() }

// BestAsk returns the best (lowest) resting ask price and whether one exists.
func (b *Book) BestAsk() (int64, bool) { return b.asks.best() }

// Spread returns BestAsk-BestBid in ticks; ok is false if either side is empty.
func (b *Book) Spread() (spread int64, ok bool) {
	bid, okb := b.BestBid()
	ask, oka := b.BestAsk()
	if !okb || !oka {
		return 0, false
	}
	return ask - bid, true
}

// Mid returns the midpoint of best bid and best ask, truncated to ticks.
func (b *Book) Mid() (mid int64, ok bool) {
	bid, okb := b.BestBid()
	ask, oka := b.BestAsk()
	if !okb || !oka {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// Depth returns up to k levels on each side, best first.
func (b *Book) Depth(k int) (bids, asks []Level) {
	return b.bids.depth(k), b.asks.depth(k)
}

// VWAP reports the volume-weighted average price of sweeping qty for an
// order of the given side against the resting liquidity it would actually
// cross into — a buy sweeps asks, a sell sweeps bids — without mutating
// the book. ok is false if the book does not have qty of liquidity resting
// on that side.
func (b *Book) VWAP(side Side, qty int64) (vwapTicks int64, ok bool) {
	if qty <= 0 {
		return 0, false
	}
	ps := b.contraSideFor(side)
	var notional int64
	var filled int64
	for _, p := range ps.prices {
		if filled >= qty {
			break
		}
		lvl := ps.levels[p]
		take := lvl.Aggregate()
		if remaining := qty - filled; take > remaining {
			take = remaining
		}
		notional += take * p
		filled += take
	}
	if filled < qty {
		return 0, false
	}
	return notional / qty, true
}
