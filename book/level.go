package book

import "container/list"

// Level is a read-only snapshot of the aggregate quantity resting at one
// price, used for depth views and VWAP sweeps. It carries no order
// identities — see PriceLevel for the live, mutable structure.
type Level struct {
	PriceTicks int64
	Qty        int64
}

// PriceLevel is a FIFO queue of resting orders at a single price, in the
// order they were appended; it never reorders by SubmitTS or ArrivalSeq. It
// is backed by container/list so Remove by order id is O(1) given the
// order's list element.
type PriceLevel struct {
	Price     int64
	orders    *list.List
	index     map[string]*list.Element
	aggregate int64
}

func newPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
		index:  make(map[string]*list.Element),
	}
}

// Append places order at the tail of the queue. Precondition: order.Price
// equals the level's price (guaranteed by the caller, Book.InsertResting,
// which looks the level up by order.Price).
func (l *PriceLevel) Append(o *Order) {
	e := l.orders.PushBack(o)
	l.index[o.ID] = e
	l.aggregate += o.RemainingQty
}

// PeekFront observes the head order without removing it. Returns nil if
// empty.
func (l *PriceLevel) PeekFront() *Order {
	e := l.orders.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*Order)
}

// FillFront decrements the head order's RemainingQty by qty (qty must not
// exceed the head's RemainingQty) and keeps the aggregate in sync. If the
// head is fully consumed it is popped and removed from the index; the
// caller is always handed back the head order pointer so it can inspect
// the post-fill state (e.g. to detect an iceberg slice running out).
func (l *PriceLevel) FillFront(qty int64) (order *Order, removed bool) {
	e := l.orders.Front()
	if e == nil {
		return nil, false
	}
	o := e.Value.(*Order)
	o.RemainingQty -= qty
	l.aggregate -= qty
	if o.RemainingQty <= 0 {
		l.orders.Remove(e)
		delete(l.index, o.ID)
		return o, true
	}
	return o, false
}

// Remove excises the order with orderID from the queue via the level's own
// id→element index, O(1).
func (l *PriceLevel) Remove(orderID string) (*Order, bool) {
	e, ok := l.index[orderID]
	if !ok {
		return nil, false
	}
	o := e.Value.(*Order)
	l.orders.Remove(e)
	delete(l.index, orderID)
	l.aggregate -= o.RemainingQty
	return o, true
}

// Get returns the order with orderID without removing it.
func (l *PriceLevel) Get(orderID string) (*Order, bool) {
	e, ok := l.index[orderID]
	if !ok {
		return nil, false
	}
	return e.Value.(*Order), true
}

func (l *PriceLevel) IsEmpty() bool   { return l.orders.Len() == 0 }
func (l *PriceLevel) Aggregate() int64 { return l.aggregate }

// OrderIDs returns the resting order ids in queue order, oldest first.
// Intended for diagnostics and tests, not the matching hot path.
func (l *PriceLevel) OrderIDs() []string {
	ids := make([]string, 0, l.orders.Len())
	for e := l.orders.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(*Order).ID)
	}
	return ids
}
