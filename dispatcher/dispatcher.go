// Package dispatcher drives a book.Engine from a timestamp-ordered event
// stream: submissions, cancels, modifies, and the dispatcher-internal
// cascades — stop triggers and iceberg slice refreshes — that a processed
// event can schedule.
package dispatcher

import (
	"container/heap"

	"go.uber.org/zap"

	"github.com/jrajath94/orderbook-simulator/book"
	"github.com/jrajath94/orderbook-simulator/impact"
	"github.com/jrajath94/orderbook-simulator/publisher"
)

// Options configures a Dispatcher. TickSize and AllowMarketOrders mirror
// the underlying book.Engine's configuration; MaxStopCascadeDepth and
// IcebergRefreshDelay are dispatcher-only concerns. ImpactParams feeds the
// per-fill cost decomposition recorded on CostLedger.
type Options struct {
	TickSize            int64
	SelfTradePolicy     book.SelfTradePolicy
	AllowMarketOrders   bool
	MaxStopCascadeDepth int
	IcebergRefreshDelay int64
	ImpactParams        impact.Params
}

// icebergState is the dispatcher's hidden-reserve bookkeeping for one
// resting ICEBERG order: the book only ever sees book.TypeIceberg orders
// sized to their currently displayed slice — it has no notion of the
// hidden reserve at all.
type icebergState struct {
	template        book.Order
	hiddenRemaining int64
}

// fillPricing carries the decision and arrival mid prices an event's match
// should be costed against. Either may be absent if the book had no
// two-sided market at the relevant instant, in which case resolve falls
// back to the fill price itself so spread/latency cost collapses to zero
// rather than producing a nonsense number from a zero mid.
type fillPricing struct {
	decisionMid    float64
	hasDecisionMid bool
	arrivalMid     float64
	hasArrivalMid  bool
}

func (fp fillPricing) resolve(fillPriceTicks float64) (decision, arrival float64) {
	arrival = fillPriceTicks
	if fp.hasArrivalMid {
		arrival = fp.arrivalMid
	}
	decision = arrival
	if fp.hasDecisionMid {
		decision = fp.decisionMid
	}
	return decision, arrival
}

// Dispatcher is the event-driven simulation loop: it owns the event heap,
// the stop-order side table, and iceberg hidden-reserve tracking, and
// drives a book.Engine in timestamp-then-arrival-sequence order.
type Dispatcher struct {
	engine *book.Engine
	opts   Options
	logger *zap.Logger

	pending   eventHeap
	seq       uint64
	currentTS int64

	stopOrders map[string]*book.Order
	iceberg    map[string]*icebergState

	Tape       *publisher.Tape
	Snapshots  *publisher.Hub[publisher.Snapshot]
	Reports    *publisher.Hub[ExecutionReport]
	CostLedger *impact.Ledger
}

// New constructs a Dispatcher wrapping book with a matching engine
// configured from opts.
func New(b *book.Book, opts Options, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		engine:     book.NewEngine(b, opts.SelfTradePolicy, opts.AllowMarketOrders),
		opts:       opts,
		logger:     logger,
		stopOrders: make(map[string]*book.Order),
		iceberg:    make(map[string]*icebergState),
		Tape:       publisher.NewTape(),
		Snapshots:  publisher.NewHub[publisher.Snapshot](),
		Reports:    publisher.NewHub[ExecutionReport](),
		CostLedger: impact.NewLedger(),
	}
}

// Book exposes the underlying book for read-only queries (depth, VWAP,
// spread) — the dispatcher itself never needs them.
func (d *Dispatcher) Book() *book.Book { return d.engine.Book }

// Submit enqueues ev for processing, assigning its arrival sequence number
// and stamping it with the book's current mid — the decision price impact
// accounting measures this event's eventual arrival-time drift against. For
// a KindSubmit event, the same sequence number is also stamped onto the
// order itself as ArrivalSeq. It returns false and emits a
// StatusRejected report instead of enqueuing if ev's timestamp precedes
// the current logical time: the dispatcher never
// time-travels backward, even for producer-submitted events, and every
// other rejection path in this package produces a report so a submitter
// always gets a signal.
func (d *Dispatcher) Submit(ev *Event) bool {
	if ev.TS < d.currentTS {
		d.logger.Warn("rejected event with regressive timestamp",
			zap.Int64("event_ts", ev.TS), zap.Int64("current_ts", d.currentTS))
		d.emitReport(rejectionReport(ev, book.ErrTimestampRegression))
		return false
	}
	if mid, ok := d.engine.Book.Mid(); ok {
		ev.decisionMidTicks, ev.hasDecisionMid = float64(mid), true
	}
	d.seq++
	ev.seq = d.seq
	if ev.Kind == KindSubmit && ev.Order != nil {
		ev.Order.ArrivalSeq = d.seq
	}
	heap.Push(&d.pending, ev)
	return true
}

// checkDuplicateID reports whether id already identifies an order tracked
// anywhere in the dispatcher's universe of live order ids — resting in the
// book, held dormant in the stop side table, or held as an iceberg's
// hidden reserve. These are three separate maps (a resting iceberg slice
// with hidden reserve appears in both the book and d.iceberg), so none of
// them alone can catch every collision.
func (d *Dispatcher) checkDuplicateID(id string) error {
	if _, ok := d.stopOrders[id]; ok {
		return book.ErrDuplicateOrderID
	}
	if _, ok := d.iceberg[id]; ok {
		return book.ErrDuplicateOrderID
	}
	if _, ok := d.engine.Book.Get(id); ok {
		return book.ErrDuplicateOrderID
	}
	return nil
}

// rejectionReport builds the report for an event the dispatcher refuses to
// enqueue at all, pulling whatever identity ev carries for its Kind.
func rejectionReport(ev *Event, err error) ExecutionReport {
	r := ExecutionReport{Status: StatusRejected, Reason: err, TS: ev.TS}
	switch ev.Kind {
	case KindSubmit:
		if ev.Order != nil {
			r.OrderID, r.OwnerTag = ev.Order.ID, ev.Order.OwnerTag
		}
	case KindCancel:
		r.OrderID = ev.CancelOrderID
	case KindModify:
		r.OrderID = ev.ModifyOrderID
	}
	return r
}

// RunUntil processes every pending event with TS <= ts, in (TS, seq)
// order, advancing the dispatcher's logical clock as it goes. Events
// scheduled internally (stop triggers, iceberg refreshes) during this call
// are processed in the same call if their TS still falls within range.
func (d *Dispatcher) RunUntil(ts int64) {
	for len(d.pending) > 0 && d.pending[0].TS <= ts {
		ev := heap.Pop(&d.pending).(*Event)
		d.currentTS = ev.TS
		d.process(ev)
	}
	if ts > d.currentTS {
		d.currentTS = ts
	}
}

func (d *Dispatcher) process(ev *Event) {
	switch ev.Kind {
	case KindSubmit:
		d.processSubmit(ev)
	case KindCancel:
		d.processCancel(ev)
	case KindModify:
		d.processModify(ev)
	case KindStopTrigger:
		d.processStopTrigger(ev)
	case KindIcebergRefresh:
		d.processIcebergRefresh(ev)
	}
}

func (d *Dispatcher) emitReport(r ExecutionReport) {
	d.Reports.Publish(r)
}

func (d *Dispatcher) processSubmit(ev *Event) {
	o := ev.Order
	if o.Type == book.TypeStop || o.Type == book.TypeStopLimit {
		if err := d.checkDuplicateID(o.ID); err != nil {
			d.emitReport(ExecutionReport{OrderID: o.ID, OwnerTag: o.OwnerTag, Status: StatusRejected, Reason: err, TS: ev.TS})
			return
		}
		if err := d.engine.Validate(o); err != nil {
			d.emitReport(ExecutionReport{OrderID: o.ID, OwnerTag: o.OwnerTag, Status: StatusRejected, Reason: err, TS: ev.TS})
			return
		}
		d.stopOrders[o.ID] = o
		d.emitReport(ExecutionReport{OrderID: o.ID, OwnerTag: o.OwnerTag, Status: StatusAccepted, RemainingQty: o.RemainingQty, TS: ev.TS})
		return
	}
	if o.Type == book.TypeIceberg {
		d.submitIceberg(o, ev.TS, 0, ev.decisionMidTicks, ev.hasDecisionMid)
		return
	}

	arrivalMid, hasArrival := d.engine.Book.Mid()
	res, err := d.engine.Match(o)
	if err != nil {
		d.emitReport(ExecutionReport{OrderID: o.ID, OwnerTag: o.OwnerTag, Status: StatusRejected, Reason: err, TS: ev.TS})
		return
	}
	d.afterMatch(o, res, ev.TS, 0, fillPricing{ev.decisionMidTicks, ev.hasDecisionMid, float64(arrivalMid), hasArrival})
}

// submitIceberg sweeps o aggressively against the book at its full
// quantity (an iceberg order's hidden size is never withheld from an
// immediate cross — only from what rests), then rests at most DisplayQty
// of whatever remains, holding the rest in d.iceberg as a hidden reserve.
func (d *Dispatcher) submitIceberg(o *book.Order, ts int64, cascadeDepth int, decisionMid float64, hasDecisionMid bool) {
	if err := d.checkDuplicateID(o.ID); err != nil {
		d.emitReport(ExecutionReport{OrderID: o.ID, OwnerTag: o.OwnerTag, Status: StatusRejected, Reason: err, TS: ts})
		return
	}

	arrivalMid, hasArrival := d.engine.Book.Mid()
	state := &icebergState{template: *o}
	res, err := d.engine.SweepOnly(o)
	if err != nil {
		d.emitReport(ExecutionReport{OrderID: o.ID, OwnerTag: o.OwnerTag, Status: StatusRejected, Reason: err, TS: ts})
		return
	}

	display := o.DisplayQty
	if display <= 0 {
		display = o.OriginalQty
	}

	if o.RemainingQty > 0 {
		sliceQty := o.RemainingQty
		if sliceQty > display {
			sliceQty = display
		}
		state.hiddenRemaining = o.RemainingQty - sliceQty

		slice := *o
		slice.RemainingQty = sliceQty
		if err := d.engine.Book.InsertResting(&slice); err != nil {
			d.logger.Warn("iceberg slice failed to rest after passing its own precheck",
				zap.String("order_id", o.ID), zap.Error(err))
			res.UnfilledQty += o.RemainingQty
			o.RemainingQty = 0
		} else {
			res.Rested = true
			if state.hiddenRemaining > 0 {
				d.iceberg[o.ID] = state
			}
		}
	}

	d.afterMatch(o, res, ts, cascadeDepth, fillPricing{decisionMid, hasDecisionMid, float64(arrivalMid), hasArrival})
}

func (d *Dispatcher) processCancel(ev *Event) {
	id := ev.CancelOrderID
	if _, ok := d.stopOrders[id]; ok {
		delete(d.stopOrders, id)
		d.emitReport(ExecutionReport{OrderID: id, Status: StatusCancelled, TS: ev.TS})
		return
	}
	delete(d.iceberg, id)
	cancelled, err := d.engine.Book.Cancel(id)
	if err != nil {
		d.emitReport(ExecutionReport{OrderID: id, Status: StatusRejected, Reason: err, TS: ev.TS})
		return
	}
	d.emitReport(ExecutionReport{OrderID: id, OwnerTag: cancelled.OwnerTag, Status: StatusCancelled, RemainingQty: cancelled.RemainingQty, TS: ev.TS})
}

// processModify implements the MODIFY split: a pure quantity decrease goes
// through book.Engine.Modify in place; a price change or a
// quantity increase re-enters the matching pipeline as a cancel followed
// by a fresh submission at the dispatcher's current logical timestamp,
// since only the dispatcher knows what "now" is.
func (d *Dispatcher) processModify(ev *Event) {
	id := ev.ModifyOrderID
	existing, ok := d.engine.Book.Get(id)
	if !ok {
		d.emitReport(ExecutionReport{OrderID: id, Status: StatusRejected, Reason: book.ErrUnknownOrderID, TS: ev.TS})
		return
	}

	if !ev.PriceChanged && ev.NewQty <= existing.RemainingQty {
		if err := d.engine.Modify(id, ev.NewQty); err != nil {
			d.emitReport(ExecutionReport{OrderID: id, OwnerTag: existing.OwnerTag, Status: StatusRejected, Reason: err, TS: ev.TS})
			return
		}
		d.emitReport(ExecutionReport{OrderID: id, OwnerTag: existing.OwnerTag, Status: StatusModified, RemainingQty: ev.NewQty, TS: ev.TS})
		return
	}

	resubmit := *existing
	if _, err := d.engine.Book.Cancel(id); err != nil {
		d.emitReport(ExecutionReport{OrderID: id, OwnerTag: existing.OwnerTag, Status: StatusRejected, Reason: err, TS: ev.TS})
		return
	}
	resubmit.RemainingQty = ev.NewQty
	resubmit.OriginalQty = ev.NewQty
	if ev.PriceChanged {
		resubmit.Price = ev.NewPrice
	}
	resubmit.SubmitTS = ev.TS
	d.seq++
	resubmit.ArrivalSeq = d.seq

	arrivalMid, hasArrival := d.engine.Book.Mid()
	res, err := d.engine.Match(&resubmit)
	if err != nil {
		d.emitReport(ExecutionReport{OrderID: id, OwnerTag: existing.OwnerTag, Status: StatusRejected, Reason: err, TS: ev.TS})
		return
	}
	d.afterMatch(&resubmit, res, ev.TS, 0, fillPricing{ev.decisionMidTicks, ev.hasDecisionMid, float64(arrivalMid), hasArrival})
}

func (d *Dispatcher) processStopTrigger(ev *Event) {
	o := ev.Order
	if o.Type == book.TypeStop {
		o.Type = book.TypeMarket
	} else {
		o.Type = book.TypeLimit
	}
	arrivalMid, hasArrival := d.engine.Book.Mid()
	res, err := d.engine.Match(o)
	if err != nil {
		d.emitReport(ExecutionReport{OrderID: o.ID, OwnerTag: o.OwnerTag, Status: StatusRejected, Reason: err, TS: ev.TS})
		return
	}
	d.afterMatch(o, res, ev.TS, ev.cascadeDepth, fillPricing{ev.decisionMidTicks, ev.hasDecisionMid, float64(arrivalMid), hasArrival})
}

func (d *Dispatcher) processIcebergRefresh(ev *Event) {
	state, ok := d.iceberg[ev.CancelOrderID]
	if !ok {
		return
	}
	delete(d.iceberg, ev.CancelOrderID)

	next := state.template
	next.SubmitTS = ev.TS
	next.RemainingQty = state.hiddenRemaining
	next.OriginalQty = state.hiddenRemaining
	d.seq++
	next.ArrivalSeq = d.seq
	d.submitIceberg(&next, ev.TS, 0, ev.decisionMidTicks, ev.hasDecisionMid)
}

// afterMatch emits execution reports for the taker, every maker order this
// match fully consumed, and every order self-trade-cancelled alongside it;
// appends trades to the tape; folds each trade's slippage/impact cost into
// CostLedger; checks whether any stop order now triggers; and schedules
// iceberg refreshes for any maker iceberg slice this match depleted.
func (d *Dispatcher) afterMatch(taker *book.Order, res book.MatchResult, ts int64, cascadeDepth int, fp fillPricing) {
	status := StatusRejected
	switch {
	case res.TakerCancelledBySelfTrade:
		status = StatusCancelled
	case taker.RemainingQty == 0 && len(res.Trades) > 0:
		status = StatusFilled
	case len(res.Trades) > 0 && taker.RemainingQty > 0:
		status = StatusPartiallyFilled
	case res.Rested:
		status = StatusResting
	case len(res.Trades) > 0:
		status = StatusFilled
	default:
		status = StatusAccepted
	}

	var filled int64
	var takerNotional float64
	for _, tr := range res.Trades {
		filled += tr.Qty
		takerNotional += float64(tr.PriceTicks) * float64(tr.Qty)
	}
	var takerAvgPrice float64
	if filled > 0 {
		takerAvgPrice = takerNotional / float64(filled)
	}

	d.emitReport(ExecutionReport{
		OrderID:           taker.ID,
		OwnerTag:          taker.OwnerTag,
		Status:            status,
		FilledQty:         filled,
		RemainingQty:      taker.RemainingQty,
		AvgFillPriceTicks: takerAvgPrice,
		TS:                ts,
	})

	for _, c := range res.SelfTradeCancelled {
		d.emitReport(ExecutionReport{OrderID: c.ID, OwnerTag: c.OwnerTag, Status: StatusCancelled, TS: ts})
	}

	type makerFill struct {
		ownerTag string
		qty      int64
		notional float64
	}
	makerFills := make(map[string]makerFill, len(res.Trades))

	for _, tr := range res.Trades {
		mf := makerFills[tr.MakerOrderID]
		mf.ownerTag = tr.MakerOwnerTag
		mf.qty += tr.Qty
		mf.notional += float64(tr.PriceTicks) * float64(tr.Qty)
		makerFills[tr.MakerOrderID] = mf

		d.Tape.Append(ts, tr.PriceTicks, tr.Qty, tr.TakerOrderID, tr.MakerOrderID, tr.TakerOwnerTag, tr.MakerOwnerTag, tr.TakerSide)
		d.checkStopTriggers(tr.PriceTicks, ts, cascadeDepth)

		decisionPrice, arrivalPrice := fp.resolve(float64(tr.PriceTicks))
		side := int8(1)
		if tr.TakerSide == book.SideSell {
			side = -1
		}
		cost := impact.Decompose(d.opts.ImpactParams, impact.Inputs{
			DecisionPriceTicks: decisionPrice,
			ArrivalPriceTicks:  arrivalPrice,
			FillPriceTicks:     float64(tr.PriceTicks),
			Qty:                tr.Qty,
			Side:               side,
		})
		d.CostLedger.Record(tr.TakerOwnerTag, cost)
	}

	// A maker fully consumed by this match reaches a terminal state exactly
	// like the taker does, and every other terminal transition in this
	// package emits its own report — a resting counterparty otherwise has
	// no way to learn its order was filled.
	for _, id := range res.FullyFilled {
		mf, ok := makerFills[id]
		if !ok || mf.qty == 0 {
			continue
		}
		d.emitReport(ExecutionReport{
			OrderID:           id,
			OwnerTag:          mf.ownerTag,
			Status:            StatusFilled,
			FilledQty:         mf.qty,
			AvgFillPriceTicks: mf.notional / float64(mf.qty),
			TS:                ts,
		})
	}

	for _, id := range res.IcebergDepleted {
		state, ok := d.iceberg[id]
		if !ok || state.hiddenRemaining <= 0 {
			delete(d.iceberg, id)
			continue
		}
		d.scheduleIcebergRefresh(id, ts)
	}

	d.publishSnapshot(ts, res.Trades)
}

// checkStopTriggers scans resting stop orders against the last trade price
// and schedules a KindStopTrigger event for each one that now crosses its
// StopPrice, stopping the cascade once depth reaches
// opts.MaxStopCascadeDepth so a trigger chain cannot feed back into itself
// indefinitely.
func (d *Dispatcher) checkStopTriggers(lastPrice int64, ts int64, depth int) {
	if depth >= d.opts.MaxStopCascadeDepth {
		if len(d.stopOrders) > 0 {
			d.logger.Warn("stop cascade depth limit reached; remaining stop orders left untriggered this event",
				zap.Int("depth", depth))
		}
		return
	}

	var triggered []*book.Order
	for _, o := range d.stopOrders {
		if o.Side == book.SideBuy && lastPrice >= o.StopPrice {
			triggered = append(triggered, o)
		} else if o.Side == book.SideSell && lastPrice <= o.StopPrice {
			triggered = append(triggered, o)
		}
	}
	for _, o := range triggered {
		delete(d.stopOrders, o.ID)
		d.Submit(&Event{Kind: KindStopTrigger, TS: ts, Order: o, cascadeDepth: depth + 1})
	}
}

func (d *Dispatcher) scheduleIcebergRefresh(orderID string, ts int64) {
	d.Submit(&Event{Kind: KindIcebergRefresh, TS: ts + d.opts.IcebergRefreshDelay, CancelOrderID: orderID})
}

func (d *Dispatcher) publishSnapshot(ts int64, trades []book.Trade) {
	b := d.engine.Book
	snap := publisher.Snapshot{TS: ts}

	if bid, ok := b.BestBid(); ok {
		snap.BestBid, snap.HasBestBid = bid, true
	}
	if ask, ok := b.BestAsk(); ok {
		snap.BestAsk, snap.HasBestAsk = ask, true
	}
	if spread, ok := b.Spread(); ok {
		if mid, ok2 := b.Mid(); ok2 {
			snap.Spread, snap.Mid, snap.HasSpreadMid = spread, mid, true
		}
	}
	bidLevels, askLevels := b.Depth(10)
	snap.BidDepth = toDepthLevels(bidLevels)
	snap.AskDepth = toDepthLevels(askLevels)

	if len(trades) > 0 {
		last := trades[len(trades)-1]
		rec := publisher.TradeRecord{TS: ts, PriceTicks: last.PriceTicks, Qty: last.Qty, TakerOrderID: last.TakerOrderID, MakerOrderID: last.MakerOrderID, AggressorSide: last.TakerSide}
		snap.LastTrade = &rec
	}

	d.Snapshots.Publish(snap)
}

func toDepthLevels(levels []book.Level) []publisher.DepthLevel {
	out := make([]publisher.DepthLevel, len(levels))
	for i, l := range levels {
		out[i] = publisher.DepthLevel{PriceTicks: l.PriceTicks, Qty: l.Qty}
	}
	return out
}
