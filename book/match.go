package book

import "fmt"

// Trade is one execution resulting from a Match call. PriceTicks is always
// the resting (maker) order's price — the aggressor never receives price
// improvement beyond what the maker already quoted.
type Trade struct {
	TakerOrderID  string
	MakerOrderID  string
	TakerOwnerTag string
	MakerOwnerTag string
	TakerSide     Side
	PriceTicks    int64
	Qty           int64
}

// CancelledOrder identifies a resting order removed from the book by
// self-trade prevention, carrying enough identity for a caller to emit its
// own cancellation report without a second book lookup.
type CancelledOrder struct {
	ID       string
	OwnerTag string
}

// MatchResult reports everything that happened to the book as a side effect
// of one Match call. The engine never mutates the book and returns a
// non-nil error simultaneously — on error the book is exactly as it was
// before the call.
type MatchResult struct {
	Trades []Trade

	// Rested is true if the incoming order (or its residual) now sits in
	// the book.
	Rested bool

	// FullyFilled lists resting order IDs consumed to zero by this match.
	FullyFilled []string

	// IcebergDepleted lists resting ICEBERG order IDs whose displayed slice
	// hit zero this match. The dispatcher owns the hidden reserve and
	// decides whether to schedule an ICEBERG_REFRESH for each.
	IcebergDepleted []string

	// SelfTradeCancelled lists resting orders removed from the book by
	// self-trade prevention (STPCancelOldest / STPCancelNewest) rather than
	// by a normal fill.
	SelfTradeCancelled []CancelledOrder

	// TakerCancelledBySelfTrade is true when STPCancelNewest stopped the
	// sweep because the incoming order would have crossed its own resting
	// order; any trades executed before that point still stand.
	TakerCancelledBySelfTrade bool

	// UnfilledQty is quantity that could not be filled and was not rested
	// (IOC/FOK/MARKET residuals).
	UnfilledQty int64
}

// Engine is the matching engine for one Book: price-time priority crossing,
// self-trade prevention, and time-in-force residual handling.
// Iceberg slice sizing and hidden-reserve bookkeeping are not Engine's
// concern — the dispatcher hands Engine an Order already sized to its
// currently displayed quantity.
type Engine struct {
	Book              *Book
	SelfTradePolicy   SelfTradePolicy
	AllowMarketOrders bool
}

// NewEngine wraps book with a matching engine configured per policy.
func NewEngine(b *Book, policy SelfTradePolicy, allowMarketOrders bool) *Engine {
	return &Engine{Book: b, SelfTradePolicy: policy, AllowMarketOrders: allowMarketOrders}
}

// Validate runs every order-shape precondition Match checks before any
// crossing or self-trade logic runs: duplicate id against the book,
// quantity, price/stop-price sign, tick alignment, and whether market
// orders are allowed. It never mutates anything. Callers that must accept
// or sweep an order outside Match's own call path — a STOP/STOP_LIMIT
// order at submission, before it has anything to cross yet, or an ICEBERG
// order's initial SweepOnly — run this first so a malformed order is
// rejected before it ever touches book state, instead of only failing
// deep inside a later mutation with no precondition guard in front of it.
func (e *Engine) Validate(order *Order) error {
	if _, exists := e.Book.Get(order.ID); exists {
		return ErrDuplicateOrderID
	}
	if order.RemainingQty <= 0 {
		return ErrNonPositiveQuantity
	}
	if order.Price < 0 || order.StopPrice < 0 {
		return ErrNegativePrice
	}
	if order.Type != TypeMarket && order.Price%e.Book.TickSize != 0 {
		return ErrPriceNotTickAligned
	}
	if order.Type == TypeMarket && !e.AllowMarketOrders {
		return ErrMarketOrdersDisabled
	}
	return nil
}

// Match validates and executes order against the book. order is mutated in
// place (RemainingQty decreases as fills occur); callers that need the
// pre-match quantity should read it before calling.
func (e *Engine) Match(order *Order) (MatchResult, error) {
	if err := e.Validate(order); err != nil {
		return MatchResult{}, err
	}

	if order.TimeInForce == TIFPostOnly {
		if crosses, _ := e.wouldCross(order); crosses {
			return MatchResult{}, ErrPostOnlyWouldCross
		}
	}

	if e.SelfTradePolicy == STPRejectTaker {
		if selfCrosses := e.selfTradeOnSweep(order); selfCrosses {
			return MatchResult{}, ErrSelfTradePrevented
		}
	}

	if order.TimeInForce == TIFFOK {
		crossable := e.crossableQty(order)
		if crossable < order.RemainingQty {
			return MatchResult{}, ErrFOKInsufficientLiquidity
		}
	}

	return e.execute(order), nil
}

// contraSide returns the side order would cross against.
func (e *Engine) contraSide(order *Order) *priceSide {
	if order.Side == SideBuy {
		return e.Book.asks
	}
	return e.Book.bids
}

// crosses reports whether order's limit crosses restingPrice on the contra
// side. Market orders cross any price.
func (e *Engine) crosses(order *Order, restingPrice int64) bool {
	if order.Type == TypeMarket {
		return true
	}
	if order.Side == SideBuy {
		return order.Price >= restingPrice
	}
	return order.Price <= restingPrice
}

// wouldCross reports whether order would immediately cross the book at all,
// without mutating anything — used for the POST_ONLY precheck.
func (e *Engine) wouldCross(order *Order) (bool, int64) {
	contra := e.contraSide(order)
	price, ok := contra.best()
	if !ok {
		return false, 0
	}
	return e.crosses(order, price), price
}

// crossableQty computes, without mutating the book, how much of order could
// actually be filled right now — used for the FOK precheck, which must
// evaluate crossable quantity before committing any fills. Quantity resting
// under order's own OwnerTag is excluded: self-trade prevention removes or
// stops against that quantity rather than filling it, so counting it here
// would let a FOK precheck pass on liquidity the sweep can never actually
// cross into a fill.
func (e *Engine) crossableQty(order *Order) int64 {
	contra := e.contraSide(order)
	var available int64
	need := order.RemainingQty
	for _, p := range contra.prices {
		if available >= need {
			break
		}
		if !e.crosses(order, p) {
			break
		}
		lvl := contra.levels[p]
		for _, id := range lvl.OrderIDs() {
			resting, _ := lvl.Get(id)
			if resting.OwnerTag == order.OwnerTag {
				continue
			}
			available += resting.RemainingQty
		}
	}
	if available > need {
		return need
	}
	return available
}

// selfTradeOnSweep reports whether any resting order within order's
// crossable price range shares its OwnerTag — used for the REJECT_TAKER
// precheck, which must reject the whole order before any mutation rather
// than stopping partway through a partially executed sweep.
func (e *Engine) selfTradeOnSweep(order *Order) bool {
	contra := e.contraSide(order)
	for _, p := range contra.prices {
		if !e.crosses(order, p) {
			break
		}
		for _, id := range contra.levels[p].OrderIDs() {
			resting, _ := contra.levels[p].Get(id)
			if resting.OwnerTag == order.OwnerTag {
				return true
			}
		}
	}
	return false
}

// SweepOnly validates order, then runs the crossing loop against the book
// and returns whatever quantity remains on order afterward, without resting
// it. The dispatcher uses this for ICEBERG orders, which must never rest
// their full quantity — only a display-sized slice, computed by the
// dispatcher from whatever SweepOnly leaves in order.RemainingQty. It runs
// the same Validate precheck Match does, plus the REJECT_TAKER self-trade
// precheck, so a bad or self-crossing iceberg order is rejected before any
// trade executes rather than after the book has already been mutated.
func (e *Engine) SweepOnly(order *Order) (MatchResult, error) {
	if err := e.Validate(order); err != nil {
		return MatchResult{}, err
	}
	if e.SelfTradePolicy == STPRejectTaker {
		if selfCrosses := e.selfTradeOnSweep(order); selfCrosses {
			return MatchResult{}, ErrSelfTradePrevented
		}
	}
	return e.sweep(order), nil
}

// execute performs the actual crossing loop and residual handling. By the
// time it is called, all non-mutating prechecks have already passed.
func (e *Engine) execute(order *Order) MatchResult {
	res := e.sweep(order)

	if order.RemainingQty > 0 {
		switch {
		case order.Type == TypeMarket:
			res.UnfilledQty += order.RemainingQty
			order.RemainingQty = 0
		case order.TimeInForce == TIFIOC, order.TimeInForce == TIFFOK:
			res.UnfilledQty += order.RemainingQty
			order.RemainingQty = 0
		default:
			if err := e.Book.InsertResting(order); err == nil {
				res.Rested = true
			}
		}
	}

	return res
}

// sweep runs the price-time-priority crossing loop against the contra side,
// mutating order and the book, and returns every fill/cancellation that
// happened. It never rests the residual — callers decide what to do with
// whatever order.RemainingQty is left.
func (e *Engine) sweep(order *Order) MatchResult {
	var res MatchResult
	contra := e.contraSide(order)

sweep:
	for order.RemainingQty > 0 {
		price, ok := contra.best()
		if !ok || !e.crosses(order, price) {
			break
		}
		lvl := contra.levels[price]

		for !lvl.IsEmpty() && order.RemainingQty > 0 {
			resting := lvl.PeekFront()

			if resting.OwnerTag == order.OwnerTag {
				switch e.SelfTradePolicy {
				case STPCancelOldest:
					cancelled, _ := lvl.Remove(resting.ID)
					delete(e.Book.idIndex, resting.ID)
					res.SelfTradeCancelled = append(res.SelfTradeCancelled, CancelledOrder{ID: cancelled.ID, OwnerTag: cancelled.OwnerTag})
					continue
				case STPCancelNewest:
					res.TakerCancelledBySelfTrade = true
					res.UnfilledQty += order.RemainingQty
					order.RemainingQty = 0
					contra.dropIfEmpty(price)
					break sweep
				default:
					// STPRejectTaker was already handled as a precheck; a
					// self-trade reaching here means the policy is unset
					// or mis-configured — fail closed like CancelNewest.
					res.TakerCancelledBySelfTrade = true
					res.UnfilledQty += order.RemainingQty
					order.RemainingQty = 0
					contra.dropIfEmpty(price)
					break sweep
				}
			}

			fillQty := order.RemainingQty
			if resting.RemainingQty < fillQty {
				fillQty = resting.RemainingQty
			}

			res.Trades = append(res.Trades, Trade{
				TakerOrderID:  order.ID,
				MakerOrderID:  resting.ID,
				TakerOwnerTag: order.OwnerTag,
				MakerOwnerTag: resting.OwnerTag,
				TakerSide:     order.Side,
				PriceTicks:    price,
				Qty:           fillQty,
			})
			order.RemainingQty -= fillQty

			_, removed := lvl.FillFront(fillQty)
			if removed {
				delete(e.Book.idIndex, resting.ID)
				res.FullyFilled = append(res.FullyFilled, resting.ID)
				if resting.Type == TypeIceberg {
					res.IcebergDepleted = append(res.IcebergDepleted, resting.ID)
				}
			}
		}
		contra.dropIfEmpty(price)
	}

	return res
}

// Modify applies MODIFY semantics at the Book level: a quantity decrease is
// applied in place via ReduceQuantity, preserving time priority.
// A price change or quantity increase is not something Book can do in
// place — it must go through Cancel followed by a fresh Match call so the
// new terms re-establish time priority at the back of the queue. Modify
// only implements the in-place decrease case; the dispatcher is responsible
// for detecting the other case and driving cancel+resubmit itself, since
// only it tracks the current logical timestamp a resubmission should carry.
func (e *Engine) Modify(orderID string, newQty int64) error {
	existing, ok := e.Book.Get(orderID)
	if !ok {
		return ErrUnknownOrderID
	}
	if newQty <= 0 {
		return ErrNonPositiveQuantity
	}
	if newQty > existing.RemainingQty {
		return fmt.Errorf("%w: modify increase must be cancel+resubmit", ErrNonPositiveQuantity)
	}
	if newQty == existing.RemainingQty {
		return nil
	}
	return e.Book.ReduceQuantity(orderID, existing.RemainingQty-newQty)
}
