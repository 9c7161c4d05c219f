package book

import "testing"

const tickSize = 1

func newTestEngine(policy SelfTradePolicy) *Engine {
	return NewEngine(NewBook(tickSize), policy, true)
}

func limitOrder(id, owner string, side Side, qty, price int64) *Order {
	return &Order{ID: id, OwnerTag: owner, Side: side, Type: TypeLimit, TimeInForce: TIFGTC, OriginalQty: qty, RemainingQty: qty, Price: price}
}

func TestRestingLimitOrder(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	res, err := e.Match(limitOrder("o1", "alice", SideBuy, 10, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Rested {
		t.Fatal("expected order to rest")
	}
	if len(res.Trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(res.Trades))
	}

	bid, ok := e.Book.BestBid()
	if !ok || bid != 100 {
		t.Fatalf("expected best bid 100, got %d ok=%v", bid, ok)
	}
	o, ok := e.Book.Get("o1")
	if !ok || o.RemainingQty != 10 {
		t.Fatalf("Get: unexpected order state: %+v ok=%v", o, ok)
	}
}

func TestPriceTimePriority(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 5, 100))
	mustMatch(t, e, limitOrder("o2", "bob", SideBuy, 5, 100))

	res := mustMatch(t, e, limitOrder("o3", "carol", SideSell, 5, 90))

	if len(res.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(res.Trades))
	}
	if res.Trades[0].MakerOrderID != "o1" {
		t.Errorf("expected o1 (first at price) to fill first, got %s", res.Trades[0].MakerOrderID)
	}
	if res.Trades[0].PriceTicks != 100 {
		t.Errorf("expected trade at maker price 100, got %d", res.Trades[0].PriceTicks)
	}

	if _, ok := e.Book.Get("o1"); ok {
		t.Error("o1 should have been removed after full fill")
	}
	o2, ok := e.Book.Get("o2")
	if !ok || o2.RemainingQty != 5 {
		t.Fatalf("o2 should still be resting with qty 5, got %+v ok=%v", o2, ok)
	}
}

func TestPartialFillRestsResidual(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 10, 100))

	res := mustMatch(t, e, limitOrder("o2", "bob", SideBuy, 4, 100))
	if len(res.Trades) != 1 || res.Trades[0].Qty != 4 {
		t.Fatalf("unexpected trades: %+v", res.Trades)
	}
	o1, ok := e.Book.Get("o1")
	if !ok || o1.RemainingQty != 6 {
		t.Fatalf("expected o1 remaining 6, got %+v ok=%v", o1, ok)
	}
}

func TestIOCDropsResidual(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 3, 100))

	taker := limitOrder("o2", "bob", SideBuy, 10, 100)
	taker.TimeInForce = TIFIOC
	res, err := e.Match(taker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rested {
		t.Fatal("IOC residual must not rest")
	}
	if res.UnfilledQty != 7 {
		t.Fatalf("expected unfilled 7, got %d", res.UnfilledQty)
	}
	if _, ok := e.Book.Get("o2"); ok {
		t.Fatal("IOC order must not be findable in the book")
	}
}

func TestFOKRejectsWhenInsufficientLiquidity(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 3, 100))

	taker := limitOrder("o2", "bob", SideBuy, 10, 100)
	taker.TimeInForce = TIFFOK
	_, err := e.Match(taker)
	if err != ErrFOKInsufficientLiquidity {
		t.Fatalf("expected ErrFOKInsufficientLiquidity, got %v", err)
	}
	// Book must be untouched: o1's full quantity still rests.
	o1, ok := e.Book.Get("o1")
	if !ok || o1.RemainingQty != 3 {
		t.Fatalf("FOK precheck must not mutate book, got %+v ok=%v", o1, ok)
	}
}

func TestFOKFillsCompletelyWhenLiquiditySuffices(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 10, 100))

	taker := limitOrder("o2", "bob", SideBuy, 6, 100)
	taker.TimeInForce = TIFFOK
	res, err := e.Match(taker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UnfilledQty != 0 || res.Rested {
		t.Fatalf("expected complete fill, got %+v", res)
	}
}

func TestDuplicateOrderIDRejectedBookUntouched(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 5, 100))

	_, err := e.Match(limitOrder("o1", "bob", SideSell, 5, 100))
	if err != ErrDuplicateOrderID {
		t.Fatalf("expected ErrDuplicateOrderID, got %v", err)
	}
	// The resubmit must never have walked the book: o1 still rests
	// untouched, and no trade was recorded against it.
	o1, ok := e.Book.Get("o1")
	if !ok || o1.RemainingQty != 5 || o1.OwnerTag != "alice" {
		t.Fatalf("book must be untouched by a rejected duplicate id, got %+v ok=%v", o1, ok)
	}
}

func TestFOKExcludesSelfOwnedLiquidityFromPrecheck(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	// alice rests all the sell-side liquidity herself.
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 10, 100))

	taker := limitOrder("o2", "alice", SideBuy, 10, 100)
	taker.TimeInForce = TIFFOK
	_, err := e.Match(taker)
	// None of the resting quantity is crossable for a FOK precheck since
	// it all belongs to the taker and would be cancelled, not filled.
	if err != ErrFOKInsufficientLiquidity {
		t.Fatalf("expected ErrFOKInsufficientLiquidity, got %v", err)
	}
	o1, ok := e.Book.Get("o1")
	if !ok || o1.RemainingQty != 10 {
		t.Fatalf("FOK precheck must not mutate book, got %+v ok=%v", o1, ok)
	}
}

func TestSweepOnlyRejectsDuplicateIDWithoutSweeping(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("x", "alice", SideSell, 5, 100))

	_, err := e.SweepOnly(limitOrder("x", "bob", SideBuy, 5, 100))
	if err != ErrDuplicateOrderID {
		t.Fatalf("expected ErrDuplicateOrderID, got %v", err)
	}
	x, ok := e.Book.Get("x")
	if !ok || x.RemainingQty != 5 || x.OwnerTag != "alice" {
		t.Fatalf("SweepOnly must not touch the book on a rejected precheck, got %+v ok=%v", x, ok)
	}
}

func TestSweepOnlyRejectsSelfTradeUnderRejectTaker(t *testing.T) {
	e := newTestEngine(STPRejectTaker)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 100))

	_, err := e.SweepOnly(limitOrder("o2", "alice", SideBuy, 5, 100))
	if err != ErrSelfTradePrevented {
		t.Fatalf("expected ErrSelfTradePrevented, got %v", err)
	}
	o1, ok := e.Book.Get("o1")
	if !ok || o1.RemainingQty != 5 {
		t.Fatalf("SweepOnly must not mutate the book on a rejected precheck, got %+v ok=%v", o1, ok)
	}
}

func TestSweepOnlySweepsWhenValid(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 100))

	taker := limitOrder("o2", "bob", SideBuy, 5, 100)
	res, err := e.SweepOnly(taker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Trades) != 1 || taker.RemainingQty != 0 {
		t.Fatalf("expected a full sweep, got %+v remaining=%d", res, taker.RemainingQty)
	}
	if res.Rested {
		t.Fatal("SweepOnly must never rest the residual itself")
	}
}

func TestPostOnlyRejectsWhenCrossing(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 100))

	taker := limitOrder("o2", "bob", SideBuy, 5, 100)
	taker.TimeInForce = TIFPostOnly
	_, err := e.Match(taker)
	if err != ErrPostOnlyWouldCross {
		t.Fatalf("expected ErrPostOnlyWouldCross, got %v", err)
	}
	if _, ok := e.Book.Get("o2"); ok {
		t.Fatal("rejected POST_ONLY order must not rest")
	}
}

func TestPostOnlyRestsWhenNotCrossing(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 105))

	taker := limitOrder("o2", "bob", SideBuy, 5, 100)
	taker.TimeInForce = TIFPostOnly
	res, err := e.Match(taker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Rested {
		t.Fatal("expected non-crossing POST_ONLY order to rest")
	}
}

func TestMarketOrderSweepsAndNeverRests(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 100))
	mustMatch(t, e, limitOrder("o2", "alice2", SideSell, 5, 101))

	taker := &Order{ID: "o3", OwnerTag: "bob", Side: SideBuy, Type: TypeMarket, TimeInForce: TIFIOC, OriginalQty: 8, RemainingQty: 8}
	res, err := e.Match(taker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("expected 2 trades sweeping both levels, got %d", len(res.Trades))
	}
	if res.Trades[0].PriceTicks != 100 || res.Trades[1].PriceTicks != 101 {
		t.Fatalf("expected best-price-first sweep, got %+v", res.Trades)
	}
	if res.Rested {
		t.Fatal("market orders must never rest")
	}
}

func TestMarketOrdersDisabled(t *testing.T) {
	e := NewEngine(NewBook(tickSize), STPCancelOldest, false)
	_, err := e.Match(&Order{ID: "o1", OwnerTag: "a", Side: SideBuy, Type: TypeMarket, TimeInForce: TIFIOC, OriginalQty: 1, RemainingQty: 1})
	if err != ErrMarketOrdersDisabled {
		t.Fatalf("expected ErrMarketOrdersDisabled, got %v", err)
	}
}

func TestSelfTradeCancelOldest(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 100))
	mustMatch(t, e, limitOrder("o2", "bob", SideSell, 5, 100))

	res := mustMatch(t, e, limitOrder("o3", "alice", SideBuy, 5, 100))
	if len(res.SelfTradeCancelled) != 1 || res.SelfTradeCancelled[0].ID != "o1" {
		t.Fatalf("expected o1 cancelled as self-trade, got %+v", res.SelfTradeCancelled)
	}
	if len(res.Trades) != 1 || res.Trades[0].MakerOrderID != "o2" {
		t.Fatalf("expected fill against o2 after skipping o1, got %+v", res.Trades)
	}
}

func TestSelfTradeCancelNewest(t *testing.T) {
	e := newTestEngine(STPCancelNewest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 100))

	res := mustMatch(t, e, limitOrder("o2", "alice", SideBuy, 5, 100))
	if !res.TakerCancelledBySelfTrade {
		t.Fatal("expected taker to be cancelled on self-trade")
	}
	if len(res.Trades) != 0 {
		t.Fatalf("expected no trades, got %+v", res.Trades)
	}
	if res.UnfilledQty != 5 {
		t.Fatalf("expected unfilled qty 5, got %d", res.UnfilledQty)
	}
}

func TestSelfTradeRejectTaker(t *testing.T) {
	e := newTestEngine(STPRejectTaker)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 100))

	_, err := e.Match(limitOrder("o2", "alice", SideBuy, 5, 100))
	if err != ErrSelfTradePrevented {
		t.Fatalf("expected ErrSelfTradePrevented, got %v", err)
	}
	o1, ok := e.Book.Get("o1")
	if !ok || o1.RemainingQty != 5 {
		t.Fatalf("REJECT_TAKER precheck must not mutate the book, got %+v ok=%v", o1, ok)
	}
}

func TestIcebergDepletionReported(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	resting := limitOrder("o1", "alice", SideSell, 5, 100)
	resting.Type = TypeIceberg
	resting.DisplayQty = 5
	mustMatch(t, e, resting)

	res := mustMatch(t, e, limitOrder("o2", "bob", SideBuy, 5, 100))
	if len(res.IcebergDepleted) != 1 || res.IcebergDepleted[0] != "o1" {
		t.Fatalf("expected iceberg depletion reported for o1, got %+v", res.IcebergDepleted)
	}
}

func TestCancel(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 10, 100))

	cancelled, err := e.Book.Cancel("o1")
	if err != nil || cancelled.ID != "o1" {
		t.Fatalf("unexpected cancel result: %+v err=%v", cancelled, err)
	}
	if _, ok := e.Book.BestBid(); ok {
		t.Fatal("expected empty book after cancelling the only resting order")
	}
	if _, err := e.Book.Cancel("o1"); err != ErrUnknownOrderID {
		t.Fatalf("expected ErrUnknownOrderID on double cancel, got %v", err)
	}
}

func TestModifyDecreasePreservesPriority(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 10, 100))
	mustMatch(t, e, limitOrder("o2", "bob", SideBuy, 10, 100))

	if err := e.Modify("o1", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := mustMatch(t, e, limitOrder("o3", "carol", SideSell, 4, 100))
	if len(res.Trades) != 1 || res.Trades[0].MakerOrderID != "o1" || res.Trades[0].Qty != 4 {
		t.Fatalf("o1 should still have priority after decrease, got %+v", res.Trades)
	}
}

func TestVWAPSweep(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 5, 100))
	mustMatch(t, e, limitOrder("o2", "bob", SideBuy, 5, 98))

	// a sell sweeps bids best-first (highest price first).
	vwap, ok := e.Book.VWAP(SideSell, 10)
	if !ok {
		t.Fatal("expected sufficient liquidity for VWAP")
	}
	// (5*100 + 5*98) / 10 = 99
	if vwap != 99 {
		t.Fatalf("expected vwap 99, got %d", vwap)
	}

	if _, ok := e.Book.VWAP(SideSell, 11); ok {
		t.Fatal("expected insufficient liquidity for qty beyond resting depth")
	}
}

func TestVWAPSweepBuySide(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideSell, 5, 100))
	mustMatch(t, e, limitOrder("o2", "bob", SideSell, 5, 102))

	// a buy sweeps asks best-first (lowest price first).
	vwap, ok := e.Book.VWAP(SideBuy, 10)
	if !ok {
		t.Fatal("expected sufficient liquidity for VWAP")
	}
	// (5*100 + 5*102) / 10 = 101
	if vwap != 101 {
		t.Fatalf("expected vwap 101, got %d", vwap)
	}
}

func mustMatch(t *testing.T, e *Engine, o *Order) MatchResult {
	t.Helper()
	res, err := e.Match(o)
	if err != nil {
		t.Fatalf("unexpected error matching %s: %v", o.ID, err)
	}
	return res
}
