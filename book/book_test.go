package book

import "testing"

func TestValidationRejectsNonPositiveQuantity(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	_, err := e.Match(limitOrder("o1", "alice", SideBuy, 0, 100))
	if err != ErrNonPositiveQuantity {
		t.Fatalf("expected ErrNonPositiveQuantity, got %v", err)
	}
}

func TestValidationRejectsNegativePrice(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	_, err := e.Match(limitOrder("o1", "alice", SideBuy, 1, -5))
	if err != ErrNegativePrice {
		t.Fatalf("expected ErrNegativePrice, got %v", err)
	}
}

func TestValidationRejectsUnalignedTick(t *testing.T) {
	e := NewEngine(NewBook(5), STPCancelOldest, true)
	_, err := e.Match(limitOrder("o1", "alice", SideBuy, 1, 102))
	if err != ErrPriceNotTickAligned {
		t.Fatalf("expected ErrPriceNotTickAligned, got %v", err)
	}
}

func TestDuplicateOrderIDRejectedOnRest(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 10, 100))
	if err := e.Book.InsertResting(limitOrder("o1", "bob", SideBuy, 5, 99)); err != ErrDuplicateOrderID {
		t.Fatalf("expected ErrDuplicateOrderID, got %v", err)
	}
}

func TestDepthOrdering(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 5, 99))
	mustMatch(t, e, limitOrder("o2", "alice", SideBuy, 5, 101))
	mustMatch(t, e, limitOrder("o3", "alice", SideBuy, 5, 100))

	bids, _ := e.Book.Depth(10)
	if len(bids) != 3 {
		t.Fatalf("expected 3 bid levels, got %d", len(bids))
	}
	if bids[0].PriceTicks != 101 || bids[1].PriceTicks != 100 || bids[2].PriceTicks != 99 {
		t.Fatalf("expected descending bid levels, got %+v", bids)
	}
}

func TestSpreadAndMid(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 5, 98))
	mustMatch(t, e, limitOrder("o2", "bob", SideSell, 5, 102))

	spread, ok := e.Book.Spread()
	if !ok || spread != 4 {
		t.Fatalf("expected spread 4, got %d ok=%v", spread, ok)
	}
	mid, ok := e.Book.Mid()
	if !ok || mid != 100 {
		t.Fatalf("expected mid 100, got %d ok=%v", mid, ok)
	}
}

func TestReduceQuantityToZeroRemovesOrder(t *testing.T) {
	e := newTestEngine(STPCancelOldest)
	mustMatch(t, e, limitOrder("o1", "alice", SideBuy, 5, 100))

	if err := e.Book.ReduceQuantity("o1", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.Book.Get("o1"); ok {
		t.Fatal("expected order removed after reducing to zero")
	}
	if _, ok := e.Book.BestBid(); ok {
		t.Fatal("expected empty book after the level drained")
	}
}
