package book

import "sort"

// priceSide holds one side of the book (bids or asks) as a sorted slice of
// price ticks plus the level at each price. Bids are kept descending
// (best bid first); asks ascending (best ask first).
type priceSide struct {
	side   Side
	prices []int64
	levels map[int64]*PriceLevel
}

func newPriceSide(side Side) *priceSide {
	return &priceSide{
		side:   side,
		levels: make(map[int64]*PriceLevel),
	}
}

func (s *priceSide) better(a, b int64) bool {
	if s.side == SideBuy {
		return a > b
	}
	return a < b
}

// levelAt returns the level at price, creating it (and splicing it into the
// sorted price slice) if it does not already exist.
func (s *priceSide) levelAt(price int64) *PriceLevel {
	if lvl, ok := s.levels[price]; ok {
		return lvl
	}
	lvl := newPriceLevel(price)
	s.levels[price] = lvl

	i := sort.Search(len(s.prices), func(i int) bool {
		return s.better(price, s.prices[i]) || s.prices[i] == price
	})
	s.prices = append(s.prices, 0)
	copy(s.prices[i+1:], s.prices[i:])
	s.prices[i] = price
	return lvl
}

// dropIfEmpty removes price from the side entirely once its level has no
// resting orders left, keeping best()/depth() from walking dead levels.
func (s *priceSide) dropIfEmpty(price int64) {
	lvl, ok := s.levels[price]
	if !ok || !lvl.IsEmpty() {
		return
	}
	delete(s.levels, price)
	for i, p := range s.prices {
		if p == price {
			s.prices = append(s.prices[:i], s.prices[i+1:]...)
			break
		}
	}
}

// best returns the best (first) price on this side and whether one exists.
func (s *priceSide) best() (int64, bool) {
	if len(s.prices) == 0 {
		return 0, false
	}
	return s.prices[0], true
}

// depth returns up to k price levels, best first, as read-only Level values.
func (s *priceSide) depth(k int) []Level {
	n := k
	if n > len(s.prices) || n < 0 {
		n = len(s.prices)
	}
	out := make([]Level, 0, n)
	for i := 0; i < n; i++ {
		p := s.prices[i]
		out = append(out, Level{PriceTicks: p, Qty: s.levels[p].Aggregate()})
	}
	return out
}
