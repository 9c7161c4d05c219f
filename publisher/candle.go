package publisher

// Candle is one OHLCV bar aggregated from the trade tape over a
// logical-time bucket.
type Candle struct {
	BucketStartTS int64
	Open          int64
	High          int64
	Low           int64
	Close         int64
	Volume        int64
}

// CandleAggregator buckets the trade tape into fixed-width logical-time
// candles and hands each closed bucket to onClose. It subscribes to a Tape
// like any other consumer — nothing about it is privileged.
type CandleAggregator struct {
	bucketWidth int64
	onClose     func(Candle)

	current   Candle
	hasData   bool
	bucketEnd int64
}

// NewCandleAggregator builds an aggregator with buckets of bucketWidth
// logical-time units, invoking onClose whenever a bucket closes (including
// via Flush). bucketWidth must be positive.
func NewCandleAggregator(bucketWidth int64, onClose func(Candle)) *CandleAggregator {
	return &CandleAggregator{bucketWidth: bucketWidth, onClose: onClose}
}

// OnTrade is the Tape subscriber callback: it closes and emits the current
// bucket once a trade's timestamp advances past it, then folds the trade
// into the (possibly new) current bucket.
func (c *CandleAggregator) OnTrade(rec TradeRecord) {
	bucketStart := (rec.TS / c.bucketWidth) * c.bucketWidth
	if c.hasData && bucketStart != c.current.BucketStartTS {
		c.emit()
	}
	if !c.hasData {
		c.current = Candle{BucketStartTS: bucketStart, Open: rec.PriceTicks, High: rec.PriceTicks, Low: rec.PriceTicks}
		c.hasData = true
	}
	if rec.PriceTicks > c.current.High {
		c.current.High = rec.PriceTicks
	}
	if rec.PriceTicks < c.current.Low {
		c.current.Low = rec.PriceTicks
	}
	c.current.Close = rec.PriceTicks
	c.current.Volume += rec.Qty
}

// Flush emits whatever bucket is currently open, for callers that want a
// final candle at the end of a run rather than waiting for the next trade
// to roll the bucket over.
func (c *CandleAggregator) Flush() {
	if c.hasData {
		c.emit()
	}
}

func (c *CandleAggregator) emit() {
	c.onClose(c.current)
	c.hasData = false
	c.current = Candle{}
}
