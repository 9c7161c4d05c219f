package book

import "errors"

// Error taxonomy. Every validation failure is one of these sentinels; they
// are reported as an execution-report reason, never as a silent drop, and
// they never mutate book state.
var (
	ErrDuplicateOrderID         = errors.New("duplicate order id")
	ErrUnknownOrderID           = errors.New("unknown order id")
	ErrNonPositiveQuantity      = errors.New("quantity must be positive")
	ErrNegativePrice            = errors.New("price must be non-negative")
	ErrPriceNotTickAligned      = errors.New("price is not aligned to tick size")
	ErrTimestampRegression      = errors.New("event timestamp precedes current logical time")
	ErrPostOnlyWouldCross       = errors.New("post-only order would cross the book")
	ErrFOKInsufficientLiquidity = errors.New("fill-or-kill order has insufficient crossable liquidity")
	ErrMarketOrdersDisabled     = errors.New("market orders are disabled for this book")
	ErrSelfTradePrevented       = errors.New("self-trade prevented")
)
