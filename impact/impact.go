// Package impact decomposes each trade's execution cost into spread,
// temporary-impact, permanent-impact, and latency components, and
// accumulates those components per owner across a run (the Cost Ledger).
package impact

import "math"

// Params are the Almgren-Chriss-style coefficients driving the temporary
// and permanent impact terms, plus the decay schedule for the temporary
// component.
type Params struct {
	// Eta scales temporary impact against participation rate (fill qty /
	// average daily volume).
	Eta float64
	// Gamma scales permanent impact against the same participation rate.
	Gamma float64
	// ADV is the average daily volume used to compute participation rate.
	ADV float64
	// DecayHalfLife is the number of logical-time units over which a
	// temporary impact shock decays to half its initial magnitude.
	DecayHalfLife float64
}

// Inputs is everything one fill needs in order to decompose its cost.
type Inputs struct {
	// DecisionPriceTicks is the mid price at the moment the order was
	// submitted (before any latency or queueing).
	DecisionPriceTicks float64
	// ArrivalPriceTicks is the mid price at the moment the order actually
	// reached the book (after simulated latency, if any).
	ArrivalPriceTicks float64
	// FillPriceTicks is the price this specific fill executed at.
	FillPriceTicks float64
	// Qty is the fill quantity.
	Qty int64
	// Side is +1 for a buy (cost is positive when paying above mid), -1
	// for a sell (cost is positive when receiving below mid).
	Side int8
}

// Components is the additive cost decomposition for one fill, each
// expressed in ticks × shares (i.e. already scaled by Qty) so components
// across many fills can be summed directly.
type Components struct {
	SpreadCost    float64
	TemporaryCost float64
	PermanentCost float64
	LatencyCost   float64
}

// Total sums the four components.
func (c Components) Total() float64 {
	return c.SpreadCost + c.TemporaryCost + c.PermanentCost + c.LatencyCost
}

// Add returns the element-wise sum of c and other.
func (c Components) Add(other Components) Components {
	return Components{
		SpreadCost:    c.SpreadCost + other.SpreadCost,
		TemporaryCost: c.TemporaryCost + other.TemporaryCost,
		PermanentCost: c.PermanentCost + other.PermanentCost,
		LatencyCost:   c.LatencyCost + other.LatencyCost,
	}
}

// Decompose splits in's realized cost into the four components:
//
//   - LatencyCost is the cost attributable to price drift between decision
//     and arrival, independent of this order's own footprint.
//   - SpreadCost is the remaining distance between arrival mid and the
//     actual fill price — what crossing the spread cost, before any
//     footprint from the order's own size.
//   - TemporaryCost and PermanentCost split the Almgren-Chriss impact of
//     this fill's participation rate: temporary impact is proportional to
//     the participation rate scaled by Eta, permanent impact to the same
//     participation rate scaled by Gamma, and both are folded back into
//     the per-fill cost for reporting. Each call is independent: nothing
//     from earlier fills is carried into these terms.
//
// in.Side normalizes everything to "cost is positive when it hurts the
// owner", matching the taker's side.
func Decompose(p Params, in Inputs) Components {
	side := float64(in.Side)
	qty := float64(in.Qty)

	latency := side * (in.ArrivalPriceTicks - in.DecisionPriceTicks) * qty
	spread := side * (in.FillPriceTicks - in.ArrivalPriceTicks) * qty

	participation := 0.0
	if p.ADV > 0 {
		participation = qty / p.ADV
	}
	temporary := p.Eta * participation * qty
	permanent := p.Gamma * participation * qty

	return Components{
		SpreadCost:    spread,
		TemporaryCost: temporary,
		PermanentCost: permanent,
		LatencyCost:   latency,
	}
}

// DecayedTemporary returns the fraction of a temporary-impact shock still
// outstanding elapsedTicks after the fill, using exponential decay to the
// configured half-life. A zero or negative half-life means no decay model
// is configured and the shock is reported as fully persistent.
func DecayedTemporary(shock float64, elapsedTicks float64, halfLife float64) float64 {
	if halfLife <= 0 {
		return shock
	}
	lambda := math.Ln2 / halfLife
	return shock * math.Exp(-lambda*elapsedTicks)
}
