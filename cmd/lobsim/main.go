// Command lobsim replays a JSON event file through the dispatcher and
// prints the resulting trade tape, periodic snapshots, and per-owner cost
// summary. It exists only to exercise the library end-to-end the way the
// teacher's cmd/exchange exercises its gRPC server — it is not a decoder,
// a CLI front-end, or the analytics/backtesting harness spec.md places out
// of scope.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jrajath94/orderbook-simulator/book"
	"github.com/jrajath94/orderbook-simulator/config"
	"github.com/jrajath94/orderbook-simulator/dispatcher"
	"github.com/jrajath94/orderbook-simulator/impact"
	"github.com/jrajath94/orderbook-simulator/internal/eventsource"
	"github.com/jrajath94/orderbook-simulator/publisher"
	"github.com/jrajath94/orderbook-simulator/tick"
)

func main() {
	eventFile := flag.String("events", "", "path to a JSON event-stream file")
	envFile := flag.String("env-file", "", "optional .env file overlay for configuration")
	horizon := flag.Int64("run-until", 1<<62, "logical timestamp to run the simulation through")
	snapshotEvery := flag.Int64("snapshot-every", 0, "if > 0, emit a book snapshot every N trades")
	tickValueStr := flag.String("tick-value", "0.01", "decimal currency value of one price tick, for display only")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lobsim: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *eventFile == "" {
		logger.Fatal("lobsim: -events is required")
	}

	cfg, err := config.FromEnv(*envFile)
	if err != nil {
		logger.Fatal("lobsim: configuration error", zap.Error(err))
	}

	tickValue, err := decimal.NewFromString(*tickValueStr)
	if err != nil {
		logger.Fatal("lobsim: invalid -tick-value", zap.Error(err))
	}

	events, err := eventsource.Load(*eventFile)
	if err != nil {
		logger.Fatal("lobsim: failed to load event file", zap.Error(err))
	}

	runID := uuid.New().String()
	logger.Info("lobsim: starting run",
		zap.String("run_id", runID),
		zap.String("events_file", *eventFile),
		zap.Int("event_count", len(events)),
	)

	d := dispatcher.New(book.NewBook(cfg.TickSize), dispatcher.Options{
		TickSize:            cfg.TickSize,
		SelfTradePolicy:     cfg.SelfTradePolicy,
		AllowMarketOrders:   cfg.AllowMarketOrders,
		MaxStopCascadeDepth: cfg.MaxStopCascadeDepth,
		IcebergRefreshDelay: cfg.IcebergRefreshDelay,
		ImpactParams: impact.Params{
			Eta:           cfg.ImpactEta,
			Gamma:         cfg.ImpactGamma,
			ADV:           cfg.ImpactADV,
			DecayHalfLife: cfg.ImpactDecayHalfLife,
		},
	}, logger)

	var tradeCount int64
	d.Tape.Subscribe(func(rec publisher.TradeRecord) {
		tradeCount++
		fmt.Printf("TRADE  ts=%d price=%s qty=%d taker=%s maker=%s\n",
			rec.TS, tick.ToDecimal(rec.PriceTicks, tickValue), rec.Qty, rec.TakerOrderID, rec.MakerOrderID)

		if *snapshotEvery > 0 && tradeCount%*snapshotEvery == 0 {
			printSnapshot(d.Book(), rec.TS, tickValue)
		}
	})

	d.Reports.Subscribe(func(r dispatcher.ExecutionReport) {
		if r.Status == dispatcher.StatusRejected {
			logger.Warn("order rejected",
				zap.String("order_id", r.OrderID), zap.Error(r.Reason))
		}
	})

	for _, ev := range events {
		if !d.Submit(ev) {
			logger.Warn("lobsim: event rejected at submission", zap.Int64("ts", ev.TS))
		}
	}
	d.RunUntil(*horizon)

	printSnapshot(d.Book(), *horizon, tickValue)
	printCostSummary(d.CostLedger, tickValue)

	logger.Info("lobsim: run complete",
		zap.String("run_id", runID),
		zap.Int("trades", len(d.Tape.Records())),
	)
}

func printSnapshot(b *book.Book, ts int64, tickValue decimal.Decimal) {
	bids, asks := b.Depth(5)
	fmt.Printf("--- snapshot ts=%d ---\n", ts)
	if bid, ok := b.BestBid(); ok {
		fmt.Printf("  best_bid=%s\n", tick.ToDecimal(bid, tickValue))
	}
	if ask, ok := b.BestAsk(); ok {
		fmt.Printf("  best_ask=%s\n", tick.ToDecimal(ask, tickValue))
	}
	for _, lvl := range bids {
		fmt.Printf("  bid %s x %d\n", tick.ToDecimal(lvl.PriceTicks, tickValue), lvl.Qty)
	}
	for _, lvl := range asks {
		fmt.Printf("  ask %s x %d\n", tick.ToDecimal(lvl.PriceTicks, tickValue), lvl.Qty)
	}
}

func printCostSummary(ledger *impact.Ledger, tickValue decimal.Decimal) {
	fmt.Println("--- cost summary ---")
	for _, r := range ledger.All() {
		fmt.Printf("  owner=%s fills=%d spread=%s temporary=%s permanent=%s latency=%s total=%s\n",
			r.OwnerTag, r.Fills,
			tick.ToDecimal(int64(r.Total.SpreadCost), tickValue),
			tick.ToDecimal(int64(r.Total.TemporaryCost), tickValue),
			tick.ToDecimal(int64(r.Total.PermanentCost), tickValue),
			tick.ToDecimal(int64(r.Total.LatencyCost), tickValue),
			tick.ToDecimal(int64(r.Total.Total()), tickValue),
		)
	}
}
