// Package eventsource decodes a JSON event stream into dispatcher.Event
// values, following the same read-a-file-of-JSON-records idiom as the
// teacher's seed loader. It is not a market-data decoder: there is no ITCH
// or Pillar framing here, only the normalized {ts, kind, payload} shape
// spec.md already assumes upstream producers supply (SPEC_FULL §6).
package eventsource

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jrajath94/orderbook-simulator/book"
	"github.com/jrajath94/orderbook-simulator/dispatcher"
)

// record is the JSON shape of one line in an event file.
//
// Example file:
//
//	[
//	  {"ts": 0, "kind": "SUBMIT", "order": {"id": "o1", "owner_tag": "alice",
//	   "side": "BUY", "type": "LIMIT", "tif": "GTC", "qty": 10, "price": 10000}},
//	  {"ts": 5, "kind": "CANCEL", "order_id": "o1"}
//	]
type record struct {
	TS    int64        `json:"ts"`
	Kind  string       `json:"kind"`
	Order *orderRecord `json:"order,omitempty"`

	OrderID string `json:"order_id,omitempty"`

	NewQty       int64 `json:"new_qty,omitempty"`
	NewPrice     int64 `json:"new_price,omitempty"`
	PriceChanged bool  `json:"price_changed,omitempty"`
}

type orderRecord struct {
	ID         string `json:"id"`
	OwnerTag   string `json:"owner_tag"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	TIF        string `json:"tif"`
	Qty        int64  `json:"qty"`
	Price      int64  `json:"price"`
	StopPrice  int64  `json:"stop_price,omitempty"`
	DisplayQty int64  `json:"display_qty,omitempty"`
}

// Load reads path and decodes it into dispatcher events, in file order.
func Load(path string) ([]*dispatcher.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("eventsource: %w", err)
	}

	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("eventsource: parse error: %w", err)
	}

	events := make([]*dispatcher.Event, 0, len(records))
	for i, r := range records {
		ev, err := toEvent(r)
		if err != nil {
			return nil, fmt.Errorf("eventsource: record %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func toEvent(r record) (*dispatcher.Event, error) {
	switch r.Kind {
	case "SUBMIT":
		if r.Order == nil {
			return nil, fmt.Errorf("SUBMIT record missing order")
		}
		o, err := toOrder(*r.Order, r.TS)
		if err != nil {
			return nil, err
		}
		return &dispatcher.Event{Kind: dispatcher.KindSubmit, TS: r.TS, Order: o}, nil
	case "CANCEL":
		if r.OrderID == "" {
			return nil, fmt.Errorf("CANCEL record missing order_id")
		}
		return &dispatcher.Event{Kind: dispatcher.KindCancel, TS: r.TS, CancelOrderID: r.OrderID}, nil
	case "MODIFY":
		if r.OrderID == "" {
			return nil, fmt.Errorf("MODIFY record missing order_id")
		}
		return &dispatcher.Event{
			Kind:          dispatcher.KindModify,
			TS:            r.TS,
			ModifyOrderID: r.OrderID,
			NewQty:        r.NewQty,
			NewPrice:      r.NewPrice,
			PriceChanged:  r.PriceChanged,
		}, nil
	default:
		return nil, fmt.Errorf("unrecognized event kind %q", r.Kind)
	}
}

func toOrder(r orderRecord, ts int64) (*book.Order, error) {
	side, err := parseSide(r.Side)
	if err != nil {
		return nil, err
	}
	typ, err := parseType(r.Type)
	if err != nil {
		return nil, err
	}
	tif, err := parseTIF(r.TIF)
	if err != nil {
		return nil, err
	}
	if r.ID == "" {
		return nil, fmt.Errorf("order missing id")
	}
	return &book.Order{
		ID:           r.ID,
		OwnerTag:     r.OwnerTag,
		Side:         side,
		Type:         typ,
		TimeInForce:  tif,
		Price:        r.Price,
		StopPrice:    r.StopPrice,
		OriginalQty:  r.Qty,
		RemainingQty: r.Qty,
		DisplayQty:   r.DisplayQty,
		SubmitTS:     ts,
	}, nil
}

func parseSide(s string) (book.Side, error) {
	switch s {
	case "BUY":
		return book.SideBuy, nil
	case "SELL":
		return book.SideSell, nil
	default:
		return 0, fmt.Errorf("unrecognized side %q", s)
	}
}

func parseType(s string) (book.OrderType, error) {
	switch s {
	case "LIMIT":
		return book.TypeLimit, nil
	case "MARKET":
		return book.TypeMarket, nil
	case "STOP":
		return book.TypeStop, nil
	case "STOP_LIMIT":
		return book.TypeStopLimit, nil
	case "ICEBERG":
		return book.TypeIceberg, nil
	default:
		return 0, fmt.Errorf("unrecognized order type %q", s)
	}
}

func parseTIF(s string) (book.TimeInForce, error) {
	switch s {
	case "", "DAY":
		return book.TIFDay, nil
	case "IOC":
		return book.TIFIOC, nil
	case "FOK":
		return book.TIFFOK, nil
	case "GTC":
		return book.TIFGTC, nil
	case "POST_ONLY":
		return book.TIFPostOnly, nil
	default:
		return 0, fmt.Errorf("unrecognized time_in_force %q", s)
	}
}
