package match

import (
	"fmt"
)

// BookSnapshot contains the full resting state of one book together with the
// counters needed to keep the BookLog stream continuous after a restore.
type BookSnapshot struct {
	MarketID      string   `json:"market_id"`
	SeqID         uint64   `json:"seq_id"`   // Current BookLog sequence ID
	TradeID       uint64   `json:"trade_id"` // Current Trade sequence ID
	EngineVersion string   `json:"engine_version"`
	Bids          []*Order `json:"bids"` // Ordered list of bids (best price first)
	Asks          []*Order `json:"asks"` // Ordered list of asks (best price first)
}

// Snapshot copies the engine's book and counters.
func (e *MatchingEngine) Snapshot() *BookSnapshot {
	return &BookSnapshot{
		MarketID:      e.marketID,
		SeqID:         e.seqID.Load(),
		TradeID:       e.tradeID.Load(),
		EngineVersion: EngineVersion,
		Bids:          e.book.bidQueue.appendSnapshot(make([]*Order, 0, e.book.bidQueue.orderCount())),
		Asks:          e.book.askQueue.appendSnapshot(make([]*Order, 0, e.book.askQueue.orderCount())),
	}
}

// Restore replaces the engine's book with the snapshot's orders. Orders are
// re-added in snapshot order, which preserves price-time priority. Nothing is
// published. On error the engine is left untouched.
func (e *MatchingEngine) Restore(snap *BookSnapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidParam)
	}
	if snap.MarketID != e.marketID {
		return fmt.Errorf("%w: snapshot of market %s restored into %s", ErrInvalidParam, snap.MarketID, e.marketID)
	}

	book := NewBook()
	for _, side := range []struct {
		side   Side
		orders []*Order
	}{{Buy, snap.Bids}, {Sell, snap.Asks}} {
		for _, o := range side.orders {
			if o == nil || o.Side != side.side {
				return fmt.Errorf("%w: snapshot order on the wrong side", ErrInvalidOrder)
			}
			if _, exists := book.orders[o.ID]; exists {
				return fmt.Errorf("%w: duplicate id %s in snapshot", ErrInvalidOrder, o.ID)
			}

			order := o.Clone()
			if err := book.AddOrder(order); err != nil {
				return err
			}
			// keep the arrival time from the snapshot
			order.Timestamp = o.Timestamp
		}
	}

	*e.book = *book
	e.seqID.Store(snap.SeqID)
	e.tradeID.Store(snap.TradeID)
	return nil
}
