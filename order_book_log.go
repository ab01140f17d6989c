package match

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// LogType represents the type of event log.
type LogType string

const (
	LogTypeOpen   LogType = "open"
	LogTypeMatch  LogType = "match"
	LogTypeCancel LogType = "cancel"
	LogTypeAmend  LogType = "amend"
)

// BookLog represents an event in the order book.
// SequenceID increases by one for every log of a book and lets downstream
// consumers (see AggregatedBook) detect gaps and duplicates.
type BookLog struct {
	SequenceID   uint64          `json:"seq_id"`
	TradeID      uint64          `json:"trade_id,omitempty"` // Sequential trade ID, only set for Match events
	Type         LogType         `json:"type"`
	MarketID     string          `json:"market_id"`
	Side         Side            `json:"side"` // Taker side for Match events
	Price        decimal.Decimal `json:"price"`
	Size         int64           `json:"size"`
	OldSize      int64           `json:"old_size,omitempty"` // Only set for Amend events
	OrderID      string          `json:"order_id"`
	MakerOrderID string          `json:"maker_order_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

var bookLogPool = sync.Pool{
	New: func() any {
		return new(BookLog)
	},
}

func acquireBookLog() *BookLog {
	return bookLogPool.Get().(*BookLog)
}

func releaseBookLog(log *BookLog) {
	*log = BookLog{}
	bookLogPool.Put(log)
}

func newOpenLog(seqID uint64, marketID string, order *Order, now time.Time) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeOpen
	log.MarketID = marketID
	log.Side = order.Side
	log.Price = order.Price
	log.Size = order.Quantity
	log.OrderID = order.ID
	log.CreatedAt = now
	return log
}

func newMatchLog(seqID uint64, tradeID uint64, marketID string, trade *Trade, now time.Time) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.TradeID = tradeID
	log.Type = LogTypeMatch
	log.MarketID = marketID
	log.Side = trade.Side
	log.Price = trade.Price
	log.Size = trade.Quantity
	log.OrderID = trade.TakerOrderID
	log.MakerOrderID = trade.MakerOrderID
	log.CreatedAt = now
	return log
}

func newCancelLog(seqID uint64, marketID string, order *Order, now time.Time) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeCancel
	log.MarketID = marketID
	log.Side = order.Side
	log.Price = order.Price
	log.Size = order.Quantity
	log.OrderID = order.ID
	log.CreatedAt = now
	return log
}

func newAmendLog(seqID uint64, marketID string, order *Order, oldSize int64, now time.Time) *BookLog {
	log := acquireBookLog()
	log.SequenceID = seqID
	log.Type = LogTypeAmend
	log.MarketID = marketID
	log.Side = order.Side
	log.Price = order.Price
	log.Size = order.Quantity
	log.OldSize = oldSize
	log.OrderID = order.ID
	log.CreatedAt = now
	return log
}
