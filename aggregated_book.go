package match

import (
	"fmt"
	"sync"

	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// AggregatedBook maintains a simplified view of the order book,
// tracking only price levels and their aggregated sizes (depth).
// It is designed for downstream services that rebuild order book state
// from the BookLog stream, and it can be attached to an OrderBook directly
// since it implements PublishLog.
type AggregatedBook struct {
	mu    sync.RWMutex
	seqID uint64 // Last applied SequenceID
	ask   *treemap.TreeMap[decimal.Decimal, int64]
	bid   *treemap.TreeMap[decimal.Decimal, int64]
}

// NewAggregatedBook creates a new AggregatedBook instance with empty ask and bid sides.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		ask: newDepthTree(),
		bid: newDepthTree(),
	}
}

func newDepthTree() *treemap.TreeMap[decimal.Decimal, int64] {
	return treemap.NewWithKeyCompare[decimal.Decimal, int64](func(a, b decimal.Decimal) bool {
		return a.LessThan(b)
	})
}

// SequenceID returns the last processed sequence ID.
func (ab *AggregatedBook) SequenceID() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.seqID
}

// Replay applies a BookLog to the aggregated state.
// Logs at or below the current sequence are ignored as duplicates; a log that
// skips a sequence is rejected with ErrSequenceGap and leaves the state untouched.
func (ab *AggregatedBook) Replay(log *BookLog) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if log.SequenceID <= ab.seqID {
		return nil
	}
	if log.SequenceID != ab.seqID+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, ab.seqID+1, log.SequenceID)
	}

	change := CalculateDepthChange(log)
	if change.SizeDiff != 0 {
		tree := ab.tree(change.Side)
		size, _ := tree.Get(change.Price)
		size += change.SizeDiff
		if size <= 0 {
			tree.Del(change.Price)
		} else {
			tree.Set(change.Price, size)
		}
	}

	ab.seqID = log.SequenceID
	return nil
}

// Publish replays each log, stopping at the first gap.
func (ab *AggregatedBook) Publish(logs ...*BookLog) {
	for _, log := range logs {
		if err := ab.Replay(log); err != nil {
			logger.Error("aggregated book replay failed", "seq_id", log.SequenceID, "error", err)
			return
		}
	}
}

// Reset clears the aggregated state so it can be rebuilt from sequence 0.
func (ab *AggregatedBook) Reset() {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.seqID = 0
	ab.ask = newDepthTree()
	ab.bid = newDepthTree()
}

// Depth returns the aggregated size at a specific price level for the given side.
// Returns zero if the price level does not exist.
func (ab *AggregatedBook) Depth(side Side, price decimal.Decimal) int64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	size, _ := ab.tree(side).Get(price)
	return size
}

// Levels returns up to limit levels of one side, best price first.
func (ab *AggregatedBook) Levels(side Side, limit int) []*DepthItem {
	if limit <= 0 {
		return []*DepthItem{}
	}

	ab.mu.RLock()
	defer ab.mu.RUnlock()

	result := make([]*DepthItem, 0, limit)
	tree := ab.tree(side)

	add := func(price decimal.Decimal, size int64) {
		result = append(result, &DepthItem{
			ID:    uint32(len(result)),
			Price: price,
			Size:  size,
		})
	}

	// bids are read highest price first
	if side == Buy {
		for it := tree.Reverse(); it.Valid() && len(result) < limit; it.Next() {
			add(it.Key(), it.Value())
		}
		return result
	}

	for it := tree.Iterator(); it.Valid() && len(result) < limit; it.Next() {
		add(it.Key(), it.Value())
	}
	return result
}

func (ab *AggregatedBook) tree(side Side) *treemap.TreeMap[decimal.Decimal, int64] {
	if side == Buy {
		return ab.bid
	}
	return ab.ask
}
