package match

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyerQueue(t *testing.T) {
	q := NewBuyerQueue()

	q.pushBack(&Order{ID: "101", Side: Buy, Price: decimal.NewFromInt(10), Quantity: 1})
	q.pushBack(&Order{ID: "201", Side: Buy, Price: decimal.NewFromInt(20), Quantity: 10})
	q.pushBack(&Order{ID: "301", Side: Buy, Price: decimal.NewFromInt(30), Quantity: 10})
	q.pushBack(&Order{ID: "202", Side: Buy, Price: decimal.NewFromInt(20), Quantity: 100})

	assert.Equal(t, int64(4), q.orderCount())
	assert.Equal(t, int64(3), q.depthCount())

	ord := q.peekHeadOrder()
	assert.Equal(t, "301", ord.ID)
	assert.Equal(t, "30", ord.Price.String())
	assert.True(t, q.removeOrder(ord))

	ord = q.peekHeadOrder()
	assert.Equal(t, "201", ord.ID)
	assert.Equal(t, int64(10), ord.Quantity)
	assert.True(t, q.removeOrder(ord))

	ord = q.peekHeadOrder()
	assert.Equal(t, "202", ord.ID)
	assert.True(t, q.removeOrder(ord))

	ord = q.peekHeadOrder()
	assert.Equal(t, "101", ord.ID)
	assert.True(t, q.removeOrder(ord))

	assert.Nil(t, q.peekHeadOrder())
	assert.Equal(t, int64(0), q.orderCount())
	assert.Equal(t, int64(0), q.depthCount())
}

func TestSellerQueue(t *testing.T) {
	q := NewSellerQueue()

	q.pushBack(&Order{ID: "101", Side: Sell, Price: decimal.NewFromInt(10), Quantity: 1})
	q.pushBack(&Order{ID: "201", Side: Sell, Price: decimal.NewFromInt(20), Quantity: 10})
	q.pushBack(&Order{ID: "301", Side: Sell, Price: decimal.NewFromInt(30), Quantity: 10})
	q.pushBack(&Order{ID: "202", Side: Sell, Price: decimal.NewFromInt(20), Quantity: 100})

	assert.Equal(t, int64(4), q.orderCount())

	expected := []string{"101", "201", "202", "301"}
	for _, id := range expected {
		ord := q.peekHeadOrder()
		require.NotNil(t, ord)
		assert.Equal(t, id, ord.ID)
		assert.True(t, q.removeOrder(ord))
	}

	assert.Equal(t, int64(0), q.orderCount())
}

func TestQueueRemoveMiddle(t *testing.T) {
	q := NewSellerQueue()
	price := decimal.NewFromInt(10)

	o1 := &Order{ID: "1", Side: Sell, Price: price, Quantity: 1}
	o2 := &Order{ID: "2", Side: Sell, Price: price, Quantity: 2}
	o3 := &Order{ID: "3", Side: Sell, Price: price, Quantity: 3}
	q.pushBack(o1)
	q.pushBack(o2)
	q.pushBack(o3)

	assert.True(t, q.removeOrder(o2))
	assert.False(t, q.removeOrder(o2), "an unlinked order cannot be removed twice")

	unit := q.level(price)
	require.NotNil(t, unit)
	assert.Same(t, o1, unit.head)
	assert.Same(t, o3, unit.tail)
	assert.Same(t, o3, o1.next)
	assert.Same(t, o1, o3.prev)
	assert.Equal(t, int64(2), unit.count)
	assert.Equal(t, int64(4), unit.totalSize)
}

func TestQueueRemoveForeignOrder(t *testing.T) {
	q := NewBuyerQueue()
	price := decimal.NewFromInt(10)

	q.pushBack(&Order{ID: "1", Side: Buy, Price: price, Quantity: 1})
	q.pushBack(&Order{ID: "2", Side: Buy, Price: price, Quantity: 1})

	// same id and price, different instance
	foreign := &Order{ID: "2", Side: Buy, Price: price, Quantity: 1}
	assert.False(t, q.removeOrder(foreign))
	assert.Equal(t, int64(2), q.orderCount())
}

func TestQueueCanonicalPrice(t *testing.T) {
	q := NewBuyerQueue()

	q.pushBack(&Order{ID: "1", Side: Buy, Price: decimal.RequireFromString("9"), Quantity: 1})
	q.pushBack(&Order{ID: "2", Side: Buy, Price: decimal.RequireFromString("9.00"), Quantity: 2})
	q.pushBack(&Order{ID: "3", Side: Buy, Price: decimal.NewFromFloat(9.0), Quantity: 3})

	assert.Equal(t, int64(1), q.depthCount())

	orders := q.ordersAt(decimal.RequireFromString("9.0"))
	require.Len(t, orders, 3)
	assert.Equal(t, "1", orders[0].ID)
	assert.Equal(t, "2", orders[1].ID)
	assert.Equal(t, "3", orders[2].ID)
}

func TestQueueFillKeepsPosition(t *testing.T) {
	q := NewSellerQueue()
	price := decimal.NewFromInt(10)

	o1 := &Order{ID: "1", Side: Sell, Price: price, Quantity: 10}
	o2 := &Order{ID: "2", Side: Sell, Price: price, Quantity: 10}
	q.pushBack(o1)
	q.pushBack(o2)

	q.fill(o1, 4)

	assert.Equal(t, int64(6), o1.Quantity)
	assert.Same(t, o1, q.peekHeadOrder())
	assert.Equal(t, int64(16), q.level(price).totalSize)
}

func TestQueueDepth(t *testing.T) {
	q := NewBuyerQueue()

	for i := int64(1); i <= 5; i++ {
		q.pushBack(&Order{ID: decimal.NewFromInt(i).String(), Side: Buy, Price: decimal.NewFromInt(i * 10), Quantity: i})
	}
	q.pushBack(&Order{ID: "extra", Side: Buy, Price: decimal.NewFromInt(50), Quantity: 7})

	depth := q.depth(3)
	require.Len(t, depth, 3)
	assert.Equal(t, "50", depth[0].Price.String())
	assert.Equal(t, int64(12), depth[0].Size)
	assert.Equal(t, int64(2), depth[0].Count)
	assert.Equal(t, "40", depth[1].Price.String())
	assert.Equal(t, "30", depth[2].Price.String())
}
