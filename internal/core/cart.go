package core

import "sync"

// Cart is the mutable working set of selected items before checkout.
// It keeps one line per distinct item id, in first-add order. The mutex
// covers concurrent HTTP requests; the semantics are single-operator.
type Cart struct {
	mu    sync.Mutex
	lines []CartLine
}

func NewCart() *Cart {
	return &Cart{}
}

// Add merges the item into the cart: an existing line gets +1 quantity and
// keeps its original name/price snapshot, otherwise a new line with
// quantity 1 is appended copying the item's current name and price.
func (c *Cart) Add(item MenuItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ItemID == item.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, CartLine{
		ItemID:   item.ID,
		Name:     item.Name,
		Price:    item.Price,
		Quantity: 1,
	})
}

// UpdateQuantity applies delta to the line's quantity. A resulting quantity
// of zero or less removes the line; an absent id is a benign no-op.
func (c *Cart) UpdateQuantity(itemID string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ItemID != itemID {
			continue
		}
		q := c.lines[i].Quantity + delta
		if q <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			c.lines[i].Quantity = q
		}
		return
	}
}

// Remove drops the line if present; no-op otherwise.
func (c *Cart) Remove(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copied snapshot of the cart in first-add order.
func (c *Cart) Lines() []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Subtotal sums price×quantity over all lines; zero for an empty cart.
func (c *Cart) Subtotal() Money {
	c.mu.Lock()
	defer c.mu.Unlock()
	var cents int64
	for _, l := range c.lines {
		cents += l.Price.Cents * int64(l.Quantity)
	}
	return Money{Cents: cents}
}

// TotalItemCount sums quantities over all lines, for badge display.
func (c *Cart) TotalItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}
