package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// LineKey identifies a line item. Two additions with the same key merge.
type LineKey struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (k LineKey) String() string {
	return k.ProductID + "-" + k.Size + "-" + k.Color
}

// LineItem is one (product, size, color) selection. Name and UnitPrice are
// snapshotted from the product when the line is first added.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
}

// Key returns the line's identity.
func (li LineItem) Key() LineKey {
	return LineKey{ProductID: li.ProductID, Size: li.Size, Color: li.Color}
}

// LineTotal is UnitPrice × Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CheckoutClaim marks a cart held by a checkout that is charging for it.
type CheckoutClaim struct {
	OrderID   string    `json:"order_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cart is a session's ordered line items and their running subtotal.
// Subtotal is maintained incrementally by every mutation and always equals
// the sum of the line totals. Mutate a Cart only through its methods; a
// Cart is not safe for concurrent use.
type Cart struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Items     []LineItem      `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Currency  string          `json:"currency"`
	Version   int64           `json:"version"`
	Checkout  *CheckoutClaim  `json:"checkout,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewCart returns an empty cart.
func NewCart(id, sessionID, currency string) *Cart {
	return &Cart{
		ID:        id,
		SessionID: sessionID,
		Items:     []LineItem{},
		Subtotal:  decimal.Zero,
		Currency:  currency,
	}
}

func (c *Cart) indexOf(key LineKey) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

// Find returns the line for key.
func (c *Cart) Find(key LineKey) (LineItem, bool) {
	if i := c.indexOf(key); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

// ItemCount is the total quantity across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, li := range c.Items {
		n += li.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem adds one unit of product in the given size and color. An existing
// line with the same key gets its quantity incremented; otherwise a new line
// is appended. The selection must be one the product declares.
func (c *Cart) AddItem(p *Product, size, color string) error {
	if !p.OffersSize(size) {
		return apperrors.InvalidSelection(fmt.Sprintf("size %q is not offered for product %s", size, p.ID))
	}
	if !p.OffersColor(color) {
		return apperrors.InvalidSelection(fmt.Sprintf("color %q is not offered for product %s", color, p.ID))
	}

	key := LineKey{ProductID: p.ID, Size: size, Color: color}
	if i := c.indexOf(key); i >= 0 {
		c.Items[i].Quantity++
		c.Subtotal = c.Subtotal.Add(c.Items[i].UnitPrice)
		return nil
	}

	c.Items = append(c.Items, LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Size:      size,
		Color:     color,
		Quantity:  1,
	})
	c.Subtotal = c.Subtotal.Add(p.Price)
	return nil
}

// RemoveItem drops the line for key. Removing a missing key is a no-op.
func (c *Cart) RemoveItem(key LineKey) {
	i := c.indexOf(key)
	if i < 0 {
		return
	}
	c.Subtotal = c.Subtotal.Sub(c.Items[i].LineTotal())
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// UpdateQuantity sets the quantity of the line for key. A quantity of zero or
// less removes the line. Setting a positive quantity on a missing key fails
// with ItemNotFound and leaves the cart unchanged.
func (c *Cart) UpdateQuantity(key LineKey, quantity int) error {
	if quantity <= 0 {
		c.RemoveItem(key)
		return nil
	}

	i := c.indexOf(key)
	if i < 0 {
		return apperrors.ItemNotFound(key.String())
	}

	delta := int64(quantity - c.Items[i].Quantity)
	c.Items[i].Quantity = quantity
	c.Subtotal = c.Subtotal.Add(c.Items[i].UnitPrice.Mul(decimal.NewFromInt(delta)))
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []LineItem{}
	c.Subtotal = decimal.Zero
}

// Subtract takes the quantities of charged away from the matching lines and
// drops lines that reach zero. Lines absent from charged are kept.
func (c *Cart) Subtract(charged []LineItem) {
	for _, li := range charged {
		i := c.indexOf(li.Key())
		if i < 0 {
			continue
		}
		// Cannot fail: the line exists and non-positive quantities remove it.
		_ = c.UpdateQuantity(li.Key(), c.Items[i].Quantity-li.Quantity)
	}
}

// Claim marks the cart as held by the checkout for orderID until expiresAt.
func (c *Cart) Claim(orderID string, expiresAt time.Time) {
	c.Checkout = &CheckoutClaim{OrderID: orderID, ExpiresAt: expiresAt}
}

// Release drops any checkout claim.
func (c *Cart) Release() {
	c.Checkout = nil
}

// CheckingOut reports whether an unexpired checkout claim holds the cart.
func (c *Cart) CheckingOut(now time.Time) bool {
	return c.Checkout != nil && now.Before(c.Checkout.ExpiresAt)
}

// ComputedSubtotal sums the line totals from scratch.
func (c *Cart) ComputedSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range c.Items {
		sum = sum.Add(li.LineTotal())
	}
	return sum
}

// VerifySubtotal reports whether the running subtotal matches the line items.
// On mismatch it returns the recomputed value.
func (c *Cart) VerifySubtotal() (decimal.Decimal, bool) {
	computed := c.ComputedSubtotal()
	return computed, computed.Equal(c.Subtotal)
}

// Lines returns a copy of the line items.
func (c *Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.Items))
	copy(out, c.Items)
	return out
}

// ProductLookup resolves a product by id.
type ProductLookup func(productID string) (*Product, error)

// Replay rebuilds a cart from a serialized line list by calling AddItem once
// per line and UpdateQuantity for the remaining quantity, so a line with a
// quantity of zero or less ends up removed. With a nil lookup
// each line's own snapshot stands in for the product, so the rebuilt subtotal
// equals the original. With a lookup, current catalog data is used instead.
func Replay(c *Cart, lines []LineItem, lookup ProductLookup) error {
	for _, li := range lines {
		p := snapshotProduct(li)
		if lookup != nil {
			found, err := lookup(li.ProductID)
			if err != nil {
				return fmt.Errorf("replay line %s: %w", li.Key(), err)
			}
			p = found
		}

		if err := c.AddItem(p, li.Size, li.Color); err != nil {
			return err
		}
		if li.Quantity != 1 {
			if err := c.UpdateQuantity(li.Key(), li.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

func snapshotProduct(li LineItem) *Product {
	return &Product{
		ID:      li.ProductID,
		Name:    li.Name,
		Price:   li.UnitPrice,
		Sizes:   []string{li.Size},
		Colors:  []string{li.Color},
		InStock: true,
	}
}
