package models

import (
	"strings"
	"time"
)

// Tier represents a priced class of tickets for an event.
// 0 <= Sold <= Quantity holds after every operation.
type Tier struct {
	ID        string    `json:"id" db:"id"`
	EventID   string    `json:"event_id" db:"event_id"`
	Name      string    `json:"name" db:"name"`
	Price     int64     `json:"price" db:"price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Sold      int       `json:"sold" db:"sold"`
	Position  int       `json:"-" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TierCreateRequest represents a tier supplied when an event is published
type TierCreateRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// TierQuantityChange changes the capacity of an existing tier
type TierQuantityChange struct {
	TierID   string `json:"tier_id"`
	Quantity int    `json:"quantity"`
}

// Validate validates tier creation data
func (req *TierCreateRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("tiers.name", "tier name is required")
	}
	if len(req.Name) > 100 {
		return invalid("tiers.name", "tier name must be less than 100 characters")
	}
	if req.Price < 0 {
		return invalid("tiers.price", "tier price cannot be negative")
	}
	if req.Price > 10000000 {
		return invalid("tiers.price", "tier price is too large")
	}
	return validateTierQuantity(req.Quantity)
}

func validateTierQuantity(quantity int) error {
	if quantity <= 0 {
		return invalid("tiers.quantity", "tier quantity must be greater than 0")
	}
	if quantity > 100000 {
		return invalid("tiers.quantity", "tier quantity cannot exceed 100,000")
	}
	return nil
}

// IsSoldOut returns true if all tickets are sold
func (t *Tier) IsSoldOut() bool {
	return t.Sold >= t.Quantity
}

// Available returns the number of unsold tickets
func (t *Tier) Available() int {
	if a := t.Quantity - t.Sold; a > 0 {
		return a
	}
	return 0
}

// CanReserve reports whether count more tickets fit in the tier
func (t *Tier) CanReserve(count int) bool {
	return count > 0 && t.Sold+count <= t.Quantity
}

// CanUpdateQuantity returns true if the capacity can change to newQuantity
func (t *Tier) CanUpdateQuantity(newQuantity int) bool {
	return newQuantity >= t.Sold
}

// Release returns count tickets to the pool, clamping sold at zero.
func (t *Tier) Release(count int) {
	t.Sold -= count
	if t.Sold < 0 {
		t.Sold = 0
	}
}
