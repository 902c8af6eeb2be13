package model

import "time"

// RentedTool is a renter's subscription to a listing together with the
// credentials the owner issued for it. IsActive mirrors the listing.
type RentedTool struct {
	ID              int64     `json:"id"`
	ListingID       int64     `json:"listing_id"`
	RenterID        int64     `json:"renter_id"`
	RenterEmail     string    `json:"renter_email"`
	OwnerID         int64     `json:"owner_id"`
	ToolName        string    `json:"tool_name"`
	PlanName        string    `json:"plan_name"`
	ImageURL        string    `json:"image_url"`
	Price           float64   `json:"price"`
	Login           *string   `json:"login"`
	Password        *string   `json:"password"`
	IsActive        bool      `json:"is_active"`
	PaymentIntentID string    `json:"payment_intent_id"`
	PaymentStatus   string    `json:"payment_status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RentedFilter narrows a renter's rentals. Nil fields impose no constraint.
type RentedFilter struct {
	ToolName *string  `json:"tool_name,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
}
