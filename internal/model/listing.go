package model

import "time"

// Listing is an owner's offer of a tool for rent.
type Listing struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"owner_id"`
	OwnerName       string    `json:"owner_name"`
	ToolID          int64     `json:"tool_id"`
	ToolName        string    `json:"tool_name"`
	ImageURL        string    `json:"image_url"`
	PlanID          int64     `json:"plan_id"`
	PlanName        string    `json:"plan_name"`
	Price           float64   `json:"price"`
	TotalUsers      int       `json:"total_users"`
	UnlimitedUsers  bool      `json:"unlimited_users"`
	SubscribedUsers int       `json:"subscribed_users"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListingFilter narrows a listing query. Nil fields impose no constraint.
type ListingFilter struct {
	ToolID         *int64   `json:"tool_id,omitempty"`
	OwnerID        *int64   `json:"owner_id,omitempty"`
	PlanID         *int64   `json:"plan_id,omitempty"`
	MinPrice       *float64 `json:"min_price,omitempty"`
	MaxPrice       *float64 `json:"max_price,omitempty"`
	UnlimitedUsers *bool    `json:"unlimited_users,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Offset         int      `json:"offset,omitempty"`
}

// NewListing holds the owner-supplied fields of a listing.
type NewListing struct {
	ToolID         int64
	PlanID         int64
	Price          float64
	TotalUsers     int
	UnlimitedUsers bool
}
