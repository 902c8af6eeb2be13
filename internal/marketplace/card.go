package marketplace

import "github.com/dukerupert/toolshub/internal/model"

// Kind identifies which card variant a Card is.
type Kind int

const (
	KindListing Kind = iota + 1
	KindRentedByMe
	KindRentedOut
)

func (k Kind) String() string {
	switch k {
	case KindListing:
		return "listing"
	case KindRentedByMe:
		return "rented_by_me"
	case KindRentedOut:
		return "rented_out"
	}
	return "unknown"
}

// ActionKind says what a card's button does when pressed.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionCheckout
	ActionReveal
)

// Action is what pressing a card's button does. Target is a listing ID for
// ActionCheckout and a rented tool ID for ActionReveal.
type Action struct {
	Kind    ActionKind
	Enabled bool
	Target  int64
}

const (
	LabelYourListing     = "Your Listing"
	LabelFull            = "Full"
	LabelRentNow         = "Rent Now"
	LabelViewCredentials = "View Credentials"
)

// Card is a listing or rented tool as presented to the current user. The
// set of implementations is closed.
type Card interface {
	Kind() Kind
	AvailableSlots() (n int, unlimited bool)
	IsFull() bool
	ActionLabel() string
	Action() Action
	card()
}

// ListingCard is a rent listing seen by ViewerID (zero when anonymous).
type ListingCard struct {
	Listing  model.Listing
	ViewerID int64
}

func (c ListingCard) Kind() Kind                  { return KindListing }
func (c ListingCard) AvailableSlots() (int, bool) { return AvailableSlots(c.Listing) }
func (c ListingCard) IsFull() bool                { return IsFull(c.Listing) }
func (c ListingCard) card()                       {}

// ActionLabel gives ownership precedence over capacity: an owner sees
// "Your Listing" even when the listing is full.
func (c ListingCard) ActionLabel() string {
	switch {
	case IsOwnListing(c.Listing, c.ViewerID):
		return LabelYourListing
	case c.IsFull():
		return LabelFull
	default:
		return LabelRentNow
	}
}

func (c ListingCard) Action() Action {
	if IsOwnListing(c.Listing, c.ViewerID) || c.IsFull() {
		return Action{Kind: ActionNone}
	}
	return Action{Kind: ActionCheckout, Enabled: true, Target: c.Listing.ID}
}

// RentedByMeCard is a tool the current user rents. The seat is already
// held, so no capacity limit applies.
type RentedByMeCard struct {
	Asset model.RentedTool
}

func (c RentedByMeCard) Kind() Kind                  { return KindRentedByMe }
func (c RentedByMeCard) AvailableSlots() (int, bool) { return 0, true }
func (c RentedByMeCard) IsFull() bool                { return false }
func (c RentedByMeCard) ActionLabel() string         { return LabelViewCredentials }
func (c RentedByMeCard) card()                       {}

func (c RentedByMeCard) Action() Action {
	return Action{Kind: ActionReveal, Enabled: true, Target: c.Asset.ID}
}

// RentedOutCard is a seat on one of the current user's listings.
type RentedOutCard struct {
	Asset model.RentedTool
}

func (c RentedOutCard) Kind() Kind                  { return KindRentedOut }
func (c RentedOutCard) AvailableSlots() (int, bool) { return 0, true }
func (c RentedOutCard) IsFull() bool                { return false }
func (c RentedOutCard) ActionLabel() string         { return LabelViewCredentials }
func (c RentedOutCard) card()                       {}

func (c RentedOutCard) Action() Action {
	return Action{Kind: ActionReveal, Enabled: true, Target: c.Asset.ID}
}
