package payment

import "math"

// Stripe's charge bounds for USD, in cents.
const (
	MinChargeCents = 50
	MaxChargeCents = 99_999_999
)

// MaxPrice is the largest price, in dollars, a listing may ask for.
const MaxPrice = float64(MaxChargeCents) / 100

// ToCents converts a decimal price to the smallest currency unit.
func ToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// Chargeable reports whether price converts to an amount Stripe accepts.
func Chargeable(price float64) bool {
	if math.IsNaN(price) || price <= 0 || price > MaxPrice {
		return false
	}
	return ToCents(price) >= MinChargeCents
}

// PlatformFee returns percent of amountCents, rounded to the nearest cent.
func PlatformFee(amountCents, percent int64) int64 {
	if percent <= 0 || amountCents <= 0 {
		return 0
	}
	return int64(math.Round(float64(amountCents*percent) / 100))
}
