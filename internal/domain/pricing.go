package domain

// loyaltyEarnDivisor converts a subtotal in minor currency units into earned
// points: one point per 100 major units. The constant bakes in the usual
// 100-minor-units-per-major-unit assumption.
const loyaltyEarnDivisor = 10000

// LoyaltyPointRedemptionCents is the value of a single redeemed loyalty point
// in minor currency units.
const LoyaltyPointRedemptionCents = 100

// PricingRates carries the config-driven inputs to server-side total
// computation.
type PricingRates struct {
	Currency                   string
	TaxBasisPoints             int64
	ShippingFlatCents          int64
	FreeShippingThresholdCents int64
}

// PricedLine is a checkout line after the catalog price snapshot was taken.
type PricedLine struct {
	ProductID  string
	Quantity   int
	PriceCents int64
}

// OrderTotals is the authoritative money breakdown for an order, computed
// server-side from current catalog prices.
type OrderTotals struct {
	Currency       string
	SubtotalCents  int64
	TaxCents       int64
	ShippingCents  int64
	GiftCardCents  int64
	PointsRedeemed int64
	TotalCents     int64
	PointsEarned   int64
}

// LoyaltyPointsEarned returns the points awarded for an order subtotal in
// minor units. Tax and shipping never earn points.
func LoyaltyPointsEarned(subtotalCents int64) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	return subtotalCents / loyaltyEarnDivisor
}

// ComputeOrderTotals derives the full money breakdown for a set of priced
// lines. Gift-card value and redeemed points are clamped so the grand total
// never goes negative; the caller is expected to have already bounded the
// redemption against the card balance and the user's point balance.
func ComputeOrderTotals(lines []PricedLine, rates PricingRates, giftCardCents, pointsRedeemed int64) OrderTotals {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.PriceCents * int64(line.Quantity)
	}

	tax := subtotal * rates.TaxBasisPoints / 10000

	shipping := rates.ShippingFlatCents
	if rates.FreeShippingThresholdCents > 0 && subtotal >= rates.FreeShippingThresholdCents {
		shipping = 0
	}

	gross := subtotal + tax + shipping

	if giftCardCents < 0 {
		giftCardCents = 0
	}
	if giftCardCents > gross {
		giftCardCents = gross
	}

	if pointsRedeemed < 0 {
		pointsRedeemed = 0
	}
	discountable := gross - giftCardCents
	if maxPoints := discountable / LoyaltyPointRedemptionCents; pointsRedeemed > maxPoints {
		pointsRedeemed = maxPoints
	}

	total := gross - giftCardCents - pointsRedeemed*LoyaltyPointRedemptionCents
	if total < 0 {
		total = 0
	}

	return OrderTotals{
		Currency:       rates.Currency,
		SubtotalCents:  subtotal,
		TaxCents:       tax,
		ShippingCents:  shipping,
		GiftCardCents:  giftCardCents,
		PointsRedeemed: pointsRedeemed,
		TotalCents:     total,
		PointsEarned:   LoyaltyPointsEarned(subtotal),
	}
}
