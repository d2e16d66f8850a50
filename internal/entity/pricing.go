package domain

import "math"

// PriceTolerance is the threshold below which a live price is considered
// unchanged from its locked value.
const PriceTolerance = 0.01

// ProductPricing is the live catalog view of one cart line: base product
// pricing plus an optional variant override, display metadata, and stock.
type ProductPricing struct {
	ProductID       string
	Name            string
	BasePrice       float64
	Discount        *float64
	VariantID       *string
	VariantName     string
	VariantPrice    *float64
	VariantDiscount *float64
	ImageURL        string
	Stock           int
}

// EffectiveUnitPrice resolves the unit price: variant override wins.
func (p ProductPricing) EffectiveUnitPrice() float64 {
	if p.VariantPrice != nil {
		return *p.VariantPrice
	}
	return p.BasePrice
}

// EffectiveDiscount resolves the discount percentage: variant override wins,
// then the product discount, defaulting to 0.
func (p ProductPricing) EffectiveDiscount() float64 {
	if p.VariantDiscount != nil {
		return *p.VariantDiscount
	}
	if p.Discount != nil {
		return *p.Discount
	}
	return 0
}

// FinalPrice applies the resolved discount to the resolved unit price.
func (p ProductPricing) FinalPrice() float64 {
	return p.EffectiveUnitPrice() * (1 - p.EffectiveDiscount()/100)
}

// PriceChanged compares a live final price against a locked one.
func PriceChanged(locked, live float64) bool {
	return math.Abs(locked-live) > PriceTolerance
}

// LockPrice snapshots one cart line at initiation time.
func LockPrice(itemID string, quantity int, p ProductPricing) LockedPriceItem {
	return LockedPriceItem{
		ItemID:      itemID,
		ProductID:   p.ProductID,
		VariantID:   p.VariantID,
		Quantity:    quantity,
		UnitPrice:   p.EffectiveUnitPrice(),
		DiscountPct: p.EffectiveDiscount(),
		FinalPrice:  p.FinalPrice(),
		Name:        p.Name,
		VariantName: p.VariantName,
		ImageURL:    p.ImageURL,
	}
}
