package entities

import (
	"sort"

	"github.com/shopspring/decimal"
)

type defaultPrice struct {
	name  string
	price int64
}

// defaultPrices is the bundled price list. It seeds the store and answers lookups when the store is unavailable.
var defaultPrices = map[PriceKey]defaultPrice{
	{CategoryGST, "registration"}: {"GST Registration", 1499},
	{CategoryGST, "return-filing"}: {"GST Return Filing", 999},
	{CategoryGST, "resolution"}:    {"GST Notice Resolution", 3999},
	{CategoryGST, "cancellation"}:  {"GST Cancellation", 1999},

	{CategoryITR, "salaried"}:      {"ITR Filing (Salaried)", 799},
	{CategoryITR, "business"}:      {"ITR Filing (Business)", 2499},
	{CategoryITR, "capital-gains"}: {"ITR Filing (Capital Gains)", 2999},
	{CategoryITR, "nri"}:           {"ITR Filing (NRI)", 3499},

	{CategoryTax, "individual"}: {"Tax Planning (Individual)", 2999},
	{CategoryTax, "business"}:   {"Tax Planning (Business)", 5999},

	{CategoryBusiness, "company-registration"}: {"Private Limited Registration", 6999},
	{CategoryBusiness, "llp-registration"}:     {"LLP Registration", 5999},
	{CategoryBusiness, "startup-advisory"}:     {"Startup Advisory", 9999},

	{CategoryTrademark, "registration"}: {"Trademark Registration", 4999},
	{CategoryTrademark, "objection"}:    {"Trademark Objection Reply", 3999},
	{CategoryTrademark, "renewal"}:      {"Trademark Renewal", 2999},
}

// DefaultPrice returns the bundled price for key.
func DefaultPrice(key PriceKey) (decimal.Decimal, bool) {
	d, ok := defaultPrices[key]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(d.price), true
}

// ServiceName falls back to "<Category> <serviceType>" for keys outside the bundled list.
func ServiceName(key PriceKey) string {
	if d, ok := defaultPrices[key]; ok {
		return d.name
	}
	return key.Category.DisplayName() + " " + key.ServiceType
}

// DefaultPricingEntries is the seed set in a stable order.
func DefaultPricingEntries() []PricingEntry {
	entries := make([]PricingEntry, 0, len(defaultPrices))
	for key, d := range defaultPrices {
		entries = append(entries, PricingEntry{
			Category:    key.Category,
			ServiceType: key.ServiceType,
			ServiceName: d.name,
			Price:       decimal.NewFromInt(d.price),
			IsActive:    true,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return entries[i].ServiceType < entries[j].ServiceType
	})
	return entries
}
