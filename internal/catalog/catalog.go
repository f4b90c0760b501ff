package catalog

import (
	"github.com/cctvmagic/videomagic-backend/pkg/enums"
)

// CreditPackage is one purchasable credit bundle. The list is static; prices
// live here and in the payment provider's dashboard, matched by unit amount.
type CreditPackage struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	PriceInCents int64  `json:"priceInCents"`
	Credits      int    `json:"credits"`
}

var creditPackages = []CreditPackage{
	{
		ID:           "starter-pack",
		Name:         "Starter Pack",
		Description:  "Perfect for trying out the platform",
		PriceInCents: 1099,
		Credits:      6,
	},
	{
		ID:           "creator-pack",
		Name:         "Creator Pack",
		Description:  "Best value for regular creators",
		PriceInCents: 2199,
		Credits:      13,
	},
	{
		ID:           "pro-pack",
		Name:         "Pro Pack",
		Description:  "For professional content creators",
		PriceInCents: 4599,
		Credits:      30,
	},
	{
		ID:           "enterprise-pack",
		Name:         "Enterprise Pack",
		Description:  "Maximum value for power users",
		PriceInCents: 10999,
		Credits:      80,
	},
}

var creditCosts = map[enums.VideoModel]int{
	enums.VideoModelSora2:      1,
	enums.VideoModelSora2Pro:   3,
	enums.VideoModelSora2ProHD: 3,
}

// Packages returns the purchasable bundles in display order.
func Packages() []CreditPackage {
	out := make([]CreditPackage, len(creditPackages))
	copy(out, creditPackages)
	return out
}

// PackageByID finds a bundle by its catalog id.
func PackageByID(id string) (CreditPackage, bool) {
	for _, pkg := range creditPackages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return CreditPackage{}, false
}

// PackageByPrice finds a bundle by its exact unit amount in cents. Used by
// the payment webhook to resolve purchases made through payment links,
// where no package id travels with the session.
func PackageByPrice(priceInCents int64) (CreditPackage, bool) {
	for _, pkg := range creditPackages {
		if pkg.PriceInCents == priceInCents {
			return pkg, true
		}
	}
	return CreditPackage{}, false
}

// CreditCost returns the per-video cost for the model. The cost covers all
// supported durations.
func CreditCost(model enums.VideoModel) int {
	if cost, ok := creditCosts[model]; ok {
		return cost
	}
	return 1
}
