package providers

import (
	"github.com/shopspring/decimal"
)

// DailyOrderAggregate represents the orders of one storefront on one +05:30 calendar day
type DailyOrderAggregate struct {
	Date       string          `json:"date"`
	SoldOrders int64           `json:"sold_orders"`
	OrderValue decimal.Decimal `json:"order_value"`
	SoldItems  int64           `json:"sold_items"`
}

// ProductSales represents the allocated sales of one product over a window
type ProductSales struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image,omitempty"`
	ProductURL   string          `json:"product_url,omitempty"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// TrafficPage represents one landing page row of the traffic report
type TrafficPage struct {
	LandingPageType             string `json:"landing_page_type"`
	LandingPagePath             string `json:"landing_page_path"`
	OnlineStoreVisitors         int64  `json:"online_store_visitors"`
	Sessions                    int64  `json:"sessions"`
	SessionsWithCartAdditions   int64  `json:"sessions_with_cart_additions"`
	SessionsThatReachedCheckout int64  `json:"sessions_that_reached_checkout"`
}

// Spend is the ad spend of one account over a date range.
// Degraded is set when the amount could not be fetched and was reported as zero.
type Spend struct {
	Amount   decimal.Decimal `json:"amount"`
	Degraded bool            `json:"degraded"`
}

// ZeroSpend returns a confirmed zero spend.
func ZeroSpend() Spend {
	return Spend{Amount: decimal.Zero}
}

// DegradedSpend returns a zero spend flagged as unknown.
func DegradedSpend() Spend {
	return Spend{Amount: decimal.Zero, Degraded: true}
}
