// Package providers defines the upstream data sources a storefront is synced from.
package providers

import (
	"context"
	"time"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
)

// CommerceProvider reads orders, product sales and traffic from a commerce platform.
type CommerceProvider interface {
	// GetPlatform returns the platform identifier.
	GetPlatform() string

	// FetchDailyOrders returns one aggregate per calendar day between from and to,
	// zero-valued for days without orders.
	FetchDailyOrders(ctx context.Context, store *models.Store, from, to time.Time) ([]DailyOrderAggregate, error)

	// FetchProductSales returns allocated sales per product. A nil window means all time.
	FetchProductSales(ctx context.Context, store *models.Store, window *calendar.DateRange) ([]ProductSales, error)

	// FetchTrafficAnalytics returns the top landing pages over the trailing daysBack days.
	FetchTrafficAnalytics(ctx context.Context, store *models.Store, daysBack, limit int) ([]TrafficPage, error)
}

// AdSpendProvider reads ad spend for a storefront's ad account.
type AdSpendProvider interface {
	// GetPlatform returns the platform identifier.
	GetPlatform() string

	// FetchSpend returns the spend between the calendar days of from and to.
	FetchSpend(ctx context.Context, store *models.Store, from, to time.Time) (Spend, error)
}
