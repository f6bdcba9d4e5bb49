package shopify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

const dailyOrdersQuery = `
query dailyOrders($cursor: String, $queryString: String) {
  orders(first: 100, after: $cursor, query: $queryString) {
    edges {
      cursor
      node {
        id
        createdAt
        totalPriceSet { shopMoney { amount } }
        lineItems(first: 100) {
          edges { node { quantity } }
        }
      }
    }
    pageInfo { hasNextPage }
  }
}`

// OrderProvider buckets orders into +05:30 calendar days.
type OrderProvider struct {
	client *Client
	logger *zap.Logger
}

// NewOrderProvider creates a new order provider.
func NewOrderProvider(client *Client) *OrderProvider {
	return &OrderProvider{client: client, logger: client.logger}
}

// FetchDailyOrders walks every order created between the start of from's day and
// the end of to's day and returns one aggregate per calendar day, in order.
func (p *OrderProvider) FetchDailyOrders(ctx context.Context, store *models.Store, from, to time.Time) ([]providers.DailyOrderAggregate, error) {
	creds, err := credentialsFor(store)
	if err != nil {
		return nil, err
	}

	days := calendar.DaysInRange(from, to)
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: %s..%s", calendar.ErrInvalidRange, calendar.DateKey(from), calendar.DateKey(to))
	}

	buckets := make(map[string]*providers.DailyOrderAggregate, len(days))
	aggregates := make([]providers.DailyOrderAggregate, len(days))
	for i, key := range days {
		aggregates[i].Date = key
		buckets[key] = &aggregates[i]
	}

	start, _ := calendar.DayBoundaries(from)
	_, end := calendar.DayBoundaries(to)

	outside := 0
	pages, err := p.client.walkOrders(ctx, creds, "dailyOrders", dailyOrdersQuery, createdAtFilter(start, end),
		func(order *orderNode) error {
			bucket, ok := buckets[calendar.DateKey(order.CreatedAt)]
			if !ok {
				outside++
				return nil
			}

			value, err := order.totalValue()
			if err != nil {
				return fmt.Errorf("order %s: %w", order.ID, err)
			}

			bucket.SoldOrders++
			bucket.OrderValue = bucket.OrderValue.Add(value)
			for _, item := range order.LineItems.Edges {
				bucket.SoldItems += item.Node.Quantity
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	if outside > 0 {
		p.logger.Warn("orders outside requested days ignored",
			zap.String("store_id", store.ID.String()),
			zap.Int("count", outside),
		)
	}

	p.logger.Debug("daily orders fetched",
		zap.String("store_id", store.ID.String()),
		zap.Int("pages", pages),
		zap.Int("days", len(days)),
	)

	return aggregates, nil
}
