package shopify

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

const productSalesQuery = `
query productSales($cursor: String, $queryString: String) {
  orders(first: 100, after: $cursor, query: $queryString) {
    edges {
      cursor
      node {
        id
        createdAt
        totalPriceSet { shopMoney { amount } }
        lineItems(first: 100) {
          edges {
            node {
              quantity
              product {
                id
                title
                handle
                onlineStoreUrl
                featuredImage { url }
              }
            }
          }
        }
      }
    }
    pageInfo { hasNextPage }
  }
}`

// ProductProvider accumulates allocated sales per product.
type ProductProvider struct {
	client *Client
	logger *zap.Logger
}

// NewProductProvider creates a new product provider.
func NewProductProvider(client *Client) *ProductProvider {
	return &ProductProvider{client: client, logger: client.logger}
}

// FetchProductSales returns per-product quantity and allocated revenue.
// A nil window applies no date filter.
func (p *ProductProvider) FetchProductSales(ctx context.Context, store *models.Store, window *calendar.DateRange) ([]providers.ProductSales, error) {
	creds, err := credentialsFor(store)
	if err != nil {
		return nil, err
	}

	filter := ""
	if window != nil {
		filter = createdAtFilter(window.Bounds())
	}

	byProduct := make(map[string]*providers.ProductSales)
	pages, err := p.client.walkOrders(ctx, creds, "productSales", productSalesQuery, filter,
		func(order *orderNode) error {
			value, err := order.totalValue()
			if err != nil {
				return err
			}
			allocate(byProduct, order, value, creds.Shop())
			return nil
		})
	if err != nil {
		return nil, err
	}

	result := make([]providers.ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		result = append(result, *ps)
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].Revenue.Cmp(result[j].Revenue); c != 0 {
			return c > 0
		}
		return result[i].ProductID < result[j].ProductID
	})

	p.logger.Debug("product sales fetched",
		zap.String("store_id", store.ID.String()),
		zap.Int("pages", pages),
		zap.Int("products", len(result)),
		zap.Bool("all_time", window == nil),
	)

	return result, nil
}

// allocate spreads the order value over its product line items in proportion to
// quantity. Line items without a product take no share, so the shares of one
// order always add up to its total value.
func allocate(byProduct map[string]*providers.ProductSales, order *orderNode, value decimal.Decimal, shop string) {
	var totalQty int64
	for _, edge := range order.LineItems.Edges {
		if edge.Node.Product != nil && edge.Node.Quantity > 0 {
			totalQty += edge.Node.Quantity
		}
	}
	if totalQty == 0 {
		return
	}

	total := decimal.NewFromInt(totalQty)
	for _, edge := range order.LineItems.Edges {
		item := edge.Node
		if item.Product == nil || item.Quantity <= 0 {
			continue
		}

		id := legacyID(item.Product.ID)
		ps, ok := byProduct[id]
		if !ok {
			ps = &providers.ProductSales{
				ProductID:   id,
				ProductName: item.Product.Title,
				ProductURL:  productURL(item.Product, shop),
			}
			if item.Product.FeaturedImage != nil {
				ps.ProductImage = item.Product.FeaturedImage.URL
			}
			byProduct[id] = ps
		}

		ps.QuantitySold += item.Quantity
		ps.Revenue = ps.Revenue.Add(value.Mul(decimal.NewFromInt(item.Quantity)).Div(total))
	}
}

func productURL(p *productNode, shop string) string {
	if p.OnlineStoreURL != nil && *p.OnlineStoreURL != "" {
		return *p.OnlineStoreURL
	}
	if p.Handle == "" {
		return ""
	}
	return "https://" + shop + "/products/" + p.Handle
}
