package shopify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	shopifydomain "github.com/niaga-platform/service-storemetrics/internal/domain/shopify"
)

// pageSize is the maximum page size the Admin API accepts for orders and line items.
const pageSize = 100

// pageState is the cursor walk state of one paginated query.
type pageState struct {
	cursor  *string
	hasMore bool
}

func newPageState() pageState {
	return pageState{hasMore: true}
}

// advance moves the walk past a fetched page. An empty page ends the walk.
func (s *pageState) advance(conn *orderConnection) {
	if len(conn.Edges) == 0 {
		s.hasMore = false
		return
	}
	last := conn.Edges[len(conn.Edges)-1].Cursor
	s.cursor = &last
	s.hasMore = conn.PageInfo.HasNextPage
}

type orderConnection struct {
	Edges    []orderEdge `json:"edges"`
	PageInfo struct {
		HasNextPage bool `json:"hasNextPage"`
	} `json:"pageInfo"`
}

type orderEdge struct {
	Cursor string    `json:"cursor"`
	Node   orderNode `json:"node"`
}

type orderNode struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	TotalPriceSet struct {
		ShopMoney struct {
			Amount string `json:"amount"`
		} `json:"shopMoney"`
	} `json:"totalPriceSet"`
	LineItems struct {
		Edges []struct {
			Node lineItemNode `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

type lineItemNode struct {
	Quantity int64        `json:"quantity"`
	Product  *productNode `json:"product"`
}

type productNode struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Handle         string  `json:"handle"`
	OnlineStoreURL *string `json:"onlineStoreUrl"`
	FeaturedImage  *struct {
		URL string `json:"url"`
	} `json:"featuredImage"`
}

// totalValue parses the order's shop-currency total. A missing amount is zero.
func (o *orderNode) totalValue() (decimal.Decimal, error) {
	return parseMoney(o.TotalPriceSet.ShopMoney.Amount)
}

// walkOrders follows the orders connection page by page, calling visit for every
// order. Any failed page aborts the walk; nothing is returned for partial walks.
func (c *Client) walkOrders(
	ctx context.Context,
	creds *shopifydomain.Credentials,
	operation, query, filter string,
	visit func(*orderNode) error,
) (int, error) {
	state := newPageState()
	pages := 0

	for state.hasMore {
		variables := map[string]interface{}{
			"cursor":      state.cursor,
			"queryString": nil,
		}
		if filter != "" {
			variables["queryString"] = filter
		}

		var data struct {
			Orders orderConnection `json:"orders"`
		}
		if err := c.Do(ctx, creds, &Request{Operation: operation, Query: query, Variables: variables}, &data); err != nil {
			return pages, fmt.Errorf("failed to fetch orders page %d: %w", pages+1, err)
		}
		pages++

		for i := range data.Orders.Edges {
			if err := visit(&data.Orders.Edges[i].Node); err != nil {
				return pages, err
			}
		}

		state.advance(&data.Orders)
	}

	return pages, nil
}

// createdAtFilter builds the orders search filter for an absolute time window.
func createdAtFilter(start, end time.Time) string {
	return fmt.Sprintf("created_at:>='%s' AND created_at:<='%s'", isoMillis(start), isoMillis(end))
}

func isoMillis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func parseMoney(amount string) (decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", shopifydomain.ErrMalformedPayload, amount)
	}
	return d, nil
}

// parseCount parses a ShopifyQL count cell such as "1,204". Blank cells are zero.
func parseCount(cell string) int64 {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cell == "" {
		return 0
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return 0
	}
	return d.IntPart()
}

// legacyID returns the numeric tail of a GraphQL global id.
func legacyID(gid string) string {
	if i := strings.LastIndexByte(gid, '/'); i >= 0 {
		return gid[i+1:]
	}
	return gid
}
