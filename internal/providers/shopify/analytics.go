package shopify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	shopifydomain "github.com/niaga-platform/service-storemetrics/internal/domain/shopify"
	"github.com/niaga-platform/service-storemetrics/internal/models"
	"github.com/niaga-platform/service-storemetrics/internal/providers"
)

const (
	defaultTrafficDays  = 7
	defaultTrafficLimit = 20
	maxTrafficLimit     = 1000

	unknownLandingPageType = "Unknown"
	rootLandingPagePath    = "/"
)

const trafficReportQuery = `
query trafficReport($query: String!) {
  shopifyqlQuery(query: $query) {
    __typename
    parseErrors { code message }
    ... on TableResponse {
      tableData {
        columns { name dataType }
        rowData
      }
    }
  }
}`

// AnalyticsProvider reads landing page traffic through ShopifyQL.
type AnalyticsProvider struct {
	client *Client
	logger *zap.Logger
}

// NewAnalyticsProvider creates a new analytics provider.
func NewAnalyticsProvider(client *Client) *AnalyticsProvider {
	return &AnalyticsProvider{client: client, logger: client.logger}
}

type trafficReportResponse struct {
	ShopifyqlQuery *struct {
		Typename    string                    `json:"__typename"`
		ParseErrors shopifydomain.ParseErrors `json:"parseErrors"`
		TableData   *struct {
			Columns []struct {
				Name     string `json:"name"`
				DataType string `json:"dataType"`
			} `json:"columns"`
			RowData [][]string `json:"rowData"`
		} `json:"tableData"`
	} `json:"shopifyqlQuery"`
}

// TrafficQuery renders the ShopifyQL landing page report for a trailing window
// that ends yesterday.
func TrafficQuery(daysBack, limit int) string {
	return fmt.Sprintf(
		"FROM sessions SHOW online_store_visitors, sessions, sessions_with_cart_additions, sessions_that_reached_checkout "+
			"GROUP BY landing_page_type, landing_page_path SINCE -%dd UNTIL yesterday ORDER BY sessions DESC LIMIT %d",
		daysBack, limit)
}

// FetchTrafficAnalytics returns the landing pages with the most sessions.
// Any ShopifyQL parse error fails the call.
func (p *AnalyticsProvider) FetchTrafficAnalytics(ctx context.Context, store *models.Store, daysBack, limit int) ([]providers.TrafficPage, error) {
	creds, err := credentialsFor(store)
	if err != nil {
		return nil, err
	}

	if daysBack < 1 {
		daysBack = defaultTrafficDays
	}
	if limit < 1 {
		limit = defaultTrafficLimit
	}
	if limit > maxTrafficLimit {
		limit = maxTrafficLimit
	}

	var resp trafficReportResponse
	err = p.client.Do(ctx, creds, &Request{
		Operation: "trafficReport",
		Query:     trafficReportQuery,
		Variables: map[string]interface{}{"query": TrafficQuery(daysBack, limit)},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch traffic report: %w", err)
	}

	report := resp.ShopifyqlQuery
	if report == nil {
		return nil, fmt.Errorf("%w: missing shopifyqlQuery", shopifydomain.ErrMalformedPayload)
	}
	if len(report.ParseErrors) > 0 {
		return nil, report.ParseErrors
	}
	if report.TableData == nil {
		return []providers.TrafficPage{}, nil
	}

	index := make(map[string]int, len(report.TableData.Columns))
	for i, col := range report.TableData.Columns {
		index[col.Name] = i
	}
	cell := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	pages := make([]providers.TrafficPage, 0, len(report.TableData.RowData))
	for _, row := range report.TableData.RowData {
		page := providers.TrafficPage{
			LandingPageType:             cell(row, "landing_page_type"),
			LandingPagePath:             cell(row, "landing_page_path"),
			OnlineStoreVisitors:         parseCount(cell(row, "online_store_visitors")),
			Sessions:                    parseCount(cell(row, "sessions")),
			SessionsWithCartAdditions:   parseCount(cell(row, "sessions_with_cart_additions")),
			SessionsThatReachedCheckout: parseCount(cell(row, "sessions_that_reached_checkout")),
		}
		if page.LandingPageType == "" {
			page.LandingPageType = unknownLandingPageType
		}
		if page.LandingPagePath == "" {
			page.LandingPagePath = rootLandingPagePath
		}
		pages = append(pages, page)
	}

	p.logger.Debug("traffic report fetched",
		zap.String("store_id", store.ID.String()),
		zap.Int("days_back", daysBack),
		zap.Int("rows", len(pages)),
	)

	return pages, nil
}
