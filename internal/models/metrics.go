package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StoreMetric is the per-day metric record of one storefront.
//
// Grain: (store_id, date_key). date_key is the +05:30 calendar day.
type StoreMetric struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	StoreID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_store_metrics_store_date,priority:1" json:"store_id"`
	DateKey       string          `gorm:"size:10;not null;uniqueIndex:idx_store_metrics_store_date,priority:2;index" json:"date"`
	FacebookSpend decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"facebook_spend"`
	GoogleSpend   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"google_spend"`
	SoldOrders    int64           `gorm:"not null;default:0" json:"sold_orders"`
	OrderValue    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"order_value"`
	SoldItems     int64           `gorm:"not null;default:0" json:"sold_items"`
	SpendDegraded bool            `gorm:"not null;default:false" json:"spend_degraded"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name.
func (StoreMetric) TableName() string {
	return "store_metrics"
}

// BeforeCreate assigns an id when none is set.
func (m *StoreMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TotalSpend returns the combined ad spend of the day.
func (m *StoreMetric) TotalSpend() decimal.Decimal {
	return m.FacebookSpend.Add(m.GoogleSpend)
}

// ProductMetric is the allocated sales of one product over the last synced window.
type ProductMetric struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	StoreID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_product_metrics_store_product,priority:1" json:"store_id"`
	ProductID    string          `gorm:"size:64;not null;uniqueIndex:idx_product_metrics_store_product,priority:2" json:"product_id"`
	ProductName  string          `gorm:"size:512" json:"product_name"`
	ProductImage string          `gorm:"size:1024" json:"product_image,omitempty"`
	ProductURL   string          `gorm:"size:1024" json:"product_url,omitempty"`
	QuantitySold int64           `gorm:"not null;default:0" json:"quantity_sold"`
	// Allocated revenue keeps ten places so rounded rows still sum to the order value.
	Revenue      decimal.Decimal `gorm:"type:decimal(24,10);not null;default:0" json:"revenue"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name.
func (ProductMetric) TableName() string {
	return "product_metrics"
}

// BeforeCreate assigns an id when none is set.
func (m *ProductMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TrafficMetric is the landing page traffic of one storefront over a window.
type TrafficMetric struct {
	ID                          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StoreID                     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_traffic_metrics_key,priority:1" json:"store_id"`
	LandingPageType             string    `gorm:"size:128;not null;uniqueIndex:idx_traffic_metrics_key,priority:2" json:"landing_page_type"`
	LandingPagePath             string    `gorm:"size:1024;not null;uniqueIndex:idx_traffic_metrics_key,priority:3" json:"landing_page_path"`
	StartDate                   string    `gorm:"size:10;not null;uniqueIndex:idx_traffic_metrics_key,priority:4;index" json:"start_date"`
	EndDate                     string    `gorm:"size:10;not null;uniqueIndex:idx_traffic_metrics_key,priority:5" json:"end_date"`
	OnlineStoreVisitors         int64     `gorm:"not null;default:0" json:"online_store_visitors"`
	Sessions                    int64     `gorm:"not null;default:0" json:"sessions"`
	SessionsWithCartAdditions   int64     `gorm:"not null;default:0" json:"sessions_with_cart_additions"`
	SessionsThatReachedCheckout int64     `gorm:"not null;default:0" json:"sessions_that_reached_checkout"`
	CreatedAt                   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name.
func (TrafficMetric) TableName() string {
	return "traffic_metrics"
}

// BeforeCreate assigns an id when none is set.
func (m *TrafficMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// StoreMetricTotals is one row of a cross-store aggregate.
type StoreMetricTotals struct {
	StoreID       uuid.UUID       `json:"store_id"`
	FacebookSpend decimal.Decimal `json:"facebook_spend"`
	GoogleSpend   decimal.Decimal `json:"google_spend"`
	SoldOrders    int64           `json:"sold_orders"`
	OrderValue    decimal.Decimal `json:"order_value"`
	SoldItems     int64           `json:"sold_items"`
	Days          int64           `json:"days"`
}
