package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is a connected storefront: a tenant's commerce and ad-account configuration.
type Store struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string    `gorm:"size:255;not null" json:"name"`
	ShopifyStoreURL     string    `gorm:"size:255" json:"shopify_store_url"`
	ShopifyToken        string    `gorm:"size:255" json:"-"`
	FacebookAccountID   string    `gorm:"size:64" json:"facebook_account_id,omitempty"`
	FacebookAccessToken string    `gorm:"size:512" json:"-"`
	GoogleAdsCustomerID string    `gorm:"size:64" json:"google_ads_customer_id,omitempty"`
	IsActive            bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName sets the table name.
func (Store) TableName() string {
	return "stores"
}

// BeforeCreate assigns an id when none is set.
func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// HasShopify reports whether the commerce credentials are configured.
func (s *Store) HasShopify() bool {
	return s.ShopifyStoreURL != "" && s.ShopifyToken != ""
}

// ErrStoreNotFound is returned when a storefront id is not registered.
var ErrStoreNotFound = errors.New("store not found")
