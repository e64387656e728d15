package entity

import (
	"time"
)

type Serial struct {
	ID          string    `gorm:"primaryKey"`
	TenantID    string    `gorm:"not null;uniqueIndex:idx_serial_tenant_product_value,priority:1"`
	ProductID   string    `gorm:"not null;uniqueIndex:idx_serial_tenant_product_value,priority:2"`
	SerialValue string    `gorm:"not null;uniqueIndex:idx_serial_tenant_product_value,priority:3"`
	StoreID     string    `gorm:"not null;index"`
	BatchID     *string   `gorm:"index"`
	LocationID  *string   `gorm:"size:64"`
	Status      string    `gorm:"not null;default:available"`
	CreatedBy   string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

type ProductItem struct {
	ID             string     `gorm:"primaryKey"`
	TenantID       string     `gorm:"not null;index"`
	ProductID      string     `gorm:"not null;index"`
	CategoryID     *string    `gorm:"index"`
	StoreID        string     `gorm:"not null;index"`
	BatchID        *string    `gorm:"index"`
	LocationID     *string    `gorm:"size:64"`
	Quantity       int        `gorm:"not null"`
	Status         string     `gorm:"not null"`
	ExpirationDate *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

type StockMovement struct {
	ID            string    `gorm:"primaryKey"`
	TenantID      string    `gorm:"not null;index"`
	ProductItemID string    `gorm:"not null;index"`
	StoreID       string    `gorm:"not null"`
	Delta         int       `gorm:"not null"`
	Reason        string    `gorm:"size:255"`
	CreatedBy     string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

type InventoryFilter struct {
	StoreID    *string
	ProductID  *string
	CategoryID *string
	From       *time.Time
	To         *time.Time
}
