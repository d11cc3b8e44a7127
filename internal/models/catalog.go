package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product - One catalog category and the items sold under it
type Product struct {
	ID       uint          `gorm:"primaryKey" json:"id"`
	Category string        `gorm:"size:100;uniqueIndex;not null" json:"category"`
	Items    []ProductItem `gorm:"foreignKey:ProductID" json:"items"`
}

// ProductItem - A sellable item. Quantity is the on-hand stock counter.
type ProductItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"uniqueIndex:idx_product_item_name;not null" json:"-"`
	Name      string          `gorm:"size:150;uniqueIndex:idx_product_item_name;not null" json:"name"`
	Unit      string          `gorm:"size:20;default:piece" json:"unit"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Quantity  decimal.Decimal `gorm:"type:decimal(12,3)" json:"qty"`
}

// Counter - Named sequence. The "billNo" row holds the last issued bill number.
type Counter struct {
	ID  string `gorm:"primaryKey;size:50" json:"id"`
	Seq int64  `json:"seq"`
}

const (
	JobPending = "pending"
	JobFailed  = "failed"
)

// ReconcileJob - Outbox row asking for the updated bill of OriginalBillNo to be recomputed.
// Generation is bumped on every enqueue so a worker never drops a newer request.
type ReconcileJob struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OriginalBillNo string    `gorm:"size:20;uniqueIndex;not null" json:"originalBillNo"`
	Status         string    `gorm:"size:20;index;not null" json:"status"`
	Generation     int64     `gorm:"not null;default:1" json:"generation"`
	Attempts       int       `gorm:"not null;default:0" json:"attempts"`
	LastError      string    `gorm:"type:text" json:"lastError,omitempty"`
	NextAttemptAt  time.Time `gorm:"index" json:"nextAttemptAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
