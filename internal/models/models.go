package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// The counter UI reads quantities, rates and amounts as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// User - The cashier or admin operating the counter
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'admin', 'cashier'
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentKind tells API consumers which invoice document they are looking at.
type DocumentKind string

const (
	KindSale    DocumentKind = "sale"
	KindReturn  DocumentKind = "return"
	KindUpdated DocumentKind = "updated"
)

// Client - Customer details printed on the invoice (all optional)
type Client struct {
	Name    string `gorm:"size:120" json:"name"`
	Mobile  string `gorm:"size:20" json:"mobile"`
	Address string `gorm:"size:255" json:"address"`
}

// LineItem - One row of an invoice. Amount is always Qty x Rate.
type LineItem struct {
	Category string          `gorm:"size:100" json:"category"`
	Desc     string          `gorm:"size:150" json:"desc"`
	Qty      decimal.Decimal `gorm:"type:decimal(12,3)" json:"qty"`
	Unit     string          `gorm:"size:20" json:"unit"`
	Rate     decimal.Decimal `gorm:"type:decimal(12,2)" json:"rate"`
	Amount   decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
}

// Totals are kept as two-decimal strings, exactly as printed.
type Totals struct {
	SubTotal  string `gorm:"size:20" json:"subTotal"`
	RoundOff  string `gorm:"size:20" json:"roundOff"`
	NetAmount string `gorm:"size:20" json:"netAmount"`
}

// Bill - The original sale invoice
type Bill struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Kind        DocumentKind `gorm:"-" json:"kind"`
	BillNo      string       `gorm:"size:20;uniqueIndex;not null" json:"billNo"`
	Date        string       `gorm:"size:10;index;not null" json:"date"`
	Client      Client       `gorm:"embedded;embeddedPrefix:client_" json:"client"`
	Items       []BillItem   `gorm:"foreignKey:BillID" json:"items"`
	Totals      Totals       `gorm:"embedded" json:"totals"`
	PaymentMode string       `gorm:"size:20" json:"paymentMode"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type BillItem struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	BillID uint `gorm:"index;not null" json:"-"`
	LineItem
}

func (b *Bill) AfterFind(tx *gorm.DB) error {
	b.Kind = KindSale
	return nil
}

func (b *Bill) AfterSave(tx *gorm.DB) error {
	b.Kind = KindSale
	return nil
}

// LineItems strips the storage columns off the bill rows.
func (b *Bill) LineItems() []LineItem {
	items := make([]LineItem, len(b.Items))
	for i, it := range b.Items {
		items[i] = it.LineItem
	}
	return items
}

// ReturnBill - Goods handed back against one original bill
type ReturnBill struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Kind           DocumentKind `gorm:"-" json:"kind"`
	ReturnID       string       `gorm:"size:20;uniqueIndex;not null" json:"returnId"`
	OriginalBillNo string       `gorm:"size:20;uniqueIndex;not null" json:"originalBillNo"`
	ReturnDate     string       `gorm:"size:10;index;not null" json:"returnDate"`
	Client         Client       `gorm:"embedded;embeddedPrefix:client_" json:"client"`
	Items          []ReturnItem `gorm:"foreignKey:ReturnBillID" json:"items"`
	Totals         Totals       `gorm:"embedded" json:"totals"`
	PaymentMode    string       `gorm:"size:20" json:"paymentMode"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

type ReturnItem struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	ReturnBillID uint `gorm:"index;not null" json:"-"`
	LineItem
}

func (r *ReturnBill) AfterFind(tx *gorm.DB) error {
	r.Kind = KindReturn
	return nil
}

func (r *ReturnBill) AfterSave(tx *gorm.DB) error {
	r.Kind = KindReturn
	return nil
}

func (r *ReturnBill) LineItems() []LineItem {
	items := make([]LineItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = it.LineItem
	}
	return items
}

// UpdatedBill - Net remaining invoice after a return. Written only by reconciliation.
type UpdatedBill struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	Kind           DocumentKind      `gorm:"-" json:"kind"`
	UpdatedBillID  string            `gorm:"size:20;uniqueIndex;not null" json:"updatedBillId"`
	OriginalBillNo string            `gorm:"size:20;uniqueIndex;not null" json:"originalBillNo"`
	ReturnID       string            `gorm:"size:20;not null" json:"returnId"`
	Date           string            `gorm:"size:10;not null" json:"date"`
	Client         Client            `gorm:"embedded;embeddedPrefix:client_" json:"client"`
	Items          []UpdatedBillItem `gorm:"foreignKey:DerivedBillID" json:"items"`
	Totals         Totals            `gorm:"embedded" json:"totals"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type UpdatedBillItem struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	DerivedBillID uint `gorm:"index;not null" json:"-"`
	LineItem
}

func (u *UpdatedBill) AfterFind(tx *gorm.DB) error {
	u.Kind = KindUpdated
	return nil
}

func (u *UpdatedBill) AfterSave(tx *gorm.DB) error {
	u.Kind = KindUpdated
	return nil
}

func (u *UpdatedBill) LineItems() []LineItem {
	items := make([]LineItem, len(u.Items))
	for i, it := range u.Items {
		items[i] = it.LineItem
	}
	return items
}
