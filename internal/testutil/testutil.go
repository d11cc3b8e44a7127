// Package testutil holds helpers shared by the package tests: an in-memory SQLite store with
// the full schema, a sqlmock-backed MySQL handle and small HTTP helpers.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go-billing-pos/internal/database"
	"go-billing-pos/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewTestDB returns a migrated, private in-memory SQLite database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "Failed to migrate schema")
	return db
}

// MockDB wraps a GORM MySQL handle with sqlmock.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() { _ = mockDB.Close() })
	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// D parses a decimal literal and panics on bad input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedItem creates (or extends) a category with one item.
func SeedItem(t *testing.T, db *gorm.DB, category, name, qty, price string) models.ProductItem {
	t.Helper()

	var product models.Product
	require.NoError(t, db.Where(models.Product{Category: category}).FirstOrCreate(&product).Error)

	item := models.ProductItem{
		ProductID: product.ID,
		Name:      name,
		Unit:      "piece",
		Price:     D(price),
		Quantity:  D(qty),
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

// StockOf reads the current quantity of a catalog item.
func StockOf(t *testing.T, db *gorm.DB, category, name string) decimal.Decimal {
	t.Helper()

	var item models.ProductItem
	err := db.Joins("JOIN products ON products.id = product_items.product_id").
		Where("products.category = ? AND product_items.name = ?", category, name).
		First(&item).Error
	require.NoError(t, err)
	return item.Quantity
}

// PerformRequest sends a JSON request through a gin engine.
func PerformRequest(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals a recorded response body.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}
