package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-billing-pos/internal/models"
)

// ItemInput is a catalog item as sent by the counter UI.
type ItemInput struct {
	Name     string
	Unit     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// ItemPatch updates only the fields that are set.
type ItemPatch struct {
	Name     *string
	Unit     *string
	Price    *decimal.Decimal
	Quantity *decimal.Decimal
}

// PriceUpdate carries the rate a cashier typed for a bill line.
type PriceUpdate struct {
	Category string
	Desc     string
	Rate     decimal.Decimal
}

// CategoryValuation is stock value per category.
type CategoryValuation struct {
	Category   string          `json:"category"`
	ItemCount  int             `json:"itemCount"`
	Quantity   decimal.Decimal `json:"quantity"`
	StockValue decimal.Decimal `json:"stockValue"`
}

type Valuation struct {
	Categories []CategoryValuation `json:"categories"`
	Total      decimal.Decimal     `json:"total"`
}

func (in ItemInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return newError(ErrInvalidInput, "item name is required")
	}
	if in.Price.IsNegative() {
		return newError(ErrInvalidInput, "price of %s cannot be negative", in.Name)
	}
	if in.Quantity.IsNegative() {
		return newError(ErrInvalidInput, "quantity of %s cannot be negative", in.Name)
	}
	return nil
}

func (in ItemInput) model(productID uint) models.ProductItem {
	unit := in.Unit
	if unit == "" {
		unit = "piece"
	}
	return models.ProductItem{
		ProductID: productID,
		Name:      strings.TrimSpace(in.Name),
		Unit:      unit,
		Price:     in.Price,
		Quantity:  in.Quantity,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Items", orderByID).
		Order("category ASC").
		Find(&products).Error
	if err != nil {
		return nil, wrap("list products", err)
	}
	return products, nil
}

// CreateCategory adds a new category with its initial items.
func (s *Service) CreateCategory(ctx context.Context, category string, items []ItemInput) (*models.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, newError(ErrInvalidInput, "category is required")
	}
	seen := make(map[string]bool, len(items))
	for _, in := range items {
		if err := in.validate(); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(in.Name)
		if seen[name] {
			return nil, newError(ErrInvalidInput, "item %s is listed twice", name)
		}
		seen[name] = true
	}

	product := &models.Product{Category: category}
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("category = ?", category).Count(&count).Error; err != nil {
			return wrap("check category", err)
		}
		if count > 0 {
			return newError(ErrAlreadyExists, "category %s already exists", category)
		}
		if err := tx.Create(product).Error; err != nil {
			return wrap("create category", err)
		}
		for _, in := range items {
			item := in.model(product.ID)
			if err := tx.Create(&item).Error; err != nil {
				return wrap("create item", err)
			}
			product.Items = append(product.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// AddItem appends an item to a category, creating the category when it does not exist yet.
func (s *Service) AddItem(ctx context.Context, category string, in ItemInput) (*models.ProductItem, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, newError(ErrInvalidInput, "category is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item models.ProductItem
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where(models.Product{Category: category}).FirstOrCreate(&product).Error; err != nil {
			return wrap("load category", err)
		}

		var count int64
		if err := tx.Model(&models.ProductItem{}).
			Where("product_id = ? AND name = ?", product.ID, strings.TrimSpace(in.Name)).
			Count(&count).Error; err != nil {
			return wrap("check item", err)
		}
		if count > 0 {
			return newError(ErrAlreadyExists, "item %s already exists in %s", in.Name, category)
		}

		item = in.model(product.ID)
		if err := tx.Create(&item).Error; err != nil {
			return wrap("create item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem edits one catalog item. Renaming onto an existing name in the category is refused.
func (s *Service) UpdateItem(ctx context.Context, category, name string, patch ItemPatch) (*models.ProductItem, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, newError(ErrInvalidInput, "item name cannot be empty")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, newError(ErrInvalidInput, "price cannot be negative")
	}
	if patch.Quantity != nil && patch.Quantity.IsNegative() {
		return nil, newError(ErrInvalidInput, "quantity cannot be negative")
	}

	var item models.ProductItem
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("category = ?", category).First(&product).Error; err != nil {
			if isNotFound(err) {
				return notFound("category", category)
			}
			return wrap("load category", err)
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ? AND name = ?", product.ID, name).
			First(&item).Error; err != nil {
			if isNotFound(err) {
				return notFound("item", name)
			}
			return wrap("load item", err)
		}

		if patch.Name != nil {
			newName := strings.TrimSpace(*patch.Name)
			if newName != item.Name {
				var count int64
				if err := tx.Model(&models.ProductItem{}).
					Where("product_id = ? AND name = ?", product.ID, newName).
					Count(&count).Error; err != nil {
					return wrap("check item", err)
				}
				if count > 0 {
					return newError(ErrAlreadyExists, "item %s already exists in %s", newName, category)
				}
				item.Name = newName
			}
		}
		if patch.Unit != nil {
			item.Unit = *patch.Unit
		}
		if patch.Price != nil {
			item.Price = *patch.Price
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if err := tx.Save(&item).Error; err != nil {
			return wrap("save item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// BulkUpdatePrices overwrites the catalog price of every (category, desc) pair it knows and
// reports how many items changed. Unknown pairs are ignored.
func (s *Service) BulkUpdatePrices(ctx context.Context, updates []PriceUpdate) (int, error) {
	updated := 0
	err := s.mutate(ctx, func(tx *gorm.DB) error {
		for _, u := range updates {
			if u.Category == "" || u.Desc == "" || u.Rate.IsNegative() {
				continue
			}
			var product models.Product
			err := tx.Where("category = ?", u.Category).First(&product).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return wrap("load category", err)
			}

			res := tx.Model(&models.ProductItem{}).
				Where("product_id = ? AND name = ?", product.ID, u.Desc).
				Update("price", u.Rate)
			if res.Error != nil {
				return wrap("update price", res.Error)
			}
			updated += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// StockValuation values on-hand stock at catalog price, per category.
func (s *Service) StockValuation(ctx context.Context) (*Valuation, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	v := &Valuation{Categories: make([]CategoryValuation, 0, len(products)), Total: decimal.Zero}
	for _, p := range products {
		cv := CategoryValuation{Category: p.Category, ItemCount: len(p.Items), Quantity: decimal.Zero, StockValue: decimal.Zero}
		for _, it := range p.Items {
			cv.Quantity = cv.Quantity.Add(it.Quantity)
			cv.StockValue = cv.StockValue.Add(it.Quantity.Mul(it.Price))
		}
		cv.StockValue = cv.StockValue.Round(2)
		v.Total = v.Total.Add(cv.StockValue)
		v.Categories = append(v.Categories, cv)
	}
	return v, nil
}

// FindItem returns a catalog item, or ErrNotFound.
func (s *Service) FindItem(ctx context.Context, category, name string) (*models.ProductItem, error) {
	var item models.ProductItem
	err := s.db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_items.product_id").
		Where("products.category = ? AND product_items.name = ?", category, name).
		First(&item).Error
	if err != nil {
		if isNotFound(err) {
			return nil, notFound("item", name)
		}
		return nil, wrap("find item", err)
	}
	return &item, nil
}

// SearchItems matches item names case-insensitively across categories.
func (s *Service) SearchItems(ctx context.Context, query string) ([]ItemMatch, error) {
	var matches []ItemMatch
	err := s.db.WithContext(ctx).
		Model(&models.ProductItem{}).
		Select("products.category AS category, product_items.name AS name, product_items.unit AS unit, product_items.price AS price, product_items.quantity AS quantity").
		Joins("JOIN products ON products.id = product_items.product_id").
		Where("LOWER(product_items.name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(query))+"%").
		Order("products.category ASC, product_items.name ASC").
		Limit(20).
		Scan(&matches).Error
	if err != nil {
		return nil, wrap("search items", err)
	}
	return matches, nil
}

type ItemMatch struct {
	Category string          `json:"category"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"qty"`
}
