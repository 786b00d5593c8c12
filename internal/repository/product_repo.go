package repository

import (
	"context"
	"strings"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockUpdateFunc receives a private copy of the current stock map and returns the map to store.
type StockUpdateFunc func(current model.StockMap) (model.StockMap, error)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context) ([]model.Product, error)
	Search(ctx context.Context, query string) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	UpdateDetails(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateStockAtomic locks the product row, applies fn to its stock map and writes
	// back both the map and the recomputed total in the same transaction.
	UpdateStockAtomic(ctx context.Context, id uuid.UUID, fn StockUpdateFunc) (*model.Product, error)

	DeleteAll(ctx context.Context) error
	Restore(ctx context.Context, products []model.Product) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	if product.Stock == nil {
		product.Stock = model.StockMap{}
	}
	product.TotalStock = product.Stock.Sum()
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("name ASC").Find(&products).Error
	return products, err
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *productRepo) Search(ctx context.Context, query string) ([]model.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.FindAll(ctx)
	}
	var products []model.Product
	term := likeEscaper.Replace(query)
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR barcode LIKE ? ESCAPE '\'`,
			"%"+strings.ToLower(term)+"%", "%"+term+"%").
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "barcode = ?", barcode).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// UpdateDetails writes the editable catalog fields only; stock columns are never touched here.
func (r *productRepo) UpdateDetails(ctx context.Context, product *model.Product) error {
	res := r.db.WithContext(ctx).
		Model(product).
		Select("name", "barcode", "cost_price", "critical_stock", "updated_at").
		Updates(product)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) UpdateStockAtomic(ctx context.Context, id uuid.UUID, fn StockUpdateFunc) (*model.Product, error) {
	var updated model.Product
	// Nested under an outer unit of work this becomes a savepoint.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", id).Error; err != nil {
			return translate(err)
		}

		next, err := fn(product.Stock.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			next = model.StockMap{}
		}
		total := next.Sum()

		if err := tx.Model(&product).
			Select("stock", "total_stock").
			Updates(&model.Product{Stock: next, TotalStock: total}).Error; err != nil {
			return err
		}

		product.Stock = next
		product.TotalStock = total
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *productRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Unscoped().Where("1 = 1").Delete(&model.Product{}).Error
}

func (r *productRepo) Restore(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&products, 100).Error
}
