package inventory_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xenn00/warehouse-jobs/internal/dtos/job_dto"
	"github.com/xenn00/warehouse-jobs/internal/entity"
	app_error "github.com/xenn00/warehouse-jobs/internal/errors"
	"github.com/xenn00/warehouse-jobs/state"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepo struct {
	AppState *state.AppState
}

func NewInventoryRepo(appState *state.AppState) InventoryRepoContract {
	return &InventoryRepo{
		AppState: appState,
	}
}

func (r *InventoryRepo) db(ctx context.Context) (*gorm.DB, error) {
	if r.AppState == nil || r.AppState.DB == nil {
		return nil, errors.New("inventory database is not configured")
	}
	return r.AppState.DB.WithContext(ctx), nil
}

func (r *InventoryRepo) InsertSerial(ctx context.Context, tenantID, productID, userID string, rec job_dto.SerialRecord) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	serial := entity.Serial{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		ProductID:   productID,
		SerialValue: rec.SerialValue,
		StoreID:     rec.StoreID,
		BatchID:     rec.BatchID,
		LocationID:  rec.LocationID,
		Status:      "available",
		CreatedBy:   userID,
	}

	if err := db.Create(&serial).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("serial %s: %w", rec.SerialValue, app_error.ErrDuplicate)
		}
		return err
	}
	return nil
}

// ApplyStockUpdate applies only the supplied fields of one update inside its
// own transaction. Quantity changes append a stock movement.
func (r *InventoryRepo) ApplyStockUpdate(ctx context.Context, tenantID, userID string, reason *string, update job_dto.StockUpdate) error {
	db, err := r.db(ctx)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var item entity.ProductItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND tenant_id = ? AND store_id = ?", update.ProductItemID, tenantID, update.StoreID).
			First(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product item %s: %w", update.ProductItemID, app_error.ErrNotFound)
			}
			return err
		}

		changes := map[string]any{}
		if update.NewQuantity != nil {
			changes["quantity"] = *update.NewQuantity
		}
		if update.NewStatus != nil {
			changes["status"] = *update.NewStatus
		}
		if update.LocationID != nil {
			changes["location_id"] = *update.LocationID
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Model(&item).Updates(changes).Error; err != nil {
			return err
		}

		if update.NewQuantity == nil || *update.NewQuantity == item.Quantity {
			return nil
		}
		movement := entity.StockMovement{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			ProductItemID: item.ID,
			StoreID:       item.StoreID,
			Delta:         *update.NewQuantity - item.Quantity,
			CreatedBy:     userID,
		}
		if reason != nil {
			movement.Reason = *reason
		}
		return tx.Create(&movement).Error
	})
}

// FindExpiringItems returns items expiring in (after, until], soonest first.
func (r *InventoryRepo) FindExpiringItems(ctx context.Context, tenantID string, after, until time.Time, limit int) ([]entity.ProductItem, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	var items []entity.ProductItem
	err = db.Where("tenant_id = ? AND expiration_date > ? AND expiration_date <= ?", tenantID, after, until).
		Order("expiration_date ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *InventoryRepo) StockLevels(ctx context.Context, tenantID string, filter entity.InventoryFilter) ([]ReportRow, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	return findRows(applyFilter(db.Model(&entity.ProductItem{}), tenantID, filter, "updated_at").
		Select("product_id, store_id, SUM(quantity) AS quantity, COUNT(*) AS items").
		Group("product_id, store_id").
		Order("product_id, store_id"))
}

func (r *InventoryRepo) ExpirationDashboard(ctx context.Context, tenantID string, filter entity.InventoryFilter) ([]ReportRow, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	bucket := `CASE
		WHEN expiration_date <= NOW() THEN 'expired'
		WHEN expiration_date <= NOW() + INTERVAL '7 days' THEN '0-7d'
		WHEN expiration_date <= NOW() + INTERVAL '30 days' THEN '8-30d'
		WHEN expiration_date <= NOW() + INTERVAL '90 days' THEN '31-90d'
		ELSE '90d+' END`

	return findRows(applyFilter(db.Model(&entity.ProductItem{}), tenantID, filter, "expiration_date").
		Where("expiration_date IS NOT NULL").
		Select(fmt.Sprintf("%s AS bucket, COUNT(*) AS items, SUM(quantity) AS quantity", bucket)).
		Group("bucket").
		Order("bucket"))
}

func (r *InventoryRepo) BatchKPIs(ctx context.Context, tenantID string, filter entity.InventoryFilter) ([]ReportRow, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	return findRows(applyFilter(db.Model(&entity.ProductItem{}), tenantID, filter, "created_at").
		Where("batch_id IS NOT NULL").
		Select(`batch_id, COUNT(*) AS items, SUM(quantity) AS quantity,
			MIN(expiration_date) AS first_expiration,
			SUM(CASE WHEN expiration_date <= NOW() THEN quantity ELSE 0 END) AS expired_quantity`).
		Group("batch_id").
		Order("batch_id"))
}

func (r *InventoryRepo) Movements(ctx context.Context, tenantID string, filter entity.InventoryFilter) ([]ReportRow, error) {
	db, err := r.db(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&entity.StockMovement{}).Where("tenant_id = ?", tenantID)
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	return findRows(query.
		Select("product_item_id, store_id, delta, reason, created_by, created_at").
		Order("created_at DESC"))
}

func applyFilter(query *gorm.DB, tenantID string, filter entity.InventoryFilter, dateColumn string) *gorm.DB {
	query = query.Where("tenant_id = ?", tenantID)
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.From != nil {
		query = query.Where(dateColumn+" >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where(dateColumn+" <= ?", *filter.To)
	}
	return query
}

// findRows scans into plain maps; gorm only special-cases []map[string]interface{}.
func findRows(query *gorm.DB) ([]ReportRow, error) {
	var raw []map[string]any
	if err := query.Find(&raw).Error; err != nil {
		return nil, err
	}
	rows := make([]ReportRow, len(raw))
	for i, r := range raw {
		rows[i] = r
	}
	return rows, nil
}
