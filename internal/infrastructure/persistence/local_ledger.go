package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/fsuperadmin/backend/internal/domain/shared"
	"github.com/fsuperadmin/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConcurrentSettlement is returned when a sale changed between read and update
var ErrConcurrentSettlement = shared.NewDomainError("CONCURRENT_MODIFICATION", "The sale was modified by another collection, please reload")

// LocalLedger implements collection.LedgerGateway on top of GORM.
// It stores collection records and applies settled amounts to sales; it does
// not compute balances beyond total minus paid.
type LocalLedger struct {
	db *gorm.DB
}

// NewLocalLedger creates a new LocalLedger
func NewLocalLedger(db *gorm.DB) *LocalLedger {
	return &LocalLedger{db: db}
}

// FetchPendingSales returns sales with an unpaid balance assigned to the
// operator or unassigned, oldest first
func (l *LocalLedger) FetchPendingSales(ctx context.Context, operator *collection.Operator) ([]collection.OutstandingSale, error) {
	if operator == nil {
		return nil, collection.ErrSessionExpired
	}
	var saleModels []models.SaleModel
	if err := l.db.WithContext(ctx).
		Where("paid_amount < total_amount").
		Where("operator_id = ? OR operator_id = ''", operator.ID).
		Order("sold_at ASC, id ASC").
		Find(&saleModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending sales: %w", err)
	}
	sales := make([]collection.OutstandingSale, 0, len(saleModels))
	for i := range saleModels {
		sales = append(sales, saleModels[i].ToDomain())
	}
	return sales, nil
}

// SubmitReconciliation stores a batch record and settles every entry in one
// transaction. Resubmitting a record id returns the original receipt.
func (l *LocalLedger) SubmitReconciliation(ctx context.Context, record *collection.ReconciliationRecord) (*collection.SubmissionReceipt, error) {
	if record == nil || len(record.Entries) == 0 {
		return nil, shared.ErrInvalidInput
	}
	return l.store(ctx, models.FromReconciliation(record))
}

// SubmitPartialPayment stores a single-sale payment and applies it to the sale
func (l *LocalLedger) SubmitPartialPayment(ctx context.Context, record *collection.PartialPaymentRecord) (*collection.SubmissionReceipt, error) {
	if record == nil {
		return nil, shared.ErrInvalidInput
	}
	return l.store(ctx, models.FromPartialPayment(record))
}

func (l *LocalLedger) store(ctx context.Context, model *models.CollectionModel) (*collection.SubmissionReceipt, error) {
	var receipt *collection.SubmissionReceipt
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CollectionModel
		err := tx.Select("id", "created_at").First(&existing, "id = ?", model.ID).Error
		if err == nil {
			receipt = &collection.SubmissionReceipt{RecordID: existing.ID, AcceptedAt: existing.CreatedAt}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		for _, entry := range model.Entries {
			if err := settle(tx, entry.SaleID, entry.AmountSettled); err != nil {
				return err
			}
		}
		if model.CreatedAt.IsZero() {
			model.CreatedAt = time.Now()
			model.UpdatedAt = model.CreatedAt
		}
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to store collection: %w", err)
		}
		receipt = &collection.SubmissionReceipt{RecordID: model.ID, AcceptedAt: model.CreatedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// settle adds amount to the sale's paid amount using an optimistic version check
func settle(tx *gorm.DB, saleID string, amount decimal.Decimal) error {
	var sale models.SaleModel
	if err := tx.First(&sale, "id = ?", saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return collection.ErrSaleNotFound
		}
		return fmt.Errorf("failed to load sale %s: %w", saleID, err)
	}
	if amount.GreaterThan(sale.Pending()) {
		return shared.ErrOverSettlement
	}
	return applyPaid(tx, &sale, sale.PaidAmount.Add(amount))
}

func applyPaid(tx *gorm.DB, sale *models.SaleModel, paid decimal.Decimal) error {
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	result := tx.Model(&models.SaleModel{}).
		Where("id = ? AND version = ?", sale.ID, sale.Version).
		Updates(map[string]any{
			"paid_amount": paid,
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update sale %s: %w", sale.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentSettlement
	}
	return nil
}

// DeleteReconciliation removes one of the operator's batch records and reverts
// its settled amounts. Records of other operators read as missing.
func (l *LocalLedger) DeleteReconciliation(ctx context.Context, operator *collection.Operator, recordID string) error {
	if operator == nil {
		return collection.ErrSessionExpired
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.CollectionModel
		if err := tx.Preload("Entries").
			First(&model, "id = ? AND kind = ? AND operator_id = ?", recordID, models.CollectionKindBatch, operator.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return collection.ErrReconciliationMissing
			}
			return fmt.Errorf("failed to load collection: %w", err)
		}

		for _, entry := range model.Entries {
			var sale models.SaleModel
			if err := tx.First(&sale, "id = ?", entry.SaleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return fmt.Errorf("failed to load sale %s: %w", entry.SaleID, err)
			}
			if err := applyPaid(tx, &sale, sale.PaidAmount.Sub(entry.AmountSettled)); err != nil {
				return err
			}
		}

		if err := tx.Where("collection_id = ?", model.ID).Delete(&models.CollectionEntryModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete collection entries: %w", err)
		}
		if err := tx.Where("collection_id = ?", model.ID).Delete(&models.CollectionInstrumentModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete collection instruments: %w", err)
		}
		if err := tx.Delete(&models.CollectionModel{}, "id = ?", model.ID).Error; err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
		return nil
	})
}

// ListReconciliations returns the operator's batch records, newest first
func (l *LocalLedger) ListReconciliations(ctx context.Context, operator *collection.Operator, filter collection.HistoryFilter) ([]collection.ReconciliationRecord, int64, error) {
	if operator == nil {
		return nil, 0, collection.ErrSessionExpired
	}
	filter.Normalize()

	query := l.db.WithContext(ctx).Model(&models.CollectionModel{}).
		Where("kind = ? AND operator_id = ?", models.CollectionKindBatch, operator.ID)
	if filter.From != nil {
		query = query.Where("collected_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("collected_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count collections: %w", err)
	}

	var rows []models.CollectionModel
	if err := query.
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Instruments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("collected_at DESC, created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list collections: %w", err)
	}

	records := make([]collection.ReconciliationRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, total, nil
}

// UpsertSales loads or refreshes sales assigned to operatorID ("" for anyone).
// Paid amounts of existing sales are overwritten.
func (l *LocalLedger) UpsertSales(ctx context.Context, operatorID string, sales []collection.OutstandingSale) error {
	if len(sales) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.SaleModel, len(sales))
	for i, s := range sales {
		rows[i] = models.SaleModel{
			BaseModel:    models.BaseModel{ID: s.ID, CreatedAt: now, UpdatedAt: now},
			Reference:    s.Reference,
			CustomerName: s.CustomerName,
			OperatorID:   operatorID,
			SoldAt:       s.SoldAt,
			TotalAmount:  s.TotalAmount,
			PaidAmount:   s.AmountAlreadyPaid,
			Version:      1,
		}
	}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"reference", "customer_name", "operator_id", "sold_at", "total_amount", "paid_amount", "updated_at",
		}),
	}).Create(&rows).Error
}

var _ collection.LedgerGateway = (*LocalLedger)(nil)
