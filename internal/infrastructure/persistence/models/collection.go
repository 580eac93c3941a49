package models

import (
	"time"

	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/shopspring/decimal"
)

// CollectionKind distinguishes batch reconciliations from single-sale payments.
type CollectionKind string

const (
	CollectionKindBatch   CollectionKind = "batch"
	CollectionKindPartial CollectionKind = "partial"
)

// CollectionModel is the persistence model for a submitted collection record.
type CollectionModel struct {
	BaseModel
	Kind          CollectionKind              `gorm:"type:varchar(20);not null;index"`
	OperatorID    string                      `gorm:"type:varchar(64);not null;index"`
	OperatorLabel string                      `gorm:"type:varchar(200)"`
	Memo          string                      `gorm:"type:text"`
	CollectedAt   time.Time                   `gorm:"not null;index"`
	GrandTotal    decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	Entries       []CollectionEntryModel      `gorm:"foreignKey:CollectionID;constraint:OnDelete:CASCADE"`
	Instruments   []CollectionInstrumentModel `gorm:"foreignKey:CollectionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (CollectionModel) TableName() string {
	return "collections"
}

// CollectionEntryModel stores one settled sale of a collection.
type CollectionEntryModel struct {
	ID                       uint            `gorm:"primaryKey;autoIncrement"`
	CollectionID             string          `gorm:"type:varchar(64);not null;index"`
	Position                 int             `gorm:"not null"`
	SaleID                   string          `gorm:"type:varchar(64);not null;index"`
	AmountSettled            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OriginalTotal            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PreviouslyPaid           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RemainingAfterSettlement decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (CollectionEntryModel) TableName() string {
	return "collection_entries"
}

// CollectionInstrumentModel stores the amount declared for one instrument.
type CollectionInstrumentModel struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"`
	CollectionID string          `gorm:"type:varchar(64);not null;index"`
	Instrument   string          `gorm:"type:varchar(30);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (CollectionInstrumentModel) TableName() string {
	return "collection_instruments"
}

// FromReconciliation maps a batch record onto the persistence model.
func FromReconciliation(r *collection.ReconciliationRecord) *CollectionModel {
	m := &CollectionModel{
		BaseModel:     BaseModel{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.CreatedAt},
		Kind:          CollectionKindBatch,
		OperatorID:    r.OperatorID,
		OperatorLabel: r.Operator,
		Memo:          r.Memo,
		CollectedAt:   r.CollectedAt,
		GrandTotal:    r.GrandTotal,
		Instruments:   fromInstruments(r.ID, r.Instruments),
	}
	m.Entries = make([]CollectionEntryModel, len(r.Entries))
	for i, e := range r.Entries {
		m.Entries[i] = fromEntry(r.ID, i, e)
	}
	return m
}

// FromPartialPayment maps a single-sale record onto the persistence model.
func FromPartialPayment(r *collection.PartialPaymentRecord) *CollectionModel {
	return &CollectionModel{
		BaseModel:     BaseModel{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.CreatedAt},
		Kind:          CollectionKindPartial,
		OperatorID:    r.OperatorID,
		OperatorLabel: r.Operator,
		Memo:          r.Memo,
		CollectedAt:   r.CollectedAt,
		GrandTotal:    r.Total,
		Instruments:   fromInstruments(r.ID, r.Instruments),
		Entries:       []CollectionEntryModel{fromEntry(r.ID, 0, r.Entry)},
	}
}

// ToDomain converts the persistence model to a ReconciliationRecord.
// Entries and Instruments must be preloaded.
func (m *CollectionModel) ToDomain() collection.ReconciliationRecord {
	r := collection.ReconciliationRecord{
		ID:          m.ID,
		OperatorID:  m.OperatorID,
		Operator:    m.OperatorLabel,
		Memo:        m.Memo,
		CollectedAt: m.CollectedAt,
		GrandTotal:  m.GrandTotal,
		CreatedAt:   m.CreatedAt,
		Instruments: make([]collection.InstrumentAmount, len(m.Instruments)),
		Entries:     make([]collection.SettlementEntry, len(m.Entries)),
	}
	for i, inst := range m.Instruments {
		r.Instruments[i] = collection.InstrumentAmount{
			Instrument: collection.Instrument(inst.Instrument),
			Amount:     inst.Amount,
		}
	}
	for i, e := range m.Entries {
		r.Entries[i] = collection.SettlementEntry{
			SaleID:                   e.SaleID,
			AmountSettled:            e.AmountSettled,
			OriginalTotal:            e.OriginalTotal,
			PreviouslyPaid:           e.PreviouslyPaid,
			RemainingAfterSettlement: e.RemainingAfterSettlement,
		}
	}
	return r
}

func fromInstruments(collectionID string, amounts []collection.InstrumentAmount) []CollectionInstrumentModel {
	out := make([]CollectionInstrumentModel, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, CollectionInstrumentModel{
			CollectionID: collectionID,
			Instrument:   string(a.Instrument),
			Amount:       a.Amount,
		})
	}
	return out
}

func fromEntry(collectionID string, position int, e collection.SettlementEntry) CollectionEntryModel {
	return CollectionEntryModel{
		CollectionID:             collectionID,
		Position:                 position,
		SaleID:                   e.SaleID,
		AmountSettled:            e.AmountSettled,
		OriginalTotal:            e.OriginalTotal,
		PreviouslyPaid:           e.PreviouslyPaid,
		RemainingAfterSettlement: e.RemainingAfterSettlement,
	}
}
