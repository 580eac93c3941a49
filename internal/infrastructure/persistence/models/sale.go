package models

import (
	"time"

	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for a sale tracked by the local ledger.
type SaleModel struct {
	BaseModel
	Reference    string          `gorm:"type:varchar(50);index"`
	CustomerName string          `gorm:"type:varchar(200)"`
	OperatorID   string          `gorm:"type:varchar(64);index"` // empty means any operator may collect
	SoldAt       time.Time       `gorm:"not null;index"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaidAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Version      int             `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain OutstandingSale.
func (m *SaleModel) ToDomain() collection.OutstandingSale {
	return collection.OutstandingSale{
		ID:                m.ID,
		Reference:         m.Reference,
		CustomerName:      m.CustomerName,
		SoldAt:            m.SoldAt,
		TotalAmount:       m.TotalAmount,
		AmountAlreadyPaid: m.PaidAmount,
	}
}

// Pending returns the unpaid balance, floored at zero.
func (m *SaleModel) Pending() decimal.Decimal {
	p := m.TotalAmount.Sub(m.PaidAmount)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}
