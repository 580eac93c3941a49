package dto

import "time"

// OpenPartialRequest opens the single-sale payment dialog
type OpenPartialRequest struct {
	SaleID string `json:"sale_id" binding:"required,max=64"`
}

// SetAmountRequest updates one payment method of a dialog.
// Amount is the raw text typed by the operator; currency symbols and
// thousands separators are accepted and unparseable text counts as zero.
type SetAmountRequest struct {
	Instrument string `json:"instrument" binding:"required,instrument"`
	Amount     string `json:"amount" binding:"max=32"`
}

// SetDetailsRequest updates memo and collection date of a dialog. An absent
// field is left unchanged; an empty memo clears it.
type SetDetailsRequest struct {
	Memo        *string    `json:"memo" binding:"omitempty,max=500"`
	CollectedAt *time.Time `json:"collected_at"`
}

// SubmitCollectionRequest carries the final details sent with a submission
type SubmitCollectionRequest struct {
	Memo        *string    `json:"memo" binding:"omitempty,max=500"`
	CollectedAt *time.Time `json:"collected_at"`
}

// HistoryQuery filters the collection history listing
type HistoryQuery struct {
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	From     *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}
