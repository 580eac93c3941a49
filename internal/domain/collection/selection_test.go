package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sale(id, total, paid string) OutstandingSale {
	return OutstandingSale{ID: id, TotalAmount: dec(total), AmountAlreadyPaid: dec(paid)}
}

func TestOutstandingSale_PendingAmount(t *testing.T) {
	assert.True(t, sale("a", "100", "30").PendingAmount().Equal(dec("70")))
	assert.True(t, sale("a", "100", "100").PendingAmount().IsZero())
	assert.True(t, sale("a", "100", "120").PendingAmount().IsZero(), "overpaid sale has no pending amount")
	assert.False(t, sale("a", "100", "100").HasPending())
}

func TestFilterPending(t *testing.T) {
	sales := []OutstandingSale{
		sale("a", "30", "0"),
		sale("b", "50", "50"),
		sale("c", "45", "0"),
	}
	got := FilterPending(sales)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestSelectionSet_Toggle(t *testing.T) {
	t.Run("adds then removes", func(t *testing.T) {
		s := NewSelectionSet()
		selected, err := s.Toggle(sale("a", "30", "0"))
		require.NoError(t, err)
		assert.True(t, selected)
		assert.True(t, s.Contains("a"))

		selected, err = s.Toggle(sale("a", "30", "0"))
		require.NoError(t, err)
		assert.False(t, selected)
		assert.False(t, s.Contains("a"))
		_, ok := s.Snapshot("a")
		assert.False(t, ok)
	})

	t.Run("toggling twice restores prior state", func(t *testing.T) {
		s := NewSelectionSet()
		_, _ = s.Toggle(sale("a", "30", "0"))
		_, _ = s.Toggle(sale("b", "45", "0"))
		before := s.IDs()
		beforeTotal := s.DebtTotal()

		_, _ = s.Toggle(sale("c", "10", "0"))
		_, _ = s.Toggle(sale("c", "10", "0"))

		assert.Equal(t, before, s.IDs())
		assert.True(t, beforeTotal.Equal(s.DebtTotal()))
	})

	t.Run("keeps selection order", func(t *testing.T) {
		s := NewSelectionSet()
		for _, id := range []string{"c", "a", "b"} {
			_, err := s.Toggle(sale(id, "10", "0"))
			require.NoError(t, err)
		}
		_, _ = s.Toggle(sale("a", "10", "0"))
		assert.Equal(t, []string{"c", "b"}, s.IDs())
	})

	t.Run("refuses sale with nothing pending", func(t *testing.T) {
		s := NewSelectionSet()
		selected, err := s.Toggle(sale("a", "30", "30"))
		assert.ErrorIs(t, err, ErrNothingPending)
		assert.False(t, selected)
		assert.Equal(t, 0, s.Len())
	})
}

func TestSelectionSet_DebtTotalAndClear(t *testing.T) {
	s := NewSelectionSet()
	_, _ = s.Toggle(sale("a", "30", "0"))
	_, _ = s.Toggle(sale("b", "60", "15"))

	assert.True(t, s.DebtTotal().Equal(dec("75")))
	assert.Len(t, s.Sales(), 2)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.DebtTotal().IsZero())
	assert.Empty(t, s.Sales())
}

func TestPaymentMethodBreakdown(t *testing.T) {
	t.Run("declared total sums instruments", func(t *testing.T) {
		b := NewPaymentMethodBreakdown()
		require.NoError(t, b.SetAmount(InstrumentCash, "50"))
		require.NoError(t, b.SetAmount(InstrumentWalletTransfer, "20.50"))
		require.NoError(t, b.SetAmount(InstrumentShortage, "4.50"))
		assert.True(t, b.DeclaredTotal().Equal(dec("75")))
	})

	t.Run("unknown instrument is rejected", func(t *testing.T) {
		b := NewPaymentMethodBreakdown()
		err := b.SetAmount(Instrument("crypto"), "10")
		require.Error(t, err)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, CodeUnknownInstrument, ve.Code)
	})

	t.Run("negative input never raises the total", func(t *testing.T) {
		for _, raw := range []string{"-5", "-0.01"} {
			b := NewPaymentMethodBreakdown()
			require.NoError(t, b.SetAmount(InstrumentCash, "10"))
			before := b.DeclaredTotal()
			require.NoError(t, b.SetAmount(InstrumentCash, raw))
			assert.True(t, b.DeclaredTotal().LessThanOrEqual(before), "input %q", raw)
			assert.False(t, b.Amount(InstrumentCash).IsNegative())
		}
	})

	t.Run("amounts keep display order", func(t *testing.T) {
		b := NewPaymentMethodBreakdown()
		amounts := b.Amounts()
		require.Len(t, amounts, len(Instruments))
		for i, a := range amounts {
			assert.Equal(t, Instruments[i], a.Instrument)
			assert.True(t, a.Amount.IsZero())
		}
	})

	t.Run("reset zeroes everything", func(t *testing.T) {
		b := NewPaymentMethodBreakdown()
		require.NoError(t, b.SetAmount(InstrumentLargeBills, "200"))
		b.Reset()
		assert.True(t, b.DeclaredTotal().IsZero())
	})
}
