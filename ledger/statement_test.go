package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bajar/tradebook/ledger"
)

func kinds(rows []ledger.StatementRow) []ledger.RowKind {
	out := make([]ledger.RowKind, len(rows))
	for i, r := range rows {
		out[i] = r.Kind
	}
	return out
}

// =============================================================================
// ROW SEQUENCE
// =============================================================================

func TestBuildRows_EmptyHistory(t *testing.T) {
	// GIVEN: no transactions
	// WHEN: building the statement
	// THEN: only the trailing totals and remaining rows appear

	rows := ledger.BuildRows(money("40"), nil)

	assert.Equal(t, []ledger.RowKind{
		ledger.RowGoodsTotal,
		ledger.RowPaidTotal,
		ledger.RowRemaining,
	}, kinds(rows))
	assert.True(t, rows[2].Amount.Equal(money("40")))
}

func TestBuildRows_GroupsByDateWithSubtotals(t *testing.T) {
	// GIVEN: goods on two dates plus a payment
	// WHEN: building the statement
	// THEN: each goods date gets a subtotal carrying that date's goods sum

	txs := []ledger.SellerTransaction{
		tx("t1", ledger.StatusGoods, "100", date(2024, time.March, 1)),
		tx("t2", ledger.StatusGoods, "50", date(2024, time.March, 1)),
		tx("t3", ledger.StatusGoods, "70", date(2024, time.March, 2)),
		tx("t4", ledger.StatusPaid, "30", date(2024, time.March, 3)),
	}

	rows := ledger.BuildRows(ledger.ZeroMoney(), txs)

	assert.Equal(t, []ledger.RowKind{
		ledger.RowTransaction, ledger.RowTransaction, ledger.RowDateSubtotal,
		ledger.RowTransaction, ledger.RowDateSubtotal,
		ledger.RowTransaction,
		ledger.RowGoodsTotal,
		ledger.RowPaidTotal,
		ledger.RowRemaining,
	}, kinds(rows))

	assert.True(t, rows[2].Amount.Equal(money("150")), "march 1 subtotal")
	assert.True(t, rows[2].Date.Equal(date(2024, time.March, 1)))
	assert.True(t, rows[4].Amount.Equal(money("70")), "march 2 subtotal")
	assert.True(t, rows[8].Amount.Equal(money("190")), "remaining = 220 - 30")
}

func TestBuildRows_PaymentOnlyDateGetsNoSubtotal(t *testing.T) {
	// GIVEN: a date holding only a payment
	// WHEN: building the statement
	// THEN: that date produces no subtotal row

	txs := []ledger.SellerTransaction{
		tx("t1", ledger.StatusPaid, "30", date(2024, time.March, 1)),
	}

	rows := ledger.BuildRows(ledger.ZeroMoney(), txs)

	assert.Equal(t, []ledger.RowKind{
		ledger.RowTransaction,
		ledger.RowGoodsTotal,
		ledger.RowPaidTotal,
		ledger.RowRemaining,
	}, kinds(rows))
}

func TestBuildRows_AllowanceRowOnlyWhenPresent(t *testing.T) {
	// GIVEN: histories with and without allowances
	// WHEN: building statements
	// THEN: the allowance total row appears only when an allowance exists

	withAllowance := []ledger.SellerTransaction{
		tx("t1", ledger.StatusGoods, "100", date(2024, time.March, 1)),
		tx("t2", ledger.StatusAllowance, "10", date(2024, time.March, 2)),
	}
	rows := ledger.BuildRows(ledger.ZeroMoney(), withAllowance)
	assert.Contains(t, kinds(rows), ledger.RowAllowanceTotal)

	withoutAllowance := []ledger.SellerTransaction{
		tx("t1", ledger.StatusGoods, "100", date(2024, time.March, 1)),
	}
	rows = ledger.BuildRows(ledger.ZeroMoney(), withoutAllowance)
	assert.NotContains(t, kinds(rows), ledger.RowAllowanceTotal)
}

func TestBuildRows_SortsByDateKeepingInsertionOrderOnTies(t *testing.T) {
	// GIVEN: transactions recorded out of date order, two sharing a date
	// WHEN: building the statement
	// THEN: rows sort by date ascending and ties keep insertion order

	txs := []ledger.SellerTransaction{
		tx("late", ledger.StatusGoods, "10", date(2024, time.March, 9)),
		tx("first-of-day", ledger.StatusGoods, "20", date(2024, time.March, 1)),
		tx("second-of-day", ledger.StatusGoods, "30", date(2024, time.March, 1)),
	}

	rows := ledger.BuildRows(ledger.ZeroMoney(), txs)

	require.Equal(t, ledger.RowTransaction, rows[0].Kind)
	assert.Equal(t, ledger.TransactionID("first-of-day"), rows[0].Transaction.ID)
	assert.Equal(t, ledger.TransactionID("second-of-day"), rows[1].Transaction.ID)
	assert.Equal(t, ledger.RowDateSubtotal, rows[2].Kind)
	assert.Equal(t, ledger.TransactionID("late"), rows[3].Transaction.ID)
}

func TestBuildRows_InputSliceUntouched(t *testing.T) {
	// GIVEN: an unsorted history
	// WHEN: building the statement
	// THEN: the caller's slice order is preserved

	txs := []ledger.SellerTransaction{
		tx("b", ledger.StatusGoods, "10", date(2024, time.March, 5)),
		tx("a", ledger.StatusGoods, "20", date(2024, time.March, 1)),
	}
	ledger.BuildRows(ledger.ZeroMoney(), txs)

	assert.Equal(t, ledger.TransactionID("b"), txs[0].ID)
	assert.Equal(t, ledger.TransactionID("a"), txs[1].ID)
}
