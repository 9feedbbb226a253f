/*
statement.go - Date-grouped statement of a seller's account

PURPOSE:
  Turns a seller's raw transaction history into the ordered row sequence
  the statement screen and the printed account sheet render: transactions
  grouped by date, a subtotal after each date's goods, then the trailing
  totals and the final remaining figure.

ROW SEQUENCE RULES (these govern the exact row count):
  1. Transactions sort by date ascending; ties keep insertion order.
  2. After each date group, a subtotal row carries that date's goods sum -
     but ONLY when the sum is positive. A date holding nothing but
     payments produces no subtotal row.
  3. Trailing rows are fixed: grand goods total, total paid, and - only
     when any allowance exists - total allowance.
  4. The final row is the remaining balance from balance.go.

SEE ALSO:
  - balance.go: the remaining figure
*/
package ledger

import (
	"context"
	"sort"
)

// =============================================================================
// STATEMENT ROWS
// =============================================================================

type RowKind string

const (
	RowTransaction    RowKind = "transaction"
	RowDateSubtotal   RowKind = "date_subtotal"
	RowGoodsTotal     RowKind = "goods_total"
	RowPaidTotal      RowKind = "paid_total"
	RowAllowanceTotal RowKind = "allowance_total"
	RowRemaining      RowKind = "remaining"
)

// StatementRow is one renderable line. Transaction is set only for
// RowTransaction; Date only for RowDateSubtotal; Amount for everything
// except RowTransaction.
type StatementRow struct {
	Kind        RowKind
	Transaction *SellerTransaction
	Date        Date
	Amount      Money
}

// =============================================================================
// BUILDER
// =============================================================================

// BuildRows assembles the statement row sequence from an opening balance
// and a history. Pure; the store-backed wrapper below feeds it.
func BuildRows(opening Money, txs []SellerTransaction) []StatementRow {
	sorted := make([]SellerTransaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var rows []StatementRow

	flush := func(start, end int) {
		// end is exclusive; [start,end) share one date
		groupGoods := ZeroMoney()
		for i := start; i < end; i++ {
			tx := sorted[i]
			rows = append(rows, StatementRow{Kind: RowTransaction, Transaction: &sorted[i]})
			if tx.Status == StatusGoods {
				groupGoods = groupGoods.Add(tx.Amount)
			}
		}
		// payment-only dates get no subtotal
		if groupGoods.IsPositive() {
			rows = append(rows, StatementRow{Kind: RowDateSubtotal, Date: sorted[start].Date, Amount: groupGoods})
		}
	}

	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || !sorted[i].Date.Equal(sorted[start].Date) {
			flush(start, i)
			start = i
		}
	}

	b := ComputeBalance(opening, txs)
	rows = append(rows,
		StatementRow{Kind: RowGoodsTotal, Amount: b.GoodsTotal},
		StatementRow{Kind: RowPaidTotal, Amount: b.PaidTotal},
	)
	if b.AllowanceTotal.IsPositive() {
		rows = append(rows, StatementRow{Kind: RowAllowanceTotal, Amount: b.AllowanceTotal})
	}
	rows = append(rows, StatementRow{Kind: RowRemaining, Amount: b.FinalBalance})
	return rows
}

// StatementBuilder reads a seller's history and builds their statement.
type StatementBuilder struct {
	Store Store
}

func NewStatementBuilder(store Store) *StatementBuilder {
	return &StatementBuilder{Store: store}
}

func (sb *StatementBuilder) BuildStatement(ctx context.Context, sellerName string) ([]StatementRow, error) {
	acc, err := sb.Store.GetSeller(ctx, sellerName)
	if err != nil {
		return nil, err
	}
	txs, err := sb.Store.ListSellerTransactions(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return BuildRows(acc.OpeningBalance, txs), nil
}
