// arrears.go - flags accounts that have gone too long without a payment.
//
// The reference point is the most recent paid transaction; an account that
// has never paid falls back to its earliest transaction of any status.
// Transactions with missing dates are skipped rather than rejected - the
// historical data this engine inherits contains them, and a bad date must
// not make an account look overdue.
package ledger

import "context"

// IsOverdue reports whether the history is overdue as of a given day.
// Only meaningful when the account's final balance is positive; the
// store-backed wrapper below enforces that.
func IsOverdue(txs []SellerTransaction, asOf Date, thresholdDays int) bool {
	var lastPaid, earliest Date
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		if tx.Status == StatusPaid && (lastPaid.IsZero() || tx.Date.After(lastPaid)) {
			lastPaid = tx.Date
		}
		if earliest.IsZero() || tx.Date.Before(earliest) {
			earliest = tx.Date
		}
	}

	ref := lastPaid
	if ref.IsZero() {
		ref = earliest
	}
	if ref.IsZero() {
		return false
	}
	return DaysBetween(ref, asOf) >= thresholdDays
}

// Classifier answers overdue queries for stored sellers.
type Classifier struct {
	Store Store
}

func NewClassifier(store Store) *Classifier {
	return &Classifier{Store: store}
}

// SellerOverdue reports whether a seller with an outstanding balance has
// gone thresholdDays or more without paying. Accounts owing nothing are
// never overdue.
func (c *Classifier) SellerOverdue(ctx context.Context, sellerName string, asOf Date, thresholdDays int) (bool, error) {
	acc, err := c.Store.GetSeller(ctx, sellerName)
	if err != nil {
		return false, err
	}
	txs, err := c.Store.ListSellerTransactions(ctx, acc.ID)
	if err != nil {
		return false, err
	}
	if !ComputeBalance(acc.OpeningBalance, txs).FinalBalance.IsPositive() {
		return false, nil
	}
	return IsOverdue(txs, asOf, thresholdDays), nil
}
