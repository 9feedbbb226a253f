// report.go - daily cash totals for the collection screen.
package ledger

import "context"

// DailyTotals summarizes one day's cash movement: what was collected from
// sellers, what was spent, and the net of the two. Allowances are not
// cash and never count toward collection.
type DailyTotals struct {
	Date            Date
	TotalCollection Money
	TotalExpenses   Money
	Net             Money
}

// Reporter derives daily totals from the store.
type Reporter struct {
	Store Store
}

func NewReporter(store Store) *Reporter {
	return &Reporter{Store: store}
}

// Totals computes the collection, expense and net figures for one day.
func (r *Reporter) Totals(ctx context.Context, day Date) (DailyTotals, error) {
	if day.IsZero() {
		return DailyTotals{}, &InvalidInputError{Field: "date", Reason: "required"}
	}

	sellers, err := r.Store.ListSellers(ctx)
	if err != nil {
		return DailyTotals{}, err
	}
	collection := ZeroMoney()
	for _, acc := range sellers {
		txs, err := r.Store.ListSellerTransactions(ctx, acc.ID)
		if err != nil {
			return DailyTotals{}, err
		}
		for _, tx := range txs {
			if tx.Status == StatusPaid && tx.Date.Equal(day) {
				collection = collection.Add(tx.Amount)
			}
		}
	}

	expenses, err := r.Store.ListExpensesByDate(ctx, day)
	if err != nil {
		return DailyTotals{}, err
	}
	spent := ZeroMoney()
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}

	return DailyTotals{
		Date:            day,
		TotalCollection: collection,
		TotalExpenses:   spent,
		Net:             collection.Sub(spent),
	}, nil
}
