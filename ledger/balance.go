/*
balance.go - Balance derivation from a seller's transaction history

PURPOSE:
  Answers "how much does this seller owe right now?" by folding the full
  transaction list into categorized subtotals. The stored account row only
  carries the opening balance; the displayed figure is always recomputed.

THE FOLD:
  goodsTotal     = sum of amounts tagged goods
  paidTotal      = sum of amounts tagged paid
  allowanceTotal = sum of amounts tagged allowance
  finalBalance   = opening + goodsTotal - paidTotal - allowanceTotal

  Classification is strictly by Status. A payment whose item name happens
  to mention an allowance still counts as paid; the tag decides, not the
  text.

ORDER INDEPENDENCE:
  ComputeBalance is a pure function and never relies on transaction
  ordering. Anything order-sensitive lives in statement.go.
*/
package ledger

import "context"

// =============================================================================
// BALANCE BREAKDOWN
// =============================================================================

// BalanceBreakdown is the categorized result of folding a history.
type BalanceBreakdown struct {
	GoodsTotal     Money
	PaidTotal      Money
	AllowanceTotal Money
	FinalBalance   Money
}

// ComputeBalance folds a transaction history into a breakdown. Pure and
// order-independent; calling it twice yields identical results.
func ComputeBalance(opening Money, txs []SellerTransaction) BalanceBreakdown {
	b := BalanceBreakdown{
		GoodsTotal:     ZeroMoney(),
		PaidTotal:      ZeroMoney(),
		AllowanceTotal: ZeroMoney(),
	}
	for _, tx := range txs {
		switch tx.Status {
		case StatusGoods:
			b.GoodsTotal = b.GoodsTotal.Add(tx.Amount)
		case StatusPaid:
			b.PaidTotal = b.PaidTotal.Add(tx.Amount)
		case StatusAllowance:
			b.AllowanceTotal = b.AllowanceTotal.Add(tx.Amount)
		}
	}
	b.FinalBalance = opening.Add(b.GoodsTotal).Sub(b.PaidTotal).Sub(b.AllowanceTotal)
	return b
}

// =============================================================================
// CALCULATOR - store-backed balance queries
// =============================================================================

// Calculator reads histories from a Store and derives balances.
type Calculator struct {
	Store Store
}

func NewCalculator(store Store) *Calculator {
	return &Calculator{Store: store}
}

// SellerBalance derives the breakdown for one named seller.
func (c *Calculator) SellerBalance(ctx context.Context, sellerName string) (BalanceBreakdown, error) {
	acc, err := c.Store.GetSeller(ctx, sellerName)
	if err != nil {
		return BalanceBreakdown{}, err
	}
	txs, err := c.Store.ListSellerTransactions(ctx, acc.ID)
	if err != nil {
		return BalanceBreakdown{}, err
	}
	return ComputeBalance(acc.OpeningBalance, txs), nil
}

// SellerBalanceEntry pairs an account with its derived breakdown, for the
// roster screen that lists every seller with remaining and allowance.
type SellerBalanceEntry struct {
	Account SellerAccount
	Balance BalanceBreakdown
}

// SellerBalances derives the breakdown for every seller on file.
func (c *Calculator) SellerBalances(ctx context.Context) ([]SellerBalanceEntry, error) {
	sellers, err := c.Store.ListSellers(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]SellerBalanceEntry, 0, len(sellers))
	for _, acc := range sellers {
		txs, err := c.Store.ListSellerTransactions(ctx, acc.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, SellerBalanceEntry{
			Account: acc,
			Balance: ComputeBalance(acc.OpeningBalance, txs),
		})
	}
	return entries, nil
}
