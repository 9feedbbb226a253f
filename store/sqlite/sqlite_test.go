package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bajar/tradebook/ledger"
	"github.com/bajar/tradebook/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func money(s string) ledger.Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return ledger.Money{Value: d}
}

func qty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// SELLERS
// =============================================================================

func TestSellers_GetOrCreateIsIdempotent(t *testing.T) {
	// GIVEN: an empty store
	// WHEN: the same name is requested twice
	// THEN: one account exists and both calls return the same ID

	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)
	second, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	sellers, err := store.ListSellers(ctx)
	require.NoError(t, err)
	assert.Len(t, sellers, 1)
}

func TestSellers_UpsertUpdatesInPlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)

	acc.Phone = "0100"
	acc.OpeningBalance = money("250")
	acc.CreditLimit = money("1000")
	require.NoError(t, store.UpsertSeller(ctx, acc))

	got, err := store.GetSeller(ctx, "karim")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, "0100", got.Phone)
	assert.True(t, got.OpeningBalance.Equal(money("250")))
	assert.True(t, got.CreditLimit.Equal(money("1000")))
}

func TestSellers_UnknownNameIsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSeller(context.Background(), "nobody")
	assert.True(t, ledger.IsNotFound(err))

	_, err = store.GetSellerByID(context.Background(), ledger.SellerID("no-such-id"))
	assert.True(t, ledger.IsNotFound(err))
}

func TestSellers_GetByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)

	got, err := store.GetSellerByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "karim", got.Name)
}

// =============================================================================
// SELLER TRANSACTIONS
// =============================================================================

func TestSellerTransactions_RoundTrip(t *testing.T) {
	// GIVEN: a stored transaction with every field set
	// WHEN: reading it back
	// THEN: all fields survive, decimals included

	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)

	in := ledger.SellerTransaction{
		ID:           "t1",
		SellerID:     acc.ID,
		Amount:       money("482.50"),
		Status:       ledger.StatusGoods,
		Count:        qty("4"),
		Weight:       qty("19.3"),
		UnitPrice:    money("25"),
		ItemName:     "tomatoes",
		Date:         ledger.NewDate(2024, time.June, 3),
		Note:         "morning load",
		OriginClient: "grower",
	}
	require.NoError(t, store.AppendSellerTransaction(ctx, in))

	got, err := store.GetSellerTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, in.SellerID, got.SellerID)
	assert.True(t, got.Amount.Equal(in.Amount))
	assert.Equal(t, ledger.StatusGoods, got.Status)
	assert.True(t, got.Weight.Equal(in.Weight))
	assert.True(t, got.UnitPrice.Equal(in.UnitPrice))
	assert.Equal(t, "tomatoes", got.ItemName)
	assert.True(t, got.Date.Equal(in.Date))
	assert.Equal(t, "grower", got.OriginClient)
}

func TestSellerTransactions_ListOrderedByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)

	for _, tx := range []ledger.SellerTransaction{
		{ID: "t2", SellerID: acc.ID, Amount: money("20"), Status: ledger.StatusPaid, Date: ledger.NewDate(2024, time.June, 5)},
		{ID: "t1", SellerID: acc.ID, Amount: money("100"), Status: ledger.StatusGoods, Date: ledger.NewDate(2024, time.June, 1)},
		{ID: "t3", SellerID: acc.ID, Amount: money("30"), Status: ledger.StatusPaid, Date: ledger.NewDate(2024, time.June, 9)},
	} {
		require.NoError(t, store.AppendSellerTransaction(ctx, tx))
	}

	txs, err := store.ListSellerTransactions(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, ledger.TransactionID("t1"), txs[0].ID)
	assert.Equal(t, ledger.TransactionID("t2"), txs[1].ID)
	assert.Equal(t, ledger.TransactionID("t3"), txs[2].ID)
}

func TestSellerTransactions_SameDateKeepsInsertionOrder(t *testing.T) {
	// GIVEN: two rows on the same date whose random IDs sort against
	//        their insertion order
	// WHEN: listing the history
	// THEN: insertion order wins; statement ties must not reshuffle by ID

	store := newTestStore(t)
	ctx := context.Background()
	day := ledger.NewDate(2024, time.June, 3)

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)

	for _, tx := range []ledger.SellerTransaction{
		{ID: "zz-first", SellerID: acc.ID, Amount: money("100"), Status: ledger.StatusGoods, Date: day},
		{ID: "aa-second", SellerID: acc.ID, Amount: money("40"), Status: ledger.StatusPaid, Date: day},
	} {
		require.NoError(t, store.AppendSellerTransaction(ctx, tx))
	}

	txs, err := store.ListSellerTransactions(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.TransactionID("zz-first"), txs[0].ID)
	assert.Equal(t, ledger.TransactionID("aa-second"), txs[1].ID)
}

func TestSellerTransactions_UpdateAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)
	require.NoError(t, store.AppendSellerTransaction(ctx, ledger.SellerTransaction{
		ID: "t1", SellerID: acc.ID, Amount: money("100"), Status: ledger.StatusGoods,
		Date: ledger.NewDate(2024, time.June, 1),
	}))

	tx, err := store.GetSellerTransaction(ctx, "t1")
	require.NoError(t, err)
	tx.Amount = money("120")
	tx.Note = "corrected"
	require.NoError(t, store.UpdateSellerTransaction(ctx, tx))

	got, err := store.GetSellerTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(money("120")))
	assert.Equal(t, "corrected", got.Note)

	require.NoError(t, store.DeleteSellerTransaction(ctx, "t1"))
	_, err = store.GetSellerTransaction(ctx, "t1")
	assert.True(t, ledger.IsNotFound(err))
}

func TestSellerTransactions_MissingDateScansToZero(t *testing.T) {
	// Entries stored without a date come back with a zero Date instead of
	// an error; downstream code skips them.

	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)
	require.NoError(t, store.AppendSellerTransaction(ctx, ledger.SellerTransaction{
		ID: "t1", SellerID: acc.ID, Amount: money("100"), Status: ledger.StatusGoods,
	}))

	got, err := store.GetSellerTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Date.IsZero())
}

// =============================================================================
// CLIENTS
// =============================================================================

func TestClients_UpsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.GetOrCreateClient(ctx, "grower")
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())

	acc.Balance = money("300")
	acc.Phone = "0111"
	require.NoError(t, store.UpsertClient(ctx, acc))

	got, err := store.GetClient(ctx, "grower")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.True(t, got.Balance.Equal(money("300")))

	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}

// =============================================================================
// TRANSFERS
// =============================================================================

func transferPair(client, seller, item string, price ledger.Money, count decimal.Decimal) (ledger.Transfer, ledger.Transfer) {
	in := ledger.Transfer{
		ID: ledger.TransferID(ledger.NewID()), Direction: ledger.DirectionIn,
		ClientName: client, SellerName: seller, ItemName: item,
		UnitPrice: price, Count: count,
	}
	out := in
	out.ID = ledger.TransferID(ledger.NewID())
	out.Direction = ledger.DirectionOut
	return in, out
}

func TestTransfers_UnsettledFilter(t *testing.T) {
	// GIVEN: two in rows for a client, one already linked to an invoice
	// WHEN: listing unsettled
	// THEN: only the unlinked in row is returned; out rows never appear

	store := newTestStore(t)
	ctx := context.Background()

	in1, out1 := transferPair("grower", "karim", "tomatoes", money("10"), qty("5"))
	in2, out2 := transferPair("grower", "karim", "onions", money("8"), qty("3"))
	require.NoError(t, store.AppendTransferPair(ctx, in1, out1))
	require.NoError(t, store.AppendTransferPair(ctx, in2, out2))

	require.NoError(t, store.LinkTransfersToInvoice(ctx, "inv-1", []ledger.TransferID{in1.ID}))

	unsettled, err := store.ListUnsettledTransfers(ctx, "grower")
	require.NoError(t, err)
	require.Len(t, unsettled, 1)
	assert.Equal(t, in2.ID, unsettled[0].ID)
	assert.Equal(t, ledger.DirectionIn, unsettled[0].Direction)
}

func TestTransfers_UpdatePriceTouchesBothSides(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in, out := transferPair("grower", "karim", "tomatoes", money("10"), qty("5"))
	require.NoError(t, store.AppendTransferPair(ctx, in, out))

	n, err := store.UpdateTransferPrice(ctx, "grower", "karim", "tomatoes", decimal.Zero, qty("5"), money("12"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	unsettled, err := store.ListUnsettledTransfers(ctx, "grower")
	require.NoError(t, err)
	require.Len(t, unsettled, 1)
	assert.True(t, unsettled[0].UnitPrice.Equal(money("12")))
}

func TestTransfers_UpdatePriceNoMatch(t *testing.T) {
	store := newTestStore(t)

	n, err := store.UpdateTransferPrice(context.Background(), "grower", "karim", "tomatoes", decimal.Zero, qty("5"), money("12"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// INVOICES
// =============================================================================

func TestInvoices_RoundTripKeepsCommissionAsEntered(t *testing.T) {
	// GIVEN: an invoice with a percent commission
	// WHEN: reading it back
	// THEN: the commission is still a percentage, not a flattened amount

	store := newTestStore(t)
	ctx := context.Background()

	inv := ledger.Invoice{
		ID:              "inv-1",
		OwnerName:       "grower",
		Nolon:           money("30"),
		Commission:      ledger.PercentDeduction(qty("10")),
		Mashal:          money("5"),
		Rent:            money("15"),
		Cash:            money("200"),
		Date:            ledger.NewDate(2024, time.June, 3),
		Gross:           money("1000"),
		TotalDeductions: money("350"),
		FinalTotal:      money("650"),
	}
	require.NoError(t, store.SaveInvoice(ctx, inv))

	invoices, err := store.ListInvoices(ctx, "grower")
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	got := invoices[0]
	assert.Equal(t, ledger.DeductionPercent, got.Commission.Kind)
	assert.Equal(t, "10%", got.Commission.String())
	assert.True(t, got.Gross.Equal(money("1000")))
	assert.True(t, got.FinalTotal.Equal(money("650")))
	assert.True(t, got.Date.Equal(inv.Date))
}

func TestInvoices_TransfersByInvoice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in1, out1 := transferPair("grower", "karim", "tomatoes", money("10"), qty("5"))
	in2, out2 := transferPair("grower", "saleh", "onions", money("8"), qty("3"))
	require.NoError(t, store.AppendTransferPair(ctx, in1, out1))
	require.NoError(t, store.AppendTransferPair(ctx, in2, out2))

	require.NoError(t, store.LinkTransfersToInvoice(ctx, "inv-1", []ledger.TransferID{in1.ID, in2.ID}))

	linked, err := store.TransfersByInvoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Len(t, linked, 2)
	for _, tr := range linked {
		assert.Equal(t, ledger.InvoiceID("inv-1"), tr.InvoiceID)
	}
}

// =============================================================================
// ITEMS AND EXPENSES
// =============================================================================

func TestItems_UpsertByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertItem(ctx, ledger.Item{Name: "tomatoes", UnitPrice: money("10")}))
	require.NoError(t, store.UpsertItem(ctx, ledger.Item{Name: "tomatoes", UnitPrice: money("12"), EquipmentWeight: qty("1.5")}))

	got, err := store.GetItem(ctx, "tomatoes")
	require.NoError(t, err)
	assert.True(t, got.UnitPrice.Equal(money("12")))
	assert.True(t, got.EquipmentWeight.Equal(qty("1.5")))

	items, err := store.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = store.GetItem(ctx, "mangoes")
	assert.True(t, ledger.IsNotFound(err))
}

func TestExpenses_FilterByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	day := ledger.NewDate(2024, time.July, 3)

	for _, e := range []ledger.Expense{
		{ID: "e1", Description: "fuel", Amount: money("30"), Date: day},
		{ID: "e2", Description: "repairs", Amount: money("99"), Date: day.AddDays(-1)},
	} {
		require.NoError(t, store.AppendExpense(ctx, e))
	}

	all, err := store.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onDay, err := store.ListExpensesByDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, "fuel", onDay[0].Description)
}

func TestReset_ClearsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)
	require.NoError(t, store.AppendSellerTransaction(ctx, ledger.SellerTransaction{
		ID: "t1", SellerID: acc.ID, Amount: money("100"), Status: ledger.StatusGoods,
	}))
	_, err = store.GetOrCreateClient(ctx, "grower")
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	sellers, err := store.ListSellers(ctx)
	require.NoError(t, err)
	assert.Empty(t, sellers)
	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_CommitPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s ledger.Store) error {
		acc, err := s.GetOrCreateSeller(ctx, "karim")
		if err != nil {
			return err
		}
		return s.AppendSellerTransaction(ctx, ledger.SellerTransaction{
			ID: "t1", SellerID: acc.ID, Amount: money("100"), Status: ledger.StatusGoods,
			Date: ledger.NewDate(2024, time.June, 1),
		})
	})
	require.NoError(t, err)

	acc, err := store.GetSeller(ctx, "karim")
	require.NoError(t, err)
	txs, err := store.ListSellerTransactions(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestWithTx_ErrorRollsBack(t *testing.T) {
	// GIVEN: a transaction that writes a seller, a client and a transfer
	//        pair before failing
	// WHEN: it returns an error
	// THEN: none of the writes are visible afterwards

	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s ledger.Store) error {
		if _, err := s.GetOrCreateSeller(ctx, "karim"); err != nil {
			return err
		}
		if _, err := s.GetOrCreateClient(ctx, "grower"); err != nil {
			return err
		}
		in, out := transferPair("grower", "karim", "tomatoes", money("10"), qty("5"))
		if err := s.AppendTransferPair(ctx, in, out); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetSeller(ctx, "karim")
	assert.True(t, ledger.IsNotFound(err))
	_, err = store.GetClient(ctx, "grower")
	assert.True(t, ledger.IsNotFound(err))

	unsettled, err := store.ListUnsettledTransfers(ctx, "grower")
	require.NoError(t, err)
	assert.Empty(t, unsettled)
}
