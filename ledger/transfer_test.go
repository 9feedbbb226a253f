package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bajar/tradebook/ledger"
	memstore "github.com/bajar/tradebook/ledger/store"
)

func qty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// DOUBLE-ENTRY RECORDING
// =============================================================================

func TestRecordTransfer_CreditsClientAndDebitsSeller(t *testing.T) {
	// GIVEN: an empty book
	// WHEN: recording a 10 x 25 count-priced movement
	// THEN: the client is owed 250 and the seller owes 250, in one step

	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()

	result, err := rec.RecordTransfer(ctx, ledger.TransferInput{
		ClientName: "grower",
		SellerName: "karim",
		ItemName:   "tomato",
		UnitPrice:  money("25"),
		Count:      qty("10"),
		Date:       date(2024, time.May, 1),
	})
	require.NoError(t, err)
	assert.True(t, result.Gross.Equal(money("250")))

	client, err := store.GetClient(ctx, "grower")
	require.NoError(t, err)
	assert.True(t, client.Balance.Equal(money("250")))

	balance, err := ledger.NewCalculator(store).SellerBalance(ctx, "karim")
	require.NoError(t, err)
	assert.True(t, balance.FinalBalance.Equal(money("250")))

	// the transfer pair matches field for field except direction
	assert.Equal(t, ledger.DirectionIn, result.In.Direction)
	assert.Equal(t, ledger.DirectionOut, result.Out.Direction)
	assert.Equal(t, result.In.ClientName, result.Out.ClientName)
	assert.Equal(t, result.In.SellerName, result.Out.SellerName)
	assert.True(t, result.In.UnitPrice.Equal(result.Out.UnitPrice))
	assert.NotEqual(t, result.In.ID, result.Out.ID)

	assert.Equal(t, ledger.StatusGoods, result.Transaction.Status)
	assert.Equal(t, "grower", result.Transaction.OriginClient)
}

func TestRecordTransfer_WeightTakesPriorityOverCount(t *testing.T) {
	// GIVEN: a movement carrying both weight and count
	// WHEN: recording it
	// THEN: gross is priced by weight

	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)

	result, err := rec.RecordTransfer(context.Background(), ledger.TransferInput{
		ClientName: "grower",
		SellerName: "karim",
		ItemName:   "tomato",
		UnitPrice:  money("4"),
		Weight:     qty("120.5"),
		Count:      qty("10"),
		Date:       date(2024, time.May, 1),
	})
	require.NoError(t, err)
	assert.True(t, result.Gross.Equal(money("482")), "4 * 120.5")
}

func TestRecordTransfer_Validation(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()
	day := date(2024, time.May, 1)

	cases := []struct {
		name  string
		input ledger.TransferInput
	}{
		{"missing client", ledger.TransferInput{SellerName: "karim", Count: qty("1"), Date: day}},
		{"missing seller", ledger.TransferInput{ClientName: "grower", Count: qty("1"), Date: day}},
		{"no quantity", ledger.TransferInput{ClientName: "grower", SellerName: "karim", Date: day}},
		{"negative count", ledger.TransferInput{ClientName: "grower", SellerName: "karim", Count: qty("-1"), Date: day}},
		{"missing date", ledger.TransferInput{ClientName: "grower", SellerName: "karim", Count: qty("1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rec.RecordTransfer(ctx, tc.input)
			assert.True(t, ledger.IsInvalidInput(err))
		})
	}

	// nothing leaked into the book
	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestRecordTransfer_CatalogPriceFallback(t *testing.T) {
	// GIVEN: a catalog item priced 12
	// WHEN: recording a movement with no supplied price
	// THEN: the catalog price applies

	store := memstore.NewTxMemory()
	ctx := context.Background()
	require.NoError(t, store.UpsertItem(ctx, ledger.Item{Name: "tomato", UnitPrice: money("12")}))

	rec := ledger.NewRecorder(store)
	result, err := rec.RecordTransfer(ctx, ledger.TransferInput{
		ClientName: "grower",
		SellerName: "karim",
		ItemName:   "tomato",
		Count:      qty("5"),
		Date:       date(2024, time.May, 1),
	})
	require.NoError(t, err)
	assert.True(t, result.Gross.Equal(money("60")))
}

func TestRecordTransfer_UnknownItemRegistered(t *testing.T) {
	// A movement naming an unknown item registers it in the catalog with
	// the supplied price.

	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()

	_, err := rec.RecordTransfer(ctx, ledger.TransferInput{
		ClientName: "grower",
		SellerName: "karim",
		ItemName:   "okra",
		UnitPrice:  money("9"),
		Count:      qty("2"),
		Date:       date(2024, time.May, 1),
	})
	require.NoError(t, err)

	item, err := store.GetItem(ctx, "okra")
	require.NoError(t, err)
	assert.True(t, item.UnitPrice.Equal(money("9")))
}

// pairFailTx fails every AppendTransferPair so a movement dies mid-write.
type pairFailTx struct {
	*memstore.TxMemory
	err error
}

func (s *pairFailTx) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	return s.TxMemory.WithTx(ctx, func(inner ledger.Store) error {
		return fn(&pairFailStore{Store: inner, err: s.err})
	})
}

type pairFailStore struct {
	ledger.Store
	err error
}

func (s *pairFailStore) AppendTransferPair(context.Context, ledger.Transfer, ledger.Transfer) error {
	return s.err
}

func TestRecordTransfer_FailedMovementRegistersNothing(t *testing.T) {
	// GIVEN: a store that fails writing the transfer pair
	// WHEN: recording a movement naming an unknown item
	// THEN: everything rolls back, including the item registration

	mem := memstore.NewTxMemory()
	boom := errors.New("boom")
	rec := ledger.NewRecorder(&pairFailTx{TxMemory: mem, err: boom})
	ctx := context.Background()

	_, err := rec.RecordTransfer(ctx, ledger.TransferInput{
		ClientName: "grower",
		SellerName: "karim",
		ItemName:   "okra",
		UnitPrice:  money("9"),
		Count:      qty("2"),
		Date:       date(2024, time.May, 1),
	})
	assert.ErrorIs(t, err, boom)

	_, err = mem.GetItem(ctx, "okra")
	assert.True(t, ledger.IsNotFound(err))

	clients, err := mem.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestRecordTransfer_AccumulatesClientBalance(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()
	day := date(2024, time.May, 1)

	recordTestTransfer(t, rec, "grower", "karim", "tomato", "25", "10", day) // 250
	recordTestTransfer(t, rec, "grower", "saleh", "onion", "10", "5", day)   // 50

	client, err := store.GetClient(ctx, "grower")
	require.NoError(t, err)
	assert.True(t, client.Balance.Equal(money("300")))
}

// =============================================================================
// PAYMENTS AND ALLOWANCES
// =============================================================================

func TestRecordPayment_LowersSellerBalance(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()
	day := date(2024, time.May, 1)

	recordTestTransfer(t, rec, "grower", "karim", "tomato", "20", "10", day) // 200

	payTx, err := rec.RecordPayment(ctx, "karim", money("150"), day.AddDays(1), "")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, payTx.Status)

	balance, err := ledger.NewCalculator(store).SellerBalance(ctx, "karim")
	require.NoError(t, err)
	assert.True(t, balance.FinalBalance.Equal(money("50")))
}

func TestRecordPayment_UnknownSeller(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)

	_, err := rec.RecordPayment(context.Background(), "nobody", money("10"), date(2024, time.May, 1), "")
	assert.True(t, ledger.IsNotFound(err))
}

func TestRecordPayment_RejectsNonPositiveAmount(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)

	_, err := rec.RecordPayment(context.Background(), "karim", money("0"), date(2024, time.May, 1), "")
	assert.True(t, ledger.IsInvalidInput(err))
}

func TestRecordAllowance_TaggedAllowance(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()
	day := date(2024, time.May, 1)

	recordTestTransfer(t, rec, "grower", "karim", "tomato", "20", "10", day)

	allowTx, err := rec.RecordAllowance(ctx, "karim", money("30"), day, "season discount")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusAllowance, allowTx.Status)

	balance, err := ledger.NewCalculator(store).SellerBalance(ctx, "karim")
	require.NoError(t, err)
	assert.True(t, balance.AllowanceTotal.Equal(money("30")))
	assert.True(t, balance.FinalBalance.Equal(money("170")))
}

// =============================================================================
// PRICE CORRECTIONS
// =============================================================================

func TestUpdateTransactionPrice_PropagatesToClient(t *testing.T) {
	// GIVEN: a recorded movement of 10 units at 25 (client owed 250)
	// WHEN: repricing the seller transaction to 30
	// THEN: the transaction amount becomes 300, the transfer pair carries
	//       the new price, and the client balance drops by the 50 delta

	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()
	day := date(2024, time.May, 1)

	result := recordTestTransfer(t, rec, "grower", "karim", "tomato", "25", "10", day)

	updated, err := rec.UpdateTransactionPrice(ctx, result.Transaction.ID, money("30"))
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(money("300")))
	assert.True(t, updated.UnitPrice.Equal(money("30")))

	client, err := store.GetClient(ctx, "grower")
	require.NoError(t, err)
	assert.True(t, client.Balance.Equal(money("200")), "250 - (300 - 250)")

	open, err := store.ListUnsettledTransfers(ctx, "grower")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].UnitPrice.Equal(money("30")))
}

func TestUpdateTransactionPrice_PriceDropRaisesClientBalance(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()

	result := recordTestTransfer(t, rec, "grower", "karim", "tomato", "25", "10", date(2024, time.May, 1))

	_, err := rec.UpdateTransactionPrice(ctx, result.Transaction.ID, money("20"))
	require.NoError(t, err)

	client, err := store.GetClient(ctx, "grower")
	require.NoError(t, err)
	assert.True(t, client.Balance.Equal(money("300")), "250 - (200 - 250)")
}

func TestUpdateTransactionPrice_NoOriginClientSkipsPropagation(t *testing.T) {
	// A manually entered goods row has no origin client; repricing it
	// touches nothing but the row itself.

	store := memstore.NewTxMemory()
	ctx := context.Background()

	acc, err := store.GetOrCreateSeller(ctx, "karim")
	require.NoError(t, err)
	manual := ledger.SellerTransaction{
		ID:        "manual-1",
		SellerID:  acc.ID,
		Amount:    money("100"),
		Status:    ledger.StatusGoods,
		Count:     qty("10"),
		UnitPrice: money("10"),
		Date:      date(2024, time.May, 1),
	}
	require.NoError(t, store.AppendSellerTransaction(ctx, manual))

	rec := ledger.NewRecorder(store)
	updated, err := rec.UpdateTransactionPrice(ctx, "manual-1", money("12"))
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(money("120")))

	clients, err := store.ListClients(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestUpdateTransactionPrice_UnknownTransaction(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)

	_, err := rec.UpdateTransactionPrice(context.Background(), "missing", money("10"))
	assert.True(t, ledger.IsNotFound(err))
}

func TestUpdateTransactionPrice_RejectsNegativePrice(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)

	_, err := rec.UpdateTransactionPrice(context.Background(), "any", money("-1"))
	assert.True(t, ledger.IsInvalidInput(err))
}

// =============================================================================
// EDITS AND DELETES
// =============================================================================

func TestUpdateTransaction_ValidatesInvariants(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()

	err := rec.UpdateTransaction(ctx, ledger.SellerTransaction{ID: "x", Amount: money("-1"), Status: ledger.StatusGoods})
	assert.True(t, ledger.IsInvalidInput(err))

	err = rec.UpdateTransaction(ctx, ledger.SellerTransaction{ID: "x", Amount: money("1"), Status: "bogus"})
	assert.True(t, ledger.IsInvalidInput(err))
}

func TestDeleteTransaction_RemovesRow(t *testing.T) {
	store := memstore.NewTxMemory()
	rec := ledger.NewRecorder(store)
	ctx := context.Background()

	result := recordTestTransfer(t, rec, "grower", "karim", "tomato", "25", "10", date(2024, time.May, 1))
	require.NoError(t, rec.DeleteTransaction(ctx, result.Transaction.ID))

	_, err := store.GetSellerTransaction(ctx, result.Transaction.ID)
	assert.True(t, ledger.IsNotFound(err))
}
