// Package store provides an in-memory Store implementation for tests and
// development. The transactional variant simulates atomicity by snapshotting
// state and restoring it when the wrapped function fails.
package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bajar/tradebook/ledger"
)

// =============================================================================
// STATE - all maps, no locking; Memory and the tx view wrap it
// =============================================================================

type state struct {
	sellers      map[string]ledger.SellerAccount // keyed by name
	clients      map[string]ledger.ClientAccount
	transactions map[ledger.SellerID][]ledger.SellerTransaction
	transfers    []ledger.Transfer
	invoices     []ledger.Invoice
	items        map[string]ledger.Item
	expenses     []ledger.Expense
}

func newState() *state {
	return &state{
		sellers:      make(map[string]ledger.SellerAccount),
		clients:      make(map[string]ledger.ClientAccount),
		transactions: make(map[ledger.SellerID][]ledger.SellerTransaction),
		items:        make(map[string]ledger.Item),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.sellers {
		c.sellers[k] = v
	}
	for k, v := range st.clients {
		c.clients[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = append([]ledger.SellerTransaction{}, v...)
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	c.transfers = append([]ledger.Transfer{}, st.transfers...)
	c.invoices = append([]ledger.Invoice{}, st.invoices...)
	c.expenses = append([]ledger.Expense{}, st.expenses...)
	return c
}

// --- sellers ---

func (st *state) getSeller(name string) (ledger.SellerAccount, error) {
	acc, ok := st.sellers[name]
	if !ok {
		return ledger.SellerAccount{}, &ledger.NotFoundError{Kind: "seller", Name: name}
	}
	return acc, nil
}

func (st *state) getSellerByID(id ledger.SellerID) (ledger.SellerAccount, error) {
	for _, acc := range st.sellers {
		if acc.ID == id {
			return acc, nil
		}
	}
	return ledger.SellerAccount{}, &ledger.NotFoundError{Kind: "seller", Name: string(id)}
}

func (st *state) getOrCreateSeller(name string) (ledger.SellerAccount, error) {
	if acc, ok := st.sellers[name]; ok {
		return acc, nil
	}
	acc := ledger.SellerAccount{
		ID:             ledger.SellerID(ledger.NewID()),
		Name:           name,
		OpeningBalance: ledger.ZeroMoney(),
		CreditLimit:    ledger.ZeroMoney(),
	}
	st.sellers[name] = acc
	return acc, nil
}

func (st *state) upsertSeller(acc ledger.SellerAccount) error {
	if acc.ID == "" {
		acc.ID = ledger.SellerID(ledger.NewID())
	}
	st.sellers[acc.Name] = acc
	return nil
}

func (st *state) listSellers() ([]ledger.SellerAccount, error) {
	out := make([]ledger.SellerAccount, 0, len(st.sellers))
	for _, acc := range st.sellers {
		out = append(out, acc)
	}
	return out, nil
}

// --- seller transactions ---

func (st *state) listSellerTransactions(sellerID ledger.SellerID) ([]ledger.SellerTransaction, error) {
	return append([]ledger.SellerTransaction{}, st.transactions[sellerID]...), nil
}

func (st *state) getSellerTransaction(id ledger.TransactionID) (ledger.SellerTransaction, error) {
	for _, txs := range st.transactions {
		for _, tx := range txs {
			if tx.ID == id {
				return tx, nil
			}
		}
	}
	return ledger.SellerTransaction{}, &ledger.NotFoundError{Kind: "transaction", Name: string(id)}
}

func (st *state) appendSellerTransaction(tx ledger.SellerTransaction) error {
	st.transactions[tx.SellerID] = append(st.transactions[tx.SellerID], tx)
	return nil
}

func (st *state) updateSellerTransaction(tx ledger.SellerTransaction) error {
	txs := st.transactions[tx.SellerID]
	for i := range txs {
		if txs[i].ID == tx.ID {
			txs[i] = tx
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "transaction", Name: string(tx.ID)}
}

func (st *state) deleteSellerTransaction(id ledger.TransactionID) error {
	for sellerID, txs := range st.transactions {
		for i := range txs {
			if txs[i].ID == id {
				st.transactions[sellerID] = append(txs[:i], txs[i+1:]...)
				return nil
			}
		}
	}
	return &ledger.NotFoundError{Kind: "transaction", Name: string(id)}
}

// --- clients ---

func (st *state) getClient(name string) (ledger.ClientAccount, error) {
	acc, ok := st.clients[name]
	if !ok {
		return ledger.ClientAccount{}, &ledger.NotFoundError{Kind: "client", Name: name}
	}
	return acc, nil
}

func (st *state) getOrCreateClient(name string) (ledger.ClientAccount, error) {
	if acc, ok := st.clients[name]; ok {
		return acc, nil
	}
	acc := ledger.ClientAccount{
		ID:      ledger.ClientID(ledger.NewID()),
		Name:    name,
		Balance: ledger.ZeroMoney(),
	}
	st.clients[name] = acc
	return acc, nil
}

func (st *state) upsertClient(acc ledger.ClientAccount) error {
	if acc.ID == "" {
		acc.ID = ledger.ClientID(ledger.NewID())
	}
	st.clients[acc.Name] = acc
	return nil
}

func (st *state) listClients() ([]ledger.ClientAccount, error) {
	out := make([]ledger.ClientAccount, 0, len(st.clients))
	for _, acc := range st.clients {
		out = append(out, acc)
	}
	return out, nil
}

// --- transfers ---

func (st *state) appendTransferPair(in, out ledger.Transfer) error {
	st.transfers = append(st.transfers, in, out)
	return nil
}

func (st *state) listUnsettledTransfers(clientName string) ([]ledger.Transfer, error) {
	var out []ledger.Transfer
	for _, t := range st.transfers {
		if t.ClientName == clientName && t.Direction == ledger.DirectionIn && t.InvoiceID == "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (st *state) updateTransferPrice(clientName, sellerName, itemName string, weight, count decimal.Decimal, price ledger.Money) (int, error) {
	affected := 0
	for i := range st.transfers {
		t := &st.transfers[i]
		if t.ClientName == clientName && t.SellerName == sellerName && t.ItemName == itemName &&
			t.Weight.Equal(weight) && t.Count.Equal(count) {
			t.UnitPrice = price
			affected++
		}
	}
	return affected, nil
}

// --- invoices ---

func (st *state) saveInvoice(inv ledger.Invoice) error {
	st.invoices = append(st.invoices, inv)
	return nil
}

func (st *state) linkTransfersToInvoice(id ledger.InvoiceID, transferIDs []ledger.TransferID) error {
	linked := make(map[ledger.TransferID]bool, len(transferIDs))
	for _, tid := range transferIDs {
		linked[tid] = true
	}
	for i := range st.transfers {
		if linked[st.transfers[i].ID] {
			st.transfers[i].InvoiceID = id
		}
	}
	return nil
}

func (st *state) listInvoices(clientName string) ([]ledger.Invoice, error) {
	var out []ledger.Invoice
	for _, inv := range st.invoices {
		if inv.OwnerName == clientName {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (st *state) transfersByInvoice(id ledger.InvoiceID) ([]ledger.Transfer, error) {
	var out []ledger.Transfer
	for _, t := range st.transfers {
		if t.InvoiceID == id {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- items ---

func (st *state) getItem(name string) (ledger.Item, error) {
	item, ok := st.items[name]
	if !ok {
		return ledger.Item{}, &ledger.NotFoundError{Kind: "item", Name: name}
	}
	return item, nil
}

func (st *state) upsertItem(item ledger.Item) error {
	st.items[item.Name] = item
	return nil
}

func (st *state) listItems() ([]ledger.Item, error) {
	out := make([]ledger.Item, 0, len(st.items))
	for _, item := range st.items {
		out = append(out, item)
	}
	return out, nil
}

// --- expenses ---

func (st *state) appendExpense(e ledger.Expense) error {
	st.expenses = append(st.expenses, e)
	return nil
}

func (st *state) listExpenses() ([]ledger.Expense, error) {
	return append([]ledger.Expense{}, st.expenses...), nil
}

func (st *state) listExpensesByDate(day ledger.Date) ([]ledger.Expense, error) {
	var out []ledger.Expense
	for _, e := range st.expenses {
		if e.Date.Equal(day) {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	st *state
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

func (m *Memory) GetSeller(_ context.Context, name string) (ledger.SellerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getSeller(name)
}

func (m *Memory) GetSellerByID(_ context.Context, id ledger.SellerID) (ledger.SellerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getSellerByID(id)
}

func (m *Memory) GetOrCreateSeller(_ context.Context, name string) (ledger.SellerAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getOrCreateSeller(name)
}

func (m *Memory) UpsertSeller(_ context.Context, acc ledger.SellerAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.upsertSeller(acc)
}

func (m *Memory) ListSellers(_ context.Context) ([]ledger.SellerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listSellers()
}

func (m *Memory) ListSellerTransactions(_ context.Context, sellerID ledger.SellerID) ([]ledger.SellerTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listSellerTransactions(sellerID)
}

func (m *Memory) GetSellerTransaction(_ context.Context, id ledger.TransactionID) (ledger.SellerTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getSellerTransaction(id)
}

func (m *Memory) AppendSellerTransaction(_ context.Context, tx ledger.SellerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.appendSellerTransaction(tx)
}

func (m *Memory) UpdateSellerTransaction(_ context.Context, tx ledger.SellerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateSellerTransaction(tx)
}

func (m *Memory) DeleteSellerTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.deleteSellerTransaction(id)
}

func (m *Memory) GetClient(_ context.Context, name string) (ledger.ClientAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getClient(name)
}

func (m *Memory) GetOrCreateClient(_ context.Context, name string) (ledger.ClientAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.getOrCreateClient(name)
}

func (m *Memory) UpsertClient(_ context.Context, acc ledger.ClientAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.upsertClient(acc)
}

func (m *Memory) ListClients(_ context.Context) ([]ledger.ClientAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listClients()
}

func (m *Memory) AppendTransferPair(_ context.Context, in, out ledger.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.appendTransferPair(in, out)
}

func (m *Memory) ListUnsettledTransfers(_ context.Context, clientName string) ([]ledger.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listUnsettledTransfers(clientName)
}

func (m *Memory) UpdateTransferPrice(_ context.Context, clientName, sellerName, itemName string, weight, count decimal.Decimal, price ledger.Money) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateTransferPrice(clientName, sellerName, itemName, weight, count, price)
}

func (m *Memory) SaveInvoice(_ context.Context, inv ledger.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.saveInvoice(inv)
}

func (m *Memory) LinkTransfersToInvoice(_ context.Context, id ledger.InvoiceID, transferIDs []ledger.TransferID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.linkTransfersToInvoice(id, transferIDs)
}

func (m *Memory) ListInvoices(_ context.Context, clientName string) ([]ledger.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listInvoices(clientName)
}

func (m *Memory) TransfersByInvoice(_ context.Context, id ledger.InvoiceID) ([]ledger.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.transfersByInvoice(id)
}

func (m *Memory) GetItem(_ context.Context, name string) (ledger.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getItem(name)
}

func (m *Memory) UpsertItem(_ context.Context, item ledger.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.upsertItem(item)
}

func (m *Memory) ListItems(_ context.Context) ([]ledger.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listItems()
}

func (m *Memory) AppendExpense(_ context.Context, e ledger.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.appendExpense(e)
}

func (m *Memory) ListExpenses(_ context.Context) ([]ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listExpenses()
}

func (m *Memory) ListExpensesByDate(_ context.Context, day ledger.Date) ([]ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listExpensesByDate(day)
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support. Atomicity is simulated
// with a snapshot that is restored when fn fails.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.st.clone()
	if err := fn(&txView{st: tm.st}); err != nil {
		tm.st = snapshot
		return err
	}
	return nil
}

// txView exposes the state to fn without re-entering the mutex.
type txView struct {
	st *state
}

func (v *txView) GetSeller(_ context.Context, name string) (ledger.SellerAccount, error) {
	return v.st.getSeller(name)
}
func (v *txView) GetSellerByID(_ context.Context, id ledger.SellerID) (ledger.SellerAccount, error) {
	return v.st.getSellerByID(id)
}
func (v *txView) GetOrCreateSeller(_ context.Context, name string) (ledger.SellerAccount, error) {
	return v.st.getOrCreateSeller(name)
}
func (v *txView) UpsertSeller(_ context.Context, acc ledger.SellerAccount) error {
	return v.st.upsertSeller(acc)
}
func (v *txView) ListSellers(_ context.Context) ([]ledger.SellerAccount, error) {
	return v.st.listSellers()
}
func (v *txView) ListSellerTransactions(_ context.Context, sellerID ledger.SellerID) ([]ledger.SellerTransaction, error) {
	return v.st.listSellerTransactions(sellerID)
}
func (v *txView) GetSellerTransaction(_ context.Context, id ledger.TransactionID) (ledger.SellerTransaction, error) {
	return v.st.getSellerTransaction(id)
}
func (v *txView) AppendSellerTransaction(_ context.Context, tx ledger.SellerTransaction) error {
	return v.st.appendSellerTransaction(tx)
}
func (v *txView) UpdateSellerTransaction(_ context.Context, tx ledger.SellerTransaction) error {
	return v.st.updateSellerTransaction(tx)
}
func (v *txView) DeleteSellerTransaction(_ context.Context, id ledger.TransactionID) error {
	return v.st.deleteSellerTransaction(id)
}
func (v *txView) GetClient(_ context.Context, name string) (ledger.ClientAccount, error) {
	return v.st.getClient(name)
}
func (v *txView) GetOrCreateClient(_ context.Context, name string) (ledger.ClientAccount, error) {
	return v.st.getOrCreateClient(name)
}
func (v *txView) UpsertClient(_ context.Context, acc ledger.ClientAccount) error {
	return v.st.upsertClient(acc)
}
func (v *txView) ListClients(_ context.Context) ([]ledger.ClientAccount, error) {
	return v.st.listClients()
}
func (v *txView) AppendTransferPair(_ context.Context, in, out ledger.Transfer) error {
	return v.st.appendTransferPair(in, out)
}
func (v *txView) ListUnsettledTransfers(_ context.Context, clientName string) ([]ledger.Transfer, error) {
	return v.st.listUnsettledTransfers(clientName)
}
func (v *txView) UpdateTransferPrice(_ context.Context, clientName, sellerName, itemName string, weight, count decimal.Decimal, price ledger.Money) (int, error) {
	return v.st.updateTransferPrice(clientName, sellerName, itemName, weight, count, price)
}
func (v *txView) SaveInvoice(_ context.Context, inv ledger.Invoice) error {
	return v.st.saveInvoice(inv)
}
func (v *txView) LinkTransfersToInvoice(_ context.Context, id ledger.InvoiceID, transferIDs []ledger.TransferID) error {
	return v.st.linkTransfersToInvoice(id, transferIDs)
}
func (v *txView) ListInvoices(_ context.Context, clientName string) ([]ledger.Invoice, error) {
	return v.st.listInvoices(clientName)
}
func (v *txView) TransfersByInvoice(_ context.Context, id ledger.InvoiceID) ([]ledger.Transfer, error) {
	return v.st.transfersByInvoice(id)
}
func (v *txView) GetItem(_ context.Context, name string) (ledger.Item, error) {
	return v.st.getItem(name)
}
func (v *txView) UpsertItem(_ context.Context, item ledger.Item) error {
	return v.st.upsertItem(item)
}
func (v *txView) ListItems(_ context.Context) ([]ledger.Item, error) {
	return v.st.listItems()
}
func (v *txView) AppendExpense(_ context.Context, e ledger.Expense) error {
	return v.st.appendExpense(e)
}
func (v *txView) ListExpenses(_ context.Context) ([]ledger.Expense, error) {
	return v.st.listExpenses()
}
func (v *txView) ListExpensesByDate(_ context.Context, day ledger.Date) ([]ledger.Expense, error) {
	return v.st.listExpensesByDate(day)
}
