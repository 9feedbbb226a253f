/*
store.go - Persistence contract between the engine and its database

PURPOSE:
  Defines the interface the engine requires of its storage collaborator.
  Whether the implementation is SQLite, another SQL engine or in-memory is
  out of the engine's hands; the engine only asks for this contract.

CONTRACT NOTES:
  - GetSeller/GetClient return a NotFoundError for unknown names.
  - GetOrCreateSeller/GetOrCreateClient exist as explicit store operations
    so implicit create-on-reference is visible at the boundary and tests
    can assert creation separately from balance effects.
  - ListSellerTransactions may return rows in any order; the engine sorts.
  - AppendTransferPair must persist both sides or neither.
  - Seller transactions ARE updated and deleted in place: the statement
    screen edits rows directly. This ledger is not append-only.

ATOMICITY:
  TxStore.WithTx gives the engine a transaction boundary for the one
  multi-row write worth guarding: a recorded transfer (client balance +
  transfer pair + seller transaction) and a settlement (invoice + links).
  A reader must never observe the client credited but the seller not yet
  debited.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite store
  - ledger/store/memory.go: in-memory store for tests
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract consumed by the engine.
type Store interface {
	// Sellers
	GetSeller(ctx context.Context, name string) (SellerAccount, error)
	GetSellerByID(ctx context.Context, id SellerID) (SellerAccount, error)
	GetOrCreateSeller(ctx context.Context, name string) (SellerAccount, error)
	UpsertSeller(ctx context.Context, acc SellerAccount) error
	ListSellers(ctx context.Context) ([]SellerAccount, error)

	// Seller transactions
	ListSellerTransactions(ctx context.Context, sellerID SellerID) ([]SellerTransaction, error)
	GetSellerTransaction(ctx context.Context, id TransactionID) (SellerTransaction, error)
	AppendSellerTransaction(ctx context.Context, tx SellerTransaction) error
	UpdateSellerTransaction(ctx context.Context, tx SellerTransaction) error
	DeleteSellerTransaction(ctx context.Context, id TransactionID) error

	// Clients
	GetClient(ctx context.Context, name string) (ClientAccount, error)
	GetOrCreateClient(ctx context.Context, name string) (ClientAccount, error)
	UpsertClient(ctx context.Context, acc ClientAccount) error
	ListClients(ctx context.Context) ([]ClientAccount, error)

	// Transfers
	AppendTransferPair(ctx context.Context, in, out Transfer) error
	ListUnsettledTransfers(ctx context.Context, clientName string) ([]Transfer, error)
	// UpdateTransferPrice sets a new unit price on every transfer row (both
	// directions) matching the identifying tuple; returns rows affected.
	UpdateTransferPrice(ctx context.Context, clientName, sellerName, itemName string, weight, count decimal.Decimal, price Money) (int, error)

	// Invoices
	SaveInvoice(ctx context.Context, inv Invoice) error
	LinkTransfersToInvoice(ctx context.Context, id InvoiceID, transferIDs []TransferID) error
	ListInvoices(ctx context.Context, clientName string) ([]Invoice, error)
	TransfersByInvoice(ctx context.Context, id InvoiceID) ([]Transfer, error)

	// Item catalog
	GetItem(ctx context.Context, name string) (Item, error)
	UpsertItem(ctx context.Context, item Item) error
	ListItems(ctx context.Context) ([]Item, error)

	// Expenses
	AppendExpense(ctx context.Context, e Expense) error
	ListExpenses(ctx context.Context) ([]Expense, error)
	ListExpensesByDate(ctx context.Context, day Date) ([]Expense, error)
}

// TxStore wraps Store with transaction support.
// If fn returns an error the transaction is rolled back; on nil it commits.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
