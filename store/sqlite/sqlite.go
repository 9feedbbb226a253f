/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore on SQLite. The same patterns
  would apply to PostgreSQL with only dialect differences.

KEY TABLES:
  sellers:             Agent accounts with carried-forward opening balances
  seller_transactions: The per-seller running account (goods/paid/allowance)
  clients:             Grower accounts with a direct balance accumulator
  transfers:           Both sides of every goods movement; in rows carry the
                       settlement link
  invoices:            Computed settlements, deductions stored as entered
  items:               Produce catalog with default unit prices
  expenses:            Daily cash outflows

NUMERIC STORAGE:
  Amounts, weights and counts are stored as decimal TEXT, never REAL.
  They round-trip through shopspring/decimal without loss.

DATE STORAGE:
  Calendar dates are stored as YYYY-MM-DD TEXT. Rows with unparseable
  dates scan to a zero Date rather than failing the whole query; the
  arrears classifier is the one consumer that must cope with those.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus WAL mode so readers do not
  block each other.

USAGE:
  store, err := sqlite.New("./data/tradebook.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/bajar/tradebook/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Sellers (agent accounts)
	CREATE TABLE IF NOT EXISTS sellers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		phone TEXT,
		opening_balance TEXT NOT NULL DEFAULT '0',
		credit_limit TEXT NOT NULL DEFAULT '0'
	);

	-- Seller transactions (the per-seller running account)
	CREATE TABLE IF NOT EXISTS seller_transactions (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		count TEXT NOT NULL DEFAULT '0',
		weight TEXT NOT NULL DEFAULT '0',
		unit_price TEXT NOT NULL DEFAULT '0',
		item_name TEXT,
		date TEXT,
		note TEXT,
		origin_client TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_seller_transactions_seller
		ON seller_transactions(seller_id);
	-- Balance derivation and statements read a seller's whole history in
	-- date order (hot path)
	CREATE INDEX IF NOT EXISTS idx_seller_transactions_seller_date
		ON seller_transactions(seller_id, date);
	CREATE INDEX IF NOT EXISTS idx_seller_transactions_status_date
		ON seller_transactions(status, date);

	-- Clients (grower accounts)
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		balance TEXT NOT NULL DEFAULT '0',
		phone TEXT
	);

	-- Transfers (both sides of every goods movement)
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		direction TEXT NOT NULL,
		client_name TEXT NOT NULL,
		seller_name TEXT NOT NULL,
		item_name TEXT NOT NULL,
		unit_price TEXT NOT NULL DEFAULT '0',
		weight TEXT NOT NULL DEFAULT '0',
		count TEXT NOT NULL DEFAULT '0',
		equipment TEXT,
		invoice_id TEXT NOT NULL DEFAULT ''
	);

	-- Settlement reads a client's unsettled in rows (hot path)
	CREATE INDEX IF NOT EXISTS idx_transfers_client_invoice
		ON transfers(client_name, direction, invoice_id);
	CREATE INDEX IF NOT EXISTS idx_transfers_invoice
		ON transfers(invoice_id) WHERE invoice_id != '';

	-- Invoices (computed settlements)
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		owner_name TEXT NOT NULL,
		nolon TEXT NOT NULL DEFAULT '0',
		commission TEXT NOT NULL DEFAULT '0',
		mashal TEXT NOT NULL DEFAULT '0',
		rent TEXT NOT NULL DEFAULT '0',
		cash TEXT NOT NULL DEFAULT '0',
		date TEXT,
		gross TEXT NOT NULL DEFAULT '0',
		total_deductions TEXT NOT NULL DEFAULT '0',
		final_total TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_owner
		ON invoices(owner_name);

	-- Item catalog
	CREATE TABLE IF NOT EXISTS items (
		name TEXT PRIMARY KEY,
		unit_price TEXT NOT NULL DEFAULT '0',
		equipment_weight TEXT NOT NULL DEFAULT '0'
	);

	-- Expenses (daily cash outflows)
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		date TEXT,
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_date
		ON expenses(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so each query helper can
// run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// SELLERS
// =============================================================================

func (s *Store) GetSeller(ctx context.Context, name string) (ledger.SellerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSeller(ctx, s.db, name)
}

func (s *Store) getSeller(ctx context.Context, q dbtx, name string) (ledger.SellerAccount, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, phone, opening_balance, credit_limit FROM sellers WHERE name = ?", name)
	acc, err := scanSeller(row)
	if err == sql.ErrNoRows {
		return ledger.SellerAccount{}, &ledger.NotFoundError{Kind: "seller", Name: name}
	}
	if err != nil {
		return ledger.SellerAccount{}, &ledger.StoreError{Op: "get seller", Err: err}
	}
	return acc, nil
}

func (s *Store) GetSellerByID(ctx context.Context, id ledger.SellerID) (ledger.SellerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSellerByID(ctx, s.db, id)
}

func (s *Store) getSellerByID(ctx context.Context, q dbtx, id ledger.SellerID) (ledger.SellerAccount, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, phone, opening_balance, credit_limit FROM sellers WHERE id = ?", id)
	acc, err := scanSeller(row)
	if err == sql.ErrNoRows {
		return ledger.SellerAccount{}, &ledger.NotFoundError{Kind: "seller", Name: string(id)}
	}
	if err != nil {
		return ledger.SellerAccount{}, &ledger.StoreError{Op: "get seller by id", Err: err}
	}
	return acc, nil
}

func (s *Store) GetOrCreateSeller(ctx context.Context, name string) (ledger.SellerAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateSeller(ctx, s.db, name)
}

func (s *Store) getOrCreateSeller(ctx context.Context, q dbtx, name string) (ledger.SellerAccount, error) {
	acc, err := s.getSeller(ctx, q, name)
	if err == nil {
		return acc, nil
	}
	if !ledger.IsNotFound(err) {
		return ledger.SellerAccount{}, err
	}

	acc = ledger.SellerAccount{
		ID:             ledger.SellerID(ledger.NewID()),
		Name:           name,
		OpeningBalance: ledger.ZeroMoney(),
		CreditLimit:    ledger.ZeroMoney(),
	}
	if err := s.upsertSeller(ctx, q, acc); err != nil {
		return ledger.SellerAccount{}, err
	}
	return acc, nil
}

func (s *Store) UpsertSeller(ctx context.Context, acc ledger.SellerAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertSeller(ctx, s.db, acc)
}

func (s *Store) upsertSeller(ctx context.Context, q dbtx, acc ledger.SellerAccount) error {
	if acc.ID == "" {
		acc.ID = ledger.SellerID(ledger.NewID())
	}

	query := `
		INSERT INTO sellers (id, name, phone, opening_balance, credit_limit)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			phone = excluded.phone,
			opening_balance = excluded.opening_balance,
			credit_limit = excluded.credit_limit
	`

	_, err := q.ExecContext(ctx, query,
		acc.ID, acc.Name, acc.Phone,
		acc.OpeningBalance.Value.String(),
		acc.CreditLimit.Value.String(),
	)
	if err != nil {
		return &ledger.StoreError{Op: "upsert seller", Err: err}
	}
	return nil
}

func (s *Store) ListSellers(ctx context.Context) ([]ledger.SellerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSellers(ctx, s.db)
}

func (s *Store) listSellers(ctx context.Context, q dbtx) ([]ledger.SellerAccount, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, phone, opening_balance, credit_limit FROM sellers ORDER BY name")
	if err != nil {
		return nil, &ledger.StoreError{Op: "list sellers", Err: err}
	}
	defer rows.Close()

	var sellers []ledger.SellerAccount
	for rows.Next() {
		acc, err := scanSeller(rows)
		if err != nil {
			return nil, &ledger.StoreError{Op: "list sellers", Err: err}
		}
		sellers = append(sellers, acc)
	}
	return sellers, rows.Err()
}

func scanSeller(row scanner) (ledger.SellerAccount, error) {
	var acc ledger.SellerAccount
	var phone sql.NullString
	var opening, limit string
	if err := row.Scan(&acc.ID, &acc.Name, &phone, &opening, &limit); err != nil {
		return acc, err
	}
	acc.Phone = phone.String
	acc.OpeningBalance = scanMoney(opening)
	acc.CreditLimit = scanMoney(limit)
	return acc, nil
}

// =============================================================================
// SELLER TRANSACTIONS
// =============================================================================

const sellerTxColumns = `id, seller_id, amount, status, count, weight, unit_price, item_name, date, note, origin_client`

func (s *Store) ListSellerTransactions(ctx context.Context, sellerID ledger.SellerID) ([]ledger.SellerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSellerTransactions(ctx, s.db, sellerID)
}

func (s *Store) listSellerTransactions(ctx context.Context, q dbtx, sellerID ledger.SellerID) ([]ledger.SellerTransaction, error) {
	query := `
		SELECT ` + sellerTxColumns + `
		FROM seller_transactions
		WHERE seller_id = ?
		ORDER BY date ASC, rowid ASC
	`

	rows, err := q.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, &ledger.StoreError{Op: "list seller transactions", Err: err}
	}
	defer rows.Close()

	var txs []ledger.SellerTransaction
	for rows.Next() {
		tx, err := scanSellerTx(rows)
		if err != nil {
			return nil, &ledger.StoreError{Op: "list seller transactions", Err: err}
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) GetSellerTransaction(ctx context.Context, id ledger.TransactionID) (ledger.SellerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSellerTransaction(ctx, s.db, id)
}

func (s *Store) getSellerTransaction(ctx context.Context, q dbtx, id ledger.TransactionID) (ledger.SellerTransaction, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+sellerTxColumns+" FROM seller_transactions WHERE id = ?", id)
	tx, err := scanSellerTx(row)
	if err == sql.ErrNoRows {
		return ledger.SellerTransaction{}, &ledger.NotFoundError{Kind: "transaction", Name: string(id)}
	}
	if err != nil {
		return ledger.SellerTransaction{}, &ledger.StoreError{Op: "get seller transaction", Err: err}
	}
	return tx, nil
}

func (s *Store) AppendSellerTransaction(ctx context.Context, tx ledger.SellerTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendSellerTransaction(ctx, s.db, tx)
}

func (s *Store) appendSellerTransaction(ctx context.Context, q dbtx, tx ledger.SellerTransaction) error {
	query := `
		INSERT INTO seller_transactions
		(` + sellerTxColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		tx.ID, tx.SellerID,
		tx.Amount.Value.String(), string(tx.Status),
		tx.Count.String(), tx.Weight.String(), tx.UnitPrice.Value.String(),
		tx.ItemName, tx.Date.String(), tx.Note, tx.OriginClient,
	)
	if err != nil {
		return &ledger.StoreError{Op: "append seller transaction", Err: err}
	}
	return nil
}

func (s *Store) UpdateSellerTransaction(ctx context.Context, tx ledger.SellerTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSellerTransaction(ctx, s.db, tx)
}

func (s *Store) updateSellerTransaction(ctx context.Context, q dbtx, tx ledger.SellerTransaction) error {
	query := `
		UPDATE seller_transactions
		SET amount = ?, status = ?, count = ?, weight = ?, unit_price = ?,
		    item_name = ?, date = ?, note = ?, origin_client = ?
		WHERE id = ?
	`

	res, err := q.ExecContext(ctx, query,
		tx.Amount.Value.String(), string(tx.Status),
		tx.Count.String(), tx.Weight.String(), tx.UnitPrice.Value.String(),
		tx.ItemName, tx.Date.String(), tx.Note, tx.OriginClient,
		tx.ID,
	)
	if err != nil {
		return &ledger.StoreError{Op: "update seller transaction", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "transaction", Name: string(tx.ID)}
	}
	return nil
}

func (s *Store) DeleteSellerTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteSellerTransaction(ctx, s.db, id)
}

func (s *Store) deleteSellerTransaction(ctx context.Context, q dbtx, id ledger.TransactionID) error {
	res, err := q.ExecContext(ctx, "DELETE FROM seller_transactions WHERE id = ?", id)
	if err != nil {
		return &ledger.StoreError{Op: "delete seller transaction", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "transaction", Name: string(id)}
	}
	return nil
}

func scanSellerTx(row scanner) (ledger.SellerTransaction, error) {
	var tx ledger.SellerTransaction
	var amount, count, weight, unitPrice string
	var itemName, date, note, originClient sql.NullString

	err := row.Scan(&tx.ID, &tx.SellerID, &amount, &tx.Status,
		&count, &weight, &unitPrice, &itemName, &date, &note, &originClient)
	if err != nil {
		return tx, err
	}

	tx.Amount = scanMoney(amount)
	tx.Count = scanDecimal(count)
	tx.Weight = scanDecimal(weight)
	tx.UnitPrice = scanMoney(unitPrice)
	tx.ItemName = itemName.String
	tx.Date = scanDate(date.String)
	tx.Note = note.String
	tx.OriginClient = originClient.String
	return tx, nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) GetClient(ctx context.Context, name string) (ledger.ClientAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getClient(ctx, s.db, name)
}

func (s *Store) getClient(ctx context.Context, q dbtx, name string) (ledger.ClientAccount, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, name, balance, phone FROM clients WHERE name = ?", name)
	acc, err := scanClient(row)
	if err == sql.ErrNoRows {
		return ledger.ClientAccount{}, &ledger.NotFoundError{Kind: "client", Name: name}
	}
	if err != nil {
		return ledger.ClientAccount{}, &ledger.StoreError{Op: "get client", Err: err}
	}
	return acc, nil
}

func (s *Store) GetOrCreateClient(ctx context.Context, name string) (ledger.ClientAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateClient(ctx, s.db, name)
}

func (s *Store) getOrCreateClient(ctx context.Context, q dbtx, name string) (ledger.ClientAccount, error) {
	acc, err := s.getClient(ctx, q, name)
	if err == nil {
		return acc, nil
	}
	if !ledger.IsNotFound(err) {
		return ledger.ClientAccount{}, err
	}

	acc = ledger.ClientAccount{
		ID:      ledger.ClientID(ledger.NewID()),
		Name:    name,
		Balance: ledger.ZeroMoney(),
	}
	if err := s.upsertClient(ctx, q, acc); err != nil {
		return ledger.ClientAccount{}, err
	}
	return acc, nil
}

func (s *Store) UpsertClient(ctx context.Context, acc ledger.ClientAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertClient(ctx, s.db, acc)
}

func (s *Store) upsertClient(ctx context.Context, q dbtx, acc ledger.ClientAccount) error {
	if acc.ID == "" {
		acc.ID = ledger.ClientID(ledger.NewID())
	}

	query := `
		INSERT INTO clients (id, name, balance, phone)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			balance = excluded.balance,
			phone = excluded.phone
	`

	_, err := q.ExecContext(ctx, query,
		acc.ID, acc.Name, acc.Balance.Value.String(), acc.Phone)
	if err != nil {
		return &ledger.StoreError{Op: "upsert client", Err: err}
	}
	return nil
}

func (s *Store) ListClients(ctx context.Context) ([]ledger.ClientAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listClients(ctx, s.db)
}

func (s *Store) listClients(ctx context.Context, q dbtx) ([]ledger.ClientAccount, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, name, balance, phone FROM clients ORDER BY name")
	if err != nil {
		return nil, &ledger.StoreError{Op: "list clients", Err: err}
	}
	defer rows.Close()

	var clients []ledger.ClientAccount
	for rows.Next() {
		acc, err := scanClient(rows)
		if err != nil {
			return nil, &ledger.StoreError{Op: "list clients", Err: err}
		}
		clients = append(clients, acc)
	}
	return clients, rows.Err()
}

func scanClient(row scanner) (ledger.ClientAccount, error) {
	var acc ledger.ClientAccount
	var balance string
	var phone sql.NullString
	if err := row.Scan(&acc.ID, &acc.Name, &balance, &phone); err != nil {
		return acc, err
	}
	acc.Balance = scanMoney(balance)
	acc.Phone = phone.String
	return acc, nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

const transferColumns = `id, direction, client_name, seller_name, item_name, unit_price, weight, count, equipment, invoice_id`

func (s *Store) AppendTransferPair(ctx context.Context, in, out ledger.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendTransferPair(ctx, s.db, in, out)
}

func (s *Store) appendTransferPair(ctx context.Context, q dbtx, in, out ledger.Transfer) error {
	for _, t := range []ledger.Transfer{in, out} {
		if err := s.insertTransfer(ctx, q, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertTransfer(ctx context.Context, q dbtx, t ledger.Transfer) error {
	query := `
		INSERT INTO transfers
		(` + transferColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		t.ID, string(t.Direction), t.ClientName, t.SellerName, t.ItemName,
		t.UnitPrice.Value.String(), t.Weight.String(), t.Count.String(),
		t.Equipment, string(t.InvoiceID),
	)
	if err != nil {
		return &ledger.StoreError{Op: "insert transfer", Err: err}
	}
	return nil
}

func (s *Store) ListUnsettledTransfers(ctx context.Context, clientName string) ([]ledger.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listUnsettledTransfers(ctx, s.db, clientName)
}

func (s *Store) listUnsettledTransfers(ctx context.Context, q dbtx, clientName string) ([]ledger.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE client_name = ? AND direction = ? AND invoice_id = ''
		ORDER BY rowid ASC
	`

	return s.queryTransfers(ctx, q, query, clientName, string(ledger.DirectionIn))
}

func (s *Store) UpdateTransferPrice(ctx context.Context, clientName, sellerName, itemName string, weight, count decimal.Decimal, price ledger.Money) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTransferPrice(ctx, s.db, clientName, sellerName, itemName, weight, count, price)
}

func (s *Store) updateTransferPrice(ctx context.Context, q dbtx, clientName, sellerName, itemName string, weight, count decimal.Decimal, price ledger.Money) (int, error) {
	query := `
		UPDATE transfers
		SET unit_price = ?
		WHERE client_name = ? AND seller_name = ? AND item_name = ?
		  AND weight = ? AND count = ?
	`

	res, err := q.ExecContext(ctx, query,
		price.Value.String(), clientName, sellerName, itemName,
		weight.String(), count.String())
	if err != nil {
		return 0, &ledger.StoreError{Op: "update transfer price", Err: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) TransfersByInvoice(ctx context.Context, id ledger.InvoiceID) ([]ledger.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transfersByInvoice(ctx, s.db, id)
}

func (s *Store) transfersByInvoice(ctx context.Context, q dbtx, id ledger.InvoiceID) ([]ledger.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE invoice_id = ?
		ORDER BY rowid ASC
	`

	return s.queryTransfers(ctx, q, query, string(id))
}

func (s *Store) queryTransfers(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Transfer, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.StoreError{Op: "query transfers", Err: err}
	}
	defer rows.Close()

	var transfers []ledger.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, &ledger.StoreError{Op: "query transfers", Err: err}
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func scanTransfer(row scanner) (ledger.Transfer, error) {
	var t ledger.Transfer
	var unitPrice, weight, count string
	var equipment sql.NullString

	err := row.Scan(&t.ID, &t.Direction, &t.ClientName, &t.SellerName, &t.ItemName,
		&unitPrice, &weight, &count, &equipment, &t.InvoiceID)
	if err != nil {
		return t, err
	}

	t.UnitPrice = scanMoney(unitPrice)
	t.Weight = scanDecimal(weight)
	t.Count = scanDecimal(count)
	t.Equipment = equipment.String
	return t, nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (s *Store) SaveInvoice(ctx context.Context, inv ledger.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveInvoice(ctx, s.db, inv)
}

func (s *Store) saveInvoice(ctx context.Context, q dbtx, inv ledger.Invoice) error {
	query := `
		INSERT INTO invoices
		(id, owner_name, nolon, commission, mashal, rent, cash, date, gross, total_deductions, final_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		inv.ID, inv.OwnerName,
		inv.Nolon.Value.String(),
		inv.Commission.String(),
		inv.Mashal.Value.String(),
		inv.Rent.Value.String(),
		inv.Cash.Value.String(),
		inv.Date.String(),
		inv.Gross.Value.String(),
		inv.TotalDeductions.Value.String(),
		inv.FinalTotal.Value.String(),
	)
	if err != nil {
		return &ledger.StoreError{Op: "save invoice", Err: err}
	}
	return nil
}

func (s *Store) LinkTransfersToInvoice(ctx context.Context, id ledger.InvoiceID, transferIDs []ledger.TransferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkTransfersToInvoice(ctx, s.db, id, transferIDs)
}

func (s *Store) linkTransfersToInvoice(ctx context.Context, q dbtx, id ledger.InvoiceID, transferIDs []ledger.TransferID) error {
	if len(transferIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(transferIDs)), ",")
	args := make([]any, 0, len(transferIDs)+1)
	args = append(args, string(id))
	for _, tid := range transferIDs {
		args = append(args, string(tid))
	}

	_, err := q.ExecContext(ctx,
		"UPDATE transfers SET invoice_id = ? WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return &ledger.StoreError{Op: "link transfers to invoice", Err: err}
	}
	return nil
}

func (s *Store) ListInvoices(ctx context.Context, clientName string) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listInvoices(ctx, s.db, clientName)
}

func (s *Store) listInvoices(ctx context.Context, q dbtx, clientName string) ([]ledger.Invoice, error) {
	query := `
		SELECT id, owner_name, nolon, commission, mashal, rent, cash, date, gross, total_deductions, final_total
		FROM invoices
		WHERE owner_name = ?
		ORDER BY date ASC, rowid ASC
	`

	rows, err := q.QueryContext(ctx, query, clientName)
	if err != nil {
		return nil, &ledger.StoreError{Op: "list invoices", Err: err}
	}
	defer rows.Close()

	var invoices []ledger.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, &ledger.StoreError{Op: "list invoices", Err: err}
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(row scanner) (ledger.Invoice, error) {
	var inv ledger.Invoice
	var nolon, commission, mashal, rent, cash, gross, deductions, final string
	var date sql.NullString

	err := row.Scan(&inv.ID, &inv.OwnerName,
		&nolon, &commission, &mashal, &rent, &cash, &date,
		&gross, &deductions, &final)
	if err != nil {
		return inv, err
	}

	inv.Nolon = scanMoney(nolon)
	inv.Commission, _ = ledger.ParseDeduction("commission", commission)
	inv.Mashal = scanMoney(mashal)
	inv.Rent = scanMoney(rent)
	inv.Cash = scanMoney(cash)
	inv.Date = scanDate(date.String)
	inv.Gross = scanMoney(gross)
	inv.TotalDeductions = scanMoney(deductions)
	inv.FinalTotal = scanMoney(final)
	return inv, nil
}

// =============================================================================
// ITEM CATALOG
// =============================================================================

func (s *Store) GetItem(ctx context.Context, name string) (ledger.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getItem(ctx, s.db, name)
}

func (s *Store) getItem(ctx context.Context, q dbtx, name string) (ledger.Item, error) {
	var item ledger.Item
	var price, equipmentWeight string

	err := q.QueryRowContext(ctx,
		"SELECT name, unit_price, equipment_weight FROM items WHERE name = ?", name,
	).Scan(&item.Name, &price, &equipmentWeight)
	if err == sql.ErrNoRows {
		return ledger.Item{}, &ledger.NotFoundError{Kind: "item", Name: name}
	}
	if err != nil {
		return ledger.Item{}, &ledger.StoreError{Op: "get item", Err: err}
	}

	item.UnitPrice = scanMoney(price)
	item.EquipmentWeight = scanDecimal(equipmentWeight)
	return item, nil
}

func (s *Store) UpsertItem(ctx context.Context, item ledger.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertItem(ctx, s.db, item)
}

func (s *Store) upsertItem(ctx context.Context, q dbtx, item ledger.Item) error {
	query := `
		INSERT INTO items (name, unit_price, equipment_weight)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			unit_price = excluded.unit_price,
			equipment_weight = excluded.equipment_weight
	`

	_, err := q.ExecContext(ctx, query,
		item.Name, item.UnitPrice.Value.String(), item.EquipmentWeight.String())
	if err != nil {
		return &ledger.StoreError{Op: "upsert item", Err: err}
	}
	return nil
}

func (s *Store) ListItems(ctx context.Context) ([]ledger.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listItems(ctx, s.db)
}

func (s *Store) listItems(ctx context.Context, q dbtx) ([]ledger.Item, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT name, unit_price, equipment_weight FROM items ORDER BY name")
	if err != nil {
		return nil, &ledger.StoreError{Op: "list items", Err: err}
	}
	defer rows.Close()

	var items []ledger.Item
	for rows.Next() {
		var item ledger.Item
		var price, equipmentWeight string
		if err := rows.Scan(&item.Name, &price, &equipmentWeight); err != nil {
			return nil, &ledger.StoreError{Op: "list items", Err: err}
		}
		item.UnitPrice = scanMoney(price)
		item.EquipmentWeight = scanDecimal(equipmentWeight)
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) AppendExpense(ctx context.Context, e ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendExpense(ctx, s.db, e)
}

func (s *Store) appendExpense(ctx context.Context, q dbtx, e ledger.Expense) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO expenses (id, description, amount, date, note) VALUES (?, ?, ?, ?, ?)",
		e.ID, e.Description, e.Amount.Value.String(), e.Date.String(), e.Note)
	if err != nil {
		return &ledger.StoreError{Op: "append expense", Err: err}
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryExpenses(ctx, s.db,
		"SELECT id, description, amount, date, note FROM expenses ORDER BY date ASC, rowid ASC")
}

func (s *Store) ListExpensesByDate(ctx context.Context, day ledger.Date) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryExpenses(ctx, s.db,
		"SELECT id, description, amount, date, note FROM expenses WHERE date = ? ORDER BY rowid ASC",
		day.String())
}

func (s *Store) queryExpenses(ctx context.Context, q dbtx, query string, args ...any) ([]ledger.Expense, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.StoreError{Op: "query expenses", Err: err}
	}
	defer rows.Close()

	var expenses []ledger.Expense
	for rows.Next() {
		var e ledger.Expense
		var amount string
		var date, note sql.NullString
		if err := rows.Scan(&e.ID, &e.Description, &amount, &date, &note); err != nil {
			return nil, &ledger.StoreError{Op: "query expenses", Err: err}
		}
		e.Amount = scanMoney(amount)
		e.Date = scanDate(date.String)
		e.Note = note.String
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.StoreError{Op: "begin transaction", Err: err}
	}
	defer sqlTx.Rollback()

	txStore := &txStore{tx: sqlTx, parent: s}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &ledger.StoreError{Op: "commit transaction", Err: err}
	}
	return nil
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) GetSeller(ctx context.Context, name string) (ledger.SellerAccount, error) {
	return ts.parent.getSeller(ctx, ts.tx, name)
}

func (ts *txStore) GetSellerByID(ctx context.Context, id ledger.SellerID) (ledger.SellerAccount, error) {
	return ts.parent.getSellerByID(ctx, ts.tx, id)
}

func (ts *txStore) GetOrCreateSeller(ctx context.Context, name string) (ledger.SellerAccount, error) {
	return ts.parent.getOrCreateSeller(ctx, ts.tx, name)
}

func (ts *txStore) UpsertSeller(ctx context.Context, acc ledger.SellerAccount) error {
	return ts.parent.upsertSeller(ctx, ts.tx, acc)
}

func (ts *txStore) ListSellers(ctx context.Context) ([]ledger.SellerAccount, error) {
	return ts.parent.listSellers(ctx, ts.tx)
}

func (ts *txStore) ListSellerTransactions(ctx context.Context, sellerID ledger.SellerID) ([]ledger.SellerTransaction, error) {
	return ts.parent.listSellerTransactions(ctx, ts.tx, sellerID)
}

func (ts *txStore) GetSellerTransaction(ctx context.Context, id ledger.TransactionID) (ledger.SellerTransaction, error) {
	return ts.parent.getSellerTransaction(ctx, ts.tx, id)
}

func (ts *txStore) AppendSellerTransaction(ctx context.Context, tx ledger.SellerTransaction) error {
	return ts.parent.appendSellerTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) UpdateSellerTransaction(ctx context.Context, tx ledger.SellerTransaction) error {
	return ts.parent.updateSellerTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) DeleteSellerTransaction(ctx context.Context, id ledger.TransactionID) error {
	return ts.parent.deleteSellerTransaction(ctx, ts.tx, id)
}

func (ts *txStore) GetClient(ctx context.Context, name string) (ledger.ClientAccount, error) {
	return ts.parent.getClient(ctx, ts.tx, name)
}

func (ts *txStore) GetOrCreateClient(ctx context.Context, name string) (ledger.ClientAccount, error) {
	return ts.parent.getOrCreateClient(ctx, ts.tx, name)
}

func (ts *txStore) UpsertClient(ctx context.Context, acc ledger.ClientAccount) error {
	return ts.parent.upsertClient(ctx, ts.tx, acc)
}

func (ts *txStore) ListClients(ctx context.Context) ([]ledger.ClientAccount, error) {
	return ts.parent.listClients(ctx, ts.tx)
}

func (ts *txStore) AppendTransferPair(ctx context.Context, in, out ledger.Transfer) error {
	return ts.parent.appendTransferPair(ctx, ts.tx, in, out)
}

func (ts *txStore) ListUnsettledTransfers(ctx context.Context, clientName string) ([]ledger.Transfer, error) {
	return ts.parent.listUnsettledTransfers(ctx, ts.tx, clientName)
}

func (ts *txStore) UpdateTransferPrice(ctx context.Context, clientName, sellerName, itemName string, weight, count decimal.Decimal, price ledger.Money) (int, error) {
	return ts.parent.updateTransferPrice(ctx, ts.tx, clientName, sellerName, itemName, weight, count, price)
}

func (ts *txStore) SaveInvoice(ctx context.Context, inv ledger.Invoice) error {
	return ts.parent.saveInvoice(ctx, ts.tx, inv)
}

func (ts *txStore) LinkTransfersToInvoice(ctx context.Context, id ledger.InvoiceID, transferIDs []ledger.TransferID) error {
	return ts.parent.linkTransfersToInvoice(ctx, ts.tx, id, transferIDs)
}

func (ts *txStore) ListInvoices(ctx context.Context, clientName string) ([]ledger.Invoice, error) {
	return ts.parent.listInvoices(ctx, ts.tx, clientName)
}

func (ts *txStore) TransfersByInvoice(ctx context.Context, id ledger.InvoiceID) ([]ledger.Transfer, error) {
	return ts.parent.transfersByInvoice(ctx, ts.tx, id)
}

func (ts *txStore) GetItem(ctx context.Context, name string) (ledger.Item, error) {
	return ts.parent.getItem(ctx, ts.tx, name)
}

func (ts *txStore) UpsertItem(ctx context.Context, item ledger.Item) error {
	return ts.parent.upsertItem(ctx, ts.tx, item)
}

func (ts *txStore) ListItems(ctx context.Context) ([]ledger.Item, error) {
	return ts.parent.listItems(ctx, ts.tx)
}

func (ts *txStore) AppendExpense(ctx context.Context, e ledger.Expense) error {
	return ts.parent.appendExpense(ctx, ts.tx, e)
}

func (ts *txStore) ListExpenses(ctx context.Context) ([]ledger.Expense, error) {
	return ts.parent.queryExpenses(ctx, ts.tx,
		"SELECT id, description, amount, date, note FROM expenses ORDER BY date ASC, rowid ASC")
}

func (ts *txStore) ListExpensesByDate(ctx context.Context, day ledger.Date) ([]ledger.Expense, error) {
	return ts.parent.queryExpenses(ctx, ts.tx,
		"SELECT id, description, amount, date, note FROM expenses WHERE date = ? ORDER BY rowid ASC",
		day.String())
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"seller_transactions", "transfers", "invoices", "expenses", "items", "sellers", "clients"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return &ledger.StoreError{Op: "reset", Err: err}
		}
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMoney(s string) ledger.Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ledger.ZeroMoney()
	}
	return ledger.Money{Value: d}
}

func scanDecimal(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// scanDate tolerates malformed stored dates; they come back zero.
func scanDate(s string) ledger.Date {
	d, _ := ledger.ParseDate(s)
	return d
}
