/*
Package ledger provides the bookkeeping engine for a produce-trading house.

PURPOSE:
  This package contains the domain types and algorithms for tracking what
  sellers (market agents) owe, what client growers are owed for shipped
  goods, and how settlement invoices are computed. Persistence is delegated
  to a Store collaborator; every calculation here is a pure fold over data
  the store hands back.

KEY CONCEPTS IN THIS FILE (types.go):
  - SellerAccount: an agent who receives goods and carries a running balance
  - ClientAccount: a grower who supplies goods; their balance is a direct
    accumulator, not derived from a transaction history
  - SellerTransaction: one ledger entry on a seller's account; its Status
    tag alone decides whether it raises or lowers what the seller owes
  - Transfer: one side (in/out) of a goods movement; movements always come
    in matched in/out pairs
  - Invoice: a computed settlement for a client's unsettled transfers

SIGN CONVENTIONS:
  SellerTransaction.Amount is always a non-negative magnitude. Direction is
  derived from Status: goods increases the seller's debt, paid and allowance
  decrease it. ClientAccount.Balance is positive when the company owes the
  client.

SEE ALSO:
  - money.go: amount and percent-or-fixed deduction primitives
  - balance.go: balance derivation from a transaction history
  - statement.go: date-grouped statement rows
  - store.go: persistence contract
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SellerID string
type ClientID string
type TransactionID string
type TransferID string
type InvoiceID string

// NewID returns a fresh unique identifier for engine-created records.
func NewID() string { return uuid.NewString() }

// =============================================================================
// DATE - calendar day, no time component
// =============================================================================

// Date is a civil calendar date. Transactions are grouped and ordered by
// Date; the engine never reads an ambient clock, callers pass dates in.
type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, &InvalidInputError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return Date{Time: t}, nil
}

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) IsZero() bool        { return d.Time.IsZero() }
func (d Date) Before(o Date) bool  { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool   { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool   { return d.normalize().Equal(o.normalize()) }
func (d Date) AddDays(n int) Date  { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

// DaysBetween returns the whole days from one date to another.
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// =============================================================================
// TRANSACTION STATUS - the sign-determining tag
// =============================================================================

type TxStatus string

const (
	StatusGoods     TxStatus = "goods"     // goods received, raises the seller's debt
	StatusPaid      TxStatus = "paid"      // cash collected, lowers the debt
	StatusAllowance TxStatus = "allowance" // discount granted, lowers the debt, reported separately
)

func (s TxStatus) Valid() bool {
	switch s {
	case StatusGoods, StatusPaid, StatusAllowance:
		return true
	}
	return false
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// SellerAccount is an agent who receives goods from clients. The stored
// OpeningBalance is a carried-forward figure edited only by explicit
// reconciliation; the displayed balance is always recomputed from it plus
// the transaction history (see balance.go).
type SellerAccount struct {
	ID             SellerID
	Name           string
	Phone          string
	OpeningBalance Money
	CreditLimit    Money // allowance ceiling, informational only
}

// ClientAccount is a grower who supplies goods. Clients carry no separate
// transaction ledger; Balance is mutated additively by the engine.
type ClientAccount struct {
	ID      ClientID
	Name    string
	Balance Money
	Phone   string
}

// =============================================================================
// SELLER TRANSACTION
// =============================================================================

// SellerTransaction is one entry on a seller's running account.
//
// INVARIANT: Amount >= 0. Direction comes from Status, never from sign.
type SellerTransaction struct {
	ID        TransactionID
	SellerID  SellerID
	Amount    Money
	Status    TxStatus
	Count     decimal.Decimal
	Weight    decimal.Decimal
	UnitPrice Money
	ItemName  string
	Date      Date
	Note      string

	// OriginClient names the client a transfer-created transaction came
	// from. Price corrections propagate back through it (see transfer.go).
	// Empty for manual payments and goods entries.
	OriginClient string
}

// =============================================================================
// TRANSFER - one side of a goods movement
// =============================================================================

type Direction string

const (
	DirectionIn  Direction = "in"  // client supplied goods
	DirectionOut Direction = "out" // seller received goods
)

// Transfer records one side of a goods movement. A single movement always
// produces one in and one out row with matching client/seller/item/weight/
// count. InvoiceID is set once the in side has been settled.
type Transfer struct {
	ID         TransferID
	Direction  Direction
	ClientName string
	SellerName string
	ItemName   string
	UnitPrice  Money
	Weight     decimal.Decimal
	Count      decimal.Decimal
	Equipment  string
	InvoiceID  InvoiceID // empty means unsettled
}

// Value is the gross worth of the transfer: weight-priced when a weight is
// present, count-priced otherwise.
func (t Transfer) Value() Money {
	if t.Weight.IsPositive() {
		return t.UnitPrice.Mul(t.Weight)
	}
	return t.UnitPrice.Mul(t.Count)
}

// =============================================================================
// INVOICE - settlement of a client's transfers
// =============================================================================

// Invoice is a persisted settlement: gross goods value minus the five
// deduction fields. Commission is the one field that may be a percentage.
type Invoice struct {
	ID              InvoiceID
	OwnerName       string
	Nolon           Money
	Commission      Deduction
	Mashal          Money
	Rent            Money
	Cash            Money
	Date            Date
	Gross           Money
	TotalDeductions Money
	FinalTotal      Money
}

// =============================================================================
// ITEM CATALOG
// =============================================================================

// Item is a catalog entry for a produce kind with its default unit price.
// EquipmentWeight is the tare weight of the crates the item ships in.
type Item struct {
	Name            string
	UnitPrice       Money
	EquipmentWeight decimal.Decimal
}

// =============================================================================
// EXPENSE
// =============================================================================

// Expense is a direct cash outflow, counted against daily collection
// totals (see report.go).
type Expense struct {
	ID          string
	Description string
	Amount      Money
	Date        Date
	Note        string
}

func (e Expense) String() string {
	return fmt.Sprintf("%s: %s on %s", e.Description, e.Amount, e.Date)
}
