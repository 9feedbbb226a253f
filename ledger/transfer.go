/*
transfer.go - Double-entry recording of goods movements

PURPOSE:
  A goods movement touches both sides of the book at once: the supplying
  client is credited (the company owes them more) and the receiving seller
  is debited (they owe the company more). This file owns that pairing and
  the later corrections that must keep it consistent.

THE DOUBLE ENTRY:
  One RecordTransfer call produces, atomically:
    1. client balance += gross
    2. one 'in' transfer row and one 'out' transfer row, field-identical
    3. one goods transaction on the seller's ledger

PRICE CORRECTIONS:
  Editing the unit price of a transfer-created transaction recomputes its
  amount, rewrites the price on the matching transfer pair, and adjusts the
  client balance by the negative of the amount delta: a price increase for
  the seller shrinks what the company still owes the client net of what
  the seller now owes. Transactions with no recorded origin client skip
  the propagation.

KNOWN QUIRK:
  An unknown item with no supplied price records the goods at price zero.
  That mirrors the book of record this engine replaces; it is deliberate,
  not a missing validation.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORDER
// =============================================================================

// Recorder executes double-entry writes against a transactional store.
type Recorder struct {
	Store TxStore
}

func NewRecorder(store TxStore) *Recorder {
	return &Recorder{Store: store}
}

// TransferInput describes one goods movement.
type TransferInput struct {
	ClientName string
	SellerName string
	ItemName   string
	UnitPrice  Money
	Weight     decimal.Decimal
	Count      decimal.Decimal
	Equipment  string
	Date       Date
}

// TransferResult reports what a recorded movement created.
type TransferResult struct {
	In          Transfer
	Out         Transfer
	Transaction SellerTransaction
	Gross       Money
}

// RecordTransfer records one goods movement as a client credit and a
// seller debit. The multi-row write is atomic: a reader never sees the
// client credited without the seller debited.
func (r *Recorder) RecordTransfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if in.ClientName == "" {
		return TransferResult{}, &InvalidInputError{Field: "clientName", Reason: "required"}
	}
	if in.SellerName == "" {
		return TransferResult{}, &InvalidInputError{Field: "sellerName", Reason: "required"}
	}
	if in.Weight.IsNegative() || in.Count.IsNegative() {
		return TransferResult{}, &InvalidInputError{Field: "quantity", Reason: "must not be negative"}
	}
	if !in.Weight.IsPositive() && !in.Count.IsPositive() {
		return TransferResult{}, &InvalidInputError{Field: "quantity", Reason: "transfer needs a weight or a count"}
	}
	if in.Date.IsZero() {
		return TransferResult{}, &InvalidInputError{Field: "date", Reason: "required"}
	}

	var result TransferResult
	err := r.Store.WithTx(ctx, func(s Store) error {
		price, err := resolvePrice(ctx, s, in.ItemName, in.UnitPrice)
		if err != nil {
			return err
		}

		gross := price.Mul(in.Count)
		if in.Weight.IsPositive() {
			gross = price.Mul(in.Weight)
		}

		client, err := s.GetOrCreateClient(ctx, in.ClientName)
		if err != nil {
			return err
		}
		client.Balance = client.Balance.Add(gross)
		if err := s.UpsertClient(ctx, client); err != nil {
			return err
		}

		seller, err := s.GetOrCreateSeller(ctx, in.SellerName)
		if err != nil {
			return err
		}

		inRow := Transfer{
			ID:         TransferID(NewID()),
			Direction:  DirectionIn,
			ClientName: in.ClientName,
			SellerName: in.SellerName,
			ItemName:   in.ItemName,
			UnitPrice:  price,
			Weight:     in.Weight,
			Count:      in.Count,
			Equipment:  in.Equipment,
		}
		outRow := inRow
		outRow.ID = TransferID(NewID())
		outRow.Direction = DirectionOut
		if err := s.AppendTransferPair(ctx, inRow, outRow); err != nil {
			return err
		}

		tx := SellerTransaction{
			ID:           TransactionID(NewID()),
			SellerID:     seller.ID,
			Amount:       gross,
			Status:       StatusGoods,
			Count:        in.Count,
			Weight:       in.Weight,
			UnitPrice:    price,
			ItemName:     in.ItemName,
			Date:         in.Date,
			Note:         "transfer from client " + in.ClientName,
			OriginClient: in.ClientName,
		}
		if err := s.AppendSellerTransaction(ctx, tx); err != nil {
			return err
		}

		result = TransferResult{In: inRow, Out: outRow, Transaction: tx, Gross: gross}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

// resolvePrice falls back to the item catalog when no price was supplied,
// and registers unknown items so the next movement finds them. It runs on
// the transaction's store view so a failed movement registers nothing.
func resolvePrice(ctx context.Context, s Store, itemName string, supplied Money) (Money, error) {
	if itemName == "" {
		return supplied, nil
	}
	item, err := s.GetItem(ctx, itemName)
	if IsNotFound(err) {
		if err := s.UpsertItem(ctx, Item{Name: itemName, UnitPrice: supplied}); err != nil {
			return Money{}, err
		}
		return supplied, nil
	}
	if err != nil {
		return Money{}, err
	}
	if supplied.IsZero() {
		return item.UnitPrice, nil
	}
	return supplied, nil
}

// =============================================================================
// PAYMENTS AND ALLOWANCES
// =============================================================================

// RecordPayment appends a cash collection to a seller's ledger.
func (r *Recorder) RecordPayment(ctx context.Context, sellerName string, amount Money, day Date, note string) (SellerTransaction, error) {
	return r.recordSettling(ctx, sellerName, amount, StatusPaid, "cash collection", day, note)
}

// RecordAllowance appends a granted discount to a seller's ledger.
func (r *Recorder) RecordAllowance(ctx context.Context, sellerName string, amount Money, day Date, note string) (SellerTransaction, error) {
	return r.recordSettling(ctx, sellerName, amount, StatusAllowance, "allowance", day, note)
}

func (r *Recorder) recordSettling(ctx context.Context, sellerName string, amount Money, status TxStatus, itemName string, day Date, note string) (SellerTransaction, error) {
	if sellerName == "" {
		return SellerTransaction{}, &InvalidInputError{Field: "sellerName", Reason: "required"}
	}
	if !amount.IsPositive() {
		return SellerTransaction{}, &InvalidInputError{Field: "amount", Value: amount.String(), Reason: "must be positive"}
	}
	if day.IsZero() {
		return SellerTransaction{}, &InvalidInputError{Field: "date", Reason: "required"}
	}
	seller, err := r.Store.GetSeller(ctx, sellerName)
	if err != nil {
		return SellerTransaction{}, err
	}
	tx := SellerTransaction{
		ID:       TransactionID(NewID()),
		SellerID: seller.ID,
		Amount:   amount,
		Status:   status,
		ItemName: itemName,
		Date:     day,
		Note:     note,
	}
	if err := r.Store.AppendSellerTransaction(ctx, tx); err != nil {
		return SellerTransaction{}, err
	}
	return tx, nil
}

// =============================================================================
// CORRECTIONS
// =============================================================================

// UpdateTransactionPrice reprices a seller transaction and, when the
// transaction came from a transfer, propagates the new price to the
// transfer pair and adjusts the originating client's balance.
func (r *Recorder) UpdateTransactionPrice(ctx context.Context, id TransactionID, newPrice Money) (SellerTransaction, error) {
	if newPrice.IsNegative() {
		return SellerTransaction{}, &InvalidInputError{Field: "unitPrice", Value: newPrice.String(), Reason: "must not be negative"}
	}

	var updated SellerTransaction
	err := r.Store.WithTx(ctx, func(s Store) error {
		tx, err := s.GetSellerTransaction(ctx, id)
		if err != nil {
			return err
		}

		qty := tx.Count
		if tx.Weight.IsPositive() {
			qty = tx.Weight
		}
		oldAmount := tx.Amount
		tx.UnitPrice = newPrice
		tx.Amount = newPrice.Mul(qty)
		if err := s.UpdateSellerTransaction(ctx, tx); err != nil {
			return err
		}

		if tx.OriginClient != "" {
			seller, err := s.GetSellerByID(ctx, tx.SellerID)
			if err != nil {
				return err
			}
			if _, err := s.UpdateTransferPrice(ctx, tx.OriginClient, seller.Name, tx.ItemName, tx.Weight, tx.Count, newPrice); err != nil {
				return err
			}
			client, err := s.GetClient(ctx, tx.OriginClient)
			if err != nil {
				return err
			}
			// a price rise for the seller lowers the net owed to the client
			delta := tx.Amount.Sub(oldAmount)
			client.Balance = client.Balance.Sub(delta)
			if err := s.UpsertClient(ctx, client); err != nil {
				return err
			}
		}

		updated = tx
		return nil
	})
	if err != nil {
		return SellerTransaction{}, err
	}
	return updated, nil
}

// UpdateTransaction rewrites an edited statement row after validating the
// amount and status invariants.
func (r *Recorder) UpdateTransaction(ctx context.Context, tx SellerTransaction) error {
	if tx.Amount.IsNegative() {
		return &InvalidInputError{Field: "amount", Value: tx.Amount.String(), Reason: "must not be negative"}
	}
	if !tx.Status.Valid() {
		return &InvalidInputError{Field: "status", Value: string(tx.Status), Reason: "unknown status"}
	}
	return r.Store.UpdateSellerTransaction(ctx, tx)
}

// DeleteTransaction removes a cleared statement row.
func (r *Recorder) DeleteTransaction(ctx context.Context, id TransactionID) error {
	return r.Store.DeleteSellerTransaction(ctx, id)
}
