/*
settlement.go - Invoice settlement for a client's unsettled transfers

PURPOSE:
  Computes the net payable to a client: the gross value of their unsettled
  inbound transfers minus five deduction fields. Four deductions (nolon,
  mashal, rent, cash) are plain amounts; commission may be a percentage of
  gross or a flat figure. On success an invoice is persisted and the
  settled transfers are linked to it, atomically, so they drop out of
  future unsettled queries.

MATH:
  commissionAmount = gross * p / 100   when commission ends in '%'
                   = commission        otherwise
  totalDeductions  = nolon + commissionAmount + mashal + rent + cash
  finalTotal       = gross - totalDeductions   (may be negative; reported
                                                as-is, not an error)
*/
package ledger

import "context"

// =============================================================================
// DEDUCTION INPUT
// =============================================================================

// DeductionInput carries the five raw deduction fields as entered. Empty
// fields default to zero.
type DeductionInput struct {
	Nolon      string
	Commission string
	Mashal     string
	Rent       string
	Cash       string
}

// parsedDeductions is the once-parsed form of a DeductionInput.
type parsedDeductions struct {
	Nolon      Money
	Commission Deduction
	Mashal     Money
	Rent       Money
	Cash       Money
}

func (in DeductionInput) parse() (parsedDeductions, error) {
	var p parsedDeductions
	var err error
	if p.Nolon, err = parseNonNegative("nolon", in.Nolon); err != nil {
		return p, err
	}
	if p.Commission, err = ParseDeduction("commission", in.Commission); err != nil {
		return p, err
	}
	if p.Commission.Value.IsNegative() {
		return p, &InvalidInputError{Field: "commission", Value: in.Commission, Reason: "must not be negative"}
	}
	if p.Mashal, err = parseNonNegative("mashal", in.Mashal); err != nil {
		return p, err
	}
	if p.Rent, err = parseNonNegative("rent", in.Rent); err != nil {
		return p, err
	}
	if p.Cash, err = parseNonNegative("cash", in.Cash); err != nil {
		return p, err
	}
	return p, nil
}

func parseNonNegative(field, s string) (Money, error) {
	m, err := ParseMoney(field, s)
	if err != nil {
		return Money{}, err
	}
	if m.IsNegative() {
		return Money{}, &InvalidInputError{Field: field, Value: s, Reason: "must not be negative"}
	}
	return m, nil
}

// =============================================================================
// SETTLEMENT COMPUTATION
// =============================================================================

// SettlementResult is one computed settlement.
type SettlementResult struct {
	Gross           Money
	TotalDeductions Money
	FinalTotal      Money
	Invoice         Invoice
}

// ComputeSettlement resolves the deductions against a gross amount. Pure;
// no persistence. Settle below wraps it with the store writes.
func ComputeSettlement(gross Money, in DeductionInput) (SettlementResult, error) {
	p, err := in.parse()
	if err != nil {
		return SettlementResult{}, err
	}
	commission := p.Commission.AmountOf(gross)
	total := p.Nolon.Add(commission).Add(p.Mashal).Add(p.Rent).Add(p.Cash)
	return SettlementResult{
		Gross:           gross,
		TotalDeductions: total,
		FinalTotal:      gross.Sub(total),
		Invoice: Invoice{
			Nolon:           p.Nolon,
			Commission:      p.Commission,
			Mashal:          p.Mashal,
			Rent:            p.Rent,
			Cash:            p.Cash,
			Gross:           gross,
			TotalDeductions: total,
			FinalTotal:      gross.Sub(total),
		},
	}, nil
}

// =============================================================================
// SETTLER - store-backed settlement
// =============================================================================

// Settler turns a client's unsettled transfers into a persisted invoice.
type Settler struct {
	Store TxStore
}

func NewSettler(store TxStore) *Settler {
	return &Settler{Store: store}
}

// Settle computes and persists an invoice over every unsettled inbound
// transfer of the named client. The invoice row and the transfer links are
// written in one transaction; a parse failure persists nothing.
func (s *Settler) Settle(ctx context.Context, clientName string, in DeductionInput, day Date) (SettlementResult, error) {
	if clientName == "" {
		return SettlementResult{}, &InvalidInputError{Field: "clientName", Reason: "required"}
	}

	transfers, err := s.Store.ListUnsettledTransfers(ctx, clientName)
	if err != nil {
		return SettlementResult{}, err
	}
	if len(transfers) == 0 {
		return SettlementResult{}, &NotFoundError{Kind: "unsettled transfers", Name: clientName}
	}

	gross := ZeroMoney()
	ids := make([]TransferID, 0, len(transfers))
	for _, t := range transfers {
		gross = gross.Add(t.Value())
		ids = append(ids, t.ID)
	}

	result, err := ComputeSettlement(gross, in)
	if err != nil {
		return SettlementResult{}, err
	}
	result.Invoice.ID = InvoiceID(NewID())
	result.Invoice.OwnerName = clientName
	result.Invoice.Date = day

	err = s.Store.WithTx(ctx, func(st Store) error {
		if err := st.SaveInvoice(ctx, result.Invoice); err != nil {
			return err
		}
		return st.LinkTransfersToInvoice(ctx, result.Invoice.ID, ids)
	})
	if err != nil {
		return SettlementResult{}, err
	}
	return result, nil
}

// UnsettledSummary lists a client's open transfers with their running
// gross, the figure the settlement screen shows before deductions.
type UnsettledSummary struct {
	Transfers []Transfer
	Gross     Money
}

func (s *Settler) Unsettled(ctx context.Context, clientName string) (UnsettledSummary, error) {
	transfers, err := s.Store.ListUnsettledTransfers(ctx, clientName)
	if err != nil {
		return UnsettledSummary{}, err
	}
	gross := ZeroMoney()
	for _, t := range transfers {
		gross = gross.Add(t.Value())
	}
	return UnsettledSummary{Transfers: transfers, Gross: gross}, nil
}
