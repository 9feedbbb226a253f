/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNT ENCODING:
  Every amount, weight and count crosses the wire as a decimal string,
  never as a JSON number. Commission additionally accepts the "10%" form.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these mirror
*/
package api

import (
	"github.com/bajar/tradebook/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// TransferRequest records one goods movement.
type TransferRequest struct {
	ClientName string `json:"client_name"`
	SellerName string `json:"seller_name"`
	ItemName   string `json:"item_name"`
	UnitPrice  string `json:"unit_price"`
	Weight     string `json:"weight"`
	Count      string `json:"count"`
	Equipment  string `json:"equipment,omitempty"`
	Date       string `json:"date"`
}

// PaymentRequest records a cash collection or an allowance on a seller.
type PaymentRequest struct {
	SellerName string `json:"seller_name"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
	Note       string `json:"note,omitempty"`
}

// SettleRequest settles a client's unsettled transfers. Commission may be
// a flat amount ("50") or a percentage of gross ("10%").
type SettleRequest struct {
	Nolon      string `json:"nolon"`
	Commission string `json:"commission"`
	Mashal     string `json:"mashal"`
	Rent       string `json:"rent"`
	Cash       string `json:"cash"`
	Date       string `json:"date"`
}

// UpdatePriceRequest reprices a seller transaction.
type UpdatePriceRequest struct {
	UnitPrice string `json:"unit_price"`
}

// UpsertSellerRequest creates or updates a seller account.
type UpsertSellerRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	OpeningBalance string `json:"opening_balance,omitempty"`
	CreditLimit    string `json:"credit_limit,omitempty"`
}

// UpsertItemRequest creates or updates a catalog item.
type UpsertItemRequest struct {
	Name            string `json:"name"`
	UnitPrice       string `json:"unit_price"`
	EquipmentWeight string `json:"equipment_weight,omitempty"`
}

// ExpenseRequest records a cash outflow.
type ExpenseRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Note        string `json:"note,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SellerDTO is a seller account with its derived balance breakdown.
type SellerDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	OpeningBalance string `json:"opening_balance"`
	CreditLimit    string `json:"credit_limit"`
	GoodsTotal     string `json:"goods_total"`
	PaidTotal      string `json:"paid_total"`
	AllowanceTotal string `json:"allowance_total"`
	FinalBalance   string `json:"final_balance"`
}

// ClientDTO is a grower account.
type ClientDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
	Phone   string `json:"phone,omitempty"`
}

// BalanceDTO is the categorized balance for one seller.
type BalanceDTO struct {
	SellerName     string `json:"seller_name"`
	GoodsTotal     string `json:"goods_total"`
	PaidTotal      string `json:"paid_total"`
	AllowanceTotal string `json:"allowance_total"`
	FinalBalance   string `json:"final_balance"`
}

// TransactionDTO is one seller ledger entry.
type TransactionDTO struct {
	ID           string `json:"id"`
	SellerID     string `json:"seller_id"`
	Amount       string `json:"amount"`
	Status       string `json:"status"`
	Count        string `json:"count"`
	Weight       string `json:"weight"`
	UnitPrice    string `json:"unit_price"`
	ItemName     string `json:"item_name,omitempty"`
	Date         string `json:"date"`
	Note         string `json:"note,omitempty"`
	OriginClient string `json:"origin_client,omitempty"`
}

// StatementRowDTO is one renderable statement line.
type StatementRowDTO struct {
	Kind        string          `json:"kind"`
	Transaction *TransactionDTO `json:"transaction,omitempty"`
	Date        string          `json:"date,omitempty"`
	Amount      string          `json:"amount,omitempty"`
}

// TransferDTO is one side of a goods movement.
type TransferDTO struct {
	ID         string `json:"id"`
	Direction  string `json:"direction"`
	ClientName string `json:"client_name"`
	SellerName string `json:"seller_name"`
	ItemName   string `json:"item_name"`
	UnitPrice  string `json:"unit_price"`
	Weight     string `json:"weight"`
	Count      string `json:"count"`
	Equipment  string `json:"equipment,omitempty"`
	InvoiceID  string `json:"invoice_id,omitempty"`
	Value      string `json:"value"`
}

// TransferResultDTO reports what a recorded movement created.
type TransferResultDTO struct {
	In          TransferDTO    `json:"in"`
	Out         TransferDTO    `json:"out"`
	Transaction TransactionDTO `json:"transaction"`
	Gross       string         `json:"gross"`
}

// InvoiceDTO is a persisted settlement.
type InvoiceDTO struct {
	ID              string `json:"id"`
	OwnerName       string `json:"owner_name"`
	Nolon           string `json:"nolon"`
	Commission      string `json:"commission"`
	Mashal          string `json:"mashal"`
	Rent            string `json:"rent"`
	Cash            string `json:"cash"`
	Date            string `json:"date"`
	Gross           string `json:"gross"`
	TotalDeductions string `json:"total_deductions"`
	FinalTotal      string `json:"final_total"`
}

// UnsettledDTO lists a client's unsettled transfers and their gross.
type UnsettledDTO struct {
	Transfers []TransferDTO `json:"transfers"`
	Gross     string        `json:"gross"`
}

// ArrearsDTO is the overdue classification for one seller.
type ArrearsDTO struct {
	SellerName    string `json:"seller_name"`
	Overdue       bool   `json:"overdue"`
	AsOf          string `json:"as_of"`
	ThresholdDays int    `json:"threshold_days"`
}

// ItemDTO is a catalog entry.
type ItemDTO struct {
	Name            string `json:"name"`
	UnitPrice       string `json:"unit_price"`
	EquipmentWeight string `json:"equipment_weight"`
}

// ExpenseDTO is a recorded cash outflow.
type ExpenseDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Note        string `json:"note,omitempty"`
}

// DailyTotalsDTO is one day's collection, spend and net.
type DailyTotalsDTO struct {
	Date            string `json:"date"`
	TotalCollection string `json:"total_collection"`
	TotalExpenses   string `json:"total_expenses"`
	Net             string `json:"net"`
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTransactionDTO(tx ledger.SellerTransaction) TransactionDTO {
	return TransactionDTO{
		ID:           string(tx.ID),
		SellerID:     string(tx.SellerID),
		Amount:       tx.Amount.String(),
		Status:       string(tx.Status),
		Count:        tx.Count.String(),
		Weight:       tx.Weight.String(),
		UnitPrice:    tx.UnitPrice.String(),
		ItemName:     tx.ItemName,
		Date:         tx.Date.String(),
		Note:         tx.Note,
		OriginClient: tx.OriginClient,
	}
}

func toTransferDTO(t ledger.Transfer) TransferDTO {
	return TransferDTO{
		ID:         string(t.ID),
		Direction:  string(t.Direction),
		ClientName: t.ClientName,
		SellerName: t.SellerName,
		ItemName:   t.ItemName,
		UnitPrice:  t.UnitPrice.String(),
		Weight:     t.Weight.String(),
		Count:      t.Count.String(),
		Equipment:  t.Equipment,
		InvoiceID:  string(t.InvoiceID),
		Value:      t.Value().String(),
	}
}

func toInvoiceDTO(inv ledger.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:              string(inv.ID),
		OwnerName:       inv.OwnerName,
		Nolon:           inv.Nolon.String(),
		Commission:      inv.Commission.String(),
		Mashal:          inv.Mashal.String(),
		Rent:            inv.Rent.String(),
		Cash:            inv.Cash.String(),
		Date:            inv.Date.String(),
		Gross:           inv.Gross.String(),
		TotalDeductions: inv.TotalDeductions.String(),
		FinalTotal:      inv.FinalTotal.String(),
	}
}

func toStatementRowDTO(row ledger.StatementRow) StatementRowDTO {
	dto := StatementRowDTO{Kind: string(row.Kind)}
	if row.Transaction != nil {
		tx := toTransactionDTO(*row.Transaction)
		dto.Transaction = &tx
	} else {
		dto.Amount = row.Amount.String()
	}
	if !row.Date.IsZero() {
		dto.Date = row.Date.String()
	}
	return dto
}

func toClientDTO(acc ledger.ClientAccount) ClientDTO {
	return ClientDTO{
		ID:      string(acc.ID),
		Name:    acc.Name,
		Balance: acc.Balance.String(),
		Phone:   acc.Phone,
	}
}

func toSellerDTO(entry ledger.SellerBalanceEntry) SellerDTO {
	return SellerDTO{
		ID:             string(entry.Account.ID),
		Name:           entry.Account.Name,
		Phone:          entry.Account.Phone,
		OpeningBalance: entry.Account.OpeningBalance.String(),
		CreditLimit:    entry.Account.CreditLimit.String(),
		GoodsTotal:     entry.Balance.GoodsTotal.String(),
		PaidTotal:      entry.Balance.PaidTotal.String(),
		AllowanceTotal: entry.Balance.AllowanceTotal.String(),
		FinalBalance:   entry.Balance.FinalBalance.String(),
	}
}

func toItemDTO(item ledger.Item) ItemDTO {
	return ItemDTO{
		Name:            item.Name,
		UnitPrice:       item.UnitPrice.String(),
		EquipmentWeight: item.EquipmentWeight.String(),
	}
}

func toExpenseDTO(e ledger.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Date:        e.Date.String(),
		Note:        e.Note,
	}
}
