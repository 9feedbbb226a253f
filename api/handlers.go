/*
handlers.go - HTTP API handlers for the trading-house ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Movements:
    POST   /api/transfers                     Record a goods movement
    POST   /api/payments                      Record a cash collection
    POST   /api/allowances                    Record a granted allowance

  Sellers:
    GET    /api/sellers                       Roster with derived balances
    POST   /api/sellers                       Create/update a seller
    GET    /api/sellers/{name}/balance        Categorized balance
    GET    /api/sellers/{name}/statement      Date-grouped statement rows
    GET    /api/sellers/{name}/arrears        Overdue classification

  Transactions:
    PUT    /api/transactions/{id}/price       Reprice (propagates to client)
    DELETE /api/transactions/{id}             Delete a cleared row

  Clients:
    GET    /api/clients                       List grower accounts
    GET    /api/clients/{name}/unsettled      Unsettled transfers and gross
    GET    /api/clients/{name}/invoices       Settlement history
    POST   /api/clients/{name}/settle         Settle into an invoice
    GET    /api/invoices/{id}/transfers       Transfers behind an invoice

  Catalog and expenses:
    GET    /api/items                         List catalog items
    POST   /api/items                         Create/update an item
    GET    /api/expenses                      List expenses
    POST   /api/expenses                      Record an expense
    GET    /api/reports/daily                 One day's collection vs spend

ERROR HANDLING:
  Domain errors map to HTTP status by sentinel:
  - invalid input: 400
  - not found:     404
  - anything else: 500

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bajar/tradebook/ledger"
	"github.com/bajar/tradebook/logger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      ledger.TxStore
	Recorder   *ledger.Recorder
	Settler    *ledger.Settler
	Calculator *ledger.Calculator
	Statements *ledger.StatementBuilder
	Classifier *ledger.Classifier
	Reporter   *ledger.Reporter

	// ArrearsThresholdDays is the default overdue cutoff when the request
	// does not supply one.
	ArrearsThresholdDays int

	log zerolog.Logger
}

// NewHandler creates a new handler over a transactional store.
func NewHandler(store ledger.TxStore, arrearsThresholdDays int) *Handler {
	return &Handler{
		Store:                store,
		Recorder:             ledger.NewRecorder(store),
		Settler:              ledger.NewSettler(store),
		Calculator:           ledger.NewCalculator(store),
		Statements:           ledger.NewStatementBuilder(store),
		Classifier:           ledger.NewClassifier(store),
		Reporter:             ledger.NewReporter(store),
		ArrearsThresholdDays: arrearsThresholdDays,
		log:                  logger.WithComponent("api"),
	}
}

// =============================================================================
// MOVEMENT HANDLERS
// =============================================================================

// RecordTransfer records one goods movement: client credited, seller
// debited, atomically.
// POST /api/transfers
func (h *Handler) RecordTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input, err := h.transferInput(req)
	if err != nil {
		writeDomainError(w, "Invalid transfer", err)
		return
	}

	result, err := h.Recorder.RecordTransfer(r.Context(), input)
	if err != nil {
		writeDomainError(w, "Failed to record transfer", err)
		return
	}

	h.log.Info().
		Str("client", req.ClientName).
		Str("seller", req.SellerName).
		Str("gross", result.Gross.String()).
		Msg("transfer recorded")

	writeJSON(w, http.StatusCreated, TransferResultDTO{
		In:          toTransferDTO(result.In),
		Out:         toTransferDTO(result.Out),
		Transaction: toTransactionDTO(result.Transaction),
		Gross:       result.Gross.String(),
	})
}

func (h *Handler) transferInput(req TransferRequest) (ledger.TransferInput, error) {
	price, err := ledger.ParseMoney("unit_price", req.UnitPrice)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	weight, err := parseQuantity("weight", req.Weight)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	count, err := parseQuantity("count", req.Count)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	day, err := ledger.ParseDate(req.Date)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	return ledger.TransferInput{
		ClientName: req.ClientName,
		SellerName: req.SellerName,
		ItemName:   req.ItemName,
		UnitPrice:  price,
		Weight:     weight,
		Count:      count,
		Equipment:  req.Equipment,
		Date:       day,
	}, nil
}

// RecordPayment records a cash collection on a seller's ledger.
// POST /api/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	h.recordSettling(w, r, h.Recorder.RecordPayment)
}

// RecordAllowance records a granted discount on a seller's ledger.
// POST /api/allowances
func (h *Handler) RecordAllowance(w http.ResponseWriter, r *http.Request) {
	h.recordSettling(w, r, h.Recorder.RecordAllowance)
}

func (h *Handler) recordSettling(w http.ResponseWriter, r *http.Request,
	record func(ctx context.Context, sellerName string, amount ledger.Money, day ledger.Date, note string) (ledger.SellerTransaction, error)) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := ledger.ParseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, "Invalid amount", err)
		return
	}
	day, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}

	tx, err := record(r.Context(), req.SellerName, amount, day, req.Note)
	if err != nil {
		writeDomainError(w, "Failed to record entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// =============================================================================
// SELLER HANDLERS
// =============================================================================

// ListSellers returns every seller with its derived balance breakdown.
// GET /api/sellers
func (h *Handler) ListSellers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Calculator.SellerBalances(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list sellers", err)
		return
	}

	dtos := make([]SellerDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toSellerDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertSeller creates or updates a seller account.
// POST /api/sellers
func (h *Handler) UpsertSeller(w http.ResponseWriter, r *http.Request) {
	var req UpsertSellerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Seller name is required", nil)
		return
	}

	opening, err := ledger.ParseMoney("opening_balance", req.OpeningBalance)
	if err != nil {
		writeDomainError(w, "Invalid opening balance", err)
		return
	}
	limit, err := ledger.ParseMoney("credit_limit", req.CreditLimit)
	if err != nil {
		writeDomainError(w, "Invalid credit limit", err)
		return
	}

	ctx := r.Context()
	acc, err := h.Store.GetOrCreateSeller(ctx, req.Name)
	if err != nil {
		writeDomainError(w, "Failed to create seller", err)
		return
	}
	acc.Phone = req.Phone
	acc.OpeningBalance = opening
	acc.CreditLimit = limit
	if err := h.Store.UpsertSeller(ctx, acc); err != nil {
		writeDomainError(w, "Failed to save seller", err)
		return
	}

	writeJSON(w, http.StatusOK, SellerDTO{
		ID:             string(acc.ID),
		Name:           acc.Name,
		Phone:          acc.Phone,
		OpeningBalance: acc.OpeningBalance.String(),
		CreditLimit:    acc.CreditLimit.String(),
	})
}

// GetSellerBalance returns the categorized balance for one seller.
// GET /api/sellers/{name}/balance
func (h *Handler) GetSellerBalance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	breakdown, err := h.Calculator.SellerBalance(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		SellerName:     name,
		GoodsTotal:     breakdown.GoodsTotal.String(),
		PaidTotal:      breakdown.PaidTotal.String(),
		AllowanceTotal: breakdown.AllowanceTotal.String(),
		FinalBalance:   breakdown.FinalBalance.String(),
	})
}

// GetSellerStatement returns the date-grouped statement rows for a seller.
// GET /api/sellers/{name}/statement
func (h *Handler) GetSellerStatement(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rows, err := h.Statements.BuildStatement(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to build statement", err)
		return
	}

	dtos := make([]StatementRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toStatementRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSellerArrears classifies whether a seller is overdue.
// GET /api/sellers/{name}/arrears?as_of=YYYY-MM-DD&threshold_days=N
func (h *Handler) GetSellerArrears(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	asOf := ledger.DateOf(time.Now())
	if s := r.URL.Query().Get("as_of"); s != "" {
		d, err := ledger.ParseDate(s)
		if err != nil {
			writeDomainError(w, "Invalid as_of date", err)
			return
		}
		asOf = d
	}

	threshold := h.ArrearsThresholdDays
	if s := r.URL.Query().Get("threshold_days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid threshold_days", err)
			return
		}
		threshold = n
	}

	overdue, err := h.Classifier.SellerOverdue(r.Context(), name, asOf, threshold)
	if err != nil {
		writeDomainError(w, "Failed to classify arrears", err)
		return
	}

	writeJSON(w, http.StatusOK, ArrearsDTO{
		SellerName:    name,
		Overdue:       overdue,
		AsOf:          asOf.String(),
		ThresholdDays: threshold,
	})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// UpdateTransactionPrice reprices a transaction, propagating to the
// transfer pair and the originating client balance.
// PUT /api/transactions/{id}/price
func (h *Handler) UpdateTransactionPrice(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	var req UpdatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	price, err := ledger.ParseMoney("unit_price", req.UnitPrice)
	if err != nil {
		writeDomainError(w, "Invalid unit price", err)
		return
	}

	tx, err := h.Recorder.UpdateTransactionPrice(r.Context(), id, price)
	if err != nil {
		writeDomainError(w, "Failed to update price", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// DeleteTransaction removes a cleared statement row.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	if err := h.Recorder.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all grower accounts.
// GET /api/clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list clients", err)
		return
	}

	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClientUnsettled returns a client's unsettled transfers and gross.
// GET /api/clients/{name}/unsettled
func (h *Handler) GetClientUnsettled(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	summary, err := h.Settler.Unsettled(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to list unsettled transfers", err)
		return
	}

	dtos := make([]TransferDTO, len(summary.Transfers))
	for i, t := range summary.Transfers {
		dtos[i] = toTransferDTO(t)
	}
	writeJSON(w, http.StatusOK, UnsettledDTO{Transfers: dtos, Gross: summary.Gross.String()})
}

// ListClientInvoices returns a client's settlement history.
// GET /api/clients/{name}/invoices
func (h *Handler) ListClientInvoices(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	invoices, err := h.Store.ListInvoices(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SettleClient settles the client's unsettled transfers into an invoice.
// POST /api/clients/{name}/settle
func (h *Handler) SettleClient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	day, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}

	result, err := h.Settler.Settle(r.Context(), name, ledger.DeductionInput{
		Nolon:      req.Nolon,
		Commission: req.Commission,
		Mashal:     req.Mashal,
		Rent:       req.Rent,
		Cash:       req.Cash,
	}, day)
	if err != nil {
		writeDomainError(w, "Failed to settle", err)
		return
	}

	h.log.Info().
		Str("client", name).
		Str("gross", result.Gross.String()).
		Str("final", result.FinalTotal.String()).
		Msg("client settled")

	writeJSON(w, http.StatusCreated, toInvoiceDTO(result.Invoice))
}

// GetInvoiceTransfers returns the transfers a settlement covered.
// GET /api/invoices/{id}/transfers
func (h *Handler) GetInvoiceTransfers(w http.ResponseWriter, r *http.Request) {
	id := ledger.InvoiceID(chi.URLParam(r, "id"))

	transfers, err := h.Store.TransfersByInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list invoice transfers", err)
		return
	}

	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = toTransferDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CATALOG AND EXPENSE HANDLERS
// =============================================================================

// ListItems returns the produce catalog.
// GET /api/items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListItems(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list items", err)
		return
	}

	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertItem creates or updates a catalog item.
// POST /api/items
func (h *Handler) UpsertItem(w http.ResponseWriter, r *http.Request) {
	var req UpsertItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Item name is required", nil)
		return
	}

	price, err := ledger.ParseMoney("unit_price", req.UnitPrice)
	if err != nil {
		writeDomainError(w, "Invalid unit price", err)
		return
	}
	equipWeight, err := parseQuantity("equipment_weight", req.EquipmentWeight)
	if err != nil {
		writeDomainError(w, "Invalid equipment weight", err)
		return
	}

	item := ledger.Item{Name: req.Name, UnitPrice: price, EquipmentWeight: equipWeight}
	if err := h.Store.UpsertItem(r.Context(), item); err != nil {
		writeDomainError(w, "Failed to save item", err)
		return
	}

	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// ListExpenses returns recorded expenses, optionally filtered to one day.
// GET /api/expenses?date=YYYY-MM-DD
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	var (
		expenses []ledger.Expense
		err      error
	)
	if s := r.URL.Query().Get("date"); s != "" {
		day, perr := ledger.ParseDate(s)
		if perr != nil {
			writeDomainError(w, "Invalid date", perr)
			return
		}
		expenses, err = h.Store.ListExpensesByDate(r.Context(), day)
	} else {
		expenses, err = h.Store.ListExpenses(r.Context())
	}
	if err != nil {
		writeDomainError(w, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, len(expenses))
	for i, e := range expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense records a cash outflow.
// POST /api/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "Description is required", nil)
		return
	}

	amount, err := ledger.ParseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, "Invalid amount", err)
		return
	}
	day, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}

	expense := ledger.Expense{
		ID:          ledger.NewID(),
		Description: req.Description,
		Amount:      amount,
		Date:        day,
		Note:        req.Note,
	}
	if err := h.Store.AppendExpense(r.Context(), expense); err != nil {
		writeDomainError(w, "Failed to record expense", err)
		return
	}

	writeJSON(w, http.StatusCreated, toExpenseDTO(expense))
}

// DailyReport returns one day's collection, spend and net.
// GET /api/reports/daily?date=YYYY-MM-DD
func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	day := ledger.DateOf(time.Now())
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := ledger.ParseDate(s)
		if err != nil {
			writeDomainError(w, "Invalid date", err)
			return
		}
		day = d
	}

	totals, err := h.Reporter.Totals(r.Context(), day)
	if err != nil {
		writeDomainError(w, "Failed to compute daily totals", err)
		return
	}

	writeJSON(w, http.StatusOK, DailyTotalsDTO{
		Date:            totals.Date.String(),
		TotalCollection: totals.TotalCollection.String(),
		TotalExpenses:   totals.TotalExpenses.String(),
		Net:             totals.Net.String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseQuantity(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, &ledger.InvalidInputError{Field: field, Value: s, Reason: "not a number"}
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to its HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case ledger.IsInvalidInput(err):
		status = http.StatusBadRequest
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
	}
	writeError(w, status, message, err)
}
