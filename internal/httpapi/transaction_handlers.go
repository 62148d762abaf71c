package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"remitdesk.org/internal/cache"
	"remitdesk.org/internal/policy"
	"remitdesk.org/internal/store"
)

const (
	defaultCurrencyFrom = "USD"
	defaultCurrencyTo   = "USDC"
)

// supportedCurrencies is the corridor whitelist; anything else is a
// validation error.
var supportedCurrencies = map[string]bool{
	"USD": true, "USDC": true, "EUR": true, "GBP": true,
	"JPY": true, "INR": true, "PHP": true, "KES": true,
}

type createTransactionRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	CurrencyFrom     string          `json:"currency_from"`
	CurrencyTo       string          `json:"currency_to"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
	ReceiverUsername string          `json:"receiver_username"`
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTransactions(w, r)
	case http.MethodPost:
		a.createTransaction(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if !requireAction(w, r, p, policy.ResourceTransactions, policy.ActionRead) {
		return
	}

	scope := policy.ScopeFor(p.Claims)
	key := cache.ScopeKey(policy.ResourceTransactions, scope.Key())

	var txs []*store.Transaction
	err := a.cache.GetOrCompute(r.Context(), key, &txs, func(ctx context.Context) error {
		var qErr error
		txs, qErr = a.store.Transactions().List(ctx, scope)
		return qErr
	})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if txs == nil {
		txs = []*store.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (a *API) createTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if !requireAction(w, r, p, policy.ResourceTransactions, policy.ActionCreate) {
		return
	}

	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if !req.Amount.IsPositive() {
		writeError(w, r, http.StatusBadRequest, "amount must be > 0")
		return
	}
	rate := req.ConversionRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	if !rate.IsPositive() {
		writeError(w, r, http.StatusBadRequest, "conversion_rate must be > 0")
		return
	}
	currencyFrom := normalizeCurrency(req.CurrencyFrom, defaultCurrencyFrom)
	currencyTo := normalizeCurrency(req.CurrencyTo, defaultCurrencyTo)
	if !supportedCurrencies[currencyFrom] {
		writeError(w, r, http.StatusBadRequest, "unknown currency: "+currencyFrom)
		return
	}
	if !supportedCurrencies[currencyTo] {
		writeError(w, r, http.StatusBadRequest, "unknown currency: "+currencyTo)
		return
	}
	receiverName := strings.TrimSpace(req.ReceiverUsername)
	if receiverName == "" {
		writeError(w, r, http.StatusBadRequest, "receiver_username is required")
		return
	}

	receiver, err := a.store.Users().FindByUsername(r.Context(), receiverName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "receiver not found")
			return
		}
		a.internalError(w, r, err)
		return
	}

	tx := &store.Transaction{
		Amount:         req.Amount,
		CurrencyFrom:   currencyFrom,
		CurrencyTo:     currencyTo,
		ConversionRate: rate,
		SenderID:       p.User.ID,
		ReceiverID:     receiver.ID,
		// Region is inherited from the sender and never changes.
		Region: p.User.Region,
		Status: store.StatusPending,
	}
	if err := a.store.Transactions().Create(r.Context(), tx); err != nil {
		a.internalError(w, r, err)
		return
	}

	// The store write is acknowledged at this point. Invalidate every scope
	// whose filter could have matched the record: the sender's region, the
	// receiver's region, and unconditionally the global scope.
	a.invalidateTransactionScopes(r, p.User.Region, receiver.Region)
	_ = a.recorder.Record(r.Context(), "transaction.create", p.User.ID, tx.ID,
		fmt.Sprintf("%s %s -> %s to %s", tx.Amount.String(), tx.CurrencyFrom, tx.CurrencyTo, receiver.Username))

	writeJSON(w, http.StatusCreated, tx)
}

func (a *API) invalidateTransactionScopes(r *http.Request, senderRegion, receiverRegion string) {
	global := store.Scope{Unrestricted: true}.Key()
	sender := store.Scope{Region: senderRegion}.Key()
	keys := []string{
		cache.ScopeKey(policy.ResourceTransactions, sender),
		cache.ScopeKey(policy.ResourceTransactions, global),
		// The paired audit record lands in the sender's scope.
		cache.ScopeKey(policy.ResourceAudit, sender),
		cache.ScopeKey(policy.ResourceAudit, global),
	}
	if receiverRegion != senderRegion {
		keys = append(keys, cache.ScopeKey(policy.ResourceTransactions, store.Scope{Region: receiverRegion}.Key()))
	}
	a.cache.Invalidate(r.Context(), keys...)
}

func normalizeCurrency(raw, fallback string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return fallback
	}
	return raw
}
