// internal/findata/plaid.go
package findata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"finlife-navigator/internal/common/config"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	plaidBalancePath      = "/accounts/balance/get"
	plaidHoldingsPath     = "/investments/holdings/get"
	plaidTransactionsPath = "/transactions/get"

	plaidTransactionPage = 500
)

// PlaidClient reads balances, holdings and transactions from Plaid.
type PlaidClient struct {
	client   *resty.Client
	clientID string
	secret   string
	logger   logger.Logger
}

func NewPlaidClient(cfg config.PlaidConfig, log logger.Logger) *PlaidClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(config.GetDuration(cfg.Timeout))
	client.SetHeader("Content-Type", "application/json")

	return &PlaidClient{
		client:   client,
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
		logger:   log.WithFields(map[string]interface{}{"component": "plaid"}),
	}
}

func (p *PlaidClient) Name() string { return "plaid" }

// Configured reports whether credentials are present. Without them every
// call is absent.
func (p *PlaidClient) Configured() bool {
	return p.clientID != "" && p.secret != ""
}

type plaidBalances struct {
	Available *float64 `json:"available"`
	Current   *float64 `json:"current"`
}

type plaidAccount struct {
	AccountID string        `json:"account_id"`
	Balances  plaidBalances `json:"balances"`
}

type plaidBalanceResponse struct {
	Accounts []plaidAccount `json:"accounts"`
}

type plaidHolding struct {
	SecurityID       string  `json:"security_id"`
	Quantity         float64 `json:"quantity"`
	InstitutionValue float64 `json:"institution_value"`
}

type plaidSecurity struct {
	SecurityID   string `json:"security_id"`
	TickerSymbol string `json:"ticker_symbol"`
	Type         string `json:"type"`
}

type plaidHoldingsResponse struct {
	Holdings   []plaidHolding  `json:"holdings"`
	Securities []plaidSecurity `json:"securities"`
}

type plaidTransaction struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type plaidTransactionsResponse struct {
	Transactions []plaidTransaction `json:"transactions"`
}

// GetBalance returns the first account's available balance, else its current
// balance.
func (p *PlaidClient) GetBalance(ctx context.Context, token string) (float64, bool) {
	var out plaidBalanceResponse
	if !p.post(ctx, plaidBalancePath, token, nil, &out) {
		return 0, false
	}
	if len(out.Accounts) == 0 {
		return 0, false
	}

	b := out.Accounts[0].Balances
	switch {
	case b.Available != nil && *b.Available != 0:
		return *b.Available, true
	case b.Current != nil:
		return *b.Current, true
	case b.Available != nil:
		return *b.Available, true
	}
	return 0, false
}

// GetHoldings joins positions with their securities for ticker and type.
func (p *PlaidClient) GetHoldings(ctx context.Context, token string) ([]models.Holding, bool) {
	var out plaidHoldingsResponse
	if !p.post(ctx, plaidHoldingsPath, token, nil, &out) {
		return nil, false
	}

	securities := make(map[string]plaidSecurity, len(out.Securities))
	for _, s := range out.Securities {
		securities[s.SecurityID] = s
	}

	holdings := make([]models.Holding, 0, len(out.Holdings))
	for _, h := range out.Holdings {
		sec := securities[h.SecurityID]
		holdings = append(holdings, models.Holding{
			Ticker:      sec.TickerSymbol,
			Type:        sec.Type,
			Quantity:    h.Quantity,
			MarketValue: h.InstitutionValue,
		})
	}
	return holdings, true
}

// GetTransactions fetches the first page of transactions in [from, to].
// Plaid reports outflows as positive amounts; they are negated here so that
// inflows are positive.
func (p *PlaidClient) GetTransactions(ctx context.Context, token string, from, to time.Time) ([]models.Transaction, bool) {
	extra := map[string]interface{}{
		"start_date": from.Format(DateLayout),
		"end_date":   to.Format(DateLayout),
		"options": map[string]interface{}{
			"count":  plaidTransactionPage,
			"offset": 0,
		},
	}

	var out plaidTransactionsResponse
	if !p.post(ctx, plaidTransactionsPath, token, extra, &out) {
		return nil, false
	}

	txns := make([]models.Transaction, 0, len(out.Transactions))
	for _, t := range out.Transactions {
		txns = append(txns, models.Transaction{
			Name:   t.Name,
			Amount: -t.Amount,
			Date:   t.Date,
		})
	}
	return txns, true
}

func (p *PlaidClient) post(ctx context.Context, path, token string, extra map[string]interface{}, result interface{}) bool {
	if !p.Configured() || token == "" {
		return false
	}

	body := map[string]interface{}{
		"client_id":    p.clientID,
		"secret":       p.secret,
		"access_token": token,
	}
	for k, v := range extra {
		body[k] = v
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post(path)
	if err != nil {
		p.logger.Warn("plaid request failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		p.logger.Warn("plaid request rejected", map[string]interface{}{
			"path":   path,
			"status": resp.StatusCode(),
			"body":   fmt.Sprintf("%.200s", resp.String()),
		})
		return false
	}
	return true
}
