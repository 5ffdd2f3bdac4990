// internal/findata/ledger.go
package findata

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"finlife-navigator/internal/common/database"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/models"
)

const (
	ledgerBalanceQuery = `
		SELECT available_balance, current_balance
		FROM ledger_accounts
		WHERE access_token = $1
		ORDER BY created_at
		LIMIT 1`

	ledgerHoldingsQuery = `
		SELECT ticker, security_type, quantity, market_value
		FROM ledger_holdings
		WHERE access_token = $1
		ORDER BY market_value DESC`

	ledgerTransactionsQuery = `
		SELECT name, amount, posted_on
		FROM ledger_transactions
		WHERE access_token = $1 AND posted_on BETWEEN $2 AND $3
		ORDER BY posted_on`
)

// LedgerSchema creates the mirrored account tables the ledger reads.
var LedgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		id SERIAL PRIMARY KEY,
		access_token TEXT NOT NULL,
		available_balance NUMERIC(14,2),
		current_balance NUMERIC(14,2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_holdings (
		id SERIAL PRIMARY KEY,
		access_token TEXT NOT NULL,
		ticker TEXT,
		security_type TEXT NOT NULL,
		quantity NUMERIC(18,6) NOT NULL DEFAULT 0,
		market_value NUMERIC(14,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_transactions (
		id SERIAL PRIMARY KEY,
		access_token TEXT NOT NULL,
		name TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		posted_on DATE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_transactions_token_posted
		ON ledger_transactions (access_token, posted_on)`,
}

// LedgerProvider serves account data mirrored into Postgres. Transaction
// amounts are stored with inflows positive. Empty result sets are absent.
type LedgerProvider struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewLedgerProvider(db *database.PostgresClient, log logger.Logger) *LedgerProvider {
	return &LedgerProvider{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "ledger"}),
	}
}

func (l *LedgerProvider) Name() string { return "ledger" }

func (l *LedgerProvider) GetBalance(ctx context.Context, token string) (float64, bool) {
	var available, current sql.NullFloat64
	err := l.db.QueryRow(ctx, ledgerBalanceQuery, token).Scan(&available, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false
	}
	if err != nil {
		l.warn("balance", err)
		return 0, false
	}

	switch {
	case available.Valid && available.Float64 != 0:
		return available.Float64, true
	case current.Valid:
		return current.Float64, true
	case available.Valid:
		return available.Float64, true
	}
	return 0, false
}

func (l *LedgerProvider) GetHoldings(ctx context.Context, token string) ([]models.Holding, bool) {
	rows, err := l.db.Query(ctx, ledgerHoldingsQuery, token)
	if err != nil {
		l.warn("holdings", err)
		return nil, false
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		var ticker sql.NullString
		if err := rows.Scan(&ticker, &h.Type, &h.Quantity, &h.MarketValue); err != nil {
			l.warn("holdings", err)
			return nil, false
		}
		h.Ticker = ticker.String
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		l.warn("holdings", err)
		return nil, false
	}

	return holdings, len(holdings) > 0
}

func (l *LedgerProvider) GetTransactions(ctx context.Context, token string, from, to time.Time) ([]models.Transaction, bool) {
	rows, err := l.db.Query(ctx, ledgerTransactionsQuery, token, from.Format(DateLayout), to.Format(DateLayout))
	if err != nil {
		l.warn("transactions", err)
		return nil, false
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var postedOn time.Time
		if err := rows.Scan(&t.Name, &t.Amount, &postedOn); err != nil {
			l.warn("transactions", err)
			return nil, false
		}
		t.Date = postedOn.Format(DateLayout)
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		l.warn("transactions", err)
		return nil, false
	}

	return txns, len(txns) > 0
}

func (l *LedgerProvider) warn(kind string, err error) {
	l.logger.Warn("ledger query failed", map[string]interface{}{
		"kind":  kind,
		"error": err.Error(),
	})
}
