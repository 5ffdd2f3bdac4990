package findata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"finlife-navigator/internal/common/config"
	"finlife-navigator/internal/common/database"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider counts calls and serves canned answers.
type fakeProvider struct {
	name         string
	balance      *float64
	holdings     []models.Holding
	transactions []models.Transaction
	calls        int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GetBalance(ctx context.Context, token string) (float64, bool) {
	atomic.AddInt32(&f.calls, 1)
	if f.balance == nil {
		return 0, false
	}
	return *f.balance, true
}

func (f *fakeProvider) GetHoldings(ctx context.Context, token string) ([]models.Holding, bool) {
	atomic.AddInt32(&f.calls, 1)
	return f.holdings, f.holdings != nil
}

func (f *fakeProvider) GetTransactions(ctx context.Context, token string, from, to time.Time) ([]models.Transaction, bool) {
	atomic.AddInt32(&f.calls, 1)
	return f.transactions, f.transactions != nil
}

func floatPtr(v float64) *float64 { return &v }

// ==========================
// Plaid Tests
// ==========================

func newPlaidServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client", body["client_id"])
		assert.Equal(t, "secret", body["secret"])
		assert.Equal(t, "access-sandbox-1", body["access_token"])

		resp, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
}

func newTestPlaid(t *testing.T, baseURL string) *PlaidClient {
	return NewPlaidClient(config.PlaidConfig{
		BaseURL:  baseURL,
		ClientID: "client",
		Secret:   "secret",
		Timeout:  2000,
	}, logger.NewTestLogger(t))
}

func TestPlaid_GetBalance(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
		wantOK   bool
	}{
		{
			name:     "available balance",
			response: `{"accounts":[{"account_id":"a","balances":{"available":1500.25,"current":1600}}]}`,
			want:     1500.25,
			wantOK:   true,
		},
		{
			name:     "falls back to current",
			response: `{"accounts":[{"account_id":"a","balances":{"available":null,"current":980}}]}`,
			want:     980,
			wantOK:   true,
		},
		{
			name:     "no accounts",
			response: `{"accounts":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newPlaidServer(t, map[string]string{"/accounts/balance/get": tt.response})
			defer server.Close()

			balance, ok := newTestPlaid(t, server.URL).GetBalance(context.Background(), "access-sandbox-1")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, balance)
		})
	}
}

func TestPlaid_GetHoldings(t *testing.T) {
	server := newPlaidServer(t, map[string]string{
		"/investments/holdings/get": `{
			"holdings": [
				{"security_id":"s1","quantity":10,"institution_value":2500},
				{"security_id":"s2","quantity":5,"institution_value":480.5}
			],
			"securities": [
				{"security_id":"s1","ticker_symbol":"VTI","type":"etf"},
				{"security_id":"s2","ticker_symbol":"BND","type":"fixed income"}
			]
		}`,
	})
	defer server.Close()

	holdings, ok := newTestPlaid(t, server.URL).GetHoldings(context.Background(), "access-sandbox-1")
	require.True(t, ok)
	require.Len(t, holdings, 2)
	assert.Equal(t, models.Holding{Ticker: "VTI", Type: "etf", Quantity: 10, MarketValue: 2500}, holdings[0])
	assert.True(t, holdings[1].IsBond())
}

func TestPlaid_GetTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/get", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-07-01", body["start_date"])
		assert.Equal(t, "2026-09-29", body["end_date"])
		options, _ := body["options"].(map[string]interface{})
		assert.Equal(t, float64(500), options["count"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transactions":[
			{"name":"Landlord","amount":1500,"date":"2026-07-01"},
			{"name":"Payroll","amount":-4000,"date":"2026-07-15"}
		]}`))
	}))
	defer server.Close()

	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 29, 0, 0, 0, 0, time.UTC)
	txns, ok := newTestPlaid(t, server.URL).GetTransactions(context.Background(), "access-sandbox-1", from, to)

	require.True(t, ok)
	require.Len(t, txns, 2)
	assert.Equal(t, -1500.0, txns[0].Amount, "outflows become negative")
	assert.Equal(t, 4000.0, txns[1].Amount, "inflows become positive")
}

func TestPlaid_AbsentWhenUnavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	t.Run("error status", func(t *testing.T) {
		_, ok := newTestPlaid(t, server.URL).GetBalance(context.Background(), "access-sandbox-1")
		assert.False(t, ok)
	})

	t.Run("missing credentials", func(t *testing.T) {
		before := atomic.LoadInt32(&calls)
		client := NewPlaidClient(config.PlaidConfig{BaseURL: server.URL}, logger.NewNoOpLogger())
		_, ok := client.GetHoldings(context.Background(), "access-sandbox-1")
		assert.False(t, ok)
		assert.Equal(t, before, atomic.LoadInt32(&calls))
	})

	t.Run("missing token", func(t *testing.T) {
		_, ok := newTestPlaid(t, server.URL).GetBalance(context.Background(), "")
		assert.False(t, ok)
	})
}

// ==========================
// Ledger Tests
// ==========================

func newTestLedger(t *testing.T) (*LedgerProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLedgerProvider(database.NewPostgresFromDB(db), logger.NewTestLogger(t)), mock
}

func TestLedger_GetBalance(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_accounts")).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"available_balance", "current_balance"}).AddRow(nil, 1200.5))

	balance, ok := ledger.GetBalance(context.Background(), "tok")
	assert.True(t, ok)
	assert.Equal(t, 1200.5, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_GetBalanceNoRows(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_accounts")).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"available_balance", "current_balance"}))

	_, ok := ledger.GetBalance(context.Background(), "tok")
	assert.False(t, ok)
}

func TestLedger_GetHoldings(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_holdings")).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"ticker", "security_type", "quantity", "market_value"}).
			AddRow("VTI", "equity", 10.0, 2500.0).
			AddRow(nil, "bond", 3.0, 300.0))

	holdings, ok := ledger.GetHoldings(context.Background(), "tok")
	require.True(t, ok)
	require.Len(t, holdings, 2)
	assert.Equal(t, "VTI", holdings[0].Ticker)
	assert.Equal(t, "", holdings[1].Ticker)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_GetTransactions(t *testing.T) {
	ledger, mock := newTestLedger(t)

	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 29, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_transactions")).
		WithArgs("tok", "2026-07-01", "2026-09-29").
		WillReturnRows(sqlmock.NewRows([]string{"name", "amount", "posted_on"}).
			AddRow("Landlord", -1500.0, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))

	txns, ok := ledger.GetTransactions(context.Background(), "tok", from, to)
	require.True(t, ok)
	assert.Equal(t, []models.Transaction{{Name: "Landlord", Amount: -1500, Date: "2026-07-01"}}, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_QueryErrorIsAbsent(t *testing.T) {
	ledger, mock := newTestLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_holdings")).
		WithArgs("tok").
		WillReturnError(assert.AnError)

	_, ok := ledger.GetHoldings(context.Background(), "tok")
	assert.False(t, ok)
}

// ==========================
// Chain Tests
// ==========================

func TestChain_FirstPresentWins(t *testing.T) {
	empty := &fakeProvider{name: "ledger"}
	plaid := &fakeProvider{name: "plaid", balance: floatPtr(42)}
	chain := NewChain(logger.NewNoOpLogger(), empty, plaid)

	balance, ok := chain.GetBalance(context.Background(), "tok")
	assert.True(t, ok)
	assert.Equal(t, 42.0, balance)

	_, ok = chain.GetHoldings(context.Background(), "tok")
	assert.False(t, ok)
	assert.Equal(t, int32(2), empty.calls)
}

// ==========================
// Cache Tests
// ==========================

func newTestCache(t *testing.T, redis *database.RedisClient) *LayeredCache {
	t.Helper()
	cache, err := NewLayeredCache(100, time.Minute, redis, logger.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return cache
}

func TestLayeredCache_MemoryOnly(t *testing.T) {
	cache := newTestCache(t, nil)
	ctx := context.Background()

	var v float64
	assert.False(t, cache.Get(ctx, "k", &v))

	cache.Set(ctx, "k", 12.5)
	cache.Wait()

	require.True(t, cache.Get(ctx, "k", &v))
	assert.Equal(t, 12.5, v)
}

func TestLayeredCache_RedisBacksMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	redis, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer redis.Close()

	writer := newTestCache(t, redis)
	reader := newTestCache(t, redis)
	ctx := context.Background()

	writer.Set(ctx, "findata:holdings:x", []models.Holding{{Ticker: "VTI", Type: "etf", MarketValue: 100}})
	assert.True(t, mr.Exists("findata:holdings:x"))
	assert.Equal(t, time.Minute, mr.TTL("findata:holdings:x"))

	var holdings []models.Holding
	require.True(t, reader.Get(ctx, "findata:holdings:x", &holdings))
	assert.Equal(t, "VTI", holdings[0].Ticker)
}

func TestNewLayeredCache_RejectsZeroCost(t *testing.T) {
	_, err := NewLayeredCache(0, time.Minute, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestCachedProvider(t *testing.T) {
	inner := &fakeProvider{name: "plaid", balance: floatPtr(1000)}
	cache := newTestCache(t, nil)
	provider := NewCachedProvider(inner, cache)
	ctx := context.Background()

	balance, ok := provider.GetBalance(ctx, "tok")
	require.True(t, ok)
	assert.Equal(t, 1000.0, balance)
	cache.Wait()

	balance, ok = provider.GetBalance(ctx, "tok")
	require.True(t, ok)
	assert.Equal(t, 1000.0, balance)
	assert.Equal(t, int32(1), inner.calls)

	_, ok = provider.GetHoldings(ctx, "tok")
	assert.False(t, ok)
	cache.Wait()
	_, ok = provider.GetHoldings(ctx, "tok")
	assert.False(t, ok)
	assert.Equal(t, int32(3), inner.calls, "absent answers are not cached")
}

func TestCacheKey_HidesToken(t *testing.T) {
	key := cacheKey("balance", "access-sandbox-secret")
	assert.NotContains(t, key, "access-sandbox-secret")
	assert.Equal(t, key, cacheKey("balance", "access-sandbox-secret"))
	assert.NotEqual(t, key, cacheKey("balance", "other"))
}

// ==========================
// Summary Tests
// ==========================

func TestSummarizeRecurringExpenses(t *testing.T) {
	txns := []models.Transaction{
		{Name: "Landlord", Amount: -1500, Date: "2026-07-01"},
		{Name: "Landlord", Amount: -1500, Date: "2026-08-01"},
		{Name: "Power Co", Amount: -120, Date: "2026-07-10"},
		{Name: "Power Co", Amount: -60, Date: "2026-07-25"},
		{Name: "Power Co", Amount: -90, Date: "2026-08-10"},
		{Name: "Concert", Amount: -200, Date: "2026-08-15"},
		{Name: "Payroll", Amount: 4000, Date: "2026-07-15"},
		{Name: "Payroll", Amount: 4000, Date: "2026-08-15"},
		{Name: "", Amount: -10, Date: "2026-07-01"},
		{Name: "Bad date", Amount: -10, Date: "2026"},
	}

	got := SummarizeRecurringExpenses(txns)

	assert.Equal(t, map[string]float64{
		"Landlord": 1500,
		"Power Co": 135,
	}, got)
}

func TestSummarizeRecurringExpenses_Empty(t *testing.T) {
	assert.Empty(t, SummarizeRecurringExpenses(nil))
}

func TestDeriveMonthlyIncome(t *testing.T) {
	tests := []struct {
		name string
		txns []models.Transaction
		want *float64
	}{
		{name: "no transactions", txns: nil, want: nil},
		{name: "only outflows", txns: []models.Transaction{{Name: "x", Amount: -5, Date: "2026-07-01"}}, want: nil},
		{
			name: "average of monthly inflows",
			txns: []models.Transaction{
				{Name: "Payroll", Amount: 4000, Date: "2026-07-15"},
				{Name: "Refund", Amount: 100, Date: "2026-07-20"},
				{Name: "Payroll", Amount: 4000, Date: "2026-08-15"},
				{Name: "Rent", Amount: -1500, Date: "2026-08-01"},
			},
			want: floatPtr(4050),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveMonthlyIncome(tt.txns))
		})
	}
}

// ==========================
// Gatherer Tests
// ==========================

func TestGatherer_Gather(t *testing.T) {
	provider := &fakeProvider{
		name:     "plaid",
		balance:  floatPtr(2000),
		holdings: []models.Holding{{Type: "equity", MarketValue: 500}},
		transactions: []models.Transaction{
			{Name: "Landlord", Amount: -1500, Date: "2026-07-01"},
			{Name: "Landlord", Amount: -1500, Date: "2026-08-01"},
			{Name: "Payroll", Amount: 5000, Date: "2026-07-15"},
		},
	}
	gatherer := NewGatherer(provider)
	gatherer.now = func() time.Time { return time.Date(2026, 9, 29, 0, 0, 0, 0, time.UTC) }

	t.Run("balance only", func(t *testing.T) {
		facts := gatherer.Gather(context.Background(), "tok", models.Context{})
		require.NotNil(t, facts.StartingBalance)
		assert.Equal(t, 2000.0, *facts.StartingBalance)
		assert.Nil(t, facts.Holdings)
		assert.Nil(t, facts.MonthlyIncome)
	})

	t.Run("holdings and expenses", func(t *testing.T) {
		facts := gatherer.Gather(context.Background(), "tok", models.Context{IncludeHoldings: true, IncludeExpenses: true})
		assert.Len(t, facts.Holdings, 1)
		assert.Equal(t, 1500.0, facts.RecurringExpenses["Landlord"])
		require.NotNil(t, facts.MonthlyIncome)
		assert.Equal(t, 5000.0, *facts.MonthlyIncome)
	})

	t.Run("no token", func(t *testing.T) {
		before := atomic.LoadInt32(&provider.calls)
		facts := gatherer.Gather(context.Background(), "", models.Context{IncludeHoldings: true})
		assert.Nil(t, facts.StartingBalance)
		assert.Equal(t, before, atomic.LoadInt32(&provider.calls))
	})
}
