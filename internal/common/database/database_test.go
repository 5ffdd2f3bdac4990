package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"finlife-navigator/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_JSON(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))

	type payload struct {
		Balance float64 `json:"balance"`
	}
	require.NoError(t, client.SetJSON(ctx, "k", payload{Balance: 12.5}, time.Minute))

	var got payload
	require.NoError(t, client.GetJSON(ctx, "k", &got))
	assert.Equal(t, 12.5, got.Balance)

	err = client.GetJSON(ctx, "missing", &got)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, client.Del(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestRedisClient_Failures(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := NewRedisFromClient(db)
	ctx := context.Background()

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	err := client.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")

	mock.ExpectGet("facts:acct").RedisNil()
	var dest map[string]interface{}
	assert.ErrorIs(t, client.GetJSON(ctx, "facts:acct", &dest), ErrNotFound)

	mock.ExpectGet("facts:acct").SetErr(errors.New("READONLY"))
	err = client.GetJSON(ctx, "facts:acct", &dest)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	client := NewPostgresFromDB(db)
	mock.ExpectPing()
	mock.ExpectClose()

	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_ApplySchema(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr string
	}{
		{
			name: "all statements commit",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS b").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			},
		},
		{
			name: "failed statement rolls back",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE TABLE IF NOT EXISTS b").WillReturnError(errors.New("permission denied"))
				mock.ExpectRollback()
			},
			wantErr: "schema statement 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			err = NewPostgresFromDB(db).ApplySchema(context.Background(),
				"CREATE TABLE IF NOT EXISTS a (id INT)",
				"CREATE TABLE IF NOT EXISTS b (id INT)",
			)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
