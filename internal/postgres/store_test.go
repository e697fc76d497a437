package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsSerializationFailure(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001"}
	require.True(t, isSerializationFailure(serialization))
	require.True(t, isSerializationFailure(fmt.Errorf("commit trade: %w", serialization)))

	require.False(t, isSerializationFailure(&pgconn.PgError{Code: "23505"}))
	require.False(t, isSerializationFailure(errors.New("plain error")))
	require.False(t, isSerializationFailure(nil))
}

func TestLedgerLockingSuffix(t *testing.T) {
	require.Equal(t, " FOR UPDATE", ledger{locking: true}.forUpdate())
	require.Empty(t, ledger{}.forUpdate())
}
