package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "harvest_records", []string{"run_id", "record_id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"harvest_records"}, []string{"run_id", "record_id"}).WillReturnResult(3)

	rows := [][]any{{"run-1", int64(1)}, {"run-1", int64(2)}, {"run-1", int64(3)}}
	n, err := CopyFrom(context.Background(), mock, "harvest_records", []string{"run_id", "record_id"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"harvest_records"}, []string{"run_id"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"run-1"}}
	_, err = CopyFrom(context.Background(), mock, "harvest_records", []string{"run_id"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO harvest_records")
	assert.NoError(t, mock.ExpectationsWereMet())
}
