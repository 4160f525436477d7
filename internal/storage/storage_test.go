package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/drstein77/receiptanalyzer/internal/logger"
	"github.com/drstein77/receiptanalyzer/internal/models"
	"github.com/drstein77/receiptanalyzer/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKeeper struct {
	written []string
	failOn  string
	down    bool
	closed  bool
}

func (f *fakeKeeper) WriteTable(_ context.Context, t *normalize.Table) error {
	if t.Name == f.failOn {
		return errors.New("disk full")
	}
	f.written = append(f.written, t.Name)
	return nil
}

func (f *fakeKeeper) Columns(_ context.Context, table string) ([]models.Column, error) {
	return []models.Column{{Name: table + "_col", Type: "TEXT"}}, nil
}

func (f *fakeKeeper) Ping(context.Context) bool { return !f.down }

func (f *fakeKeeper) Close() bool {
	f.closed = true
	return true
}

var nopLog = logger.NewFromZap(zap.NewNop())

func tables(names ...string) []*normalize.Table {
	out := make([]*normalize.Table, 0, len(names))
	for _, n := range names {
		out = append(out, &normalize.Table{Name: n})
	}
	return out
}

func TestPersist_WritesInOrder(t *testing.T) {
	k := &fakeKeeper{}
	s := NewStorage(k, nopLog)

	require.NoError(t, s.Persist(context.Background(), tables("receipts", "brands", "users")...))
	assert.Equal(t, []string{"receipts", "brands", "users"}, k.written)

	cols, err := s.Describe(context.Background(), "receipts")
	require.NoError(t, err)
	assert.Equal(t, "receipts_col", cols[0].Name)

	s.Close()
	assert.True(t, k.closed)
}

func TestPersist_StopsAtFirstFailure(t *testing.T) {
	k := &fakeKeeper{failOn: "brands"}
	err := NewStorage(k, nopLog).Persist(context.Background(), tables("receipts", "brands", "users")...)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist brands")
	assert.Equal(t, []string{"receipts"}, k.written)
}

func TestPersist_Unavailable(t *testing.T) {
	err := NewStorage(&fakeKeeper{down: true}, nopLog).Persist(context.Background(), tables("receipts")...)
	require.Error(t, err)

	err = NewStorage(nil, nopLog).Persist(context.Background())
	require.ErrorIs(t, err, ErrNoKeeper)
}
