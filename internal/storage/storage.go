package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/drstein77/receiptanalyzer/internal/models"
	"github.com/drstein77/receiptanalyzer/internal/normalize"
	"go.uber.org/zap"
)

// ErrNoKeeper indicates that no database is attached.
var ErrNoKeeper = errors.New("database keeper is nil")

type Log interface {
	Info(string, ...zap.Field)
}

// Keeper interface for database operations
type Keeper interface {
	WriteTable(context.Context, *normalize.Table) error
	Columns(context.Context, string) ([]models.Column, error)
	Ping(context.Context) bool
	Close() bool
}

// Storage persists normalized tables through a Keeper.
type Storage struct {
	keeper Keeper
	log    Log
}

// NewStorage creates a new Storage instance
func NewStorage(keeper Keeper, log Log) *Storage {
	return &Storage{
		keeper: keeper,
		log:    log,
	}
}

// Persist replaces each table in order and stops at the first failure.
func (s *Storage) Persist(ctx context.Context, tables ...*normalize.Table) error {
	if s.keeper == nil {
		return ErrNoKeeper
	}
	if !s.keeper.Ping(ctx) {
		return errors.New("database is not reachable")
	}

	for _, t := range tables {
		if err := s.keeper.WriteTable(ctx, t); err != nil {
			return fmt.Errorf("persist %s: %w", t.Name, err)
		}
	}

	s.log.Info("Data successfully written to database", zap.Int("tables", len(tables)))
	return nil
}

// Describe lists the persisted columns of table.
func (s *Storage) Describe(ctx context.Context, table string) ([]models.Column, error) {
	if s.keeper == nil {
		return nil, ErrNoKeeper
	}
	return s.keeper.Columns(ctx, table)
}

// Close releases the underlying database.
func (s *Storage) Close() {
	if s.keeper != nil {
		s.keeper.Close()
	}
}
