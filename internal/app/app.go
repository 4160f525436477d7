package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/drstein77/receiptanalyzer/internal/analyzer"
	"github.com/drstein77/receiptanalyzer/internal/dbkeeper"
	"github.com/drstein77/receiptanalyzer/internal/loader"
	"github.com/drstein77/receiptanalyzer/internal/logger"
	"github.com/drstein77/receiptanalyzer/internal/normalize"
	"github.com/drstein77/receiptanalyzer/internal/report"
	"github.com/drstein77/receiptanalyzer/internal/storage"
	"go.uber.org/zap"
)

// Options is what a run needs from the configuration.
type Options interface {
	DataDir() string
	DataArchive() string
	DBDriver() string
	DataBaseDSN() string
	SampleRows() int
	QueryTimeout() time.Duration
	JoinCSV() string
}

type App struct {
	opts   Options
	log    *logger.Logger
	report *report.Reporter
}

// NewApp creates an App printing its report to out.
func NewApp(opts Options, log *logger.Logger, out io.Writer) *App {
	return &App{
		opts:   opts,
		log:    log,
		report: report.New(out, opts.SampleRows()),
	}
}

// Run executes load, normalize, persist and analyze once, in that order.
// Missing inputs, a failed write, the most recent month and the join are
// fatal and returned; the remaining analysis steps only log and print their
// failure. The database is closed on every path.
func (a *App) Run(ctx context.Context) error {
	docs, err := loader.Load(ctx, loader.Source{Dir: a.opts.DataDir(), Archive: a.opts.DataArchive()}, a.log)
	if err != nil {
		a.log.Error("Error loading files", zap.Error(err))
		return fmt.Errorf("load: %w", err)
	}
	a.report.Loaded()

	receipts := normalize.Flatten("receipts", docs.Receipts)
	brands := normalize.Flatten("brands", docs.Brands)
	users := normalize.Flatten("users", docs.Users)
	a.report.Samples(receipts, brands, users)

	if _, err := normalize.Receipts(receipts, a.log); err != nil {
		a.log.Error("Error normalizing receipts", zap.Error(err))
		return fmt.Errorf("normalize receipts: %w", err)
	}

	keeper, err := dbkeeper.NewDBKeeper(ctx, a.opts.DBDriver(), a.opts.DataBaseDSN, a.opts.QueryTimeout(), a.log)
	if err != nil {
		a.log.Error("Error opening database", zap.Error(err))
		return fmt.Errorf("open database: %w", err)
	}
	store := storage.NewStorage(keeper, a.log)
	defer store.Close()

	if err := store.Persist(ctx, receipts, brands, users); err != nil {
		a.log.Error("Error writing tables", zap.Error(err))
		return fmt.Errorf("persist: %w", err)
	}
	a.report.Persisted(a.opts.DBDriver())

	if cols, err := store.Describe(ctx, receipts.Name); err != nil {
		a.log.Warn("Error retrieving columns", zap.Error(err))
	} else {
		a.report.Schema(receipts.Name, cols)
	}

	return a.analyze(ctx, analyzer.New(keeper, a.log))
}

func (a *App) analyze(ctx context.Context, an *analyzer.Analyzer) error {
	month, err := an.MostRecentMonth(ctx)
	if err != nil {
		a.report.Failure("most recent month query", err)
		return fmt.Errorf("most recent month: %w", err)
	}
	a.report.MostRecentMonth(month)

	joined, err := an.JoinBrands(ctx, month)
	if err != nil {
		a.report.Failure("join query", err)
		return fmt.Errorf("join: %w", err)
	}
	a.report.Join(month, joined)

	if path := a.opts.JoinCSV(); path != "" {
		if err := report.WriteJoinCSV(path, joined); err != nil {
			a.log.Error("Error writing join CSV", zap.String("path", path), zap.Error(err))
			a.report.Failure("join CSV export", err)
		} else {
			a.log.Info("Join result written", zap.String("path", path), zap.Int("rows", len(joined)))
		}
	}

	if spend, err := an.AverageSpendByStatus(ctx); err != nil {
		a.report.Failure("average spend query", err)
	} else {
		a.report.AverageSpend(spend)
	}

	if items, err := an.ItemsByStatus(ctx); err != nil {
		a.report.Failure("items purchased query", err)
	} else {
		a.report.ItemsPurchased(items)
	}

	if mv, err := an.MissingValues(ctx); err != nil {
		a.report.Failure("missing values check", err)
	} else {
		a.report.MissingValues(mv)
	}

	if dups, err := an.DuplicateIDs(ctx); err != nil {
		a.report.Failure("duplicate check", err)
	} else {
		a.report.Duplicates(dups)
	}

	if invalid, err := an.InvalidDates(ctx); err != nil {
		a.report.Failure("invalid dates check", err)
	} else {
		a.report.InvalidDates(invalid)
	}

	return nil
}
