// Package analyzer runs the read-only analysis queries over the persisted
// receipts and brands tables.
package analyzer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/drstein77/receiptanalyzer/internal/dbkeeper"
	"github.com/drstein77/receiptanalyzer/internal/models"
	"go.uber.org/zap"
)

// Receipt statuses compared by the spend and item queries. FINISHED stands
// in for "accepted": a receipt cannot finish without being accepted.
const (
	StatusFinished = "FINISHED"
	StatusRejected = "REJECTED"
)

// ErrNoScannedDates is returned when no receipt carries a scan date, so
// there is no most recent month to analyze.
var ErrNoScannedDates = errors.New("no scanned dates in receipts")

// Querier is the part of the database keeper the analyzer needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, context.CancelFunc, error)
	Dialect() dbkeeper.Dialect
}

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

type Analyzer struct {
	q   Querier
	log Log
}

func New(q Querier, log Log) *Analyzer {
	return &Analyzer{q: q, log: log}
}

// MostRecentMonth returns the latest 'YYYY-MM' among receipt scan dates.
func (a *Analyzer) MostRecentMonth(ctx context.Context) (string, error) {
	query := `SELECT MAX(` + a.q.Dialect().Month(`r."dateScanned"`) + `) AS latest_month FROM receipts r`

	var month sql.NullString
	err := a.queryRows(ctx, "most recent month", query, nil, func(rows *sql.Rows) error {
		return rows.Scan(&month)
	})
	if err != nil {
		return "", err
	}
	if !month.Valid {
		return "", ErrNoScannedDates
	}

	a.log.Info("Most recent month found", zap.String("month", month.String))
	return month.String, nil
}

// JoinBrands matches receipts scanned in month with every brand whose barcode
// appears anywhere in the receipt's serialized item list. This is a text match,
// not a key join, and may legitimately return nothing.
func (a *Analyzer) JoinBrands(ctx context.Context, month string) ([]models.ReceiptBrand, error) {
	query := `
SELECT
    r."_id.$oid" AS receipt_id,
    r."dateScanned",
    CAST(r."totalSpent" AS TEXT) AS total_spent,
    CAST(b."name" AS TEXT) AS brand_name,
    CAST(b."category" AS TEXT) AS category
FROM receipts r
JOIN brands b
    ON CAST(r."rewardsReceiptItemList" AS TEXT) LIKE '%' || CAST(b."barcode" AS TEXT) || '%'
WHERE ` + a.q.Dialect().Month(`r."dateScanned"`) + ` = ?
ORDER BY r."dateScanned", receipt_id, brand_name`

	var out []models.ReceiptBrand
	err := a.queryRows(ctx, "receipt brand join", query, []any{month}, func(rows *sql.Rows) error {
		var rb models.ReceiptBrand
		if err := rows.Scan(&rb.ReceiptID, &rb.DateScanned, &rb.TotalSpent, &rb.BrandName, &rb.Category); err != nil {
			return err
		}
		out = append(out, rb)
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.Info("Data successfully joined and retrieved", zap.String("month", month), zap.Int("rows", len(out)))
	return out, nil
}

// AverageSpendByStatus averages the non-empty totals of FINISHED and REJECTED receipts.
func (a *Analyzer) AverageSpendByStatus(ctx context.Context) ([]models.StatusSpend, error) {
	query := `
SELECT
    r."rewardsReceiptStatus",
    AVG(CAST(NULLIF(TRIM(CAST(r."totalSpent" AS TEXT)), '') AS DOUBLE PRECISION)) AS average_spend
FROM receipts r
WHERE r."rewardsReceiptStatus" IN (?, ?)
    AND r."totalSpent" IS NOT NULL
    AND TRIM(CAST(r."totalSpent" AS TEXT)) != ''
GROUP BY r."rewardsReceiptStatus"
ORDER BY r."rewardsReceiptStatus"`

	var out []models.StatusSpend
	err := a.queryRows(ctx, "average spend by status", query, []any{StatusFinished, StatusRejected}, func(rows *sql.Rows) error {
		var (
			status string
			avg    sql.NullFloat64
		)
		if err := rows.Scan(&status, &avg); err != nil {
			return err
		}
		out = append(out, models.StatusSpend{Status: status, AverageSpend: avg.Float64})
		return nil
	})
	return out, err
}

// ItemsByStatus sums purchased item counts of FINISHED and REJECTED receipts,
// counting a missing count as zero.
func (a *Analyzer) ItemsByStatus(ctx context.Context) ([]models.StatusItems, error) {
	query := `
SELECT
    r."rewardsReceiptStatus",
    COALESCE(SUM(COALESCE(CAST(r."purchasedItemCount" AS BIGINT), 0)), 0) AS total_items_purchased
FROM receipts r
WHERE r."rewardsReceiptStatus" IN (?, ?)
GROUP BY r."rewardsReceiptStatus"
ORDER BY r."rewardsReceiptStatus"`

	var out []models.StatusItems
	err := a.queryRows(ctx, "items by status", query, []any{StatusFinished, StatusRejected}, func(rows *sql.Rows) error {
		var si models.StatusItems
		if err := rows.Scan(&si.Status, &si.TotalItems); err != nil {
			return err
		}
		out = append(out, si)
		return nil
	})
	return out, err
}

// queryRows runs query and hands every row to scan. Errors are logged and
// wrapped with the step name.
func (a *Analyzer) queryRows(ctx context.Context, step, query string, args []any, scan func(*sql.Rows) error) error {
	rows, cancel, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		a.log.Error("Failed to execute query", zap.String("step", step), zap.Error(err))
		return fmt.Errorf("%s: %w", step, err)
	}
	defer cancel()
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			a.log.Error("Failed to scan row", zap.String("step", step), zap.Error(err))
			return fmt.Errorf("%s: scan: %w", step, err)
		}
	}
	if err := rows.Err(); err != nil {
		a.log.Error("Error occurred during rows iteration", zap.String("step", step), zap.Error(err))
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}
