package analyzer

import (
	"context"
	"database/sql"

	"github.com/drstein77/receiptanalyzer/internal/models"
)

// MissingValues counts receipts with a missing or blank total, a missing scan
// date, or a missing or blank status.
func (a *Analyzer) MissingValues(ctx context.Context) (models.MissingValues, error) {
	query := `
SELECT
    COUNT(CASE WHEN r."totalSpent" IS NULL OR TRIM(CAST(r."totalSpent" AS TEXT)) = '' THEN 1 END) AS missing_total_spent,
    COUNT(CASE WHEN r."dateScanned" IS NULL THEN 1 END) AS missing_date_scanned,
    COUNT(CASE WHEN r."rewardsReceiptStatus" IS NULL OR TRIM(CAST(r."rewardsReceiptStatus" AS TEXT)) = '' THEN 1 END) AS missing_status
FROM receipts r`

	var mv models.MissingValues
	err := a.queryRows(ctx, "missing values", query, nil, func(rows *sql.Rows) error {
		return rows.Scan(&mv.TotalSpent, &mv.DateScanned, &mv.Status)
	})
	return mv, err
}

// DuplicateIDs returns receipt ids present more than once, most repeated first.
func (a *Analyzer) DuplicateIDs(ctx context.Context) ([]models.DuplicateID, error) {
	query := `
SELECT r."_id.$oid", COUNT(*) AS count
FROM receipts r
GROUP BY r."_id.$oid"
HAVING COUNT(*) > 1
ORDER BY 2 DESC, 1`

	var out []models.DuplicateID
	err := a.queryRows(ctx, "duplicate ids", query, nil, func(rows *sql.Rows) error {
		var d models.DuplicateID
		if err := rows.Scan(&d.ID, &d.Count); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

// InvalidDates returns receipts whose scan date is missing or negative.
func (a *Analyzer) InvalidDates(ctx context.Context) ([]models.InvalidDate, error) {
	query := `
SELECT r."_id.$oid", r."dateScanned"
FROM receipts r
WHERE r."dateScanned" IS NULL OR r."dateScanned" < 0
ORDER BY 1`

	var out []models.InvalidDate
	err := a.queryRows(ctx, "invalid dates", query, nil, func(rows *sql.Rows) error {
		var d models.InvalidDate
		if err := rows.Scan(&d.ID, &d.DateScanned); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}
