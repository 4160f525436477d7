// Package report prints the run's samples and query results as plain,
// column-aligned text.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/drstein77/receiptanalyzer/internal/models"
	"github.com/drstein77/receiptanalyzer/internal/normalize"
)

const maxCell = 40

type Reporter struct {
	w          io.Writer
	sampleRows int
}

func New(w io.Writer, sampleRows int) *Reporter {
	if sampleRows < 0 {
		sampleRows = 0
	}
	return &Reporter{w: w, sampleRows: sampleRows}
}

func (r *Reporter) Loaded() {
	fmt.Fprintln(r.w, "JSON files successfully loaded.")
}

// Samples prints the first rows of each table.
func (r *Reporter) Samples(tables ...*normalize.Table) {
	fmt.Fprintln(r.w, "Data successfully loaded into tables.")
	for _, t := range tables {
		fmt.Fprintf(r.w, "Samples %s Data (%d rows, %d columns):\n", title(t.Name), len(t.Rows), len(t.Columns))
		head := t.Head(r.sampleRows)
		cells := make([][]string, 0, len(head))
		for _, row := range head {
			line := make([]string, 0, len(t.Columns))
			for _, c := range t.Columns {
				line = append(line, cell(row[c]))
			}
			cells = append(cells, line)
		}
		r.table(t.Columns, cells)
		fmt.Fprintln(r.w)
	}
}

func (r *Reporter) Persisted(driver string) {
	fmt.Fprintf(r.w, "Data successfully written to %s database\n", driver)
}

// Schema prints the persisted columns of a table.
func (r *Reporter) Schema(table string, cols []models.Column) {
	fmt.Fprintf(r.w, "\nColumns in %s table:\n", table)
	cells := make([][]string, 0, len(cols))
	for i, c := range cols {
		cells = append(cells, []string{strconv.Itoa(i), c.Name, c.Type})
	}
	r.table([]string{"cid", "name", "type"}, cells)
}

func (r *Reporter) MostRecentMonth(month string) {
	fmt.Fprintf(r.w, "\nMost recent month: %s\n", month)
}

// Join prints the receipt/brand join. An empty result is reported, not treated as a failure.
func (r *Reporter) Join(month string, rows []models.ReceiptBrand) {
	fmt.Fprintf(r.w, "\nReceipts joined with brands for %s: %d rows\n", month, len(rows))
	if len(rows) == 0 {
		fmt.Fprintln(r.w, "No brand barcode was found in the item lists of that month's receipts.")
		return
	}
	cells := make([][]string, 0, len(rows))
	for _, rb := range rows {
		cells = append(cells, []string{
			nullString(rb.ReceiptID.String, rb.ReceiptID.Valid),
			time.UnixMilli(rb.DateScanned).UTC().Format(time.DateTime),
			nullString(rb.TotalSpent.String, rb.TotalSpent.Valid),
			nullString(rb.BrandName.String, rb.BrandName.Valid),
			nullString(rb.Category.String, rb.Category.Valid),
		})
	}
	r.table([]string{"receipt_id", "dateScanned", "totalSpent", "brand_name", "category"}, cells)
}

func (r *Reporter) AverageSpend(rows []models.StatusSpend) {
	fmt.Fprintln(r.w)
	for _, s := range rows {
		fmt.Fprintf(r.w, "Status: %s, Average Spend: $%.2f\n", s.Status, s.AverageSpend)
	}
}

func (r *Reporter) ItemsPurchased(rows []models.StatusItems) {
	fmt.Fprintln(r.w)
	for _, s := range rows {
		fmt.Fprintf(r.w, "Status: %s, Total Items Purchased: %d\n", s.Status, s.TotalItems)
	}
}

func (r *Reporter) MissingValues(mv models.MissingValues) {
	fmt.Fprintln(r.w, "\nMissing Values:")
	r.table(
		[]string{"missing_totalSpent", "missing_dateScanned", "missing_status"},
		[][]string{{
			strconv.FormatInt(mv.TotalSpent, 10),
			strconv.FormatInt(mv.DateScanned, 10),
			strconv.FormatInt(mv.Status, 10),
		}},
	)
}

func (r *Reporter) Duplicates(rows []models.DuplicateID) {
	fmt.Fprintln(r.w, "\nDuplicate Records:")
	cells := make([][]string, 0, len(rows))
	for _, d := range rows {
		cells = append(cells, []string{nullString(d.ID.String, d.ID.Valid), strconv.FormatInt(d.Count, 10)})
	}
	r.table([]string{"_id.$oid", "count"}, cells)
}

func (r *Reporter) InvalidDates(rows []models.InvalidDate) {
	fmt.Fprintln(r.w, "\nInvalid Dates:")
	cells := make([][]string, 0, len(rows))
	for _, d := range rows {
		cells = append(cells, []string{
			nullString(d.ID.String, d.ID.Valid),
			nullString(strconv.FormatInt(d.DateScanned.Int64, 10), d.DateScanned.Valid),
		})
	}
	r.table([]string{"_id.$oid", "dateScanned"}, cells)
}

// Failure reports a step that did not produce a result.
func (r *Reporter) Failure(step string, err error) {
	fmt.Fprintf(r.w, "\nError executing %s: %v\n", step, err)
}

// WriteJoinCSV stores the join result with a header row.
func WriteJoinCSV(path string, rows []models.ReceiptBrand) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"receipt_id", "dateScanned", "totalSpent", "brand_name", "category"}); err != nil {
		return err
	}
	for _, rb := range rows {
		rec := []string{
			rb.ReceiptID.String,
			strconv.FormatInt(rb.DateScanned, 10),
			rb.TotalSpent.String,
			rb.BrandName.String,
			rb.Category.String,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (r *Reporter) table(header []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintf(r.w, "Empty result\nColumns: [%s]\n", strings.Join(header, ", "))
		return
	}
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func cell(v any) string {
	if v == nil {
		return "NULL"
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	case []any, map[string]any:
		text, err := normalize.Stringify(t)
		if err != nil || text == nil {
			s = fmt.Sprint(t)
		} else {
			s = *text
		}
	default:
		s = fmt.Sprint(t)
	}
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
	if utf8.RuneCountInString(s) > maxCell {
		s = string([]rune(s)[:maxCell-3]) + "..."
	}
	return s
}

func nullString(s string, valid bool) string {
	if !valid {
		return "NULL"
	}
	return s
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
