package app

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drstein77/receiptanalyzer/internal/loader"
	"github.com/drstein77/receiptanalyzer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testOptions struct {
	dir     string
	archive string
	driver  string
	dsn     string
	joinCSV string
}

func (o testOptions) DataDir() string             { return o.dir }
func (o testOptions) DataArchive() string         { return o.archive }
func (o testOptions) DBDriver() string            { return o.driver }
func (o testOptions) DataBaseDSN() string         { return o.dsn }
func (o testOptions) SampleRows() int             { return 3 }
func (o testOptions) QueryTimeout() time.Duration { return 5 * time.Second }
func (o testOptions) JoinCSV() string             { return o.joinCSV }

const (
	receiptsNDJSON = `{"_id":{"$oid":"r1"},"rewardsReceiptStatus":"FINISHED","totalSpent":"26.00","purchasedItemCount":5,"dateScanned":{"$date":1609687531000},"rewardsReceiptItemList":[{"barcode":"4011","finalPrice":"26.00"}]}
{"_id":{"$oid":"r2"},"rewardsReceiptStatus":"REJECTED","totalSpent":"4.00","purchasedItemCount":1,"dateScanned":{"$date":1614686400000},"rewardsReceiptItemList":[{"barcode":"4011"}]}
{"_id":{"$oid":"r3"},"rewardsReceiptStatus":"FINISHED","totalSpent":"10.00","purchasedItemCount":2,"dateScanned":{"$date":1614772800000}}
{"_id":{"$oid":"r4"},"rewardsReceiptStatus":"FINISHED","totalSpent":"1.00"}
`
	brandsJSON = `[{"_id":{"$oid":"b1"},"barcode":"4011","name":"Bananas","category":"Produce","cpg":{"$id":{"$oid":"c1"},"$ref":"Cogs"}}]`
	usersJSON  = `[{"_id":{"$oid":"u1"},"active":true,"createdDate":{"$date":1609687444800},"role":"consumer"}]`
)

func writeInputs(t *testing.T, receipts string, skip ...string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		loader.ReceiptsFile: receipts,
		loader.BrandsFile:   brandsJSON,
		loader.UsersFile:    usersJSON,
	}
	for _, s := range skip {
		delete(files, s)
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func run(t *testing.T, opts testOptions) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := NewApp(opts, logger.NewFromZap(zap.NewNop()), &out).Run(context.Background())
	return out.String(), err
}

func count(t *testing.T, dsn, query string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(query).Scan(&n))
	return n
}

func TestRun_EndToEnd(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			dir := writeInputs(t, receiptsNDJSON)
			dsn := filepath.Join(dir, "data.db")
			csvPath := filepath.Join(dir, "joined.csv")

			out, err := run(t, testOptions{dir: dir, driver: driver, dsn: dsn, joinCSV: csvPath})
			require.NoError(t, err)

			assert.Contains(t, out, "JSON files successfully loaded.")
			assert.Contains(t, out, "Samples Receipts Data (4 rows")
			assert.Contains(t, out, "Data successfully written to "+driver+" database")
			assert.Contains(t, out, "Columns in receipts table:")
			assert.Contains(t, out, "Most recent month: 2021-03")
			assert.Contains(t, out, "Receipts joined with brands for 2021-03: 1 rows")
			assert.Contains(t, out, "Status: FINISHED, Average Spend: $18.00")
			assert.Contains(t, out, "Status: REJECTED, Average Spend: $4.00")
			assert.Contains(t, out, "Status: FINISHED, Total Items Purchased: 7")
			assert.Contains(t, out, "Duplicate Records:\nEmpty result")
			assert.Contains(t, out, "Invalid Dates:\nEmpty result")
			assert.NotContains(t, out, "Error executing")

			assert.Equal(t, 3, count(t, dsn, `SELECT COUNT(*) FROM receipts`))
			assert.Equal(t, 3, count(t, dsn, `SELECT COUNT(*) FROM receipts WHERE typeof("dateScanned") = 'integer'`))
			assert.Equal(t, 1, count(t, dsn, `SELECT COUNT(*) FROM brands WHERE "cpg.$ref" = 'Cogs'`))
			assert.Equal(t, 1, count(t, dsn, `SELECT COUNT(*) FROM users WHERE "active" = 1`))

			data, err := os.ReadFile(csvPath)
			require.NoError(t, err)
			assert.Equal(t, 2, strings.Count(string(data), "\n"))
			assert.Contains(t, string(data), "r2,1614686400000,4.00,Bananas,Produce")

			// a second run replaces the tables instead of appending
			_, err = run(t, testOptions{dir: dir, driver: driver, dsn: dsn})
			require.NoError(t, err)
			assert.Equal(t, 3, count(t, dsn, `SELECT COUNT(*) FROM receipts`))
		})
	}
}

func TestRun_MissingInputWritesNothing(t *testing.T) {
	dir := writeInputs(t, receiptsNDJSON, loader.UsersFile)
	dsn := filepath.Join(dir, "data.db")

	out, err := run(t, testOptions{dir: dir, driver: "sqlite3", dsn: dsn})
	require.ErrorIs(t, err, loader.ErrMissingFile)
	assert.NotContains(t, out, "JSON files successfully loaded.")

	_, statErr := os.Stat(dsn)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_JoinFailureIsFatal(t *testing.T) {
	// no receipt carries an item list, so the join cannot reference it
	receipts := `[{"_id":{"$oid":"r1"},"rewardsReceiptStatus":"FINISHED","totalSpent":"2.00","dateScanned":{"$date":1609687531000}}]`
	dir := writeInputs(t, receipts)

	out, err := run(t, testOptions{dir: dir, driver: "sqlite3", dsn: filepath.Join(dir, "data.db")})
	require.Error(t, err)
	assert.Contains(t, out, "Most recent month: 2021-01")
	assert.Contains(t, out, "Error executing join query")
	assert.NotContains(t, out, "Average Spend")
}

func TestRun_AnalysisFailureIsNotFatal(t *testing.T) {
	// without purchasedItemCount the items query fails, the checks after it still run
	receipts := `[{"_id":{"$oid":"r1"},"rewardsReceiptStatus":"FINISHED","totalSpent":"2.00","dateScanned":{"$date":1609687531000},"rewardsReceiptItemList":[]}]`
	dir := writeInputs(t, receipts)

	out, err := run(t, testOptions{dir: dir, driver: "sqlite3", dsn: filepath.Join(dir, "data.db")})
	require.NoError(t, err)
	assert.Contains(t, out, "Status: FINISHED, Average Spend: $2.00")
	assert.Contains(t, out, "Error executing items purchased query")
	assert.Contains(t, out, "Missing Values:")
	assert.Contains(t, out, "Invalid Dates:")
}

func TestRun_UnknownDriver(t *testing.T) {
	dir := writeInputs(t, receiptsNDJSON)
	_, err := run(t, testOptions{dir: dir, driver: "oracle", dsn: "x"})
	require.Error(t, err)
}
