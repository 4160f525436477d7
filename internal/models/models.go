package models

import "database/sql"

// ReceiptBrand is one row of the receipt/brand barcode join.
type ReceiptBrand struct {
	ReceiptID   sql.NullString
	DateScanned int64
	TotalSpent  sql.NullString
	BrandName   sql.NullString
	Category    sql.NullString
}

// StatusSpend is the mean spend of receipts with a given status.
type StatusSpend struct {
	Status       string
	AverageSpend float64
}

// StatusItems is the number of items purchased on receipts with a given status.
type StatusItems struct {
	Status     string
	TotalItems int64
}

// MissingValues counts receipts lacking a total, a scan date or a status.
type MissingValues struct {
	TotalSpent  int64
	DateScanned int64
	Status      int64
}

// DuplicateID is a receipt identifier that occurs more than once.
type DuplicateID struct {
	ID    sql.NullString
	Count int64
}

// InvalidDate is a receipt whose scan date is missing or negative.
type InvalidDate struct {
	ID          sql.NullString
	DateScanned sql.NullInt64
}

// Column describes one persisted column as reported by the database.
type Column struct {
	Name string
	Type string
}
