package customer

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Column positions in the backing store, 1-based to match its API.
const (
	ColCompanyID     = 1
	ColCompanyName   = 2
	ColExistingEmail = 3
	ColUnpaidAmount  = 4
	ColDueDate       = 5
	ColStatus        = 6
	ColNewEmail      = 7
	ColPromisedDate  = 8
	ColInquiry       = 9
)

// Header names as they appear in row one of the store.
const (
	HeaderCompanyID     = "company_id"
	HeaderCompanyName   = "company_name"
	HeaderExistingEmail = "email"
	HeaderUnpaidAmount  = "unpaid_amount"
)

// Status labels written to ColStatus.
const (
	StatusEmailPending    = "email-pending"
	StatusPaymentPromised = "payment-promised"
)

const (
	fallbackName  = "Customer"
	fallbackEmail = "unregistered"
)

var ErrNotFound = errors.New("no matching customer record")

// Record is one customer's row, read once at session start. The mutable
// output fields (status, new email, promised date, inquiry) are write-only
// from this service's point of view and are not carried here.
type Record struct {
	CompanyID     string
	CompanyName   string
	ExistingEmail string
	UnpaidAmount  string
}

// Find returns the first record whose company id equals id, plus the
// 1-based row position of that record in the backing store counting the
// header row (sequence index + 2). Ids are expected to be unique in the
// store; if duplicates exist the first in store order wins.
func Find(records []map[string]string, id string) (Record, int, error) {
	for i, row := range records {
		if strings.TrimSpace(row[HeaderCompanyID]) == id {
			return fromRow(row), i + 2, nil
		}
	}
	return Record{}, 0, ErrNotFound
}

func fromRow(row map[string]string) Record {
	rec := Record{
		CompanyID:     strings.TrimSpace(row[HeaderCompanyID]),
		CompanyName:   strings.TrimSpace(row[HeaderCompanyName]),
		ExistingEmail: strings.TrimSpace(row[HeaderExistingEmail]),
		UnpaidAmount:  strings.TrimSpace(row[HeaderUnpaidAmount]),
	}
	if rec.CompanyName == "" {
		rec.CompanyName = fallbackName
	}
	if rec.ExistingEmail == "" {
		rec.ExistingEmail = fallbackEmail
	}
	return rec
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators. Formatting is
// best-effort display only: anything that does not parse as an integer
// after removing grouping commas comes back unchanged.
func FormatAmount(raw string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return raw
	}
	return amountPrinter.Sprintf("%d", n)
}
