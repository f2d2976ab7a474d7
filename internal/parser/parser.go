package parser

import (
	"strconv"
	"strings"
	"time"

	"affiliate-sales-api/internal/models"
)

// Fixed column layout of one transaction line:
// [0,1) type digit, [1,26) RFC3339 timestamp with offset,
// [26,56) product name (space padded), [56,66) zero-padded cents,
// [66,...) seller name (greedy, everything after column 66).
const (
	typeEnd    = 1
	dateEnd    = 26
	productEnd = 56
	valueEnd   = 66

	minLineLen = valueEnd
)

// Line is one decoded fixed-width record, trimmed and parsed but not yet
// resolved against the catalog.
type Line struct {
	Type       models.TransactionType
	Date       time.Time
	Product    string
	ValueCents int64
	Seller     string
}

var typeByCode = map[int]models.TransactionType{
	1: models.ProducerSale,
	2: models.AffiliateSale,
	3: models.PaidCommission,
	4: models.ReceivedCommission,
}

// MapTransactionType maps the numeric code of the file format to its
// transaction type. Codes outside 1..4 fail.
func MapTransactionType(code int) (models.TransactionType, error) {
	t, ok := typeByCode[code]
	if !ok {
		return "", &UnknownTransactionTypeError{Code: code}
	}
	return t, nil
}

// DecodeLine decodes one non-empty line of an upload file. lineNo is 1-based
// and only used in error messages.
func DecodeLine(line string, lineNo int) (Line, error) {
	// Columns are character positions, so slice runes: product and seller
	// names can carry accented characters without shifting later fields.
	runes := []rune(line)
	if len(runes) < minLineLen {
		return Line{}, &MalformedLineError{Line: line, LineNo: lineNo, Reason: "line shorter than 66 characters"}
	}

	code, err := strconv.Atoi(string(runes[:typeEnd]))
	if err != nil {
		// A non-digit code falls through to the type mapper's error so the
		// caller sees one taxonomy for bad codes.
		code = -1
	}
	txnType, err := MapTransactionType(code)
	if err != nil {
		return Line{}, err
	}

	date, err := time.Parse(time.RFC3339, string(runes[typeEnd:dateEnd]))
	if err != nil {
		return Line{}, &MalformedLineError{Line: line, LineNo: lineNo, Reason: "invalid date field"}
	}

	value, err := strconv.ParseInt(strings.TrimSpace(string(runes[productEnd:valueEnd])), 10, 64)
	if err != nil || value < 0 {
		return Line{}, &MalformedLineError{Line: line, LineNo: lineNo, Reason: "invalid value field"}
	}

	return Line{
		Type:       txnType,
		Date:       date,
		Product:    strings.TrimSpace(string(runes[dateEnd:productEnd])),
		ValueCents: value,
		Seller:     strings.TrimSpace(string(runes[valueEnd:])),
	}, nil
}

// SplitLines splits raw upload content on '\n' keeping line positions. Blank
// lines are the caller's to skip.
func SplitLines(content string) []string {
	return strings.Split(content, "\n")
}
