package parser

import "fmt"

// EmptyInputError means the uploaded file had no content at all.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "file content is empty"
}

// MalformedLineError means a line does not match the fixed-width layout.
type MalformedLineError struct {
	Line   string
	LineNo int // 1-based, 0 when unknown
	Reason string
}

func (e *MalformedLineError) Error() string {
	if e.LineNo > 0 {
		return fmt.Sprintf("invalid transaction format on line %d: %s (%q)", e.LineNo, e.Reason, e.Line)
	}
	return fmt.Sprintf("invalid transaction format: %s (%q)", e.Reason, e.Line)
}

// UnknownTransactionTypeError means a decoded type code is outside 1..4.
type UnknownTransactionTypeError struct {
	Code int
}

func (e *UnknownTransactionTypeError) Error() string {
	return fmt.Sprintf("invalid transaction type: %d", e.Code)
}
