package models

import "time"

// TransactionType is the semantic kind of a sales/commission transaction.
type TransactionType string

const (
	ProducerSale       TransactionType = "PRODUCER_SALE"
	AffiliateSale      TransactionType = "AFFILIATE_SALE"
	PaidCommission     TransactionType = "PAID_COMMISSION"
	ReceivedCommission TransactionType = "RECEIVED_COMMISSION"
)

// Contribution is the signed cents this transaction type adds to a seller's
// earnings: negative for paid commissions, positive for everything else.
func (t TransactionType) Contribution(valueCents int64) int64 {
	if t == PaidCommission {
		return -valueCents
	}
	return valueCents
}

// Product is a catalog entry looked up by its unique name.
type Product struct {
	ID   string `json:"id"`   // uuid
	Name string `json:"name"` // unique natural key
}

// Seller is a catalog entry looked up by its unique name.
type Seller struct {
	ID   string `json:"id"`   // uuid
	Name string `json:"name"` // unique natural key
}

// Transaction is a persisted sales/commission record with resolved relations.
type Transaction struct {
	ID         string          `json:"id"` // uuid
	Type       TransactionType `json:"type"`
	Date       time.Time       `json:"date"`  // RFC3339 with offset
	ValueCents int64           `json:"value"` // non-negative integer cents
	Product    Product         `json:"product"`
	Seller     Seller          `json:"seller"`
}

// TransactionRecord is a fully resolved row pending persistence. It belongs to
// one ingestion batch and is never exposed outside it.
type TransactionRecord struct {
	ID         string
	Type       TransactionType
	Date       time.Time
	ValueCents int64
	ProductID  string
	SellerID   string
}

// SellerSummary groups one seller's transactions with their signed earnings
// total. Built fresh on every read, never persisted.
type SellerSummary struct {
	Name         string        `json:"name"`
	Earnings     int64         `json:"earnings"` // cents, signed
	Transactions []Transaction `json:"transactions"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
