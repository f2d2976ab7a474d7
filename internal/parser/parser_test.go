package parser

import (
	"errors"
	"testing"
	"time"

	"affiliate-sales-api/internal/models"
)

func TestDecodeLine_ProducerSale(t *testing.T) {
	line := "12022-01-15T19:20:30-03:00CURSO DE BEM-ESTAR            0000012750JOSE CARLOS"

	decoded, err := DecodeLine(line, 1)
	if err != nil {
		t.Fatalf("Failed to decode line: %v", err)
	}

	if decoded.Type != models.ProducerSale {
		t.Errorf("Expected type PRODUCER_SALE, got %s", decoded.Type)
	}
	if decoded.Product != "CURSO DE BEM-ESTAR" {
		t.Errorf("Expected product 'CURSO DE BEM-ESTAR', got %q", decoded.Product)
	}
	if decoded.ValueCents != 12750 {
		t.Errorf("Expected value 12750, got %d", decoded.ValueCents)
	}
	if decoded.Seller != "JOSE CARLOS" {
		t.Errorf("Expected seller 'JOSE CARLOS', got %q", decoded.Seller)
	}

	want := time.Date(2022, 1, 15, 19, 20, 30, 0, time.FixedZone("", -3*60*60))
	if !decoded.Date.Equal(want) {
		t.Errorf("Expected date %v, got %v", want, decoded.Date)
	}
}

func TestDecodeLine_ReceivedCommission(t *testing.T) {
	line := "42022-01-16T14:13:54-03:00CURSO DE BEM-ESTAR            0000004500JOSE CARLOS"

	decoded, err := DecodeLine(line, 1)
	if err != nil {
		t.Fatalf("Failed to decode line: %v", err)
	}

	if decoded.Type != models.ReceivedCommission {
		t.Errorf("Expected type RECEIVED_COMMISSION, got %s", decoded.Type)
	}
	if decoded.ValueCents != 4500 {
		t.Errorf("Expected value 4500, got %d", decoded.ValueCents)
	}
}

func TestDecodeLine_TooShort(t *testing.T) {
	_, err := DecodeLine("12022-01-15T19:20:30-03:00", 7)
	if err == nil {
		t.Fatal("Expected error for short line, got nil")
	}

	var malformed *MalformedLineError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedLineError, got %T", err)
	}
	if malformed.LineNo != 7 {
		t.Errorf("Expected line number 7, got %d", malformed.LineNo)
	}
}

func TestDecodeLine_UnknownType(t *testing.T) {
	line := "52022-01-15T19:20:30-03:00CURSO DE BEM-ESTAR            0000012750JOSE CARLOS"

	_, err := DecodeLine(line, 1)
	if err == nil {
		t.Fatal("Expected error for unknown type, got nil")
	}

	var unknown *UnknownTransactionTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownTransactionTypeError, got %T", err)
	}
	if unknown.Code != 5 {
		t.Errorf("Expected offending code 5, got %d", unknown.Code)
	}
}

func TestDecodeLine_NonDigitType(t *testing.T) {
	line := "x2022-01-15T19:20:30-03:00CURSO DE BEM-ESTAR            0000012750JOSE CARLOS"

	_, err := DecodeLine(line, 1)
	var unknown *UnknownTransactionTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownTransactionTypeError, got %v", err)
	}
}

func TestDecodeLine_BadDate(t *testing.T) {
	line := "1not-a-valid-date-at-all!!CURSO DE BEM-ESTAR            0000012750JOSE CARLOS"

	_, err := DecodeLine(line, 1)
	var malformed *MalformedLineError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedLineError, got %v", err)
	}
}

func TestDecodeLine_BadValue(t *testing.T) {
	line := "12022-01-15T19:20:30-03:00CURSO DE BEM-ESTAR            00000127xxJOSE CARLOS"

	_, err := DecodeLine(line, 1)
	var malformed *MalformedLineError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedLineError, got %v", err)
	}
}

func TestDecodeLine_TrailingCharactersBelongToSeller(t *testing.T) {
	// Everything after column 66 is a greedy seller capture.
	line := "22022-02-01T10:00:00-03:00PRODUTO                       0000000100MARIA DA SILVA E SOUZA  "

	decoded, err := DecodeLine(line, 1)
	if err != nil {
		t.Fatalf("Failed to decode line: %v", err)
	}
	if decoded.Seller != "MARIA DA SILVA E SOUZA" {
		t.Errorf("Expected trimmed greedy seller, got %q", decoded.Seller)
	}
}

func TestDecodeLine_AccentedProductName(t *testing.T) {
	// 30-character product field counted in characters, not bytes.
	line := "12022-01-15T19:20:30-03:00CURSO DE EDUCAÇÃO FÍSICA      0000012750JOSÉ CARLOS"

	decoded, err := DecodeLine(line, 1)
	if err != nil {
		t.Fatalf("Failed to decode line: %v", err)
	}
	if decoded.Product != "CURSO DE EDUCAÇÃO FÍSICA" {
		t.Errorf("Expected accented product name, got %q", decoded.Product)
	}
	if decoded.ValueCents != 12750 {
		t.Errorf("Expected value 12750, got %d", decoded.ValueCents)
	}
	if decoded.Seller != "JOSÉ CARLOS" {
		t.Errorf("Expected seller 'JOSÉ CARLOS', got %q", decoded.Seller)
	}
}

func TestMapTransactionType(t *testing.T) {
	cases := []struct {
		code int
		want models.TransactionType
	}{
		{1, models.ProducerSale},
		{2, models.AffiliateSale},
		{3, models.PaidCommission},
		{4, models.ReceivedCommission},
	}

	for _, tc := range cases {
		got, err := MapTransactionType(tc.code)
		if err != nil {
			t.Fatalf("Code %d: unexpected error %v", tc.code, err)
		}
		if got != tc.want {
			t.Errorf("Code %d: expected %s, got %s", tc.code, tc.want, got)
		}
	}

	for _, code := range []int{0, 5, -1, 42} {
		if _, err := MapTransactionType(code); err == nil {
			t.Errorf("Code %d: expected error, got nil", code)
		}
	}
}

func TestContribution(t *testing.T) {
	if got := models.PaidCommission.Contribution(500); got != -500 {
		t.Errorf("Expected -500, got %d", got)
	}
	for _, txnType := range []models.TransactionType{models.ProducerSale, models.AffiliateSale, models.ReceivedCommission} {
		if got := txnType.Contribution(500); got != 500 {
			t.Errorf("%s: expected 500, got %d", txnType, got)
		}
	}
}
