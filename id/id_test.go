package id

import (
	"strings"
	"testing"
)

func TestNewIDs(t *testing.T) {
	tests := []struct {
		name    string
		newFunc func() string
		prefix  Prefix
	}{
		{"LedgerID", func() string { return NewLedgerID().String() }, PrefixLedger},
		{"TransactionID", func() string { return NewTransactionID().String() }, PrefixTransaction},
		{"LedgerEntryID", func() string { return NewLedgerEntryID().String() }, PrefixLedgerEntry},
		{"TransactionTypeID", func() string { return NewTransactionTypeID().String() }, PrefixTransactionType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFunc()

			if !strings.HasPrefix(got, string(tt.prefix)+"_") {
				t.Errorf("ID %s does not have prefix %s", got, tt.prefix)
			}

			parts := strings.Split(got, "_")
			if len(parts) != 2 {
				t.Errorf("ID %s does not have correct format", got)
			}

			if len(parts[1]) != 26 {
				t.Errorf("ID suffix %s does not have correct length (got %d, want 26)", parts[1], len(parts[1]))
			}
		})
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name      string
		parseFunc func(string) (ID, error)
		validID   string
		invalidID string
		wrongID   string // ID with wrong prefix
	}{
		{
			"ParseLedgerID",
			ParseLedgerID,
			"ldgr_01h2xcejqtf2nbrexx3vqjhp41",
			"ldgr_invalid",
			"txn_01h2xcejqtf2nbrexx3vqjhp41",
		},
		{
			"ParseTransactionID",
			ParseTransactionID,
			"txn_01h2xcejqtf2nbrexx3vqjhp41",
			"txn_invalid",
			"ldgr_01h2xcejqtf2nbrexx3vqjhp41",
		},
		{
			"ParseLedgerEntryID",
			ParseLedgerEntryID,
			"lent_01h2xcejqtf2nbrexx3vqjhp41",
			"lent_invalid",
			"txn_01h2xcejqtf2nbrexx3vqjhp41",
		},
		{
			"ParseTransactionTypeID",
			ParseTransactionTypeID,
			"ttyp_01h2xcejqtf2nbrexx3vqjhp41",
			"ttyp_invalid",
			"ldgr_01h2xcejqtf2nbrexx3vqjhp41",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := tt.parseFunc(tt.validID)
			if err != nil {
				t.Errorf("Failed to parse valid ID %s: %v", tt.validID, err)
			}
			if parsed.IsNil() {
				t.Errorf("Parsed ID is nil for %s", tt.validID)
			}

			_, err = tt.parseFunc(tt.invalidID)
			if err == nil {
				t.Errorf("Expected error parsing invalid ID %s", tt.invalidID)
			}

			_, err = tt.parseFunc(tt.wrongID)
			if err == nil {
				t.Errorf("Expected error parsing ID with wrong prefix %s", tt.wrongID)
			}
			if err != nil && !strings.Contains(err.Error(), "expected prefix") {
				t.Errorf("Wrong error message for incorrect prefix: %v", err)
			}
		})
	}
}

func TestParseAny(t *testing.T) {
	validIDs := []string{
		"ldgr_01h2xcejqtf2nbrexx3vqjhp41",
		"txn_01h2xcejqtf2nbrexx3vqjhp41",
		"lent_01h2xcejqtf2nbrexx3vqjhp41",
		"ttyp_01h2xcejqtf2nbrexx3vqjhp41",
	}

	for _, idStr := range validIDs {
		parsed, err := ParseAny(idStr)
		if err != nil {
			t.Errorf("Failed to parse valid ID %s: %v", idStr, err)
		}
		if parsed.String() != idStr {
			t.Errorf("Parsed ID mismatch: got %s, want %s", parsed.String(), idStr)
		}
	}

	_, err := ParseAny("invalid_id")
	if err == nil {
		t.Error("Expected error parsing invalid ID")
	}
}

func TestIDUniqueness(t *testing.T) {
	const count = 100
	ids := make(map[string]bool)

	for i := 0; i < count; i++ {
		got := NewLedgerID().String()
		if ids[got] {
			t.Fatalf("Duplicate ID generated: %s", got)
		}
		ids[got] = true
	}

	if len(ids) != count {
		t.Errorf("Expected %d unique IDs, got %d", count, len(ids))
	}
}

func TestIDSortability(t *testing.T) {
	id1 := NewTransactionID()
	id2 := NewTransactionID()
	id3 := NewTransactionID()

	if id1.String() >= id2.String() {
		t.Logf("Warning: IDs may not be perfectly time-ordered: %s >= %s", id1, id2)
	}
	if id2.String() >= id3.String() {
		t.Logf("Warning: IDs may not be perfectly time-ordered: %s >= %s", id2, id3)
	}
}

func TestNilID(t *testing.T) {
	var zero ID
	if !zero.IsNil() {
		t.Error("zero value ID should be nil")
	}
	if zero.String() != "" {
		t.Errorf("zero value ID should stringify to empty, got %q", zero.String())
	}

	v, err := zero.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("zero value ID should Value() to nil, got %v", v)
	}
}

func BenchmarkNewTransactionID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewTransactionID()
	}
}

func BenchmarkParseTransactionID(b *testing.B) {
	txnID := "txn_01h2xcejqtf2nbrexx3vqjhp41"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseTransactionID(txnID)
	}
}
