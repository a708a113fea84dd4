package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/types"
)

// ==================== Ledger models ====================

type ledgerModel struct {
	grove.BaseModel `grove:"table:ledgers"`

	ID                string    `grove:"id,pk"               bson:"_id"`
	Number            int64     `grove:"number"               bson:"number"`
	Name              string    `grove:"name"                 bson:"name"`
	Description       string    `grove:"description"          bson:"description"`
	IncreasedByDebits bool      `grove:"increased_by_debits"  bson:"increased_by_debits"`
	CreatedAt         time.Time `grove:"created_at"           bson:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"           bson:"updated_at"`
}

func toLedgerModel(l *accounting.Ledger) *ledgerModel {
	return &ledgerModel{
		ID:                l.ID.String(),
		Number:            l.Number,
		Name:              l.Name,
		Description:       l.Description,
		IncreasedByDebits: l.IncreasedByDebits,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func fromLedgerModel(m *ledgerModel) (*accounting.Ledger, error) {
	ledgerID, err := id.ParseLedgerID(m.ID)
	if err != nil {
		return nil, err
	}
	return &accounting.Ledger{
		Entity:            types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:                ledgerID,
		Number:            m.Number,
		Name:              m.Name,
		Description:       m.Description,
		IncreasedByDebits: m.IncreasedByDebits,
	}, nil
}

// ==================== Transaction type models ====================

type transactionTypeModel struct {
	grove.BaseModel `grove:"table:transaction_types"`

	ID          string    `grove:"id,pk"       bson:"_id"`
	Name        string    `grove:"name"        bson:"name"`
	Description string    `grove:"description" bson:"description"`
	CreatedAt   time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toTransactionTypeModel(t *accounting.TransactionType) *transactionTypeModel {
	return &transactionTypeModel{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func fromTransactionTypeModel(m *transactionTypeModel) (*accounting.TransactionType, error) {
	typeID, err := id.ParseTransactionTypeID(m.ID)
	if err != nil {
		return nil, err
	}
	return &accounting.TransactionType{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          typeID,
		Name:        m.Name,
		Description: m.Description,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:transactions"`

	ID        string    `grove:"id,pk"       bson:"_id"`
	CreatedBy string    `grove:"created_by"  bson:"created_by"`
	Notes     string    `grove:"notes"       bson:"notes"`
	PostedAt  time.Time `grove:"posted_at"   bson:"posted_at"`
	TypeID    string    `grove:"type_id"     bson:"type_id"`
	Voids     *string   `grove:"voids"       bson:"voids,omitempty"`
	CreatedAt time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toTransactionModel(t *accounting.Transaction) *transactionModel {
	m := &transactionModel{
		ID:        t.ID.String(),
		CreatedBy: t.CreatedBy,
		Notes:     t.Notes,
		PostedAt:  t.PostedAt,
		TypeID:    t.TypeID.String(),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Voids != nil {
		v := t.Voids.String()
		m.Voids = &v
	}
	return m
}

func fromTransactionModel(m *transactionModel) (*accounting.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	typeID, err := id.ParseTransactionTypeID(m.TypeID)
	if err != nil {
		return nil, err
	}

	t := &accounting.Transaction{
		Entity:    types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:        txnID,
		CreatedBy: m.CreatedBy,
		Notes:     m.Notes,
		PostedAt:  m.PostedAt,
		TypeID:    typeID,
	}
	if m.Voids != nil {
		v, err := id.ParseTransactionID(*m.Voids)
		if err != nil {
			return nil, err
		}
		t.Voids = &v
	}
	return t, nil
}

// ==================== Ledger entry models ====================

// Amount is stored as its canonical decimal string; types.Amount wraps an
// unexported decimal.Decimal with no bson tags of its own.
type ledgerEntryModel struct {
	grove.BaseModel `grove:"table:ledger_entries"`

	ID            string    `grove:"id,pk"          bson:"_id"`
	TransactionID string    `grove:"transaction_id" bson:"transaction_id"`
	LedgerID      string    `grove:"ledger_id"      bson:"ledger_id"`
	Amount        string    `grove:"amount"         bson:"amount"`
	CreatedAt     time.Time `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"     bson:"updated_at"`
}

func toLedgerEntryModel(e *accounting.LedgerEntry) *ledgerEntryModel {
	return &ledgerEntryModel{
		ID:            e.ID.String(),
		TransactionID: e.TransactionID.String(),
		LedgerID:      e.LedgerID.String(),
		Amount:        e.Amount.String(),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func fromLedgerEntryModel(m *ledgerEntryModel) (accounting.LedgerEntry, error) {
	entryID, err := id.ParseLedgerEntryID(m.ID)
	if err != nil {
		return accounting.LedgerEntry{}, err
	}
	txnID, err := id.ParseTransactionID(m.TransactionID)
	if err != nil {
		return accounting.LedgerEntry{}, err
	}
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return accounting.LedgerEntry{}, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return accounting.LedgerEntry{}, err
	}
	return accounting.LedgerEntry{
		Entity:        types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            entryID,
		TransactionID: txnID,
		LedgerID:      ledgerID,
		Amount:        amount,
	}, nil
}

// ==================== Evidence link models ====================

type evidenceLinkModel struct {
	grove.BaseModel `grove:"table:evidence_links"`

	ID              string `grove:"id,pk"               bson:"_id"`
	TransactionID   string `grove:"transaction_id"      bson:"transaction_id"`
	EvidenceTypeTag string `grove:"evidence_type_tag"   bson:"evidence_type_tag"`
	EvidenceID      int64  `grove:"evidence_id"         bson:"evidence_id"`
}

func toEvidenceLinkModel(l *accounting.EvidenceLink) *evidenceLinkModel {
	return &evidenceLinkModel{
		ID:              l.TransactionID.String() + ":" + l.TypeTag + ":" + itoa(l.ID),
		TransactionID:   l.TransactionID.String(),
		EvidenceTypeTag: l.TypeTag,
		EvidenceID:      l.ID,
	}
}

func fromEvidenceLinkModel(m *evidenceLinkModel) accounting.EvidenceItem {
	return accounting.EvidenceItem{TypeTag: m.EvidenceTypeTag, ID: m.EvidenceID}
}

func itoa(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// ==================== Ledger balance models ====================

type ledgerBalanceModel struct {
	grove.BaseModel `grove:"table:ledger_balances"`

	ID              string    `grove:"id,pk"               bson:"_id"`
	LedgerID        string    `grove:"ledger_id"           bson:"ledger_id"`
	EvidenceTypeTag string    `grove:"evidence_type_tag"   bson:"evidence_type_tag"`
	EvidenceID      int64     `grove:"evidence_id"         bson:"evidence_id"`
	Balance         string    `grove:"balance"             bson:"balance"`
	CreatedAt       time.Time `grove:"created_at"          bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"          bson:"updated_at"`
}

func balanceKey(ledgerID, tag string, evidenceID int64) string {
	return ledgerID + ":" + tag + ":" + itoa(evidenceID)
}

func fromLedgerBalanceModel(m *ledgerBalanceModel) (*accounting.LedgerBalance, error) {
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return nil, err
	}
	balance, err := types.ParseAmount(m.Balance)
	if err != nil {
		return nil, err
	}
	return &accounting.LedgerBalance{
		Entity:   types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		LedgerID: ledgerID,
		EvidenceItem: accounting.EvidenceItem{
			TypeTag: m.EvidenceTypeTag,
			ID:      m.EvidenceID,
		},
		Balance: balance,
	}, nil
}
