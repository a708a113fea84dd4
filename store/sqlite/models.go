package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/ledger/accounting"
	"github.com/xraph/ledger/id"
	"github.com/xraph/ledger/types"
)

type ledgerModel struct {
	grove.BaseModel `grove:"table:ledgers"`

	ID                string    `grove:"id,pk"`
	Number            int64     `grove:"number"`
	Name              string    `grove:"name"`
	Description       string    `grove:"description"`
	IncreasedByDebits bool      `grove:"increased_by_debits"`
	CreatedAt         time.Time `grove:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"`
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

type transactionTypeModel struct {
	grove.BaseModel `grove:"table:transaction_types"`

	ID          string    `grove:"id,pk"`
	Name        string    `grove:"name"`
	Description string    `grove:"description"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
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

type transactionModel struct {
	grove.BaseModel `grove:"table:transactions"`

	ID        string    `grove:"id,pk"`
	CreatedBy string    `grove:"created_by"`
	Notes     string    `grove:"notes"`
	PostedAt  time.Time `grove:"posted_at"`
	TypeID    string    `grove:"type_id"`
	Voids     *string   `grove:"voids"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
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
		s := t.Voids.String()
		m.Voids = &s
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

type ledgerEntryModel struct {
	grove.BaseModel `grove:"table:ledger_entries"`

	ID            string       `grove:"id,pk"`
	TransactionID string       `grove:"transaction_id"`
	LedgerID      string       `grove:"ledger_id"`
	Amount        types.Amount `grove:"amount"`
	CreatedAt     time.Time    `grove:"created_at"`
	UpdatedAt     time.Time    `grove:"updated_at"`
}

func toLedgerEntryModel(e *accounting.LedgerEntry) *ledgerEntryModel {
	return &ledgerEntryModel{
		ID:            e.ID.String(),
		TransactionID: e.TransactionID.String(),
		LedgerID:      e.LedgerID.String(),
		Amount:        e.Amount,
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
	return accounting.LedgerEntry{
		Entity:        types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            entryID,
		TransactionID: txnID,
		LedgerID:      ledgerID,
		Amount:        m.Amount,
	}, nil
}

type evidenceLinkModel struct {
	grove.BaseModel `grove:"table:evidence_links"`

	TransactionID   string `grove:"transaction_id,pk"`
	EvidenceTypeTag string `grove:"evidence_type_tag,pk"`
	EvidenceID      int64  `grove:"evidence_id,pk"`
}

func toEvidenceLinkModel(l *accounting.EvidenceLink) *evidenceLinkModel {
	return &evidenceLinkModel{
		TransactionID:   l.TransactionID.String(),
		EvidenceTypeTag: l.TypeTag,
		EvidenceID:      l.ID,
	}
}

func fromEvidenceLinkModel(m *evidenceLinkModel) accounting.EvidenceItem {
	return accounting.EvidenceItem{TypeTag: m.EvidenceTypeTag, ID: m.EvidenceID}
}

type ledgerBalanceModel struct {
	grove.BaseModel `grove:"table:ledger_balances"`

	LedgerID        string       `grove:"ledger_id,pk"`
	EvidenceTypeTag string       `grove:"evidence_type_tag,pk"`
	EvidenceID      int64        `grove:"evidence_id,pk"`
	Balance         types.Amount `grove:"balance"`
	CreatedAt       time.Time    `grove:"created_at"`
	UpdatedAt       time.Time    `grove:"updated_at"`
}

func fromLedgerBalanceModel(m *ledgerBalanceModel) (*accounting.LedgerBalance, error) {
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
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
		Balance: m.Balance,
	}, nil
}
