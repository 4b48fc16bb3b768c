package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DocumentType identifies a numbered document family.
type DocumentType string

const (
	DocSale  DocumentType = "SALE"
	DocOrder DocumentType = "ORDER"
)

// DocumentService hands out human-readable sequential numbers (V001, CMD001, ...).
type DocumentService interface {
	// NextNumberTx reserves the next number for (boutique, docType) inside the caller's
	// transaction. The counter row stays locked until that transaction ends, so two
	// concurrent callers can never obtain the same number; a rollback releases it.
	NextNumberTx(ctx context.Context, tx pgx.Tx, boutiqueID int, docType DocumentType) (string, error)
}

type documentService struct{}

func NewDocumentService() DocumentService {
	return &documentService{}
}

func (s *documentService) NextNumberTx(ctx context.Context, tx pgx.Tx, boutiqueID int, docType DocumentType) (string, error) {
	var prefix string
	var padding int
	err := tx.QueryRow(ctx,
		"SELECT prefix, padding FROM document_types WHERE code = $1", string(docType),
	).Scan(&prefix, &padding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("document type %s not configured", docType)
		}
		return "", fmt.Errorf("failed to get document type %s: %w", docType, err)
	}

	// Atomic increment-and-return; the upsert takes a row lock on the counter.
	var lastNumber int64
	err = tx.QueryRow(ctx, `
		INSERT INTO document_sequences (boutique_id, doc_type, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (boutique_id, doc_type)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, boutiqueID, string(docType)).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate sequence number: %w", err)
	}

	return FormatDocumentNumber(prefix, padding, lastNumber), nil
}

// FormatDocumentNumber zero-pads n to padding digits; wider numbers are not truncated.
func FormatDocumentNumber(prefix string, padding int, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, padding, n)
}
