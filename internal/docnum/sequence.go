package docnum

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoserv/ecoserv/internal/platform/db"
)

// Sequence allocates document numbers from the document_sequences table.
// Each call atomically increments the counter for (prefix, year), so numbers
// stay unique across concurrent writers.
type Sequence struct {
	prefix string
}

// NewSequence returns a Sequence for prefix.
func NewSequence(prefix string) Sequence {
	return Sequence{prefix: prefix}
}

// Prefix returns the document prefix.
func (s Sequence) Prefix() string {
	return s.prefix
}

// Next allocates the next number for the year of at. Pass a transaction to
// roll the counter back together with the document insert.
func (s Sequence) Next(ctx context.Context, q db.DBTX, at time.Time) (string, error) {
	year := at.Year()
	var seq int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, year, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, year)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq`, s.prefix, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("docnum: allocate %s number: %w", s.prefix, err)
	}
	return Format(s.prefix, year, seq), nil
}
