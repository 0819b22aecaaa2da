// Package docnum formats and allocates document numbers of the form
// PREFIX-YEAR-NNN, where NNN restarts at 001 every calendar year.
package docnum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document prefixes.
const (
	PrefixQuotation     = "COT"
	PrefixServiceOrder  = "OS"
	PrefixPurchaseOrder = "OC"
)

// ErrMalformed is returned by Parse for strings that are not document numbers.
var ErrMalformed = errors.New("docnum: malformed document number")

// Number is a parsed document number.
type Number struct {
	Prefix string
	Year   int
	Seq    int64
}

func (n Number) String() string {
	return Format(n.Prefix, n.Year, n.Seq)
}

// Format renders PREFIX-YEAR-NNN with at least three sequence digits.
func Format(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}

// Parse splits a document number. Prefixes may not contain '-'.
func Parse(s string) (Number, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] == "" {
		return Number{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return Number{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	seq, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq < 0 {
		return Number{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return Number{Prefix: parts[0], Year: year, Seq: seq}, nil
}

// Next derives the number following the greatest existing number with prefix.
// The sequence restarts at 001 when the latest number belongs to another year
// than now. Unparseable entries are ignored.
//
// Next is only safe for a single writer; the server allocates numbers with a
// Sequence instead.
func Next(prefix string, now time.Time, existing []string) string {
	year := now.Year()
	var latest *Number
	for _, s := range existing {
		n, err := Parse(s)
		if err != nil || n.Prefix != prefix {
			continue
		}
		if latest == nil || n.Year > latest.Year || (n.Year == latest.Year && n.Seq > latest.Seq) {
			latest = &n
		}
	}
	if latest == nil || latest.Year != year {
		return Format(prefix, year, 1)
	}
	return Format(prefix, year, latest.Seq+1)
}
