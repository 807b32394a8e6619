// Package invoice formats and sequences invoice numbers of the form
// PREFIX-YYYY-NNNNN. The sequence restarts at 1 every calendar year.
package invoice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const DefaultPrefix = "FAC"

type Number struct {
	Prefix string
	Year   int
	Seq    int
}

func (n Number) String() string { return Format(n.Prefix, n.Year, n.Seq) }

func Format(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%05d", prefix, year, seq)
}

// Parse splits an invoice number into its parts. The sequence must have at
// least five digits.
func Parse(s string) (Number, error) {
	i := strings.LastIndex(s, "-")
	if i <= 0 {
		return Number{}, fmt.Errorf("invoice: malformed number %q", s)
	}
	head, seqPart := s[:i], s[i+1:]
	j := strings.LastIndex(head, "-")
	if j <= 0 {
		return Number{}, fmt.Errorf("invoice: malformed number %q", s)
	}
	prefix, yearPart := head[:j], head[j+1:]
	if len(yearPart) != 4 || len(seqPart) < 5 {
		return Number{}, fmt.Errorf("invoice: malformed number %q", s)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Number{}, fmt.Errorf("invoice: bad year in %q: %w", s, err)
	}
	seq, err := strconv.Atoi(seqPart)
	if err != nil || seq < 1 {
		return Number{}, fmt.Errorf("invoice: bad sequence in %q", s)
	}
	return Number{Prefix: prefix, Year: year, Seq: seq}, nil
}

// YearPattern matches every invoice issued under prefix in year.
func YearPattern(prefix string, year int) string {
	return "^" + regexp.QuoteMeta(fmt.Sprintf("%s-%04d-", prefix, year))
}

// Next returns the number that follows last within year. An empty last, or
// one from another year, starts the sequence at 1.
func Next(prefix string, year int, last string) (string, error) {
	if last == "" {
		return Format(prefix, year, 1), nil
	}
	n, err := Parse(last)
	if err != nil {
		return "", err
	}
	if n.Prefix != prefix || n.Year != year {
		return Format(prefix, year, 1), nil
	}
	return Format(prefix, year, n.Seq+1), nil
}
