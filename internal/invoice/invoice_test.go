package invoice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/invoice"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "FAC-2024-00001", invoice.Format("FAC", 2024, 1))
	assert.Equal(t, "FAC-2024-12345", invoice.Format("FAC", 2024, 12345))
}

func TestParse(t *testing.T) {
	n, err := invoice.Parse("FAC-2024-00042")
	require.NoError(t, err)
	assert.Equal(t, invoice.Number{Prefix: "FAC", Year: 2024, Seq: 42}, n)
	assert.Equal(t, "FAC-2024-00042", n.String())

	for _, bad := range []string{"", "FAC", "FAC-2024", "FAC-24-00001", "FAC-2024-1", "FAC-2024-abcde", "FAC-2024-00000"} {
		_, err := invoice.Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestNext(t *testing.T) {
	cases := []struct {
		last string
		year int
		want string
	}{
		{"", 2024, "FAC-2024-00001"},
		{"FAC-2024-00001", 2024, "FAC-2024-00002"},
		{"FAC-2024-00099", 2024, "FAC-2024-00100"},
		{"FAC-2024-00456", 2025, "FAC-2025-00001"},
	}
	for _, tc := range cases {
		got, err := invoice.Next("FAC", tc.year, tc.last)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := invoice.Next("FAC", 2024, "garbage")
	assert.Error(t, err)
}

func TestYearPattern(t *testing.T) {
	assert.Equal(t, `^FAC-2024-`, invoice.YearPattern("FAC", 2024))
	assert.Equal(t, `^F\.A-2024-`, invoice.YearPattern("F.A", 2024))
}
