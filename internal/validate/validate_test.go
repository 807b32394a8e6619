package validate_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/validate"
)

func TestEmail(t *testing.T) {
	got, ok := validate.Email("  Alice@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", got)
	for _, bad := range []string{"", "alice", "a@b", "a b@c.de"} {
		_, ok := validate.Email(bad)
		assert.False(t, ok, bad)
	}
}

func TestPassword(t *testing.T) {
	assert.True(t, validate.Password("Passw0rd!"))
	assert.False(t, validate.Password("password"))
	assert.False(t, validate.Password("Sh0rt!"))
	assert.False(t, validate.Password("NoDigitsHere!"))
}

func TestPaymentMethod(t *testing.T) {
	m, ok := validate.PaymentMethod("")
	assert.True(t, ok)
	assert.Equal(t, "cash", m)
	m, ok = validate.PaymentMethod(" Tarjeta de crédito ")
	assert.True(t, ok)
	assert.Equal(t, "Tarjeta de crédito", m)
	_, ok = validate.PaymentMethod("<script>")
	assert.False(t, ok)
}

func TestImage(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)
	ct, ok := validate.Image(png)
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)

	_, ok = validate.Image([]byte("just text"))
	assert.False(t, ok)
	_, ok = validate.Image(nil)
	assert.False(t, ok)
	big := append(append([]byte{}, png...), bytes.Repeat([]byte{0}, validate.MaxImageBytes)...)
	_, ok = validate.Image(big)
	assert.False(t, ok)
}

func TestImageURL(t *testing.T) {
	_, ok := validate.ImageURL("https://cdn.example/p.png")
	assert.True(t, ok)
	for _, bad := range []string{"", "javascript:alert(1)", "/relative.png", "ftp://x/y"} {
		_, ok := validate.ImageURL(bad)
		assert.False(t, ok, bad)
	}
}

func TestSmallValidators(t *testing.T) {
	assert.True(t, validate.Rating(5))
	assert.False(t, validate.Rating(0))
	assert.True(t, validate.Age(30))
	assert.False(t, validate.Age(200))
	_, ok := validate.OptionalName("")
	assert.True(t, ok)
	_, ok = validate.Text("   ", 10)
	assert.False(t, ok)
}
