package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"storefront/internal/domain"
)

type holder struct {
	Image domain.ImageRef `bson:"image,omitempty"`
}

func roundTrip(t *testing.T, in holder) holder {
	t.Helper()
	raw, err := bson.Marshal(in)
	require.NoError(t, err)
	var out holder
	require.NoError(t, bson.Unmarshal(raw, &out))
	return out
}

func TestImageRefBSON(t *testing.T) {
	url := roundTrip(t, holder{Image: domain.ImageURL("https://cdn.example/a.png")})
	assert.Equal(t, domain.ImageURLKind, url.Image.Kind)
	assert.Equal(t, "https://cdn.example/a.png", url.Image.URL)

	data := []byte{0xff, 0xd8, 0xff, 0x00}
	emb := roundTrip(t, holder{Image: domain.EmbeddedImage(data, "image/jpeg")})
	assert.Equal(t, domain.ImageEmbedded, emb.Image.Kind)
	assert.Equal(t, data, emb.Image.Data)

	raw, err := bson.Marshal(holder{})
	require.NoError(t, err)
	assert.NotContains(t, bson.Raw(raw).String(), "image")
}

func TestImageRefLegacyShapes(t *testing.T) {
	var h holder
	raw, _ := bson.Marshal(bson.M{"image": "https://old.example/x.jpg"})
	require.NoError(t, bson.Unmarshal(raw, &h))
	assert.Equal(t, domain.ImageURL("https://old.example/x.jpg"), h.Image)

	raw, _ = bson.Marshal(bson.M{"image": bson.M{"data": "aGVsbG8=", "content_type": "image/png"}})
	require.NoError(t, bson.Unmarshal(raw, &h))
	assert.Equal(t, domain.ImageEmbedded, h.Image.Kind)
	assert.Equal(t, []byte("hello"), h.Image.Data)
	assert.Equal(t, "image/png", h.Image.ContentType)

	raw, _ = bson.Marshal(bson.M{"image": bson.M{"content_type": "image/png"}})
	require.NoError(t, bson.Unmarshal(raw, &h))
	assert.True(t, h.Image.IsZero())

	raw, _ = bson.Marshal(bson.M{"image": bson.M{"data": "%%%"}})
	assert.Error(t, bson.Unmarshal(raw, &h))

	raw, _ = bson.Marshal(bson.M{"image": 12})
	assert.Error(t, bson.Unmarshal(raw, &h))
}

func TestImageRefDisplayURL(t *testing.T) {
	assert.Equal(t, "https://x/y.png", domain.ImageURL("https://x/y.png").DisplayURL())
	assert.Equal(t, "data:image/png;base64,aGk=", domain.EmbeddedImage([]byte("hi"), "image/png").DisplayURL())
	assert.Equal(t, domain.DefaultProductImage, domain.ImageRef{}.DisplayURL())
	assert.Equal(t, domain.DefaultAvatarImage, domain.ImageRef{}.DisplayURLOr(domain.DefaultAvatarImage))
	assert.True(t, strings.HasPrefix(domain.DefaultProductImage, "data:image/svg+xml;base64,"))

	b, err := json.Marshal(domain.Product{Name: "p", Image: domain.ImageURL("https://x/y.png")})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"image_url":"https://x/y.png"`)
}

func TestEmbeddedImageDefaults(t *testing.T) {
	assert.True(t, domain.EmbeddedImage(nil, "image/png").IsZero())
	assert.Equal(t, "image/jpeg", domain.EmbeddedImage([]byte{1}, "").ContentType)
	assert.True(t, domain.ImageURL("").IsZero())
}
