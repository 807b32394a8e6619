package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type ImageKind string

const (
	ImageNone     ImageKind = ""
	ImageURLKind  ImageKind = "url"
	ImageEmbedded ImageKind = "embedded"
)

// ImageRef is either a remote URL, an embedded payload or nothing. Older
// documents stored a bare URL string or {data: <base64>, content_type}; both
// shapes decode into the matching variant.
type ImageRef struct {
	Kind        ImageKind
	URL         string
	Data        []byte
	ContentType string
}

func ImageURL(u string) ImageRef {
	if u == "" {
		return ImageRef{}
	}
	return ImageRef{Kind: ImageURLKind, URL: u}
}

func EmbeddedImage(data []byte, contentType string) ImageRef {
	if len(data) == 0 {
		return ImageRef{}
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return ImageRef{Kind: ImageEmbedded, Data: data, ContentType: contentType}
}

func (r ImageRef) IsZero() bool { return r.Kind == ImageNone }

// DisplayURL resolves the reference to something an <img src> accepts, falling
// back to the product placeholder.
func (r ImageRef) DisplayURL() string { return r.DisplayURLOr(DefaultProductImage) }

func (r ImageRef) DisplayURLOr(fallback string) string {
	switch r.Kind {
	case ImageURLKind:
		return r.URL
	case ImageEmbedded:
		return "data:" + r.ContentType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
	default:
		return fallback
	}
}

func (r ImageRef) MarshalJSON() ([]byte, error) { return json.Marshal(r.DisplayURL()) }

type imageDoc struct {
	Kind        ImageKind `bson:"kind"`
	URL         string    `bson:"url,omitempty"`
	Data        []byte    `bson:"data,omitempty"`
	ContentType string    `bson:"content_type,omitempty"`
}

func (r ImageRef) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if r.Kind == ImageNone {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(imageDoc{Kind: r.Kind, URL: r.URL, Data: r.Data, ContentType: r.ContentType})
}

func (r *ImageRef) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*r = ImageRef{}
		return nil
	case bsontype.String:
		*r = ImageURL(raw.StringValue())
		return nil
	case bsontype.EmbeddedDocument:
		return r.fromDocument(raw.Document())
	}
	return fmt.Errorf("image: unsupported bson type %s", t)
}

func (r *ImageRef) fromDocument(doc bson.Raw) error {
	ct, _ := doc.Lookup("content_type").StringValueOK()
	kind, _ := doc.Lookup("kind").StringValueOK()
	if ImageKind(kind) == ImageURLKind {
		u, _ := doc.Lookup("url").StringValueOK()
		*r = ImageURL(u)
		return nil
	}
	payload := doc.Lookup("data")
	switch payload.Type {
	case bsontype.Binary:
		_, b, _ := payload.BinaryOK()
		*r = EmbeddedImage(b, ct)
	case bsontype.String:
		b, err := base64.StdEncoding.DecodeString(payload.StringValue())
		if err != nil {
			return fmt.Errorf("image: decode legacy payload: %w", err)
		}
		*r = EmbeddedImage(b, ct)
	default:
		*r = ImageRef{}
	}
	return nil
}

var (
	DefaultProductImage = svgDataURI(`<svg width="400" height="400" xmlns="http://www.w3.org/2000/svg"><rect width="400" height="400" fill="#f3f4f6"/><text x="200" y="210" font-size="40" fill="#9ca3af" text-anchor="middle" font-family="Arial">No image</text></svg>`)
	DefaultAvatarImage  = svgDataURI(`<svg width="200" height="200" xmlns="http://www.w3.org/2000/svg"><circle cx="100" cy="100" r="80" fill="#2563eb"/><text x="100" y="120" font-size="80" fill="white" text-anchor="middle" font-family="Arial">?</text></svg>`)
)

func svgDataURI(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}
