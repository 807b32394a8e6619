package validate

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxImageBytes caps uploaded avatars and product pictures.
const MaxImageBytes = 1 << 20

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reMethod = regexp.MustCompile(`^[\p{L}0-9 _-]{1,30}$`)

	imageTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 100 {
		return "", false
	}
	return strings.ToLower(s), reEmail.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > 50 {
		return "", false
	}
	return s, true
}

// OptionalName accepts empty input.
func OptionalName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return Name(s)
}

// Text trims s and checks it is non-empty and at most max runes.
func Text(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && utf8.RuneCountInString(s) <= max
}

// Password enforces a length window and four character classes.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

func Rating(n int) bool { return n >= 1 && n <= 5 }

func Age(n int) bool { return n >= 1 && n <= 150 }

// PaymentMethod defaults to "cash" when blank.
func PaymentMethod(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "cash", true
	}
	return s, reMethod.MatchString(s)
}

// ImageURL accepts absolute http(s) URLs.
func ImageURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2048 {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return s, true
}

// Image sniffs data and reports its content type if it is an allowed image
// no larger than MaxImageBytes.
func Image(data []byte) (string, bool) {
	if len(data) == 0 || len(data) > MaxImageBytes {
		return "", false
	}
	ct := http.DetectContentType(data)
	return ct, imageTypes[ct]
}
