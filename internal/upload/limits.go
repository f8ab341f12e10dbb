package upload

import (
	"errors"
	"mime"
	"strings"
)

// Limits bound a single upload.
type Limits struct {
	// MaxTotalFileSize is the cumulative byte limit across file parts.
	MaxTotalFileSize int64

	// AllowedMimeTypes lists accepted declared types. Entries are exact
	// ("image/png") or a family wildcard ("image/*"); "*/*" accepts anything.
	AllowedMimeTypes []string

	// MaxFiles is the number of file parts accepted. Zero means one; only
	// single file uploads are supported.
	MaxFiles int

	// MaxFieldSize caps the value of any non-file form field.
	MaxFieldSize int64
}

const defaultMaxFieldSize = 1 << 20

// Validate reports configuration mistakes.
func (l Limits) Validate() error {
	if l.MaxTotalFileSize <= 0 {
		return errors.New("max total file size must be positive")
	}
	if len(l.AllowedMimeTypes) == 0 {
		return errors.New("at least one allowed mime type is required")
	}
	if l.MaxFiles < 0 || l.MaxFiles > 1 {
		return errors.New("only single file uploads are supported")
	}
	if l.MaxFieldSize < 0 {
		return errors.New("max field size must not be negative")
	}
	return nil
}

func (l Limits) withDefaults() Limits {
	if l.MaxFiles == 0 {
		l.MaxFiles = 1
	}
	if l.MaxFieldSize == 0 {
		l.MaxFieldSize = defaultMaxFieldSize
	}
	return l
}

// Allows reports whether the declared mimetype matches the allow-list.
// Parameters such as charset are ignored and matching is case-insensitive.
func (l Limits) Allows(mimetype string) bool {
	mt, _, err := mime.ParseMediaType(mimetype)
	if err != nil {
		return false
	}
	for _, allowed := range l.AllowedMimeTypes {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		switch {
		case allowed == "*/*", allowed == mt:
			return true
		case strings.HasSuffix(allowed, "/*") && strings.HasPrefix(mt, strings.TrimSuffix(allowed, "*")):
			return true
		}
	}
	return false
}
