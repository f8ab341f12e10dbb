package upload

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Code identifies a recognised client-input failure raised while parsing an
// upload. Errors that carry a Code are safe to describe to the caller.
type Code string

const (
	CodeTotalSizeExceeded  Code = "total_size_exceeded"
	CodeMaxFilesExceeded   Code = "max_files_exceeded"
	CodeMalformedMultipart Code = "malformed_multipart"
	CodeInvalidFileType    Code = "invalid_file_type"
	CodeFieldTooLarge      Code = "field_too_large"
	CodeMissingFile        Code = "missing_file"
)

// Error is a coded parse or validation failure. Status is the protocol status
// the parser associates with the code; it is passed through for size and type
// rejections.
type Error struct {
	Code   Code
	Status int
	Err    error
}

func newError(code Code, status int, err error) *Error {
	return &Error{Code: code, Status: status, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "upload: " + string(e.Code)
	}
	return fmt.Sprintf("upload: %s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Kind is the taxonomy bucket a failure is reported under.
type Kind string

const (
	KindFileTooLarge    Kind = "file_too_large"
	KindTooManyFields   Kind = "too_many_fields"
	KindMalformedBody   Kind = "malformed_body"
	KindInvalidFileType Kind = "invalid_file_type"
	KindOther           Kind = "other"
	KindInternal        Kind = "internal"
)

// ClassifyFunc maps a raw parse error to a taxonomy kind. The boolean is false
// when the error carries no recognisable code; such errors are internal and
// never described to the caller.
type ClassifyFunc func(err error) (Kind, bool)

// DefaultClassifier recognises *Error values anywhere in the chain.
func DefaultClassifier(err error) (Kind, bool) {
	var ue *Error
	if !errors.As(err, &ue) || ue.Code == "" {
		return KindInternal, false
	}
	switch ue.Code {
	case CodeTotalSizeExceeded:
		return KindFileTooLarge, true
	case CodeMaxFilesExceeded:
		return KindTooManyFields, true
	case CodeMalformedMultipart:
		return KindMalformedBody, true
	case CodeInvalidFileType:
		return KindInvalidFileType, true
	default:
		return KindOther, true
	}
}

// Messages returned to callers. They never include error details.
const (
	MsgTooManyFields   = "Too many fields in the form. Only single file uploads are supported."
	MsgMalformedBody   = "Malformed multipart form data."
	MsgInvalidFileType = "Invalid file type. Only images are supported."
	MsgBadRequest      = "Bad request."
	MsgInternal        = "internal server error"
)

// FileTooLargeMessage renders the size rejection for a limit in bytes.
func FileTooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("Failed to upload media. Check the file size. Max size is %s MB.", BytesToMegabytes(maxBytes))
}

// BytesToMegabytes formats n bytes as mebibytes with at most two decimals,
// e.g. 5242880 -> "5", 1572864 -> "1.5".
func BytesToMegabytes(n int64) string {
	s := strconv.FormatFloat(float64(n)/(1024*1024), 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Describe returns the HTTP status and caller-safe message for kind. err is
// consulted only for the pass-through status of coded errors.
func Describe(kind Kind, err error, limits Limits) (int, string) {
	switch kind {
	case KindFileTooLarge:
		return codedStatus(err, http.StatusRequestEntityTooLarge), FileTooLargeMessage(limits.MaxTotalFileSize)
	case KindTooManyFields:
		return http.StatusBadRequest, MsgTooManyFields
	case KindMalformedBody:
		return http.StatusBadRequest, MsgMalformedBody
	case KindInvalidFileType:
		return codedStatus(err, http.StatusUnsupportedMediaType), MsgInvalidFileType
	case KindOther:
		return http.StatusBadRequest, MsgBadRequest
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

func codedStatus(err error, fallback int) int {
	var ue *Error
	if errors.As(err, &ue) && ue.Status > 0 {
		return ue.Status
	}
	return fallback
}
