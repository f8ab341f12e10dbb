package upload

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		ok   bool
	}{
		{name: "size", err: newError(CodeTotalSizeExceeded, 413, nil), kind: KindFileTooLarge, ok: true},
		{name: "file count", err: newError(CodeMaxFilesExceeded, 400, nil), kind: KindTooManyFields, ok: true},
		{name: "framing", err: newError(CodeMalformedMultipart, 400, nil), kind: KindMalformedBody, ok: true},
		{name: "type", err: newError(CodeInvalidFileType, 415, nil), kind: KindInvalidFileType, ok: true},
		{name: "field too large", err: newError(CodeFieldTooLarge, 400, nil), kind: KindOther, ok: true},
		{name: "unknown code", err: newError(Code("something_new"), 400, nil), kind: KindOther, ok: true},
		{name: "wrapped", err: fmt.Errorf("parse: %w", newError(CodeMaxFilesExceeded, 400, nil)), kind: KindTooManyFields, ok: true},
		{name: "plain error", err: errors.New("disk full"), kind: KindInternal, ok: false},
		{name: "empty code", err: &Error{}, kind: KindInternal, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := DefaultClassifier(tt.err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestDescribe(t *testing.T) {
	limits := Limits{MaxTotalFileSize: 5 << 20}

	tests := []struct {
		name   string
		kind   Kind
		err    error
		status int
		msg    string
	}{
		{
			name:   "file too large passes status through",
			kind:   KindFileTooLarge,
			err:    newError(CodeTotalSizeExceeded, http.StatusRequestEntityTooLarge, nil),
			status: http.StatusRequestEntityTooLarge,
			msg:    "Failed to upload media. Check the file size. Max size is 5 MB.",
		},
		{
			name:   "file too large without coded status",
			kind:   KindFileTooLarge,
			err:    errors.New("too big"),
			status: http.StatusRequestEntityTooLarge,
			msg:    "Failed to upload media. Check the file size. Max size is 5 MB.",
		},
		{name: "too many fields", kind: KindTooManyFields, status: http.StatusBadRequest, msg: MsgTooManyFields},
		{name: "malformed", kind: KindMalformedBody, status: http.StatusBadRequest, msg: MsgMalformedBody},
		{
			name:   "invalid type uses configured status",
			kind:   KindInvalidFileType,
			err:    newError(CodeInvalidFileType, http.StatusUnprocessableEntity, nil),
			status: http.StatusUnprocessableEntity,
			msg:    MsgInvalidFileType,
		},
		{name: "invalid type default", kind: KindInvalidFileType, status: http.StatusUnsupportedMediaType, msg: MsgInvalidFileType},
		{name: "other", kind: KindOther, err: errors.New("secret detail"), status: http.StatusBadRequest, msg: MsgBadRequest},
		{name: "internal", kind: KindInternal, err: errors.New("secret detail"), status: http.StatusInternalServerError, msg: MsgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Describe(tt.kind, tt.err, limits)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
			assert.NotContains(t, msg, "secret")
		})
	}
}

func TestBytesToMegabytes(t *testing.T) {
	tests := map[int64]string{
		5 << 20:  "5",
		1572864:  "1.5",
		1 << 30:  "1024",
		2621440:  "2.5",
		1048576:  "1",
		10485760: "10",
		1258291:  "1.2",
		0:        "0",
	}
	for in, want := range tests {
		assert.Equal(t, want, BytesToMegabytes(in), "bytes %d", in)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := newError(CodeMalformedMultipart, http.StatusBadRequest, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "upload: malformed_multipart: unexpected EOF", err.Error())
	assert.Equal(t, "upload: missing_file", newError(CodeMissingFile, 400, nil).Error())
}
