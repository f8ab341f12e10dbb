package upload

import (
	"errors"
	"io"
)

var errSizeExceeded = errors.New("size limit exceeded")

// meteredReader counts bytes handed to the storage writer and refuses to hand
// over any byte past limit. Read errors from the request are kept aside so
// they can be told apart from storage failures.
type meteredReader struct {
	r        io.Reader
	limit    int64
	n        int64
	exceeded bool
	readErr  error
}

func (m *meteredReader) Read(p []byte) (int, error) {
	if m.exceeded {
		return 0, errSizeExceeded
	}

	// Ask for at most one byte beyond the limit: enough to detect an
	// overflow without pulling a whole extra chunk off the wire.
	remaining := m.limit - m.n
	if int64(len(p)) > remaining+1 {
		p = p[:remaining+1]
	}

	n, err := m.r.Read(p)
	if int64(n) > remaining {
		m.exceeded = true
		m.n += remaining
		return int(remaining), errSizeExceeded
	}
	m.n += int64(n)

	if err != nil && err != io.EOF {
		m.readErr = err
	}
	return n, err
}
