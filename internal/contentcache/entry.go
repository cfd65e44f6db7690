package contentcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxEntryBytes bounds the size of a single cached body.
const maxEntryBytes = 32 << 20

// Entry is a captured response.
type Entry struct {
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// Key identifies a cached request by method and absolute URL. The URL
// fragment never reaches the network and is ignored.
func Key(method string, u *url.URL) string {
	clean := *u
	clean.Fragment = ""
	clean.RawFragment = ""
	return method + " " + clean.String()
}

// Response rebuilds an *http.Response for req from the entry.
func (e *Entry) Response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        strconv.Itoa(e.Status) + " " + http.StatusText(e.Status),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// capture reads resp fully and returns an entry for it together with a
// replacement response the caller can still consume.
func capture(req *http.Request, resp *http.Response, now time.Time) (*Entry, *http.Response, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEntryBytes+1))
	resp.Body.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxEntryBytes {
		return nil, nil, fmt.Errorf("response body of %s exceeds %d bytes", req.URL, maxEntryBytes)
	}

	entry := &Entry{
		Method:   req.Method,
		URL:      req.URL.String(),
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: now,
	}

	clone := *resp
	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.ContentLength = int64(len(body))
	return entry, &clone, nil
}
