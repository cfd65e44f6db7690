package contentcache

import "net/http"

// Transport is an http.RoundTripper that fetches on behalf of one client
// of a Container.
type Transport struct {
	Container *Container
	ClientID  string
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.Container.Fetch(req.Context(), t.ClientID, req)
}
