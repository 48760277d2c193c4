package apiclient

import (
	"net/http"
	"net/url"
)

// Request describes one logical API call. It is passed by value; a replay
// after a token refresh is a modified copy, never a mutation of the caller's
// value.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	attempt   int
	bearer    string
	requestID string
}

// Attempt is zero for the first send and one for the replay after a refresh.
func (r Request) Attempt() int {
	return r.attempt
}

// RequestID is the X-Request-ID shared by the first send and its replay.
func (r Request) RequestID() string {
	return r.requestID
}

// WithBearer returns a copy that authenticates with the given access token
// instead of the one held by the session.
func (r Request) WithBearer(accessToken string) Request {
	r.bearer = accessToken
	return r
}

func (r Request) replay(accessToken string) Request {
	r.attempt++
	r.bearer = accessToken
	return r
}

// IsMutating reports whether the verb changes server state.
func (r Request) IsMutating() bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
