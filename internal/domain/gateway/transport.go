package gateway

import (
	"errors"
	"net/http"
)

// Transport is an http.RoundTripper that runs a hook chain around a base
// transport.
//
// Flow: clone request -> BeforeSend hooks in order -> base.RoundTrip ->
// AfterReceive hooks in reverse order -> caller.
//
// There is no retry, backoff, or timeout of its own; cancellation comes from
// the request context and the http.Client.
type Transport struct {
	base  http.RoundTripper
	hooks []Hook
}

// Compile-time check that Transport implements http.RoundTripper.
var _ http.RoundTripper = (*Transport)(nil)

// NewTransport creates a Transport. A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper, hooks ...Hook) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:  base,
		hooks: append([]Hook(nil), hooks...),
	}
}

// Use returns a copy of t with additional hooks appended to the chain.
func (t *Transport) Use(hooks ...Hook) *Transport {
	combined := make([]Hook, 0, len(t.hooks)+len(hooks))
	combined = append(combined, t.hooks...)
	combined = append(combined, hooks...)
	return &Transport{base: t.base, hooks: combined}
}

// Hooks returns the number of hooks in the chain.
func (t *Transport) Hooks() int {
	return len(t.hooks)
}

// RoundTrip implements http.RoundTripper.
//
// If a BeforeSend hook fails, the hooks that already ran see the error in
// AfterReceive, the request body is closed, and the error is returned
// unchanged.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("gateway: nil request")
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())

	ran := 0
	for _, h := range t.hooks {
		next, err := h.BeforeSend(out)
		if err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			_, err = t.unwind(out, ran, nil, err)
			return nil, err
		}
		if next != nil {
			out = next
		}
		ran++
	}

	resp, err := t.base.RoundTrip(out)
	return t.unwind(out, ran, resp, err)
}

// unwind runs AfterReceive on the first n hooks in reverse order.
func (t *Transport) unwind(req *http.Request, n int, resp *http.Response, err error) (*http.Response, error) {
	for i := n - 1; i >= 0; i-- {
		resp, err = t.hooks[i].AfterReceive(req, resp, err)
	}
	return resp, err
}
