// Package gateway wraps outbound HTTP requests in an ordered chain of hooks
// that attach credentials and react to authorization failures.
package gateway

import "net/http"

// Hook observes and optionally modifies every request sent through a
// Transport.
type Hook interface {
	// BeforeSend runs before the request is sent. It returns the request to
	// send (possibly replaced, e.g. with a new context) or an error to abort.
	BeforeSend(req *http.Request) (*http.Request, error)

	// AfterReceive runs after the base transport returns, including when it
	// returns an error. It returns the response and error to hand to the
	// next hook and, finally, the caller.
	AfterReceive(req *http.Request, resp *http.Response, err error) (*http.Response, error)
}

// HookFuncs is an adapter to build a Hook from ordinary functions.
// Nil fields pass the request or response through unchanged.
type HookFuncs struct {
	Before func(req *http.Request) (*http.Request, error)
	After  func(req *http.Request, resp *http.Response, err error) (*http.Response, error)
}

// BeforeSend calls h.Before if set.
func (h HookFuncs) BeforeSend(req *http.Request) (*http.Request, error) {
	if h.Before == nil {
		return req, nil
	}
	return h.Before(req)
}

// AfterReceive calls h.After if set.
func (h HookFuncs) AfterReceive(req *http.Request, resp *http.Response, err error) (*http.Response, error) {
	if h.After == nil {
		return resp, err
	}
	return h.After(req, resp, err)
}

// Compile-time check that HookFuncs implements Hook.
var _ Hook = HookFuncs{}
