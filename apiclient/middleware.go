package apiclient

import (
	"net/http"
	"strconv"
	"time"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Middleware decorates a transport.
type Middleware func(next http.RoundTripper) http.RoundTripper

// TraceFunc observes every HTTP exchange. Status is zero on transport failure.
type TraceFunc func(method, path string, status int, elapsed time.Duration)

func ChainMiddleware(transport http.RoundTripper, mw ...Middleware) http.RoundTripper {
	chained := transport
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

func metricsMiddleware(m *Metrics) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			code := "error"
			if err == nil {
				code = strconv.Itoa(resp.StatusCode)
			}
			m.Requests.WithLabelValues(r.Method, code).Inc()
			return resp, err
		})
	}
}

func traceMiddleware(trace TraceFunc) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			status := 0
			if err == nil {
				status = resp.StatusCode
			}
			trace(r.Method, r.URL.Path, status, time.Since(start))
			return resp, err
		})
	}
}
