// Package httputil provides HTTP retry infrastructure for registry clients.
//
// # Overview
//
// [Retry] wraps an operation with automatic retry and exponential backoff,
// for use by registry.Client and any other component that talks to a
// remote HTTP API:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := http.Get(url)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    return resp.Body.Close()
//	})
//
// Only errors wrapped in [RetryableError] (directly via the struct literal
// or via [Retryable]) trigger a retry; any other error returned by the
// operation aborts the loop immediately. [RetryWithBackoff] is a
// convenience wrapper around [Retry] with the package's default attempt
// count and base delay.
package httputil
