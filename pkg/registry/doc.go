// Package registry implements the registry client (spec component A): it
// fetches per-package metadata documents and tarballs from a JavaScript
// package registry over HTTP.
//
// [Client] guarantees at-most-one in-flight metadata request per package
// name via golang.org/x/sync/singleflight, memoises successful metadata
// results through a [cache.Cache] backend, and retries transient network
// failures with exponential backoff. Memoised entries carry a 24-hour TTL
// and last only as long as the backend keeps them; with a
// cache.NewNullCache() backend nothing is memoised and repeated calls for
// a name each hit the registry. A 404 on metadata surfaces as
// errors.ErrCodeUnknownPackage. The client does not verify tarball
// digests; the archive store checks the stream and reports a mismatch as
// errors.ErrCodeIntegrityFailure.
package registry
