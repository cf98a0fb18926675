package cache

import "strings"

// Keyer builds namespaced cache keys for the registry client and resolver,
// keeping key construction in one place so callers never hand-assemble
// strings that might collide across registries or package names.
type Keyer interface {
	// HTTPKey namespaces a raw cache key under prefix, e.g. for a single
	// GET response that isn't package-metadata or tarball shaped.
	HTTPKey(prefix, key string) string

	// MetadataKey addresses the cached package.json-equivalent metadata
	// document for name as served by registry.
	MetadataKey(registry, name string) string

	// TarballKey addresses a cached, already-fetched tarball for an
	// exact (name, version) pin.
	TarballKey(registry, name, version string) string
}

// DefaultKeyer builds plain colon-joined keys with no additional scoping.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a Keyer with no namespace prefix.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) HTTPKey(prefix, key string) string {
	return join("http", prefix, key)
}

func (DefaultKeyer) MetadataKey(registry, name string) string {
	return join("metadata", registry, name)
}

func (DefaultKeyer) TarballKey(registry, name, version string) string {
	return join("tarball", registry, name, version)
}

// ScopedKeyer wraps another Keyer and prepends a fixed prefix to every key
// it produces, so that (for example) per-project caches sharing one
// underlying Cache backend never collide.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a Keyer that prepends prefix to every key built by
// inner. If inner is nil, keys are built with [NewDefaultKeyer] first.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return ScopedKeyer{inner: inner, prefix: prefix}
}

func (s ScopedKeyer) HTTPKey(prefix, key string) string {
	return s.prefix + s.inner.HTTPKey(prefix, key)
}

func (s ScopedKeyer) MetadataKey(registry, name string) string {
	return s.prefix + s.inner.MetadataKey(registry, name)
}

func (s ScopedKeyer) TarballKey(registry, name, version string) string {
	return s.prefix + s.inner.TarballKey(registry, name, version)
}

func join(parts ...string) string {
	return strings.Join(parts, ":")
}
