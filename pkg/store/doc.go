// Package store implements the archive store (spec component F): a
// disk-resident, content-addressed cache of extracted tarball contents,
// keyed by the expected tarball digest and located inside the project's
// dependency root so materialisation can hardlink rather than copy.
//
// Insert streams a gzip-compressed tarball through decompression while
// verifying its digest, extracting into a temporary directory, then
// atomically renaming into its final digest-named directory. Materialise
// populates an installation directory from a stored digest's contents,
// preferring hardlinks and falling back to copies across filesystems.
package store
