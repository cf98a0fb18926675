package lockfile

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/danielhuang/cotton/pkg/depgraph"
	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
	"github.com/danielhuang/cotton/pkg/registry"
)

// DefaultFilename is the lockfile read from and written to the project root.
const DefaultFilename = "cotton-lock.toml"

// schemaVersion is the lockfile's own format version, independent of the
// tool version; it changes only when the on-disk layout changes.
const schemaVersion = 1

// packageEntry is one [[package]] table (spec §6.2).
type packageEntry struct {
	Name         string            `toml:"name"`
	Version      string            `toml:"version"`
	URL          string            `toml:"url"`
	Integrity    string            `toml:"integrity,omitempty"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
}

// document is the root of the TOML file.
type document struct {
	Version  int                          `toml:"version"`
	Packages []packageEntry               `toml:"package"`
	Range    map[string]map[string]string `toml:"range,omitempty"`
}

// Lockfile is the in-memory, round-trippable form of a project's lockfile.
type Lockfile struct {
	doc document
}

// Load reads the lockfile at path. A missing file is not an error: it
// returns an empty, valid Lockfile (spec's load() → Lockfile | NotPresent).
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Lockfile{doc: document{Version: schemaVersion}}, nil
	}
	if err != nil {
		return nil, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "read lockfile %s", path)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, cottonerrors.Wrap(cottonerrors.ErrCodeLockfileStale, err, "parse lockfile %s", path)
	}
	return &Lockfile{doc: doc}, nil
}

// FromGraph builds a Lockfile from a resolved graph and the concrete pin
// chosen for each of the project's direct dependencies, replacing any
// prior in-memory state (spec's populate_from(graph)).
func FromGraph(graph *depgraph.Graph, direct map[depgraph.DirectKey]depgraph.Pin) *Lockfile {
	nodes := graph.Nodes()
	entries := make([]packageEntry, 0, len(nodes))
	for _, n := range nodes {
		<-n.Done()
		entries = append(entries, packageEntry{
			Name:         n.Pin.Name,
			Version:      n.Pin.Version,
			URL:          n.Record.TarballURL,
			Integrity:    n.Record.Integrity.String(),
			Dependencies: edgeVersions(n.Edges()),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Version < entries[j].Version
	})

	rangeTables := map[string]map[string]string{}
	for key, pin := range direct {
		table, ok := rangeTables[key.Name]
		if !ok {
			table = map[string]string{}
			rangeTables[key.Name] = table
		}
		table[key.Range] = pin.Version
	}

	return &Lockfile{doc: document{Version: schemaVersion, Packages: entries, Range: rangeTables}}
}

func edgeVersions(edges map[string]depgraph.Pin) map[string]string {
	if len(edges) == 0 {
		return nil
	}
	out := make(map[string]string, len(edges))
	for dep, pin := range edges {
		out[dep] = pin.Version
	}
	return out
}

// Digests returns every package digest recorded in the lockfile, for the
// archive store's clean-and-garbage-collect maintenance operation.
func (l *Lockfile) Digests() []registry.Digest {
	digests := make([]registry.Digest, 0, len(l.doc.Packages))
	for _, p := range l.doc.Packages {
		if d := parseDigestString(p.Integrity); !d.IsZero() {
			digests = append(digests, d)
		}
	}
	return digests
}

// Lookup implements resolve.LockfileLookup: it reports the version a
// prior run pinned for (name, rng), without checking whether that version
// still satisfies rng — the resolver re-checks that itself.
func (l *Lockfile) Lookup(name, rng string) (string, bool) {
	table, ok := l.doc.Range[name]
	if !ok {
		return "", false
	}
	v, ok := table[rng]
	return v, ok
}

// Record returns the ManifestRecord for (name, version) if the lockfile
// contains it, letting the resolver or installer avoid a registry round
// trip for a pin that was already resolved in a prior run.
func (l *Lockfile) Record(name, version string) (registry.ManifestRecord, bool) {
	for _, p := range l.doc.Packages {
		if p.Name == name && p.Version == version {
			return registry.ManifestRecord{
				Name:         p.Name,
				Version:      p.Version,
				TarballURL:   p.URL,
				Integrity:    parseDigestString(p.Integrity),
				Dependencies: p.Dependencies,
			}, true
		}
	}
	return registry.ManifestRecord{}, false
}

// Save writes the lockfile to path, atomically, but only if the rendered
// content differs from the file currently at path — re-saving an
// unchanged resolution must not touch the file's mtime.
func (l *Lockfile) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(l.doc); err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "encode lockfile")
	}

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, buf.Bytes()) {
		return nil
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cotton-lock-*.tmp")
	if err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInvalidPath, err, "create temp lockfile in %s", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "write temp lockfile")
	}
	if err := tmp.Close(); err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "close temp lockfile")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return cottonerrors.Wrap(cottonerrors.ErrCodeInternal, err, "rename temp lockfile to %s", path)
	}
	return nil
}

func parseDigestString(s string) registry.Digest {
	algorithm, encoded, found := cutOnce(s, "-")
	if !found {
		return registry.Digest{}
	}
	sum, err := hex.DecodeString(encoded)
	if err != nil {
		return registry.Digest{}
	}
	return registry.Digest{Algorithm: algorithm, Sum: sum}
}

func cutOnce(s, sep string) (before, after string, found bool) {
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			return s[:i], s[i+len(sep):], true
		}
	}
	return s, "", false
}
