package manifest

import (
	"encoding/json"
	"io"
	"os"

	cottonerrors "github.com/danielhuang/cotton/pkg/errors"
)

// DefaultFilename is the manifest file read from the project root.
const DefaultFilename = "package.json"

// Manifest is a project's parsed manifest (spec §6.1). Only the fields the
// resolver and installer need are modelled; every other top-level field is
// parsed but discarded.
type Manifest struct {
	Name                 string
	Version              string
	Dependencies         map[string]string
	OptionalDependencies map[string]string
}

type wireManifest struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// Load reads and parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cottonerrors.Wrap(cottonerrors.ErrCodeInvalidManifest, err, "open manifest %s", path)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse decodes a manifest document from r. name identifies the source
// (typically a file path) for error messages.
func Parse(r io.Reader, name string) (*Manifest, error) {
	var wire wireManifest
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, cottonerrors.Wrap(cottonerrors.ErrCodeManifestParse, err, "parse manifest %s", name)
	}

	m := &Manifest{
		Name:                 wire.Name,
		Version:              wire.Version,
		Dependencies:         wire.Dependencies,
		OptionalDependencies: wire.OptionalDependencies,
	}
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
	if m.OptionalDependencies == nil {
		m.OptionalDependencies = map[string]string{}
	}
	return m, nil
}
