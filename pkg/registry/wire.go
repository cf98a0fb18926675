package registry

// wirePackageDoc mirrors the shape of npm's abbreviated metadata document
// (Accept: application/vnd.npm.install-v1+json), the smaller of the two
// documents the registry can serve for a package. Field names follow the
// registry's own JSON, not Go convention.
type wirePackageDoc struct {
	Name     string                    `json:"name"`
	DistTags map[string]string         `json:"dist-tags"`
	Versions map[string]wireVersionDoc `json:"versions"`
}

type wireVersionDoc struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	Dist                 wireDist          `json:"dist"`
}

type wireDist struct {
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity"`
	Shasum    string `json:"shasum"`
}

func (w *wirePackageDoc) toDoc() *PackageDoc {
	doc := &PackageDoc{
		Name:     w.Name,
		DistTags: w.DistTags,
		Versions: make(map[string]ManifestRecord, len(w.Versions)),
	}
	for version, v := range w.Versions {
		doc.Versions[version] = ManifestRecord{
			Name:                 w.Name,
			Version:              v.Version,
			TarballURL:           v.Dist.Tarball,
			Integrity:            parseDigest(v.Dist.Integrity, v.Dist.Shasum),
			Dependencies:         v.Dependencies,
			OptionalDependencies: v.OptionalDependencies,
		}
	}
	return doc
}

// parseDigest prefers the "integrity" field (the subresource-integrity
// string "sha512-<base64>") and falls back to the legacy hex "shasum"
// (sha1) when integrity is absent.
func parseDigest(integrity, shasum string) Digest {
	if d, ok := parseIntegrity(integrity); ok {
		return d
	}
	if shasum != "" {
		return Digest{Algorithm: "sha1", Sum: decodeHex(shasum)}
	}
	return Digest{}
}
