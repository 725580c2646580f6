package config

// DocumentPolicy is the immutable document-handling policy injected into the
// documento service. Limits live here, not scattered per call site, so they
// stay testable and overridable per deployment.
type DocumentPolicy struct {
	// MaxPerTipo caps PENDIENTE+ENVIADO rows per (owner, tipo). Keys are
	// documento tipo names; a missing key means the tipo is not accepted.
	MaxPerTipo map[string]int
	// AllowedExtensions lists accepted file extensions, lowercase with dot.
	AllowedExtensions []string
	// MaxFileSize is the per-file byte ceiling.
	MaxFileSize int64
}

// DefaultDocumentPolicy mirrors the agency's published rules: three
// documents per kind, PDF only, 5 MB ceiling.
func DefaultDocumentPolicy() DocumentPolicy {
	return DocumentPolicy{
		MaxPerTipo: map[string]int{
			"PERSONAL":  3,
			"PROYECTO":  3,
			"SUBSANADO": 3,
		},
		AllowedExtensions: []string{".pdf"},
		MaxFileSize:       5 * 1024 * 1024,
	}
}

// MaxFor returns the quota ceiling for a tipo, zero when the tipo is not
// accepted at all.
func (p DocumentPolicy) MaxFor(tipo string) int {
	return p.MaxPerTipo[tipo]
}
