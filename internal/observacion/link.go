package observacion

import (
	"fmt"
	"net/url"
	"strings"

	"convocatorias/internal/documento"
	dErrors "convocatorias/pkg/domain-errors"
)

// LinkBuilder constructs the correction deep link embedded in observation
// notifications. The base URL is validated once at startup so per-call
// construction cannot fail; when no base URL is configured the builder
// degrades to the relative path, which the mail template prefixes with the
// site root.
type LinkBuilder struct {
	base *url.URL
}

func NewLinkBuilder(baseURL string) (*LinkBuilder, error) {
	if baseURL == "" {
		return &LinkBuilder{}, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid base URL %q", baseURL)
	}
	return &LinkBuilder{base: u}, nil
}

// CorrectionLink returns the URL of the owner's correction screen.
func (b *LinkBuilder) CorrectionLink(owner documento.Owner) string {
	var path string
	switch owner.Tipo {
	case documento.OwnerExencion:
		path = fmt.Sprintf("/exencion/%s/subsanar/", owner.ID)
	default:
		path = fmt.Sprintf("/postulaciones/%s/subsanar/", owner.ID)
	}
	if b.base == nil {
		return path
	}
	ref := *b.base
	ref.Path = strings.TrimRight(ref.Path, "/") + path
	return ref.String()
}
