package registry

import (
	"context"
	"errors"

	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/platform/sentinel"
)

// Reader is the registry collaborator. A user holds at most one profile of
// each kind; holding neither means they have not registered.
type Reader interface {
	FindPersonaHumana(ctx context.Context, userID id.UserID) (*Perfil, error)
	FindPersonaJuridica(ctx context.Context, userID id.UserID) (*Perfil, error)
}

// Gate answers the two eligibility questions every flow asks before letting
// an applicant in. Both checks are pure reads.
type Gate struct {
	reader Reader
}

func NewGate(reader Reader) *Gate {
	return &Gate{reader: reader}
}

// Profile returns the applicant's registry profile, preferring the persona
// humana when both somehow exist (the registry enforces exclusivity; this
// is the read side's tie-break). Returns a not_registered error when the
// user holds neither profile, so callers redirect to registration instead
// of proceeding.
func (g *Gate) Profile(ctx context.Context, userID id.UserID) (*Perfil, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}

	humana, err := g.reader.FindPersonaHumana(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read registry profile")
	}
	if humana != nil {
		return humana, nil
	}

	juridica, err := g.reader.FindPersonaJuridica(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read registry profile")
	}
	if juridica != nil {
		return juridica, nil
	}

	return nil, dErrors.New(dErrors.CodeNotRegistered, "no registry profile for user")
}

// FiscalComplete verifies every required fiscal field holds a real value.
// The rejection lists the missing field names so the caller can point the
// applicant at exactly what to complete.
func (g *Gate) FiscalComplete(p *Perfil) error {
	if missing := p.MissingFiscalFields(); len(missing) > 0 {
		return dErrors.New(dErrors.CodeIncompleteFiscalData, "fiscal data incomplete").
			WithField("missing_fields", missing)
	}
	return nil
}
