package exencion

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"convocatorias/internal/registry"
	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

// PostgresStore persists exemptions in PostgreSQL. Uniqueness per
// (user, convocatoria) rides on the unique index; GetOrCreate resolves the
// race by re-reading after a conflicting insert. Serials come from a
// sequence, so they are unique and monotonic without locking.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const Schema = `
CREATE TABLE IF NOT EXISTS exenciones (
	id                   UUID PRIMARY KEY,
	user_id              UUID NOT NULL,
	convocatoria_id      UUID NOT NULL,
	nombre               TEXT NOT NULL DEFAULT '',
	cuit                 TEXT NOT NULL DEFAULT '',
	email                TEXT NOT NULL DEFAULT '',
	situacion_iva        TEXT NOT NULL DEFAULT '',
	actividad_dgr        TEXT NOT NULL DEFAULT '',
	domicilio_fiscal     TEXT NOT NULL DEFAULT '',
	localidad_fiscal     TEXT NOT NULL DEFAULT '',
	codigo_postal_fiscal TEXT NOT NULL DEFAULT '',
	estado               TEXT NOT NULL,
	motivo               TEXT NOT NULL DEFAULT '',
	fecha_creacion       TIMESTAMPTZ NOT NULL,
	numero_constancia    TEXT NOT NULL DEFAULT '',
	fecha_emision        TIMESTAMPTZ,
	fecha_vencimiento    TIMESTAMPTZ,
	constancia_locator   TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS exenciones_user_conv_idx
	ON exenciones (user_id, convocatoria_id);
CREATE UNIQUE INDEX IF NOT EXISTS exenciones_numero_idx
	ON exenciones (numero_constancia) WHERE numero_constancia <> '';
CREATE SEQUENCE IF NOT EXISTS exenciones_constancia_seq;
`

func (s *PostgresStore) GetOrCreate(ctx context.Context, e *Exencion) (*Exencion, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO exenciones
			(id, user_id, convocatoria_id, nombre, cuit, email,
			 situacion_iva, actividad_dgr, domicilio_fiscal, localidad_fiscal,
			 codigo_postal_fiscal, estado, motivo, fecha_creacion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, '', $13)
		ON CONFLICT (user_id, convocatoria_id) DO NOTHING`,
		uuid.UUID(e.ID), uuid.UUID(e.UserID), uuid.UUID(e.ConvocatoriaID),
		e.Nombre, e.CUIT, e.Email,
		e.SituacionIVA, e.ActividadDGR, e.DomicilioFiscal, e.LocalidadFiscal,
		e.CodigoPostalFiscal, e.Estado, e.FechaCreacion,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert exencion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		cp := *e
		return &cp, true, nil
	}
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE user_id = $1 AND convocatoria_id = $2`,
		uuid.UUID(e.UserID), uuid.UUID(e.ConvocatoriaID))
	existing, err := scanExencion(row)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

const selectColumns = `
	SELECT id, user_id, convocatoria_id, nombre, cuit, email,
	       situacion_iva, actividad_dgr, domicilio_fiscal, localidad_fiscal,
	       codigo_postal_fiscal, estado, motivo, fecha_creacion,
	       numero_constancia, fecha_emision, fecha_vencimiento,
	       constancia_locator
	FROM exenciones`

func (s *PostgresStore) FindByID(ctx context.Context, eid id.ExencionID) (*Exencion, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(eid))
	return scanExencion(row)
}

func (s *PostgresStore) FindByNumero(ctx context.Context, numero string) (*Exencion, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE numero_constancia = $1 AND numero_constancia <> ''`, numero)
	return scanExencion(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*Exencion, error) {
	return s.list(ctx, selectColumns+` WHERE user_id = $1 ORDER BY fecha_creacion`, uuid.UUID(userID))
}

func (s *PostgresStore) ListByConvocatoriaAndEstado(ctx context.Context, cid id.ConvocatoriaID, estado Estado) ([]*Exencion, error) {
	return s.list(ctx,
		selectColumns+` WHERE convocatoria_id = $1 AND estado = $2 ORDER BY fecha_creacion`,
		uuid.UUID(cid), string(estado))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Exencion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exenciones: %w", err)
	}
	defer rows.Close()

	var out []*Exencion
	for rows.Next() {
		e, err := scanExencion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, e *Exencion) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE exenciones
		SET estado = $2, motivo = $3, numero_constancia = $4,
		    fecha_emision = $5, fecha_vencimiento = $6, constancia_locator = $7
		WHERE id = $1`,
		uuid.UUID(e.ID), e.Estado, e.Motivo, e.NumeroConstancia,
		nullableTime(e.FechaEmision), nullableTime(e.FechaVencimiento),
		e.ConstanciaLocator,
	)
	if err != nil {
		return fmt.Errorf("update exencion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) NextSerial(ctx context.Context) (int, error) {
	var serial int
	err := s.db.QueryRowContext(ctx,
		`SELECT nextval('exenciones_constancia_seq')`).Scan(&serial)
	if err != nil {
		return 0, fmt.Errorf("next constancia serial: %w", err)
	}
	return serial, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExencion(row rowScanner) (*Exencion, error) {
	var (
		e           Exencion
		eid         uuid.UUID
		userID      uuid.UUID
		cid         uuid.UUID
		fiscales    registry.DatosFiscales
		emision     sql.NullTime
		vencimiento sql.NullTime
	)
	err := row.Scan(&eid, &userID, &cid, &e.Nombre, &e.CUIT, &e.Email,
		&fiscales.SituacionIVA, &fiscales.ActividadDGR, &fiscales.DomicilioFiscal,
		&fiscales.LocalidadFiscal, &fiscales.CodigoPostalFiscal,
		&e.Estado, &e.Motivo, &e.FechaCreacion,
		&e.NumeroConstancia, &emision, &vencimiento, &e.ConstanciaLocator)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan exencion: %w", err)
	}
	e.ID = id.ExencionID(eid)
	e.UserID = id.UserID(userID)
	e.ConvocatoriaID = id.ConvocatoriaID(cid)
	e.DatosFiscales = fiscales
	if emision.Valid {
		t := emision.Time
		e.FechaEmision = &t
	}
	if vencimiento.Valid {
		t := vencimiento.Time
		e.FechaVencimiento = &t
	}
	return &e, nil
}
