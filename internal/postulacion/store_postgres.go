package postulacion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"convocatorias/internal/convocatoria"
	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

// PostgresStore persists applications in PostgreSQL. The one-per-call rule
// rides on the unique index over (user_id, convocatoria_id).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const Schema = `
CREATE TABLE IF NOT EXISTS postulaciones (
	id                 UUID PRIMARY KEY,
	user_id            UUID NOT NULL,
	convocatoria_id    UUID NOT NULL,
	linea              TEXT NOT NULL,
	nombre_proyecto    TEXT NOT NULL DEFAULT '',
	tipo_proyecto      TEXT NOT NULL DEFAULT '',
	genero             TEXT NOT NULL DEFAULT '',
	duracion_minutos   INTEGER NOT NULL DEFAULT 0,
	declaracion_jurada BOOLEAN NOT NULL DEFAULT FALSE,
	estado             TEXT NOT NULL,
	fecha_creacion     TIMESTAMPTZ NOT NULL,
	fecha_envio        TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS postulaciones_user_conv_idx
	ON postulaciones (user_id, convocatoria_id);
CREATE INDEX IF NOT EXISTS postulaciones_conv_estado_idx
	ON postulaciones (convocatoria_id, estado);
`

func (s *PostgresStore) Create(ctx context.Context, p *Postulacion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO postulaciones
			(id, user_id, convocatoria_id, linea, nombre_proyecto, tipo_proyecto,
			 genero, duracion_minutos, declaracion_jurada, estado, fecha_creacion, fecha_envio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL)`,
		uuid.UUID(p.ID), uuid.UUID(p.UserID), uuid.UUID(p.ConvocatoriaID),
		string(p.Linea), p.NombreProyecto, p.TipoProyecto, p.Genero,
		p.DuracionMinutos, p.DeclaracionJurada, p.Estado, p.FechaCreacion,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert postulacion: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, user_id, convocatoria_id, linea, nombre_proyecto, tipo_proyecto,
	       genero, duracion_minutos, declaracion_jurada, estado,
	       fecha_creacion, fecha_envio
	FROM postulaciones`

func (s *PostgresStore) FindByID(ctx context.Context, pid id.PostulacionID) (*Postulacion, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(pid))
	return scanPostulacion(row)
}

func (s *PostgresStore) FindByUserAndConvocatoria(ctx context.Context, userID id.UserID, cid id.ConvocatoriaID) (*Postulacion, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE user_id = $1 AND convocatoria_id = $2`,
		uuid.UUID(userID), uuid.UUID(cid))
	return scanPostulacion(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*Postulacion, error) {
	return s.list(ctx, selectColumns+` WHERE user_id = $1 ORDER BY fecha_creacion`, uuid.UUID(userID))
}

func (s *PostgresStore) ListByConvocatoriaAndEstado(ctx context.Context, cid id.ConvocatoriaID, estado Estado) ([]*Postulacion, error) {
	return s.list(ctx,
		selectColumns+` WHERE convocatoria_id = $1 AND estado = $2 ORDER BY fecha_creacion`,
		uuid.UUID(cid), string(estado))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Postulacion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list postulaciones: %w", err)
	}
	defer rows.Close()

	var out []*Postulacion
	for rows.Next() {
		p, err := scanPostulacion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, p *Postulacion) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE postulaciones
		SET nombre_proyecto = $2, tipo_proyecto = $3, genero = $4,
		    duracion_minutos = $5, declaracion_jurada = $6, estado = $7,
		    fecha_envio = $8
		WHERE id = $1`,
		uuid.UUID(p.ID), p.NombreProyecto, p.TipoProyecto, p.Genero,
		p.DuracionMinutos, p.DeclaracionJurada, p.Estado, nullableTime(p.FechaEnvio),
	)
	if err != nil {
		return fmt.Errorf("update postulacion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
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

func scanPostulacion(row rowScanner) (*Postulacion, error) {
	var (
		p          Postulacion
		pid        uuid.UUID
		userID     uuid.UUID
		cid        uuid.UUID
		linea      string
		fechaEnvio sql.NullTime
	)
	err := row.Scan(&pid, &userID, &cid, &linea, &p.NombreProyecto,
		&p.TipoProyecto, &p.Genero, &p.DuracionMinutos, &p.DeclaracionJurada,
		&p.Estado, &p.FechaCreacion, &fechaEnvio)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan postulacion: %w", err)
	}
	p.ID = id.PostulacionID(pid)
	p.UserID = id.UserID(userID)
	p.ConvocatoriaID = id.ConvocatoriaID(cid)
	p.Linea = convocatoria.Linea(linea)
	if fechaEnvio.Valid {
		t := fechaEnvio.Time
		p.FechaEnvio = &t
	}
	return &p, nil
}
