package documento

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"convocatorias/internal/blob"
	id "convocatorias/pkg/domain"
	"convocatorias/pkg/platform/sentinel"
)

// PostgresStore persists documents in PostgreSQL.
//
// Quota enforcement takes a per-owner advisory transaction lock before the
// count-then-insert, so two concurrent uploads against the same owner
// serialize and cannot both observe a free slot. ConfirmBatch runs as a
// single UPDATE, which is atomic on its own.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL this store expects. Kept here so integration tests and
// deploy migrations share one source.
const Schema = `
CREATE TABLE IF NOT EXISTS documentos (
	id              UUID PRIMARY KEY,
	owner_tipo      TEXT NOT NULL,
	owner_id        UUID NOT NULL,
	user_id         UUID NOT NULL,
	tipo            TEXT NOT NULL,
	sub_tipo        TEXT NOT NULL DEFAULT '',
	es_subsanacion  BOOLEAN NOT NULL DEFAULT FALSE,
	estado          TEXT NOT NULL,
	nombre          TEXT NOT NULL,
	size_bytes      BIGINT NOT NULL,
	locator         TEXT NOT NULL,
	fecha_subida    TIMESTAMPTZ NOT NULL,
	fecha_envio     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS documentos_owner_idx
	ON documentos (owner_tipo, owner_id, tipo, estado);
`

func (s *PostgresStore) CreateIfWithinQuota(ctx context.Context, doc *Documento, max int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quota tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Serialize per (owner, tipo); the lock is released at commit/rollback.
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`,
		fmt.Sprintf("%s/%s/%s", doc.Owner.Tipo, doc.Owner.ID, doc.Tipo),
	); err != nil {
		return fmt.Errorf("acquire owner lock: %w", err)
	}

	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT count(*) FROM documentos
		WHERE owner_tipo = $1 AND owner_id = $2 AND tipo = $3
		  AND estado IN ('PENDIENTE', 'ENVIADO')`,
		doc.Owner.Tipo, doc.Owner.ID, doc.Tipo,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("count active documents: %w", err)
	}
	if active >= max {
		return sentinel.ErrQuotaExhausted
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documentos
			(id, owner_tipo, owner_id, user_id, tipo, sub_tipo, es_subsanacion,
			 estado, nombre, size_bytes, locator, fecha_subida, fecha_envio)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL)`,
		uuid.UUID(doc.ID), doc.Owner.Tipo, doc.Owner.ID, uuid.UUID(doc.UserID),
		doc.Tipo, doc.SubTipo, doc.EsSubsanacion, doc.Estado,
		doc.Nombre, doc.Size, string(doc.Locator), doc.FechaSubida,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentoID) (*Documento, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_tipo, owner_id, user_id, tipo, sub_tipo,
		       es_subsanacion, estado, nombre, size_bytes, locator,
		       fecha_subida, fecha_envio
		FROM documentos WHERE id = $1`, uuid.UUID(docID))
	return scanDocumento(row)
}

func (s *PostgresStore) DeletePendiente(ctx context.Context, docID id.DocumentoID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documentos WHERE id = $1 AND estado = 'PENDIENTE'`,
		uuid.UUID(docID))
	if err != nil {
		return fmt.Errorf("delete pending document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	// Distinguish missing from already-sent for the caller.
	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM documentos WHERE id = $1)`,
		uuid.UUID(docID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check document existence: %w", err)
	}
	if exists {
		return sentinel.ErrInvalidState
	}
	return sentinel.ErrNotFound
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner Owner) ([]*Documento, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_tipo, owner_id, user_id, tipo, sub_tipo,
		       es_subsanacion, estado, nombre, size_bytes, locator,
		       fecha_subida, fecha_envio
		FROM documentos
		WHERE owner_tipo = $1 AND owner_id = $2
		ORDER BY fecha_subida`, owner.Tipo, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*Documento
	for rows.Next() {
		doc, err := scanDocumento(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountActive(ctx context.Context, owner Owner, tipo Tipo) (int, error) {
	return s.count(ctx, owner, tipo, []string{"PENDIENTE", "ENVIADO"})
}

func (s *PostgresStore) CountSent(ctx context.Context, owner Owner, tipo Tipo) (int, error) {
	return s.count(ctx, owner, tipo, []string{"ENVIADO"})
}

func (s *PostgresStore) count(ctx context.Context, owner Owner, tipo Tipo, estados []string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM documentos
		WHERE owner_tipo = $1 AND owner_id = $2 AND tipo = $3
		  AND estado = ANY($4)`,
		owner.Tipo, owner.ID, tipo, pq.Array(estados),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ConfirmBatch(ctx context.Context, owner Owner, tipo Tipo, sentAt time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documentos
		SET estado = 'ENVIADO', fecha_envio = $4
		WHERE owner_tipo = $1 AND owner_id = $2 AND tipo = $3
		  AND estado = 'PENDIENTE'`,
		owner.Tipo, owner.ID, tipo, sentAt)
	if err != nil {
		return 0, fmt.Errorf("confirm batch: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocumento(row rowScanner) (*Documento, error) {
	var (
		doc        Documento
		docID      uuid.UUID
		ownerID    uuid.UUID
		userID     uuid.UUID
		locator    string
		fechaEnvio sql.NullTime
	)
	err := row.Scan(&docID, &doc.Owner.Tipo, &ownerID, &userID, &doc.Tipo,
		&doc.SubTipo, &doc.EsSubsanacion, &doc.Estado, &doc.Nombre,
		&doc.Size, &locator, &doc.FechaSubida, &fechaEnvio)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.ID = id.DocumentoID(docID)
	doc.Owner.ID = ownerID
	doc.UserID = id.UserID(userID)
	doc.Locator = blob.Locator(locator)
	if fechaEnvio.Valid {
		t := fechaEnvio.Time
		doc.FechaEnvio = &t
	}
	return &doc, nil
}
