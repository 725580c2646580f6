package documento

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convocatorias/internal/blob"
	"convocatorias/internal/platform/config"
	id "convocatorias/pkg/domain"
	dErrors "convocatorias/pkg/domain-errors"
	"convocatorias/pkg/requestcontext"
)

func newTestService(t *testing.T) (*Service, *blob.InMemory) {
	t.Helper()
	blobs := blob.NewInMemory()
	svc := New(NewInMemory(), blobs, config.DefaultDocumentPolicy())
	return svc, blobs
}

func testCtx(userID id.UserID) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	return requestcontext.WithTime(ctx, time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC))
}

func pdf(size int) Upload {
	return Upload{Nombre: "guion.pdf", Data: bytes.Repeat([]byte("a"), size)}
}

func TestUploadAcceptsValidPDF(t *testing.T) {
	svc, blobs := newTestService(t)
	userID := id.NewUserID()
	owner := PostulacionOwner(id.NewPostulacionID())

	doc, err := svc.Upload(testCtx(userID), owner, TipoProyecto, "", pdf(1024))
	require.NoError(t, err)
	assert.Equal(t, EstadoPendiente, doc.Estado)
	assert.Equal(t, userID, doc.UserID)
	assert.Nil(t, doc.FechaEnvio)
	assert.Equal(t, 1, blobs.Len())
}

func TestUploadRejectsBadFiles(t *testing.T) {
	svc, blobs := newTestService(t)
	owner := PostulacionOwner(id.NewPostulacionID())
	ctx := testCtx(id.NewUserID())

	tests := []struct {
		name string
		up   Upload
		code dErrors.Code
	}{
		{"wrong extension", Upload{Nombre: "foto.jpg", Data: []byte("x")}, dErrors.CodeInvalidFile},
		{"uppercase extension ok", Upload{}, ""},
		{"oversize", pdf(5*1024*1024 + 1), dErrors.CodeFileTooLarge},
		{"empty", Upload{Nombre: "vacio.pdf"}, dErrors.CodeValidation},
	}
	for _, tt := range tests {
		if tt.name == "uppercase extension ok" {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Upload(ctx, owner, TipoProyecto, "", Upload{Nombre: "GUION.PDF", Data: []byte("x")})
				assert.NoError(t, err)
			})
			continue
		}
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, owner, TipoProyecto, "", tt.up)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
	// Only the valid upload left a blob behind.
	assert.Equal(t, 1, blobs.Len())
}

func TestUploadEnforcesQuota(t *testing.T) {
	svc, blobs := newTestService(t)
	owner := PostulacionOwner(id.NewPostulacionID())
	ctx := testCtx(id.NewUserID())

	for i := 0; i < 3; i++ {
		_, err := svc.Upload(ctx, owner, TipoProyecto, "", pdf(10))
		require.NoError(t, err)
	}
	_, err := svc.Upload(ctx, owner, TipoProyecto, "", pdf(10))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	assert.Equal(t, 0, dErrors.FieldsOf(err)["remaining"])
	// The rejected upload's blob was cleaned up.
	assert.Equal(t, 3, blobs.Len())

	// Quotas are per tipo: PERSONAL still has room.
	_, err = svc.Upload(ctx, owner, TipoPersonal, "", pdf(10))
	assert.NoError(t, err)
}

func TestQuotaUnderConcurrentUploads(t *testing.T) {
	svc, _ := newTestService(t)
	owner := PostulacionOwner(id.NewPostulacionID())
	ctx := testCtx(id.NewUserID())

	const attempts = 20
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Upload(ctx, owner, TipoProyecto, "", pdf(10)); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, ok, "exactly the quota must be admitted")
}

func TestDeleteRules(t *testing.T) {
	svc, blobs := newTestService(t)
	userID := id.NewUserID()
	owner := PostulacionOwner(id.NewPostulacionID())
	ctx := testCtx(userID)

	doc, err := svc.Upload(ctx, owner, TipoProyecto, "", pdf(10))
	require.NoError(t, err)

	t.Run("stranger cannot delete", func(t *testing.T) {
		err := svc.Delete(ctx, doc.ID, id.NewUserID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("sent documents are immutable", func(t *testing.T) {
		_, err := svc.ConfirmBatch(ctx, owner, TipoProyecto)
		require.NoError(t, err)
		err = svc.Delete(ctx, doc.ID, userID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("pending documents delete and free a slot", func(t *testing.T) {
		doc2, err := svc.Upload(ctx, owner, TipoProyecto, "", pdf(10))
		require.NoError(t, err)
		require.NoError(t, svc.Delete(ctx, doc2.ID, userID))
		assert.Equal(t, 1, blobs.Len())

		remaining, err := svc.Remaining(ctx, owner, TipoProyecto)
		require.NoError(t, err)
		assert.Equal(t, 2, remaining)
	})
}

func TestConfirmBatch(t *testing.T) {
	svc, _ := newTestService(t)
	owner := PostulacionOwner(id.NewPostulacionID())
	ctx := testCtx(id.NewUserID())

	t.Run("nothing pending is invalid", func(t *testing.T) {
		_, err := svc.ConfirmBatch(ctx, owner, TipoProyecto)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("flips every pending of the tipo", func(t *testing.T) {
		_, err := svc.Upload(ctx, owner, TipoProyecto, "", pdf(10))
		require.NoError(t, err)
		_, err = svc.Upload(ctx, owner, TipoProyecto, "", pdf(10))
		require.NoError(t, err)
		_, err = svc.Upload(ctx, owner, TipoPersonal, "", pdf(10))
		require.NoError(t, err)

		n, err := svc.ConfirmBatch(ctx, owner, TipoProyecto)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		sent, err := svc.CountSent(ctx, owner, TipoProyecto)
		require.NoError(t, err)
		assert.Equal(t, 2, sent)

		// PERSONAL was untouched.
		sent, err = svc.CountSent(ctx, owner, TipoPersonal)
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
	})
}

func TestValidateTipo(t *testing.T) {
	assert.NoError(t, ValidateTipo(TipoProyecto, ""))
	assert.NoError(t, ValidateTipo(TipoSubsanado, SubTipoProyecto))
	assert.Error(t, ValidateTipo(TipoSubsanado, ""))
	assert.Error(t, ValidateTipo(TipoProyecto, SubTipoProyecto))
	assert.Error(t, ValidateTipo("OTRO", ""))
}
