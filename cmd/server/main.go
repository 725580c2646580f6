// Command server runs the grant lifecycle HTTP service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"convocatorias/internal/blob"
	"convocatorias/internal/convocatoria"
	"convocatorias/internal/documento"
	"convocatorias/internal/exencion"
	"convocatorias/internal/notify"
	"convocatorias/internal/observacion"
	"convocatorias/internal/platform/config"
	"convocatorias/internal/platform/httpserver"
	"convocatorias/internal/platform/logger"
	"convocatorias/internal/platform/metrics"
	"convocatorias/internal/postulacion"
	"convocatorias/internal/registry"
	"convocatorias/internal/render"
	"convocatorias/internal/rendicion"
	httptransport "convocatorias/internal/transport/http"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	m := metrics.New()

	var (
		docStore  documento.Store   = documento.NewInMemory()
		postStore postulacion.Store = postulacion.NewInMemory()
		exStore   exencion.Store    = exencion.NewInMemory()
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return err
		}
		for _, schema := range []string{documento.Schema, postulacion.Schema, exencion.Schema} {
			if _, err := db.Exec(schema); err != nil {
				return err
			}
		}
		docStore = documento.NewPostgres(db)
		postStore = postulacion.NewPostgres(db)
		exStore = exencion.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		log.Info("using in-memory stores")
	}

	convStore := convocatoria.NewInMemory()
	obsStore := observacion.NewInMemory()
	rendStore := rendicion.NewInMemory()

	blobs := blob.NewInMemory()
	sender := notify.NewLogSender(log)
	gate := registry.NewGate(registry.NewInMemoryReader())

	links, err := observacion.NewLinkBuilder(cfg.BaseURL)
	if err != nil {
		return err
	}

	convocatorias := convocatoria.NewService(convStore, gate, convocatoria.WithLogger(log))
	documentos := documento.New(docStore, blobs, config.DefaultDocumentPolicy(),
		documento.WithLogger(log), documento.WithMetrics(m))
	observaciones := observacion.New(obsStore, sender, links,
		observacion.WithLogger(log), observacion.WithMetrics(m))
	rendiciones := rendicion.New(rendStore,
		rendicion.WithLogger(log), rendicion.WithMetrics(m))
	postulaciones := postulacion.New(postStore, convStore, gate,
		documentos, observaciones, rendiciones,
		postulacion.WithLogger(log), postulacion.WithMetrics(m))
	issuer := exencion.NewIssuer(render.NewPDF(), blobs)
	exenciones := exencion.New(exStore, convStore, gate,
		documentos, observaciones, issuer, sender,
		exencion.WithLogger(log), exencion.WithMetrics(m))

	handler := httptransport.NewRouter(httptransport.Deps{
		Convocatorias: convocatorias,
		Postulaciones: postulaciones,
		Documentos:    documentos,
		Rendiciones:   rendiciones,
		Exenciones:    exenciones,
		Logger:        log,
	})
	srv := httpserver.New(cfg.Addr, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
