package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the lifecycle engine.
type Metrics struct {
	PostulacionesCreadas   prometheus.Counter
	PostulacionesEnviadas  prometheus.Counter
	DocumentosSubidos      prometheus.Counter
	DocumentosRechazados   *prometheus.CounterVec
	NotificacionesEnviadas prometheus.Counter
	NotificacionesOmitidas prometheus.Counter
	RendicionesCreadas     prometheus.Counter
	CertificadosEmitidos   prometheus.Counter
	CertificadosFallidos   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PostulacionesCreadas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocatorias_postulaciones_creadas_total",
			Help: "Applications created in draft state.",
		}),
		PostulacionesEnviadas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocatorias_postulaciones_enviadas_total",
			Help: "Applications submitted (borrador to enviado).",
		}),
		DocumentosSubidos: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocatorias_documentos_subidos_total",
			Help: "Documents accepted for upload.",
		}),
		DocumentosRechazados: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convocatorias_documentos_rechazados_total",
			Help: "Document uploads rejected, by reason.",
		}, []string{"reason"}),
		NotificacionesEnviadas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocatorias_notificaciones_enviadas_total",
			Help: "Observation notifications dispatched.",
		}),
		NotificacionesOmitidas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocatorias_notificaciones_omitidas_total",
			Help: "Observation saves that produced no notification (no material change).",
		}),
		RendicionesCreadas: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocatorias_rendiciones_creadas_total",
			Help: "Expense reports lazily created for selected applications.",
		}),
		CertificadosEmitidos: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocatorias_certificados_emitidos_total",
			Help: "Exemption certificates rendered and persisted.",
		}),
		CertificadosFallidos: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convocatorias_certificados_fallidos_total",
			Help: "Certificate pipeline failures (exemption stays approved).",
		}),
	}
}
