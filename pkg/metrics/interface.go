package metrics

// Provider define o contrato para envio de métricas.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// MetricType define os tipos suportados.
type MetricType string

const (
	TypeCount     MetricType = "count"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// MetricDefinition armazena os metadados da métrica (nome real, tipo).
type MetricDefinition struct {
	Name string
	Type MetricType
}

// IDs das métricas emitidas pelo serviço.
const (
	HTTPRequest           = "http_request"
	HTTPLatency           = "http_latency"
	ReactorRecord         = "reactor_record"
	StoreBatchUnprocessed = "store_batch_unprocessed"
)

// Catalog mapeia cada ID para o nome publicado no Datadog.
var Catalog = map[string]MetricDefinition{
	HTTPRequest:           {Name: "http.request", Type: TypeCount},
	HTTPLatency:           {Name: "http.request.latency_ms", Type: TypeHistogram},
	ReactorRecord:         {Name: "reactor.record", Type: TypeCount},
	StoreBatchUnprocessed: {Name: "store.batch.unprocessed", Type: TypeCount},
}
