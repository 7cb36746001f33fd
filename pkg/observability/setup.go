package observability

import (
	"fmt"
	"io"
	"sync"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/raywall/form-builder-service/pkg/config"
	"github.com/raywall/form-builder-service/pkg/metrics"
)

// NoopProvider é um placeholder para quando métricas estão desabilitadas.
type NoopProvider struct{}

func (n *NoopProvider) Count(name string, value float64, tags []string) error     { return nil }
func (n *NoopProvider) Gauge(name string, value float64, tags []string) error     { return nil }
func (n *NoopProvider) Histogram(name string, value float64, tags []string) error { return nil }
func (n *NoopProvider) Close() error                                              { return nil }

// DatadogProvider adapta a lib oficial do Datadog para nossa interface.
type DatadogProvider struct {
	client statsd.ClientInterface
}

func (d *DatadogProvider) Count(name string, value float64, tags []string) error {
	return d.client.Count(name, int64(value), tags, 1)
}

func (d *DatadogProvider) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, 1)
}

func (d *DatadogProvider) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, 1)
}

// Close descarrega o buffer do cliente. Em Lambda deve ser chamado antes do
// fim da invocação.
func (d *DatadogProvider) Close() error {
	return d.client.Close()
}

// Sample é uma métrica registrada pelo MemoryProvider.
type Sample struct {
	Type  metrics.MetricType
	Name  string
	Value float64
	Tags  []string
}

// MemoryProvider guarda as métricas em memória (runtime local e testes).
type MemoryProvider struct {
	mu      sync.Mutex
	samples []Sample
}

func (m *MemoryProvider) add(t metrics.MetricType, name string, value float64, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, Sample{Type: t, Name: name, Value: value, Tags: tags})
	return nil
}

func (m *MemoryProvider) Count(name string, value float64, tags []string) error {
	return m.add(metrics.TypeCount, name, value, tags)
}

func (m *MemoryProvider) Gauge(name string, value float64, tags []string) error {
	return m.add(metrics.TypeGauge, name, value, tags)
}

func (m *MemoryProvider) Histogram(name string, value float64, tags []string) error {
	return m.add(metrics.TypeHistogram, name, value, tags)
}

func (m *MemoryProvider) Close() error { return nil }

// Samples devolve uma cópia do que foi registrado.
func (m *MemoryProvider) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sample(nil), m.samples...)
}

// Provider é o metrics.Provider com ciclo de vida.
type Provider interface {
	metrics.Provider
	io.Closer
}

// SetupMetrics inicializa o provedor correto baseado na configuração. O
// stage vira a tag global "env".
func SetupMetrics(cfg config.MetricsConf, stage string) (Provider, error) {
	if !cfg.Datadog.Enabled {
		return &NoopProvider{}, nil
	}

	opts := []statsd.Option{
		statsd.WithNamespace(cfg.Datadog.Namespace),
	}
	if stage != "" {
		opts = append(opts, statsd.WithTags([]string{"env:" + stage}))
	}

	client, err := statsd.New(cfg.Datadog.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no datadog statsd: %w", err)
	}

	return &DatadogProvider{client: client}, nil
}
