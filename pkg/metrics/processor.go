package metrics

import (
	"fmt"
	"maps"
	"slices"
)

// Processor resolve IDs do catálogo e envia os valores ao Provider.
type Processor struct {
	definitions map[string]MetricDefinition
	provider    Provider
}

// NewProcessor cria um processador sobre o catálogo padrão, opcionalmente
// acrescido de definições extras.
func NewProcessor(provider Provider, extra ...map[string]MetricDefinition) *Processor {
	defs := maps.Clone(Catalog)
	for _, e := range extra {
		maps.Copy(defs, e)
	}

	return &Processor{
		definitions: defs,
		provider:    provider,
	}
}

// Record envia uma métrica. As tags são ordenadas pelo nome para que a
// mesma combinação gere sempre a mesma série.
func (p *Processor) Record(id string, value float64, tags map[string]string) error {
	if p == nil || p.provider == nil {
		return nil
	}

	def, exists := p.definitions[id]
	if !exists {
		return fmt.Errorf("métrica não definida: %s", id)
	}

	finalTags := make([]string, 0, len(tags))
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		finalTags = append(finalTags, fmt.Sprintf("%s:%s", k, tags[k]))
	}

	switch def.Type {
	case TypeCount:
		return p.provider.Count(def.Name, value, finalTags)
	case TypeGauge:
		return p.provider.Gauge(def.Name, value, finalTags)
	case TypeHistogram:
		return p.provider.Histogram(def.Name, value, finalTags)
	default:
		return fmt.Errorf("tipo de métrica desconhecido: %s", def.Type)
	}
}
