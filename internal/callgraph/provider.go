package callgraph

import (
	"math"

	"github.com/perf-diff/internal/callsite"
	"github.com/perf-diff/internal/metric"
)

// Provider exposes a tree set together with what a display layer needs
// to present it.
type Provider interface {
	Title() string
	WeightType() metric.Type
	AdditionalMetrics() []metric.Type
	// AdditionalMetric returns the value of AdditionalMetrics()[index] for
	// site, or NaN when the site does not carry it.
	AdditionalMetric(site *callsite.CallSite, index int) float64
	ToDisplayString(site *callsite.CallSite) string
	TreeSet() TreeSet
}

// StatisticMetric binds a metric to the call-site statistic it reads.
type StatisticMetric struct {
	Type      metric.Type
	Statistic string
}

// InstrumentedMetrics are the metrics of call sites built from spans.
var InstrumentedMetrics = []StatisticMetric{
	{Type: metric.Type{Title: callsite.StatSelfTime, DataType: metric.DataDuration, Unit: "ns", Format: metric.FormatDuration}, Statistic: callsite.StatSelfTime},
	{Type: metric.Type{Title: callsite.StatCPUTime, DataType: metric.DataDuration, Unit: "ns", Format: metric.FormatDuration}, Statistic: callsite.StatCPUTime},
	{Type: metric.Type{Title: callsite.StatCalls, DataType: metric.DataNumber}, Statistic: callsite.StatCalls},
}

// GraphProvider serves a CallGraph.
type GraphProvider struct {
	title      string
	weightType metric.Type
	graph      TreeSet
	metrics    []StatisticMetric
	resolve    func(callsite.Symbol) string
}

// ProviderOption configures a GraphProvider.
type ProviderOption func(*GraphProvider)

// WithMetrics sets the additional metrics.
func WithMetrics(metrics ...StatisticMetric) ProviderOption {
	return func(p *GraphProvider) {
		p.metrics = metrics
	}
}

// WithSymbolFormatter replaces the default symbol rendering.
func WithSymbolFormatter(fn func(callsite.Symbol) string) ProviderOption {
	return func(p *GraphProvider) {
		p.resolve = fn
	}
}

// NewGraphProvider creates a provider for graph.
func NewGraphProvider(title string, weightType metric.Type, graph TreeSet, opts ...ProviderOption) *GraphProvider {
	p := &GraphProvider{
		title:      title,
		weightType: weightType,
		graph:      graph,
		resolve:    callsite.FormatSymbol,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Title implements Provider.
func (p *GraphProvider) Title() string {
	return p.title
}

// WeightType implements Provider.
func (p *GraphProvider) WeightType() metric.Type {
	return p.weightType
}

// AdditionalMetrics implements Provider.
func (p *GraphProvider) AdditionalMetrics() []metric.Type {
	out := make([]metric.Type, len(p.metrics))
	for i, m := range p.metrics {
		out[i] = m.Type
	}
	return out
}

// AdditionalMetric implements Provider.
func (p *GraphProvider) AdditionalMetric(site *callsite.CallSite, index int) float64 {
	if site == nil || index < 0 || index >= len(p.metrics) {
		return math.NaN()
	}
	v, ok := site.Statistic(p.metrics[index].Statistic)
	if !ok {
		return math.NaN()
	}
	return float64(v)
}

// ToDisplayString implements Provider.
func (p *GraphProvider) ToDisplayString(site *callsite.CallSite) string {
	if site == nil {
		return ""
	}
	return p.resolve(site.Symbol())
}

// TreeSet implements Provider.
func (p *GraphProvider) TreeSet() TreeSet {
	return p.graph
}
