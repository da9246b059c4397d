package prometheus

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/MrEthical07/goCrud/metrics/export/internaldefs"
)

// ContentType is the media type of the text exposition format.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() goCrud.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition
// format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter reads from engine.
func NewPrometheusExporter(engine *goCrud.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the current metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", ContentType)
		_, _ = io.WriteString(w, p.Render())
	})
}

// Render returns the exposition text, or "" when there is nothing to report
// (metrics disabled and no audit drops).
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snap.Counters) == 0 && len(snap.Histograms) == 0 && dropped == 0 {
		return ""
	}

	w := &writer{}
	w.Grow(4096)
	for _, def := range internaldefs.CounterDefs {
		w.counter(def.Name, def.Help, snap.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		w.histogram(def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[def.ID])))
	}
	w.counter("gocrud_audit_dropped_total", "Audit events lost to dispatcher backpressure.", dropped)
	return w.String()
}

type writer struct {
	strings.Builder
}

func (w *writer) header(name, help, kind string) {
	w.WriteString("# HELP " + name + " " + escapeHelp(help) + "\n")
	w.WriteString("# TYPE " + name + " " + kind + "\n")
}

func (w *writer) sample(name string, v uint64) {
	w.WriteString(name)
	w.WriteByte(' ')
	w.WriteString(strconv.FormatUint(v, 10))
	w.WriteByte('\n')
}

func (w *writer) counter(name, help string, v uint64) {
	w.header(name, help, "counter")
	w.sample(name, v)
}

func (w *writer) histogram(name, help string, cumulative [8]uint64) {
	w.header(name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		w.sample(name+`_bucket{le="`+le+`"}`, cumulative[i])
	}
	w.sample(name+"_count", cumulative[len(cumulative)-1])
	// Snapshots carry bucket counts only.
	w.sample(name+"_sum", 0)
}

func escapeHelp(help string) string {
	return strings.NewReplacer(`\`, `\\`, "\n", `\n`).Replace(help)
}
