// Package metrics is a dependency-free Prometheus text-format registry.
// The scheduler only needs a handful of counters and gauges, so the
// exposition is written by hand instead of pulling in a client library.
package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Opts struct {
	Name string
	Help string
}

type collector interface {
	name() string
	write(*strings.Builder)
}

type Registry struct {
	mu         sync.RWMutex
	collectors map[string]collector
}

func NewRegistry() *Registry {
	return &Registry{collectors: map[string]collector{}}
}

func (r *Registry) MustRegister(items ...collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		name := item.name()
		if _, exists := r.collectors[name]; exists {
			panic("metrics collector already registered: " + name)
		}
		r.collectors[name] = item
	}
}

func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		r.mu.RLock()
		names := make([]string, 0, len(r.collectors))
		for name := range r.collectors {
			names = append(names, name)
		}
		sort.Strings(names)
		var sb strings.Builder
		for _, name := range names {
			r.collectors[name].write(&sb)
		}
		r.mu.RUnlock()

		_, _ = w.Write([]byte(sb.String()))
	})
}

var Default = NewRegistry()
var processStart = time.Now()

func DefaultHandler() http.Handler {
	return Default.Handler()
}

// Gauge is a single settable value.
type Gauge struct {
	opts  Opts
	mu    sync.RWMutex
	value float64
}

func NewGauge(opts Opts) *Gauge {
	return &Gauge{opts: opts}
}

func (g *Gauge) name() string { return g.opts.Name }

func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

func (g *Gauge) write(sb *strings.Builder) {
	g.mu.RLock()
	v := g.value
	g.mu.RUnlock()
	writeHead(sb, g.opts.Name, "gauge", g.opts.Help)
	fmt.Fprintf(sb, "%s %s\n", g.opts.Name, formatFloat(v))
}

// GaugeFunc samples a value at scrape time.
type GaugeFunc struct {
	opts Opts
	fn   func() float64
}

func NewGaugeFunc(opts Opts, fn func() float64) *GaugeFunc {
	return &GaugeFunc{opts: opts, fn: fn}
}

func (g *GaugeFunc) name() string { return g.opts.Name }

func (g *GaugeFunc) write(sb *strings.Builder) {
	writeHead(sb, g.opts.Name, "gauge", g.opts.Help)
	v := 0.0
	if g.fn != nil {
		v = g.fn()
	}
	fmt.Fprintf(sb, "%s %s\n", g.opts.Name, formatFloat(v))
}

// CounterVec is a labeled family of monotonically increasing counters.
type CounterVec struct {
	opts   Opts
	labels []string

	mu     sync.Mutex
	values map[string]float64
}

func NewCounterVec(opts Opts, labels []string) *CounterVec {
	copied := make([]string, len(labels))
	copy(copied, labels)
	return &CounterVec{opts: opts, labels: copied, values: map[string]float64{}}
}

func (c *CounterVec) name() string { return c.opts.Name }

func (c *CounterVec) Inc(labelValues ...string) {
	if len(labelValues) != len(c.labels) {
		return
	}
	key := strings.Join(labelValues, "\xff")
	c.mu.Lock()
	c.values[key]++
	c.mu.Unlock()
}

func (c *CounterVec) write(sb *strings.Builder) {
	writeHead(sb, c.opts.Name, "counter", c.opts.Help)

	c.mu.Lock()
	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		values := strings.Split(key, "\xff")
		var line strings.Builder
		line.WriteString(c.opts.Name)
		line.WriteString("{")
		for i, label := range c.labels {
			if i > 0 {
				line.WriteString(",")
			}
			line.WriteString(label)
			line.WriteString(`="`)
			line.WriteString(escapeLabel(values[i]))
			line.WriteString(`"`)
		}
		line.WriteString("} ")
		line.WriteString(formatFloat(c.values[key]))
		lines = append(lines, line.String())
	}
	c.mu.Unlock()

	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

func writeHead(sb *strings.Builder, name, metricType, help string) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, metricType)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func init() {
	Default.MustRegister(
		NewGaugeFunc(Opts{
			Name: "process_uptime_seconds",
			Help: "Seconds since process start.",
		}, func() float64 {
			return time.Since(processStart).Seconds()
		}),
		NewGaugeFunc(Opts{
			Name: "go_goroutines",
			Help: "Number of goroutines.",
		}, func() float64 {
			return float64(runtime.NumGoroutine())
		}),
	)
}
