package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kbukum/gears/component"
)

type route struct{ method, path string }

type pipelineEntry struct{ id, reader, mode string }

// Summary is the banner printed once startup completes: components,
// registered pipelines, admin routes and the first health check.
type Summary struct {
	service   string
	version   string
	took      time.Duration
	routes    []route
	pipelines []pipelineEntry
	out       io.Writer
}

// NewSummary returns a summary that prints to stdout.
func NewSummary(service, version string) *Summary {
	return &Summary{service: service, version: version, out: os.Stdout}
}

func (s *Summary) SetStartupDuration(d time.Duration) { s.took = d }

func (s *Summary) TrackRoute(method, path string) {
	s.routes = append(s.routes, route{method, path})
}

func (s *Summary) TrackPipeline(id, reader, mode string) {
	s.pipelines = append(s.pipelines, pipelineEntry{id, reader, mode})
}

// Write prints the banner. A nil registry skips components and health.
func (s *Summary) Write(ctx context.Context, registry *component.Registry) {
	fmt.Fprintf(s.out, "\n%s %s started in %.2fs\n", s.service, s.version, s.took.Seconds())

	if registry != nil {
		var lines []string
		for _, c := range registry.All() {
			lines = append(lines, describe(c))
		}
		section(s.out, "Components", lines)
	}

	lines := make([]string, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		lines = append(lines, fmt.Sprintf("%s reader=%s mode=%s", p.id, p.reader, p.mode))
	}
	section(s.out, fmt.Sprintf("Pipelines (%d)", len(lines)), lines)

	lines = lines[:0]
	for _, r := range s.routes {
		lines = append(lines, fmt.Sprintf("%-7s %s", r.method, r.path))
	}
	section(s.out, fmt.Sprintf("Routes (%d)", len(lines)), lines)

	if registry != nil {
		lines = lines[:0]
		for _, h := range registry.HealthAll(ctx) {
			line := fmt.Sprintf("%s %s: %s", healthIcon(h.Status), h.Name, h.Status)
			if h.Message != "" {
				line += " (" + h.Message + ")"
			}
			lines = append(lines, line)
		}
		section(s.out, "Health", lines)
	}
	fmt.Fprintln(s.out)
}

func describe(c component.Component) string {
	d, ok := c.(component.Describable)
	if !ok {
		return c.Name()
	}
	desc := d.Describe()
	line := desc.Name
	if line == "" {
		line = c.Name()
	}
	if desc.Details != "" {
		line += ": " + desc.Details
	}
	if desc.Port > 0 {
		line += fmt.Sprintf(" (:%d)", desc.Port)
	}
	return line
}

// section prints nothing for an empty list.
func section(w io.Writer, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for i, l := range lines {
		fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(lines)), l)
	}
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	}
	return "❓"
}
