package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/samber/lo"
	"go.trai.ch/knot/internal/app"
	"go.trai.ch/knot/internal/core/domain"
	"go.trai.ch/knot/internal/engine/resolver"
	"go.trai.ch/knot/internal/ui/output"
	"go.trai.ch/knot/internal/ui/style"
)

type printer struct {
	out *termenv.Output
}

func newPrinter(w io.Writer) *printer {
	return &printer{out: output.New(w)}
}

func (p *printer) color(s string, c lipgloss.Color) string {
	return p.out.String(s).Foreground(p.out.Color(string(c))).String()
}

func (p *printer) bold(s string) string {
	return p.out.String(s).Bold().String()
}

func (p *printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func address(a domain.Address) string {
	if a.IsZero() {
		return "unpublished"
	}
	return a.String()
}

func renderGraph(w io.Writer, view *app.GraphView, withOutcomes bool) {
	p := newPrinter(w)

	source := "manifests"
	if view.FromLockfile {
		source = domain.LockfileName
	}
	p.line("%s %s",
		p.bold(fmt.Sprintf("%d packages for %s", len(view.Packages), view.Environment)),
		p.color("(resolved from "+source+")", style.Muted))
	if view.Stale {
		p.line("%s %s", p.color(style.Warning, style.Yellow), domain.LockfileName+" was stale")
	}

	for i, pkg := range view.Packages {
		branch, indent := style.Branch, style.Pipe
		if i == len(view.Packages)-1 {
			branch, indent = style.Last, "  "
		}

		name := p.color(pkg.ID, style.Accent)
		if pkg.Root {
			name += p.color(" (root)", style.Muted)
		}
		p.line("%s %s", branch, name)
		if !pkg.Root {
			p.line("%s   source  %s", indent, pkg.Coordinate)
		}
		p.line("%s   build   %s", indent, address(pkg.BuildAddress))
		p.line("%s   output  %s", indent, address(pkg.OutputAddress))
		if len(pkg.Dependencies) > 0 {
			p.line("%s   deps    %s", indent, strings.Join(pkg.Dependencies, ", "))
		}
	}

	for _, c := range view.Conflicts {
		p.line("%s named address %s: kept %s from %s, ignored %s from %s",
			p.color(style.Warning, style.Yellow), c.Name, c.Kept, c.KeptBy, c.Rejected, c.RejectedBy)
	}

	if !withOutcomes || len(view.Outcomes) == 0 {
		return
	}

	counts := lo.CountValuesBy(view.Outcomes, func(o domain.EdgeOutcome) domain.EdgeStatus {
		return o.Status
	})
	p.line("")
	p.line("%s", p.bold(fmt.Sprintf("Dependencies: %d resolved, %d reused, %d skipped, %d dropped",
		counts[domain.EdgeResolved], counts[domain.EdgeReused], counts[domain.EdgeSkipped], counts[domain.EdgeDropped])))
	for _, o := range view.Outcomes {
		glyph := p.color(style.Check, style.Green)
		if o.Missing() {
			glyph = p.color(style.Cross, style.Red)
		}
		status := string(o.Status)
		if o.Overridden {
			status += ", overridden"
		}
		detail := o.Coordinate.String()
		if o.Reason != nil {
			detail = o.Reason.Error()
		}
		p.line("  %s %s %s %s  %s  %s", glyph, o.From, style.Arrow, o.Alias, status, p.color(detail, style.Muted))
	}
}

func renderReport(w io.Writer, report *resolver.Report) {
	p := newPrinter(w)

	if report.Missing {
		p.line("%s no %s pins for %s", p.color(style.Warning, style.Yellow), domain.LockfileName, report.Environment)
		return
	}
	p.line("%s", p.bold(fmt.Sprintf("%s (%s) for %s", domain.LockfileName, report.Schema, report.Environment)))

	for _, pin := range report.Pins {
		glyph := p.color(style.Check, style.Green)
		if pin.State != resolver.PinValid {
			glyph = p.color(style.Cross, style.Red)
		}
		line := fmt.Sprintf("  %s %s  %s", glyph, pin.ID, pin.State)
		if pin.Reason != "" {
			line += "  " + p.color(pin.Reason, style.Muted)
		}
		p.line("%s", line)
	}

	if report.Stale {
		p.line("%s stale: %s", p.color(style.Cross, style.Red), report.Reason)
		return
	}
	p.line("%s up to date", p.color(style.Check, style.Green))
}
