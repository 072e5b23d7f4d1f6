// Package report renders an analysis into human- and machine-readable
// artifacts. Nothing here touches live systems.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
	"github.com/vietddude/dlqdiag/internal/diagnosis/validator"
)

const (
	rule          = 80
	summaryTop    = 5
	actionsTop    = 3
	tablesListed  = 10
	fieldsListed  = 10
	samplesListed = 2
	findingsShown = 10
)

// WriteText writes the full diagnostic report. top bounds the detailed
// root-cause section.
func WriteText(w io.Writer, a *engine.Analysis, top int, generatedAt time.Time) error {
	if top <= 0 {
		top = summaryTop
	}
	p := &printer{w: w}

	p.line(strings.Repeat("=", rule))
	p.line("DLQ DIAGNOSTIC REPORT")
	p.line(strings.Repeat("=", rule))
	p.line("")
	p.printf("Generated: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	p.printf("Total Messages Analyzed: %d\n\n", a.Total)

	p.section("EXECUTIVE SUMMARY")
	p.line("Root Cause Breakdown:")
	for i, c := range a.Statistics.Categories {
		if i == summaryTop {
			break
		}
		p.printf("  %6s - %s (%d errors)\n", c.Percentage, c.Category, c.Count)
	}
	p.line("")

	if len(a.Statistics.Entities) > 0 {
		p.section("TOP AFFECTED TABLES")
		p.printf("%-30s %10s %20s\n", "Table", "Count", "Primary Error")
		for i, e := range a.Statistics.Entities {
			if i == tablesListed {
				break
			}
			p.printf("%-30s %10d %20s\n", e.Entity, e.Count, e.PrimaryCategory)
		}
		p.line("")
	}

	if len(a.Statistics.Fields) > 0 {
		p.section("TOP PROBLEMATIC FIELDS")
		p.printf("%-30s %10s\n", "Field Name", "Count")
		for i, f := range a.Statistics.Fields {
			if i == fieldsListed {
				break
			}
			p.printf("%-30s %10d\n", f.Field, f.Count)
		}
		p.line("")
	}

	p.section("TOP ROOT CAUSES (Detailed)")
	for i, rc := range a.RootCauses {
		if i == top {
			break
		}
		p.printf("%d. %s: %s\n", i+1, rc.Severity(), rc.Category)
		p.printf("   Error Count: %d (%s)\n", rc.ErrorCount, rc.Percentage)
		p.printf("   Affected Tables: %s\n", strings.Join(head(rc.AffectedEntities, tablesListed), ", "))
		if len(rc.AffectedFields) > 0 {
			p.printf("   Affected Fields: %s\n", strings.Join(head(rc.AffectedFields, fieldsListed), ", "))
		}
		p.printf("   Fix Complexity: %s\n", rc.FixComplexity)
		p.printf("   Priority: %.1f\n", rc.PriorityScore)
		p.line("   Sample Error:")
		for _, msg := range head(rc.SampleMessages, samplesListed) {
			p.printf("     - %s\n", msg)
		}
		p.line("")
	}

	if len(a.Findings) > 0 {
		p.section("CROSS-VALIDATION")
		writeFindings(p, a.Findings)
		p.line("")
	}

	p.section("RECOMMENDED ACTIONS")
	for i, rc := range a.RootCauses {
		if i == actionsTop {
			break
		}
		p.printf("%d. Fix %s\n", i+1, rc.Category)
		for _, rec := range Recommendations(rc) {
			p.printf("   %s\n", rec)
		}
		p.line("")
	}

	return p.err
}

func writeFindings(p *printer, findings []validator.Finding) {
	schemaShown := 0
	for _, f := range findings {
		switch {
		case f.Category == domain.CategorySchemaMismatch:
			if schemaShown == findingsShown {
				continue
			}
			schemaShown++
			if f.ColumnType != "" {
				p.printf("  [%s] %s (%s): %s...\n", f.Category, f.Subject, f.ColumnType, f.Message)
			} else {
				p.printf("  [%s] %s: %s...\n", f.Category, f.Subject, f.Message)
			}
		case f.Kind == validator.KindConfirmed:
			p.printf("  [%s] missing: %s\n", f.Category, f.Subject)
		case f.Kind == validator.KindCaveat:
			p.printf("  [%s] warning: %s\n", f.Category, f.Message)
		default:
			p.printf("  [%s] %s: %s\n", f.Category, f.Subject, f.Message)
		}
	}
}

// printer remembers the first write error so rendering code stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) {
	p.printf("%s\n", s)
}

func (p *printer) section(title string) {
	p.line(title)
	p.line(strings.Repeat("-", rule))
}
