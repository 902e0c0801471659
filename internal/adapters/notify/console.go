package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/matheushexsel/polymarket-worker/internal/domain"
)

// Console implementa ports.Notifier escribiendo el resumen del ciclo a stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el resumen en el modo configurado.
func (c *Console) Notify(_ context.Context, summary domain.RunSummary) error {
	if c.table {
		c.printFull(summary)
	} else {
		c.printCompact(summary)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(summary domain.RunSummary) {
	now := summary.EndedAt.Local().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] run %s — %d assets, %d orders, %d skips, %d errors (%s)",
		now, shortRunID(summary.RunID), len(summary.Assets), summary.OrdersPlaced(),
		len(summary.SkippedReasons), len(summary.Errors),
		summary.Duration().Round(time.Millisecond))

	shown := 0
	for _, a := range summary.Assets {
		if shown >= 4 {
			break
		}
		if !a.Resolved {
			fmt.Fprintf(&sb, " | %s: no market", a.Asset)
			shown++
			continue
		}
		fmt.Fprintf(&sb, " | %s: s%d q%d x%d c%d",
			a.Asset, a.Seeds, a.MakerQuotes, a.ProfitExits+a.CloseoutExits, a.Cancelled)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla por asset más skips y errores del ciclo.
func (c *Console) printFull(summary domain.RunSummary) {
	fmt.Fprintf(c.out, "\n[%s] run %s — %s\n",
		summary.EndedAt.Local().Format("15:04:05"),
		shortRunID(summary.RunID),
		summary.Duration().Round(time.Millisecond))

	table := tablewriter.NewWriter(c.out)
	table.Header("Asset", "Slug", "Seeds", "Quotes", "Exits", "Closeouts", "Cancels", "Skips", "Errors")

	for _, a := range summary.Assets {
		slug := a.Slug
		if !a.Resolved {
			slug = "(no market)"
		}
		table.Append(
			a.Asset,
			truncate(slug, 32),
			fmt.Sprintf("%d", a.Seeds),
			fmt.Sprintf("%d", a.MakerQuotes),
			fmt.Sprintf("%d", a.ProfitExits),
			fmt.Sprintf("%d", a.CloseoutExits),
			fmt.Sprintf("%d", a.Cancelled),
			fmt.Sprintf("%d", a.Skips),
			fmt.Sprintf("%d", a.Errors),
		)
	}
	table.Render()

	if len(summary.SkippedReasons) > 0 {
		fmt.Fprintf(c.out, "  skips:\n")
		for _, reason := range summary.SkippedReasons {
			fmt.Fprintf(c.out, "    - %s\n", reason)
		}
	}
	if len(summary.Errors) > 0 {
		fmt.Fprintf(c.out, "  errors:\n")
		for _, msg := range summary.Errors {
			fmt.Fprintf(c.out, "    ! %s\n", msg)
		}
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
