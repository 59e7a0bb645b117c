// Package receipt renders finalized sales as fixed-width tickets and prints them.
package receipt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/abgdnv/gopos/internal/pos/model"
	"github.com/shopspring/decimal"
)

const (
	nameWidth  = 10
	qtyWidth   = 4
	moneyWidth = 7
	lineWidth  = 29
)

// Options controls the ticket header and footer.
type Options struct {
	StoreName string
	Footer    string
}

// DefaultOptions returns the ticket texts used when none are configured.
func DefaultOptions() Options {
	return Options{StoreName: "NEW STORE", Footer: "Thank you for your purchase!"}
}

// Format renders sale as a plain-text ticket.
func Format(sale model.FinalizedSale, opts Options) string {
	separator := strings.Repeat("-", lineWidth)

	var b strings.Builder
	b.WriteString(center(opts.StoreName, lineWidth))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Client: %s\n", sale.ClientID)
	if !sale.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", sale.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	b.WriteString(separator + "\n")
	b.WriteString("Product      Qty  Price  Total\n")
	b.WriteString(separator + "\n")
	for _, item := range sale.Items {
		fmt.Fprintf(&b, "%-*s%*d%*s%*s\n",
			nameWidth, truncate(item.Name, nameWidth),
			qtyWidth, item.Quantity,
			moneyWidth, money(item.UnitPrice),
			moneyWidth, money(item.Total()))
	}
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "TOTAL:         $%s\n", money(sale.Total))
	if opts.Footer != "" {
		fmt.Fprintf(&b, "\n%s\n", opts.Footer)
	}
	b.WriteString("\n")
	return b.String()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}

// Printer prints tickets of finalized sales.
type Printer interface {
	Print(ctx context.Context, sale model.FinalizedSale) error
}

// WriterPrinter writes tickets to an io.Writer.
type WriterPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	opts Options
}

// NewWriterPrinter creates a printer writing to w.
func NewWriterPrinter(w io.Writer, opts Options) *WriterPrinter {
	return &WriterPrinter{w: w, opts: opts}
}

// Print writes one ticket.
func (p *WriterPrinter) Print(ctx context.Context, sale model.FinalizedSale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := io.WriteString(p.w, Format(sale, p.opts)); err != nil {
		return fmt.Errorf("failed to print receipt for sale %s: %w", sale.ID, err)
	}
	return nil
}

// FilePrinter appends tickets to a spool file, creating it on first use.
type FilePrinter struct {
	mu   sync.Mutex
	path string
	opts Options
}

// NewFilePrinter creates a printer spooling to path.
func NewFilePrinter(path string, opts Options) *FilePrinter {
	return &FilePrinter{path: path, opts: opts}
}

// Print appends one ticket to the spool file.
func (p *FilePrinter) Print(ctx context.Context, sale model.FinalizedSale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open receipt spool %s: %w", p.path, err)
	}
	_, err = io.WriteString(f, Format(sale, p.opts))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to print receipt for sale %s: %w", sale.ID, err)
	}
	return nil
}

// NopPrinter discards tickets.
type NopPrinter struct{}

// Print does nothing.
func (NopPrinter) Print(context.Context, model.FinalizedSale) error { return nil }

// NewPrinter builds the printer for the configured output. An empty output or
// "stdout" writes to standard output, anything else is a spool file path.
func NewPrinter(enabled bool, output string, opts Options) Printer {
	switch {
	case !enabled:
		return NopPrinter{}
	case output == "" || output == "stdout":
		return NewWriterPrinter(os.Stdout, opts)
	default:
		return NewFilePrinter(output, opts)
	}
}
