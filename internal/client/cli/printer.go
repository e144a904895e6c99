package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Printer writes user-facing messages. It is safe for concurrent use
// because notifications also arrive from timer goroutines.
type Printer struct {
	mu        sync.Mutex
	out       io.Writer
	useColors bool
}

// NewPrinter writes to w. Colors are off when NO_COLOR is set or TERM is
// dumb.
func NewPrinter(w io.Writer, useColors bool) *Printer {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		useColors = false
	}
	if os.Getenv("TERM") == "dumb" {
		useColors = false
	}
	return &Printer{out: w, useColors: useColors}
}

func (p *Printer) emit(attr color.Attribute, badge, plain, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.useColors {
		color.New(attr).Fprintf(p.out, "%s %s\n", badge, msg)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", plain, msg)
}

func (p *Printer) Success(msg string) { p.emit(color.FgGreen, "✓", "[OK]", msg) }

func (p *Printer) Info(msg string) { p.emit(color.FgCyan, "•", "[INFO]", msg) }

func (p *Printer) Warn(msg string) { p.emit(color.FgYellow, "⚠", "[WARN]", msg) }

func (p *Printer) Error(msg string) { p.emit(color.FgRed, "✗", "[ERROR]", msg) }

// Println prints a plain line.
func (p *Printer) Println(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, a...)
}

// Header prints a section title.
func (p *Printer) Header(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.useColors {
		color.New(color.Bold).Fprintf(p.out, "\n%s\n", title)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", title)
}

// Writer exposes the underlying writer for table rendering. Callers
// holding it bypass the lock, so use it only from the REPL goroutine.
func (p *Printer) Writer() io.Writer { return p.out }
