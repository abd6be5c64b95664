package app

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/vk/loom/internal/dom"
)

// readPage parses the configured input page.
func (a *App) readPage() (*dom.Document, error) {
	var r io.Reader = a.inR
	if a.config.PagePath != "-" {
		f, err := os.Open(a.config.PagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
		defer f.Close()
		r = f
	}
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", a.config.PagePath, err)
	}
	return doc, nil
}

// writePage serializes doc to the configured output.
func (a *App) writePage(doc *dom.Document) error {
	if a.config.OutputPath == "" || a.config.OutputPath == "-" {
		return doc.Render(a.outW)
	}

	f, err := os.Create(a.config.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := doc.Render(w); err != nil {
		f.Close()
		return fmt.Errorf("failed to render page: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write page: %w", err)
	}
	return f.Close()
}
