package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/draftlens/internal/document"
	"github.com/dgallion1/draftlens/internal/parser"
)

var pdftotext bool

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "draftlens",
		Short: "Inspect drafts offline",
		Long: `draftlens reads a draft file (text, Markdown, HTML, DOCX or PDF) and
locates, highlights or converts it the same way the server does.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&pdftotext, "pdftotext", true, "Fall back to pdftotext for PDFs the built-in reader cannot parse")
	root.AddCommand(newLocateCommand(), newAnnotateCommand(), newExportCommand())
	return root
}

// loadDraft parses path with the parser for its extension.
func loadDraft(path string) ([]document.Block, error) {
	p, err := parser.ForFile(path)
	if err != nil {
		return nil, err
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = pdftotext
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	blocks, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return blocks, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
