package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/draftlens/internal/annotate"
	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/document"
	"github.com/dgallion1/draftlens/internal/render"
	"github.com/dgallion1/draftlens/internal/session"
)

func newLocateCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "locate <file> <text>",
		Short: "Find text in a draft",
		Long: `Find text in a draft the way component content is located: exact after
whitespace folding first, then ignoring punctuation. When the text is not
found the closest blocks are listed.

Examples:
  draftlens locate draft.md "I hope this finds you well"
  draftlens locate draft.docx "Best regards" --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blocks, err := loadDraft(args[0])
			if err != nil {
				return err
			}
			res := session.LocateIn(blocks, args[1])
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if !res.Found {
				fmt.Fprintln(out, "not found")
				for _, s := range res.Suggestions {
					fmt.Fprintf(out, "  block %d (score %d): %s\n", s.Block, s.Score, s.Text)
				}
				return nil
			}
			how := "exact"
			if res.Loose {
				how = "loose"
			}
			fmt.Fprintf(out, "found (%s): %q\n", how, res.Text)
			for _, sp := range res.Spans {
				fmt.Fprintf(out, "  block %d [%d:%d]\n", sp.Block, sp.Start, sp.End)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newAnnotateCommand() *cobra.Command {
	var intents []string
	cmd := &cobra.Command{
		Use:   "annotate <file> <text>",
		Short: "Render a draft with text highlighted",
		Long: `Render a draft to the terminal with text highlighted as a selected
component. Each --intent dimension=value adds a dimension marker on the same
text.

Examples:
  draftlens annotate draft.md "Dear Alex," --intent Formality=formal`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blocks, err := loadDraft(args[0])
			if err != nil {
				return err
			}
			cr := components.CombinedResult{
				Component: components.Component{ID: "selection", Content: args[1]},
			}
			for _, kv := range intents {
				dim, val, ok := strings.Cut(kv, "=")
				if !ok || strings.TrimSpace(dim) == "" {
					return fmt.Errorf("intent %q: want dimension=value", kv)
				}
				cr.LinkedIntents = append(cr.LinkedIntents, document.Intent{
					Dimension:    strings.TrimSpace(dim),
					CurrentValue: strings.TrimSpace(val),
				})
			}
			blocks, missing := annotate.PaintDimensions(blocks, []components.CombinedResult{cr})
			res := annotate.Highlight(blocks, cr)
			if !res.Found || len(missing) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "text not found: %q\n", args[1])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Terminal(res.Blocks, annotate.NewColorCache(nil)))
			return err
		},
	}
	cmd.Flags().StringArrayVar(&intents, "intent", nil, "Intent marker as dimension=value (repeatable)")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Convert a draft to another format",
		Long: `Convert a draft to html, markdown, docx or text. Output goes to stdout
unless --output is given.

Examples:
  draftlens export draft.docx --format markdown
  draftlens export draft.md --format docx --output draft.docx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			blocks, err := loadDraft(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				return render.Render(cmd.OutOrStdout(), f, blocks, nil)
			}
			out, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := render.Render(out, f, blocks, nil); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format: html, markdown, docx or text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
