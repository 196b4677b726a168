package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/drcash-dev/drcash/internal/infer"
	"github.com/drcash-dev/drcash/internal/model"
	"github.com/drcash-dev/drcash/internal/workflow"
)

func newPreviewCommand(flags *globalFlags) *cobra.Command {
	var docType string
	var headerRow int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the inferred header row, columns and role defaults of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := model.ParseDocumentType(docType)
			if err != nil {
				return err
			}
			var override *int
			if cmd.Flags().Changed("header-row") {
				if headerRow < 0 {
					return fmt.Errorf("%w: got %d", infer.ErrInvalidHeaderRow, headerRow)
				}
				override = &headerRow
			}

			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			blob, err := workflow.OpenLocalFile(args[0])
			if err != nil {
				return err
			}

			session := workflow.NewSession(workflow.Options{
				Builder: infer.NewBuilder(cfg.InferOptions()),
				Logger:  logger,
			})
			slot := workflow.TaxSlot()
			if doc == model.DocumentBank {
				slot = workflow.BankSlot(0)
				_, err = session.AddBankFiles(blob)
			} else {
				_, err = session.SetTaxFile(blob)
			}
			if err != nil {
				return err
			}

			res, err := session.Preview(cmd.Context(), slot, override)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printPreview(out, blob.Name(), doc, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&docType, "type", string(model.DocumentBank), "document type: bank or tax")
	cmd.Flags().IntVar(&headerRow, "header-row", 0, "use this 0-based row as the header instead of detecting it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the inference result as JSON")

	return cmd
}

func printPreview(w io.Writer, name string, doc model.DocumentType, res model.InferenceResult) {
	fmt.Fprintf(w, "File:       %s (%s)\n", name, doc)
	if res.Overridden {
		fmt.Fprintf(w, "Header row: %d (detected %d)\n", res.HeaderRowIndex, res.Detected)
	} else {
		fmt.Fprintf(w, "Header row: %d\n", res.HeaderRowIndex)
	}
	fmt.Fprintf(w, "Columns:    %s\n", strings.Join(res.Columns, ", "))
	fmt.Fprintln(w, "Roles:")
	for _, role := range model.RolesFor(doc) {
		col, ok := res.Default(role)
		if !ok {
			col = "-"
		}
		fmt.Fprintf(w, "  %-7s %s\n", role, col)
	}

	if res.Empty() {
		fmt.Fprintln(w, "Preview:    (empty)")
		return
	}
	fmt.Fprintf(w, "Preview:    %d of %d rows\n", len(res.PreviewRows), res.RowCount)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(res.PreviewFields, "\t"))
	for _, row := range res.PreviewRows {
		cells := make([]string, len(res.PreviewFields))
		for i, f := range res.PreviewFields {
			cells[i] = row[f]
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}
