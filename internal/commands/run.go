package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/drcash-dev/drcash/internal/extract"
	"github.com/drcash-dev/drcash/internal/infer"
	"github.com/drcash-dev/drcash/internal/mapping"
	"github.com/drcash-dev/drcash/internal/model"
	"github.com/drcash-dev/drcash/internal/runlog"
	"github.com/drcash-dev/drcash/internal/workflow"
)

const (
	bankEntriesFile = "bank-entries.csv"
	taxInvoicesFile = "tax-invoices.csv"
	mappingFile     = "mapping.yaml"
)

type runOptions struct {
	bank           []string
	tax            string
	mappingPath    string
	acceptDetected bool
	outDir         string
}

func newRunCommand(flags *globalFlags) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Map bank and tax files and extract normalized records",
		Long: "Previews every file, applies the mapping file's edits on top of the detected\n" +
			"defaults and, once every mapping is complete, writes bank-entries.csv and\n" +
			"tax-invoices.csv to the output directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd)
			if err != nil {
				return err
			}
			session := workflow.NewSession(workflow.Options{
				Builder: infer.NewBuilder(cfg.InferOptions()),
				Extract: cfg.ExtractOptions(),
				Logger:  logger,
			})
			root := filepath.Dir(flags.configPath)
			return runMapping(cmd, session, logger, opts, root)
		},
	}

	cmd.Flags().StringSliceVar(&opts.bank, "bank", nil, "bank statement files (.csv or .xlsx), in order")
	cmd.Flags().StringVar(&opts.tax, "tax", "", "tax invoice file (.csv or .xlsx)")
	cmd.Flags().StringVar(&opts.mappingPath, "mapping", "", "mapping.yaml with explicit column edits")
	cmd.Flags().BoolVar(&opts.acceptDetected, "accept-detected", false, "confirm the detected header row of every bank file without one")
	cmd.Flags().StringVar(&opts.outDir, "out", "exports", "output directory")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("tax")

	return cmd
}

func runMapping(cmd *cobra.Command, session *workflow.Session, logger *log.Logger, opts runOptions, root string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	blobs := make([]workflow.Blob, 0, len(opts.bank))
	for _, path := range opts.bank {
		b, err := workflow.OpenLocalFile(path)
		if err != nil {
			return err
		}
		blobs = append(blobs, b)
	}
	if _, err := session.AddBankFiles(blobs...); err != nil {
		return err
	}
	taxBlob, err := workflow.OpenLocalFile(opts.tax)
	if err != nil {
		return err
	}
	if _, err := session.SetTaxFile(taxBlob); err != nil {
		return err
	}

	// Header rows from the mapping file must be in place before the
	// previews that fill role defaults.
	if opts.mappingPath != "" {
		if err := applyMappingFile(session, logger, opts.mappingPath); err != nil {
			return err
		}
	}
	if err := session.PreviewAll(ctx); err != nil {
		return err
	}
	if opts.acceptDetected {
		for i := range session.BankFiles() {
			acceptDetected(session, workflow.BankSlot(i))
		}
	}

	stage := session.Stage()
	printMappings(out, session)
	fmt.Fprintf(out, "Stage: %s\n", stage)
	if stage != model.StageReady {
		return fmt.Errorf("%w: complete the mappings above with --mapping or --accept-detected", workflow.ErrNotReady)
	}

	res, err := session.Run(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeFile(filepath.Join(opts.outDir, bankEntriesFile), func(w io.Writer) error {
		return extract.WriteBankEntries(w, res.Bank)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(opts.outDir, taxInvoicesFile), func(w io.Writer) error {
		return extract.WriteTaxInvoices(w, res.Tax)
	}); err != nil {
		return err
	}
	if err := mapping.SaveFile(filepath.Join(opts.outDir, mappingFile), effectiveMapping(session)); err != nil {
		return err
	}

	entry := runlog.FromResult(res, string(session.Stage()), opts.outDir)
	if err := runlog.Append(root, []runlog.Entry{entry}); err != nil {
		logger.Warn("failed to write run log", "err", err)
	}

	fmt.Fprintf(out, "Run %s: %d bank entries, %d tax invoices, %d rows skipped -> %s\n",
		res.ID, len(res.Bank), len(res.Tax), res.Skipped, opts.outDir)
	return nil
}

// applyMappingFile records the file's entries as user edits.
func applyMappingFile(session *workflow.Session, logger *log.Logger, path string) error {
	f, err := mapping.LoadFile(path)
	if err != nil {
		return err
	}
	n := len(session.BankFiles())
	for i, cfg := range f.Bank {
		if i >= n {
			logger.Warn("mapping file has more bank entries than files", "entries", len(f.Bank), "files", n)
			break
		}
		if _, err := session.UpdateMapping(workflow.BankSlot(i), cfg); err != nil {
			return fmt.Errorf("bank[%d]: %w", i, err)
		}
	}
	if f.Tax != nil {
		if _, err := session.UpdateMapping(workflow.TaxSlot(), *f.Tax); err != nil {
			return fmt.Errorf("tax: %w", err)
		}
	}
	return nil
}

// acceptDetected confirms the cached header row when none is set.
func acceptDetected(session *workflow.Session, slot workflow.Slot) {
	cfg, err := session.Mapping(slot)
	if err != nil || cfg.HeaderRow != nil {
		return
	}
	res, ok := session.Cached(slot)
	if !ok {
		return
	}
	row := res.HeaderRowIndex
	_, _ = session.UpdateMapping(slot, model.MappingConfig{HeaderRow: &row})
}

func printMappings(w io.Writer, session *workflow.Session) {
	for i, id := range session.BankFiles() {
		printMapping(w, session, workflow.BankSlot(i), id)
	}
	if id, ok := session.TaxFile(); ok {
		printMapping(w, session, workflow.TaxSlot(), id)
	}
}

func printMapping(w io.Writer, session *workflow.Session, slot workflow.Slot, id model.FileIdentity) {
	cfg, err := session.Mapping(slot)
	if err != nil {
		return
	}
	header := "-"
	if cfg.HeaderRow != nil {
		header = fmt.Sprint(*cfg.HeaderRow)
	}
	cols := make([]string, 0, 5)
	for _, role := range model.RolesFor(slot.Document) {
		col, ok := cfg.Column(role)
		if !ok || col == "" {
			col = "-"
		}
		cols = append(cols, fmt.Sprintf("%s=%s", role, col))
	}
	fmt.Fprintf(w, "%-8s %s  header_row=%s  %s", slot, id.Name, header, strings.Join(cols, " "))
	if missing := mapping.Missing(cfg, slot.Document); len(missing) > 0 {
		fmt.Fprintf(w, "  missing: %s", strings.Join(missing, ", "))
	}
	fmt.Fprintln(w)
}

func effectiveMapping(session *workflow.Session) *mapping.File {
	f := &mapping.File{}
	for i := range session.BankFiles() {
		cfg, _ := session.Mapping(workflow.BankSlot(i))
		f.Bank = append(f.Bank, cfg)
	}
	if cfg, err := session.Mapping(workflow.TaxSlot()); err == nil {
		f.Tax = &cfg
	}
	return f
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
