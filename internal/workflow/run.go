package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/drcash-dev/drcash/internal/extract"
	"github.com/drcash-dev/drcash/internal/mapping"
	"github.com/drcash-dev/drcash/internal/model"
	"github.com/drcash-dev/drcash/internal/tabular"
)

// RunResult holds the normalized records of every mapped file.
type RunResult struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	BankFiles int                `json:"bank_files"`
	Bank      []model.BankEntry  `json:"bank_entries"`
	Tax       []model.TaxInvoice `json:"tax_invoices"`
	Skipped   int                `json:"skipped_rows"`
}

type runInput struct {
	slot Slot
	ref  fileRef
	cfg  model.MappingConfig
}

// Run extracts records from every file once all mappings are complete. Any
// file failing aborts the run. If files or mappings change while it runs,
// the result is discarded with ErrSuperseded.
func (s *Session) Run(ctx context.Context) (*RunResult, error) {
	s.mu.Lock()
	if stage := s.stageLocked(); stage != model.StageReady && stage != model.StageComplete {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: stage is %s", ErrNotReady, stage)
	}
	version := s.version
	inputs := make([]runInput, 0, len(s.bank)+1)
	for i, f := range s.bank {
		inputs = append(inputs, runInput{slot: BankSlot(i), ref: f, cfg: s.store.Get(mapping.BankKey(f.id))})
	}
	inputs = append(inputs, runInput{slot: TaxSlot(), ref: *s.tax, cfg: s.store.Get(mapping.TaxKey())})
	s.mu.Unlock()

	// The tax file is always the last input.
	bank := make([]extract.Result[model.BankEntry], len(inputs)-1)
	var tax extract.Result[model.TaxInvoice]

	g, ctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			grid, err := s.readGrid(in.ref)
			if err != nil {
				return fmt.Errorf("%s: %w", in.slot, err)
			}
			if in.slot.Document == model.DocumentBank {
				label := in.ref.id.Name
				if in.cfg.Label != nil && *in.cfg.Label != "" {
					label = *in.cfg.Label
				}
				res, err := extract.Bank(grid, *in.cfg.HeaderRow, in.cfg, label, s.extract)
				if err != nil {
					return fmt.Errorf("%s: %w", in.slot, err)
				}
				bank[i] = res
				return nil
			}
			headerRow, err := s.taxHeaderRow(grid, in.cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", in.slot, err)
			}
			res, err := extract.Tax(grid, headerRow, in.cfg, s.extract)
			if err != nil {
				return fmt.Errorf("%s: %w", in.slot, err)
			}
			tax = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("run failed", "err", err)
		return nil, err
	}

	result := &RunResult{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		BankFiles: len(bank),
		Tax:       tax.Records,
		Skipped:   tax.Skipped,
	}
	for _, r := range bank {
		result.Bank = append(result.Bank, r.Records...)
		result.Skipped += r.Skipped
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return nil, ErrSuperseded
	}
	s.run = result
	s.logger.Info("run complete", "id", result.ID, "bank_entries", len(result.Bank),
		"tax_invoices", len(result.Tax), "skipped", result.Skipped)
	return result, nil
}

func (s *Session) readGrid(ref fileRef) (model.Grid, error) {
	data, err := ref.blob.Bytes()
	if err != nil {
		return nil, err
	}
	return tabular.Parse(data, ref.kind)
}

// taxHeaderRow uses the configured header row, else the heuristic one.
func (s *Session) taxHeaderRow(grid model.Grid, cfg model.MappingConfig) (int, error) {
	if cfg.HeaderRow != nil {
		return *cfg.HeaderRow, nil
	}
	res, err := s.builder.Infer(grid, model.DocumentTax, nil)
	if err != nil {
		return 0, err
	}
	return res.HeaderRowIndex, nil
}
