// Package workflow ties uploaded files, inference results and mapping
// configs into one session and derives its stage.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/drcash-dev/drcash/internal/extract"
	"github.com/drcash-dev/drcash/internal/infer"
	"github.com/drcash-dev/drcash/internal/mapping"
	"github.com/drcash-dev/drcash/internal/model"
	"github.com/drcash-dev/drcash/internal/tabular"
)

var (
	// ErrSuperseded is returned when a newer request for the same file
	// replaced this one; its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrNoSuchFile is returned for a slot with no file.
	ErrNoSuchFile = errors.New("no such file")
	// ErrNotReady is returned by Run before every mapping is complete.
	ErrNotReady = errors.New("session is not ready to run")
)

// Slot addresses a file: bank file i, or the tax file.
type Slot struct {
	Document model.DocumentType
	Index    int
}

// BankSlot addresses bank file i.
func BankSlot(i int) Slot { return Slot{Document: model.DocumentBank, Index: i} }

// TaxSlot addresses the tax file.
func TaxSlot() Slot { return Slot{Document: model.DocumentTax} }

func (s Slot) String() string {
	if s.Document == model.DocumentTax {
		return "tax"
	}
	return fmt.Sprintf("bank[%d]", s.Index)
}

// Options configures a Session. Nil fields select defaults.
type Options struct {
	Builder *infer.Builder
	Store   *mapping.Store
	Extract extract.Options
	Logger  *log.Logger
}

type fileRef struct {
	blob Blob
	kind model.FileKind
	id   model.FileIdentity
}

type cacheEntry struct {
	result   model.InferenceResult
	override *int
}

// Session holds one workflow: bank files, at most one tax file, their
// cached inference results and mapping configs, and the last run result.
// All methods are safe for concurrent use; builds run outside the lock.
type Session struct {
	builder *infer.Builder
	store   *mapping.Store
	extract extract.Options
	logger  *log.Logger

	mu      sync.Mutex
	bank    []fileRef
	tax     *fileRef
	cache   map[mapping.Key]cacheEntry
	gens    map[mapping.Key]uint64
	seq     uint64 // never reset, so generations stay unique across resets
	version uint64 // bumped on every file or mapping change
	run     *RunResult
}

// NewSession creates an empty Session.
func NewSession(opts Options) *Session {
	if opts.Builder == nil {
		opts.Builder = infer.NewBuilder(infer.Options{})
	}
	if opts.Store == nil {
		opts.Store = mapping.NewStore()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Session{
		builder: opts.Builder,
		store:   opts.Store,
		extract: opts.Extract,
		logger:  opts.Logger,
		cache:   make(map[mapping.Key]cacheEntry),
		gens:    make(map[mapping.Key]uint64),
	}
}

// AddBankFiles appends bank files. The batch is rejected if any name has an
// unsupported suffix.
func (s *Session) AddBankFiles(blobs ...Blob) ([]model.FileIdentity, error) {
	kinds := make([]model.FileKind, len(blobs))
	for i, b := range blobs {
		kind, err := tabular.KindFromName(b.Name())
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]model.FileIdentity, len(blobs))
	for i, b := range blobs {
		id := model.NewFileIdentity(len(s.bank), b.Name(), b.Size(), b.ModTime())
		s.bank = append(s.bank, fileRef{blob: b, kind: kinds[i], id: id})
		ids[i] = id
		s.logger.Info("bank file added", "file", id.Name, "index", id.Index, "size", id.Size)
	}
	s.touchLocked()
	return ids, nil
}

// RemoveBankFile drops bank file i and its state. Later files shift down one
// position and their state moves with them.
func (s *Session) RemoveBankFile(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.bank) {
		return fmt.Errorf("%w: bank[%d]", ErrNoSuchFile, i)
	}
	s.dropLocked(cacheKey(BankSlot(i), s.bank[i].id))
	s.store.Delete(mapping.BankKey(s.bank[i].id))

	for j := i + 1; j < len(s.bank); j++ {
		old := s.bank[j].id
		moved := old
		moved.Index = j - 1
		s.rekeyLocked(mapping.BankKey(old), mapping.BankKey(moved))
		s.store.Rekey(mapping.BankKey(old), mapping.BankKey(moved))
		s.bank[j].id = moved
	}
	s.bank = append(s.bank[:i], s.bank[i+1:]...)
	s.touchLocked()
	return nil
}

// SetTaxFile sets or replaces the tax file. Replacing it with a different
// file drops the previous tax mapping.
func (s *Session) SetTaxFile(b Blob) (model.FileIdentity, error) {
	kind, err := tabular.KindFromName(b.Name())
	if err != nil {
		return model.FileIdentity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := model.NewFileIdentity(0, b.Name(), b.Size(), b.ModTime())
	if s.tax != nil && s.tax.id != id {
		s.clearTaxLocked()
	}
	s.tax = &fileRef{blob: b, kind: kind, id: id}
	s.touchLocked()
	s.logger.Info("tax file set", "file", id.Name, "size", id.Size)
	return id, nil
}

// ClearTaxFile removes the tax file and its mapping.
func (s *Session) ClearTaxFile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tax != nil {
		s.clearTaxLocked()
		s.tax = nil
		s.touchLocked()
	}
}

// Reset drops every file, cached result, mapping and run result.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bank = nil
	s.tax = nil
	s.cache = make(map[mapping.Key]cacheEntry)
	s.gens = make(map[mapping.Key]uint64)
	s.store.Reset()
	s.touchLocked()
	s.logger.Info("session reset")
}

// BankFiles returns the bank file identities in upload order.
func (s *Session) BankFiles() []model.FileIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]model.FileIdentity, len(s.bank))
	for i, f := range s.bank {
		ids[i] = f.id
	}
	return ids
}

// TaxFile returns the tax file identity, if any.
func (s *Session) TaxFile() (model.FileIdentity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tax == nil {
		return model.FileIdentity{}, false
	}
	return s.tax.id, true
}

// Preview returns the inference result for slot. A nil override falls back
// to the header row stored in the slot's mapping. The cached result is
// returned unless the effective override changed. Every request, cached or
// not, supersedes builds still in flight for the same file; such a build is
// discarded with ErrSuperseded when it completes.
// On a parse error the cached result is kept.
func (s *Session) Preview(ctx context.Context, slot Slot, override *int) (model.InferenceResult, error) {
	s.mu.Lock()
	ref, err := s.fileLocked(slot)
	if err != nil {
		s.mu.Unlock()
		return model.InferenceResult{}, err
	}
	skey := storeKey(slot, ref.id)
	if override == nil {
		override = s.store.Get(skey).HeaderRow
	}
	key := cacheKey(slot, ref.id)
	s.seq++
	gen := s.seq
	s.gens[key] = gen
	if entry, ok := s.cache[key]; ok && sameOverride(entry.override, override) {
		s.mu.Unlock()
		return entry.result, nil
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.InferenceResult{}, err
	}

	logger := s.logger.With("slot", slot.String(), "file", ref.id.Name)
	logger.Debug("building preview", "generation", gen)

	data, err := ref.blob.Bytes()
	if err != nil {
		logger.Warn("read failed", "err", err)
		return model.InferenceResult{}, err
	}
	res, err := s.builder.Build(data, ref.kind, slot.Document, override)
	if err != nil {
		logger.Warn("preview failed", "err", err)
		return model.InferenceResult{}, fmt.Errorf("%s: %w", ref.id.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] != gen {
		logger.Debug("discarding stale preview", "generation", gen)
		return res, ErrSuperseded
	}
	s.cache[key] = cacheEntry{result: res, override: copyInt(override)}
	if s.store.ApplyDefaults(skey, res) {
		s.touchLocked()
	}
	if res.Empty() {
		logger.Warn("empty inference result", "header_row", res.HeaderRowIndex, "columns", len(res.Columns))
	}
	return res, nil
}

// PreviewAll builds previews for every file concurrently. One file's failure
// does not affect the others; all failures are returned joined.
func (s *Session) PreviewAll(ctx context.Context) error {
	slots := s.slots()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(runtime.NumCPU())
	for _, slot := range slots {
		slot := slot
		g.Go(func() error {
			_, err := s.Preview(ctx, slot, nil)
			if err != nil && !errors.Is(err, ErrSuperseded) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", slot, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Cached returns the retained inference result for slot.
func (s *Session) Cached(slot Slot) (model.InferenceResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, err := s.fileLocked(slot)
	if err != nil {
		return model.InferenceResult{}, false
	}
	entry, ok := s.cache[cacheKey(slot, ref.id)]
	return entry.result, ok
}

// Mapping returns the mapping config for slot.
func (s *Session) Mapping(slot Slot) (model.MappingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, err := s.fileLocked(slot)
	if err != nil {
		return model.MappingConfig{}, err
	}
	return s.store.Get(storeKey(slot, ref.id)), nil
}

// UpdateMapping records a user edit as a partial update.
func (s *Session) UpdateMapping(slot Slot, patch model.MappingConfig) (model.MappingConfig, error) {
	if patch.HeaderRow != nil && *patch.HeaderRow < 0 {
		return model.MappingConfig{}, infer.ErrInvalidHeaderRow
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ref, err := s.fileLocked(slot)
	if err != nil {
		return model.MappingConfig{}, err
	}
	cfg := s.store.Set(storeKey(slot, ref.id), patch)
	s.touchLocked()
	return cfg, nil
}

// Complete reports whether the mapping for slot is complete.
func (s *Session) Complete(slot Slot) bool {
	cfg, err := s.Mapping(slot)
	return err == nil && mapping.Complete(cfg, slot.Document)
}

// Stage derives the current workflow stage.
func (s *Session) Stage() model.WorkflowStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stageLocked()
}

func (s *Session) stageLocked() model.WorkflowStage {
	ids := make([]model.FileIdentity, len(s.bank))
	configs := make(map[model.FileIdentity]model.MappingConfig, len(s.bank))
	for i, f := range s.bank {
		ids[i] = f.id
		configs[f.id] = s.store.Get(mapping.BankKey(f.id))
	}
	var taxID *model.FileIdentity
	if s.tax != nil {
		id := s.tax.id
		taxID = &id
	}
	return DeriveStage(ids, configs, taxID, s.store.Get(mapping.TaxKey()), s.run != nil)
}

// Result returns the last run result, if any.
func (s *Session) Result() (*RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run, s.run != nil
}

func (s *Session) slots() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := make([]Slot, 0, len(s.bank)+1)
	for i := range s.bank {
		slots = append(slots, BankSlot(i))
	}
	if s.tax != nil {
		slots = append(slots, TaxSlot())
	}
	return slots
}

func (s *Session) fileLocked(slot Slot) (fileRef, error) {
	switch slot.Document {
	case model.DocumentBank:
		if slot.Index >= 0 && slot.Index < len(s.bank) {
			return s.bank[slot.Index], nil
		}
	case model.DocumentTax:
		if s.tax != nil {
			return *s.tax, nil
		}
	}
	return fileRef{}, fmt.Errorf("%w: %s", ErrNoSuchFile, slot)
}

func (s *Session) clearTaxLocked() {
	s.dropLocked(cacheKey(TaxSlot(), s.tax.id))
	s.store.Delete(mapping.TaxKey())
}

func (s *Session) dropLocked(key mapping.Key) {
	delete(s.cache, key)
	delete(s.gens, key)
}

func (s *Session) rekeyLocked(from, to mapping.Key) {
	if entry, ok := s.cache[from]; ok {
		s.cache[to] = entry
	}
	if gen, ok := s.gens[from]; ok {
		s.gens[to] = gen
	}
	s.dropLocked(from)
}

// touchLocked invalidates the run result after any state change.
func (s *Session) touchLocked() {
	s.version++
	s.run = nil
}

// cacheKey includes the tax file identity, unlike the tax mapping key.
func cacheKey(slot Slot, id model.FileIdentity) mapping.Key {
	return mapping.Key{Document: slot.Document, File: id}
}

func storeKey(slot Slot, id model.FileIdentity) mapping.Key {
	if slot.Document == model.DocumentTax {
		return mapping.TaxKey()
	}
	return mapping.BankKey(id)
}

func sameOverride(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
