package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/drcash-dev/drcash/internal/extract"
	"github.com/drcash-dev/drcash/internal/infer"
	"github.com/drcash-dev/drcash/internal/mapping"
	"github.com/drcash-dev/drcash/internal/model"
	"github.com/drcash-dev/drcash/internal/tabular"
	"github.com/drcash-dev/drcash/internal/workflow"
)

// maxUploadSize caps a single uploaded file.
const maxUploadSize = 20 << 20

// Handler serves the /api routes.
type Handler struct {
	session *workflow.Session
	logger  *log.Logger
}

// NewHandler creates a Handler.
func NewHandler(session *workflow.Session, logger *log.Logger) *Handler {
	return &Handler{session: session, logger: logger}
}

// RegisterRoutes registers the API routes on router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)
	router.POST("/reset", h.Reset)

	router.POST("/bank", h.AddBankFiles)
	router.DELETE("/bank/:index", h.RemoveBankFile)
	router.GET("/bank/:index/preview", h.Preview)
	router.GET("/bank/:index/mapping", h.GetMapping)
	router.PATCH("/bank/:index/mapping", h.UpdateMapping)

	router.PUT("/tax", h.SetTaxFile)
	router.DELETE("/tax", h.ClearTaxFile)
	router.GET("/tax/preview", h.Preview)
	router.GET("/tax/mapping", h.GetMapping)
	router.PATCH("/tax/mapping", h.UpdateMapping)

	router.POST("/run", h.Run)
	router.GET("/run", h.GetRun)
}

// Response is the JSON envelope of every reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Code:    status,
		Message: message,
	})
}

// fail replies with the status err maps to.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	errorResponse(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tabular.ErrUnsupportedKind):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, tabular.ErrUnreadable), errors.Is(err, extract.ErrMissingColumn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrNoSuchFile):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrNotReady), errors.Is(err, workflow.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, infer.ErrInvalidHeaderRow):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// slot resolves the file addressed by the route.
func slot(c *gin.Context) (workflow.Slot, error) {
	raw, ok := c.Params.Get("index")
	if !ok {
		return workflow.TaxSlot(), nil
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return workflow.Slot{}, fmt.Errorf("invalid bank file index %q", raw)
	}
	return workflow.BankSlot(i), nil
}

type fileStatus struct {
	model.FileIdentity
	Label     string   `json:"label"`
	Complete  bool     `json:"complete"`
	Missing   []string `json:"missing,omitempty"`
	Previewed bool     `json:"previewed"`
}

type statusResponse struct {
	Stage     model.WorkflowStage `json:"stage"`
	Bank      []fileStatus        `json:"bank"`
	Tax       *fileStatus         `json:"tax"`
	HasResult bool                `json:"has_result"`
}

func (h *Handler) fileStatus(s workflow.Slot, id model.FileIdentity) fileStatus {
	cfg, _ := h.session.Mapping(s)
	_, previewed := h.session.Cached(s)
	st := fileStatus{
		FileIdentity: id,
		Label:        id.Name,
		Missing:      mapping.Missing(cfg, s.Document),
		Previewed:    previewed,
	}
	st.Complete = len(st.Missing) == 0
	if cfg.Label != nil && *cfg.Label != "" {
		st.Label = *cfg.Label
	}
	return st
}

func (h *Handler) status() statusResponse {
	resp := statusResponse{Stage: h.session.Stage(), Bank: []fileStatus{}}
	for i, id := range h.session.BankFiles() {
		resp.Bank = append(resp.Bank, h.fileStatus(workflow.BankSlot(i), id))
	}
	if id, ok := h.session.TaxFile(); ok {
		st := h.fileStatus(workflow.TaxSlot(), id)
		resp.Tax = &st
	}
	_, resp.HasResult = h.session.Result()
	return resp
}

// GetStatus reports the stage and every file's mapping state.
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	success(c, h.status())
}

// Reset drops every file, mapping and result.
// POST /api/reset
func (h *Handler) Reset(c *gin.Context) {
	h.session.Reset()
	success(c, h.status())
}

// AddBankFiles appends uploaded bank files. Each "files" part may be matched
// by a "last_modified" value in unix milliseconds.
// POST /api/bank
func (h *Handler) AddBankFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		errorResponse(c, http.StatusBadRequest, "no files uploaded")
		return
	}
	modTimes := form.Value["last_modified"]

	blobs := make([]workflow.Blob, 0, len(headers))
	for i, fh := range headers {
		var ms string
		if i < len(modTimes) {
			ms = modTimes[i]
		}
		blob, status, err := readUpload(fh, ms)
		if err != nil {
			errorResponse(c, status, err.Error())
			return
		}
		blobs = append(blobs, blob)
	}

	ids, err := h.session.AddBankFiles(blobs...)
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, gin.H{"files": ids, "stage": h.session.Stage()})
}

// RemoveBankFile drops a bank file; later files shift down one position.
// DELETE /api/bank/:index
func (h *Handler) RemoveBankFile(c *gin.Context) {
	s, err := slot(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.session.RemoveBankFile(s.Index); err != nil {
		h.fail(c, err)
		return
	}
	success(c, h.status())
}

// SetTaxFile sets or replaces the tax file.
// PUT /api/tax
func (h *Handler) SetTaxFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "no file uploaded")
		return
	}
	blob, status, err := readUpload(fh, c.PostForm("last_modified"))
	if err != nil {
		errorResponse(c, status, err.Error())
		return
	}
	id, err := h.session.SetTaxFile(blob)
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, gin.H{"file": id, "stage": h.session.Stage()})
}

// ClearTaxFile removes the tax file.
// DELETE /api/tax
func (h *Handler) ClearTaxFile(c *gin.Context) {
	h.session.ClearTaxFile()
	success(c, h.status())
}

type previewResponse struct {
	Result  model.InferenceResult `json:"result"`
	Mapping model.MappingConfig   `json:"mapping"`
	Warning string                `json:"warning,omitempty"`
}

// Preview builds or returns the cached inference result.
// GET /api/bank/:index/preview?header_row=N, GET /api/tax/preview
func (h *Handler) Preview(c *gin.Context) {
	s, err := slot(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	var override *int
	if raw, ok := c.GetQuery("header_row"); ok && raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid header_row %q", raw))
			return
		}
		if v < 0 {
			h.fail(c, infer.ErrInvalidHeaderRow)
			return
		}
		override = &v
	}

	res, err := h.session.Preview(c.Request.Context(), s, override)
	if err != nil {
		h.fail(c, err)
		return
	}
	cfg, err := h.session.Mapping(s)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := previewResponse{Result: res, Mapping: cfg}
	if res.Empty() {
		resp.Warning = "empty_result"
	}
	success(c, resp)
}

type mappingResponse struct {
	Mapping  model.MappingConfig `json:"mapping"`
	Complete bool                `json:"complete"`
	Missing  []string            `json:"missing,omitempty"`
	Stage    model.WorkflowStage `json:"stage"`
}

func (h *Handler) mappingResponse(s workflow.Slot, cfg model.MappingConfig) mappingResponse {
	missing := mapping.Missing(cfg, s.Document)
	return mappingResponse{
		Mapping:  cfg,
		Complete: len(missing) == 0,
		Missing:  missing,
		Stage:    h.session.Stage(),
	}
}

// GetMapping returns a file's mapping config.
// GET /api/bank/:index/mapping, GET /api/tax/mapping
func (h *Handler) GetMapping(c *gin.Context) {
	s, err := slot(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := h.session.Mapping(s)
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, h.mappingResponse(s, cfg))
}

// UpdateMapping applies a partial update; absent fields are left alone.
// PATCH /api/bank/:index/mapping, PATCH /api/tax/mapping
func (h *Handler) UpdateMapping(c *gin.Context) {
	s, err := slot(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	var patch model.MappingConfig
	if err := c.ShouldBindJSON(&patch); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid mapping: "+err.Error())
		return
	}
	cfg, err := h.session.UpdateMapping(s, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, h.mappingResponse(s, cfg))
}

type runSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	BankFiles   int       `json:"bank_files"`
	BankEntries int       `json:"bank_entries"`
	TaxInvoices int       `json:"tax_invoices"`
	Skipped     int       `json:"skipped_rows"`
}

// Run extracts normalized records from every mapped file.
// POST /api/run
func (h *Handler) Run(c *gin.Context) {
	res, err := h.session.Run(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	success(c, runSummary{
		ID:          res.ID,
		CreatedAt:   res.CreatedAt,
		BankFiles:   res.BankFiles,
		BankEntries: len(res.Bank),
		TaxInvoices: len(res.Tax),
		Skipped:     res.Skipped,
	})
}

// GetRun returns the last run result.
// GET /api/run
func (h *Handler) GetRun(c *gin.Context) {
	res, ok := h.session.Result()
	if !ok {
		errorResponse(c, http.StatusNotFound, "no run result")
		return
	}
	success(c, res)
}

// readUpload reads an uploaded part into memory. ms is an optional unix
// millisecond modification time.
func readUpload(fh *multipart.FileHeader, ms string) (workflow.Blob, int, error) {
	if fh.Size > maxUploadSize {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("%s exceeds %d MB", fh.Filename, maxUploadSize>>20)
	}
	var modTime time.Time
	if ms != "" {
		v, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid last_modified %q", ms)
		}
		modTime = time.UnixMilli(v)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	return workflow.NewMemFile(fh.Filename, data, modTime), http.StatusOK, nil
}
