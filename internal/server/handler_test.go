package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/drcash-dev/drcash/internal/config"
	"github.com/drcash-dev/drcash/internal/model"
	"github.com/drcash-dev/drcash/internal/workflow"
)

const bankCSV = "신한은행 거래내역조회\n거래일자,적요,거래처,출금금액,입금금액\n2025.01.03,GITHUB,,4000,\n2025.01.05,점심,김밥천국,12000,\n2025.01.09,급여,ACME,,3500000\n"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	session := workflow.NewSession(workflow.Options{})
	return New(config.ServerConfig{DevMode: true}, session, log.New(io.Discard))
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, srv *Server, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func get(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	return do(t, srv, httptest.NewRequest(http.MethodGet, path, nil))
}

func send(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, srv, req)
}

type upload struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, method, path, field string, files []upload, values map[string][]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func taxWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"작성일자", "승인번호", "상호", "품목명", "합계금액"},
		{"2025-01-03", "20250103-001", "깃허브코리아", "구독료", "4000"},
		{"2025-01-05", "20250105-002", "김밥천국", "식대", "12000"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestWorkflow(t *testing.T) {
	srv := newTestServer(t)

	w, env := get(t, srv, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StageUploadPending, decode[statusResponse](t, env).Stage)

	req := multipartRequest(t, http.MethodPost, "/api/bank", "files",
		[]upload{{"shinhan.csv", []byte(bankCSV)}},
		map[string][]string{"last_modified": {"1735689600000"}})
	w, env = do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	req = multipartRequest(t, http.MethodPut, "/api/tax", "file", []upload{{"hometax.xlsx", taxWorkbook(t)}}, nil)
	w, env = do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, env = get(t, srv, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[statusResponse](t, env)
	assert.Equal(t, model.StageMappingPending, status.Stage)
	require.Len(t, status.Bank, 1)
	assert.Equal(t, int64(1735689600000), status.Bank[0].ModTime)
	assert.False(t, status.Bank[0].Previewed)
	require.NotNil(t, status.Tax)

	w, env = get(t, srv, "/api/bank/0/preview")
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	preview := decode[previewResponse](t, env)
	assert.Equal(t, 1, preview.Result.HeaderRowIndex)
	assert.Equal(t, "출금금액", preview.Result.RoleDefaults[model.RoleAmount])
	assert.Equal(t, "거래일자", *preview.Mapping.DateCol)
	assert.Empty(t, preview.Warning)

	w, env = get(t, srv, "/api/tax/preview")
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	taxPreview := decode[previewResponse](t, env)
	assert.Equal(t, "품목명", taxPreview.Result.RoleDefaults[model.RoleItem])
	assert.Equal(t, "상호", *taxPreview.Mapping.NameCol)

	w, env = send(t, srv, http.MethodPatch, "/api/bank/0/mapping", `{"header_row": 1, "label": "신한 법인"}`)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	m := decode[mappingResponse](t, env)
	assert.True(t, m.Complete)
	assert.Equal(t, model.StageReady, m.Stage)

	w, env = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/run", nil))
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	summary := decode[runSummary](t, env)
	assert.Equal(t, 2, summary.BankEntries)
	assert.Equal(t, 2, summary.TaxInvoices)
	assert.Equal(t, 1, summary.Skipped)

	w, env = get(t, srv, "/api/run")
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[workflow.RunResult](t, env)
	assert.Equal(t, summary.ID, result.ID)
	require.Len(t, result.Bank, 2)
	assert.Equal(t, "신한 법인", result.Bank[0].Source)
	assert.Equal(t, "김밥천국", result.Tax[1].Counterparty)

	w, env = get(t, srv, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StageComplete, decode[statusResponse](t, env).Stage)
}

func TestPreviewOverride(t *testing.T) {
	srv := newTestServer(t)
	req := multipartRequest(t, http.MethodPost, "/api/bank", "files", []upload{{"a.csv", []byte(bankCSV)}}, nil)
	w, _ := do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := get(t, srv, "/api/bank/0/preview?header_row=0")
	require.Equal(t, http.StatusOK, w.Code)
	preview := decode[previewResponse](t, env)
	assert.Equal(t, 0, preview.Result.HeaderRowIndex)
	assert.Equal(t, 1, preview.Result.Detected)
	assert.True(t, preview.Result.Overridden)

	w, env = get(t, srv, "/api/bank/0/preview?header_row=99")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "empty_result", decode[previewResponse](t, env).Warning)

	w, env = get(t, srv, "/api/bank/0/preview?header_row="+strconv.Itoa(math.MaxInt))
	require.Equal(t, http.StatusOK, w.Code)
	huge := decode[previewResponse](t, env)
	assert.Equal(t, "empty_result", huge.Warning)
	assert.NotNil(t, huge.Result.PreviewRows)
	assert.Empty(t, huge.Result.PreviewRows)

	w, _ = get(t, srv, "/api/bank/0/preview?header_row=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, srv, "/api/bank/0/preview?header_row=two")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	req := multipartRequest(t, http.MethodPost, "/api/bank", "files", []upload{{"statement.pdf", []byte("%PDF")}}, nil)
	w, env := do(t, srv, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, env.Code)

	req = multipartRequest(t, http.MethodPost, "/api/bank", "files", []upload{{"broken.xlsx", []byte("not a zip")}}, nil)
	w, _ = do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = get(t, srv, "/api/bank/0/preview")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = get(t, srv, "/api/bank/3/preview")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = get(t, srv, "/api/bank/x/mapping")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, srv, "/api/tax/mapping")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = send(t, srv, http.MethodPatch, "/api/bank/0/mapping", `{"header_row": "one"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = send(t, srv, http.MethodPatch, "/api/bank/0/mapping", `{"header_row": -3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/run", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = get(t, srv, "/api/run")
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = multipartRequest(t, http.MethodPost, "/api/bank", "files", nil, nil)
	w, _ = do(t, srv, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveAndReset(t *testing.T) {
	srv := newTestServer(t)
	req := multipartRequest(t, http.MethodPost, "/api/bank", "files",
		[]upload{{"a.csv", []byte(bankCSV)}, {"b.csv", []byte(bankCSV)}},
		map[string][]string{"last_modified": {"1", "2"}})
	w, _ := do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = send(t, srv, http.MethodPatch, "/api/bank/1/mapping", `{"label": "b 계좌"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/bank/0", nil))
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[statusResponse](t, env)
	require.Len(t, status.Bank, 1)
	assert.Equal(t, "b.csv", status.Bank[0].Name)
	assert.Equal(t, "b 계좌", status.Bank[0].Label)
	assert.Equal(t, 0, status.Bank[0].Index)

	w, _ = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/bank/4", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = multipartRequest(t, http.MethodPut, "/api/tax", "file", []upload{{"tax.csv", []byte("작성일자,상호,합계금액\n")}}, nil)
	w, _ = do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/tax", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[statusResponse](t, env).Tax)

	w, env = do(t, srv, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)
	status = decode[statusResponse](t, env)
	assert.Empty(t, status.Bank)
	assert.Equal(t, model.StageUploadPending, status.Stage)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(workflow.ErrSuperseded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}
