package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-reconciler/constants"
	"github.com/joseph-ayodele/receipts-reconciler/internal/async"
	"github.com/joseph-ayodele/receipts-reconciler/internal/categorize"
	"github.com/joseph-ayodele/receipts-reconciler/internal/common"
	"github.com/joseph-ayodele/receipts-reconciler/internal/entity"
	"github.com/joseph-ayodele/receipts-reconciler/internal/export"
	"github.com/joseph-ayodele/receipts-reconciler/internal/extract"
	"github.com/joseph-ayodele/receipts-reconciler/internal/ledger"
	"github.com/joseph-ayodele/receipts-reconciler/internal/pipeline"
	"github.com/joseph-ayodele/receipts-reconciler/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubText struct{ text string }

func (s stubText) Extract(context.Context, string) (extract.TextExtractionResult, error) {
	return extract.TextExtractionResult{Text: s.text, Method: "stub", Pages: 1}, nil
}

type fixture struct {
	router *gin.Engine
	docs   *store.Store
	book   *ledger.Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docs := store.New(nil)
	proc := pipeline.NewProcessor(nil,
		pipeline.NewOCRStage(stubText{text: "Vendor: Corner Cafe\nDate: 2024-03-05\nTotal: $12.50"}, nil),
		pipeline.NewParseStage(extract.NewHeuristic(extract.HeuristicConfig{}, nil), nil),
		docs,
	)
	queue := async.NewProcessorQueue(proc, nil, async.WithWorkers(1))
	t.Cleanup(func() { queue.Shutdown(context.Background()) })

	book := ledger.NewBook(nil)
	require.NoError(t, ledger.SeedSamples(book))

	classifier, err := categorize.NewKeywordClassifier(nil)
	require.NoError(t, err)

	srv := New(Config{UploadDir: t.TempDir(), MaxUploadBytes: 1 << 20}, Deps{
		Documents:   docs,
		Retrier:     proc,
		Queue:       queue,
		Book:        book,
		Categorizer: categorize.New(classifier, nil),
		Exporter:    export.NewService(nil),
	}, nil)
	return &fixture{router: srv.Router(), docs: docs, book: book}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) upload(t *testing.T, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestUploadProcessPromoteDelete(t *testing.T) {
	f := newFixture(t)

	w := f.upload(t, map[string]string{"receipt.png": "image-bytes"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	up := decode[struct {
		Uploads []uploadResult `json:"uploads"`
	}](t, w)
	require.Len(t, up.Uploads, 1)
	require.NotNil(t, up.Uploads[0].Job)
	jobPath := "/api/jobs/" + up.Uploads[0].Job.ID.String()

	var job entity.Job
	require.Eventually(t, func() bool {
		w := f.do(t, http.MethodGet, jobPath, nil)
		if w.Code != http.StatusOK {
			return false
		}
		job = decode[entity.Job](t, w)
		return job.Status == constants.JobStatusDone
	}, 2*time.Second, 10*time.Millisecond)
	require.NotEmpty(t, job.DocumentID)

	w = f.do(t, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Documents []entity.Document `json:"documents"`
	}](t, w)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "Corner Cafe", list.Documents[0].Vendor)
	assert.Equal(t, "2024-03-05", list.Documents[0].Date.Format(entity.DateLayout))

	w = f.do(t, http.MethodPost, "/api/documents/"+job.DocumentID+"/promote", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	_, ok := f.book.Documents.Get(job.DocumentID)
	assert.True(t, ok)

	w = f.do(t, http.MethodPost, "/api/documents/"+job.DocumentID+"/promote", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodDelete, "/api/documents/"+job.DocumentID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodDelete, "/api/documents/"+job.DocumentID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsUnsupportedFiles(t *testing.T) {
	f := newFixture(t)
	w := f.upload(t, map[string]string{"notes.txt": "hello"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	up := decode[struct {
		Uploads []uploadResult `json:"uploads"`
	}](t, w)
	require.Len(t, up.Uploads, 1)
	require.NotNil(t, up.Uploads[0].Error)
	assert.Equal(t, common.CodeValidation, up.Uploads[0].Error.Code)
	assert.Equal(t, 0, f.docs.Len())
}

func TestUploadRequiresFiles(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/documents", map[string]string{"a": "b"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetryUnknownDocument(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/documents/nope/retry", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, common.CodeNotFound, body.Code)
	assert.Equal(t, "Not Found", body.Title)
}

func TestJobs(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/jobs/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/jobs/00000000-0000-0000-0000-000000000001", nil).Code)
}

func TestTransactions(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/transactions/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Transactions []entity.Transaction `json:"transactions"`
	}](t, w)
	assert.Len(t, list.Transactions, 8)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/transactions/bank", nil).Code)

	w = f.do(t, http.MethodPost, "/api/transactions/documents", map[string]any{
		"id": "105", "description": "Hotel", "amount": 210.5, "date": "2024-03-06",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 5, f.book.Documents.Len())

	w = f.do(t, http.MethodPost, "/api/transactions/documents", map[string]any{
		"id": "105", "amount": 1, "date": "2024-03-06",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/transactions/documents", map[string]any{
		"id": "106", "date": "2024-03-06",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Message, "amount")

	w = f.do(t, http.MethodPost, "/api/transactions/documents", map[string]any{
		"id": "107", "amount": 1, "date": "06/03/2024",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategorize(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/transactions/ledger/tx-4/categorize", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Meals", decode[entity.Transaction](t, w).Category)

	w = f.do(t, http.MethodPost, "/api/transactions/ledger/missing/categorize", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/transactions/documents/categorize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[categorize.BulkResult](t, w)
	assert.Len(t, res.Categorized, 4)
	assert.Empty(t, res.Failed)
	assert.Empty(t, f.book.Documents.Uncategorized())
}

func TestReconcileAndReports(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/reconcile?strict=maybe", nil).Code)

	w := f.do(t, http.MethodPost, "/api/reconcile?strict=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Summary struct {
			MatchedA   int `json:"matched_a"`
			UnmatchedA int `json:"unmatched_a"`
			MatchedB   int `json:"matched_b"`
		} `json:"summary"`
		Pairs []map[string]string `json:"pairs"`
	}](t, w)
	assert.Equal(t, 4, res.Summary.MatchedA)
	assert.Equal(t, 4, res.Summary.UnmatchedA)
	assert.Equal(t, 4, res.Summary.MatchedB)
	assert.Len(t, res.Pairs, 4)

	w = f.do(t, http.MethodGet, "/api/reports/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[struct {
		Ledger struct {
			Matched int `json:"matched"`
		} `json:"ledger"`
	}](t, w)
	assert.Equal(t, 4, sum.Ledger.Matched)

	w = f.do(t, http.MethodGet, "/api/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"rate limited", common.RateLimitError("slow"), http.StatusTooManyRequests, common.CodeRateLimited},
		{"auth", common.AuthenticationError("key"), http.StatusBadGateway, common.CodeAuthentication},
		{"timeout", common.TimeoutError("slow", nil), http.StatusGatewayTimeout, common.CodeTimeout},
		{"parse", common.ParseError("junk", nil), http.StatusBadRequest, common.CodeParse},
		{"queue closed", async.ErrQueueClosed, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := describe(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Title)
		})
	}
}
