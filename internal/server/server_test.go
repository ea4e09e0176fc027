package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/retriever"
	"docqa/internal/service"
	"docqa/internal/store"
	"docqa/internal/summarizer"
	"docqa/internal/synthesis"
)

type scriptedModel struct {
	output string
	err    error
}

func (m *scriptedModel) Complete(context.Context, string) (string, error) {
	return m.output, m.err
}

func newTestServer(t *testing.T, model *scriptedModel) *Server {
	t.Helper()
	log := zap.NewNop().Sugar()
	emb := hashing.New()

	ch, err := chunker.New(200, 40)
	require.NoError(t, err)

	st, err := store.Open(t.TempDir(), emb, log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := service.New(ch, summarizer.NewFrequency(), st, retriever.New(st, emb, retriever.DefaultTopK), synthesis.New(model), 2, log)
	return New(svc, log)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func ingestPolicy(t *testing.T, srv *Server) domain.Session {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/documents", map[string]any{
		"filename": "policy.txt",
		"blocks": []map[string]string{
			{"text": "The grace period is 30 days.", "source_tag": "Paragraph 1"},
			{"text": "Knee surgery is covered after 90 days.", "source_tag": "Paragraph 2"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)
	return sess
}

func TestIngestAndAsk(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{
		output: `{"answer":"No","reason":"waiting period not completed","clause":"Knee surgery is covered after 90 days.","confidence_score":0.9,"document_references":["Paragraph 2"]}`,
	})
	sess := ingestPolicy(t, srv)
	assert.Equal(t, 2, sess.ChunkCount)
	assert.Equal(t, "policy.txt", sess.Filename)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+sess.ID+"/ask", map[string]any{
		"question": "Is knee surgery covered after 60 days?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res domain.AnswerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "No", res.Answer)
	assert.Equal(t, []string{"Paragraph 2"}, res.References)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
}

func TestIngestRejectsEmptyBody(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{})

	rec := doJSON(t, srv, http.MethodPost, "/api/documents", map[string]any{"filename": "x.txt"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestIngestRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{})

	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskValidation(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{output: `{"answer":"Yes"}`})
	sess := ingestPolicy(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+sess.ID+"/ask", map[string]any{"question": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions/"+sess.ID+"/ask", map[string]any{"question": "q?", "top_k": 999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskUnknownSession(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{output: `{"answer":"Yes"}`})

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/nope/ask", map[string]any{"question": "q?"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskUpstreamFailure(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{err: fmt.Errorf("%w: rate limited", domain.ErrUpstream)})
	sess := ingestPolicy(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions/"+sess.ID+"/ask", map[string]any{"question": "q?"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{output: `{"answer":"Yes"}`})
	sess := ingestPolicy(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)

	rec = doJSON(t, srv, http.MethodGet, "/api/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{output: `{"answer":"Yes"}`})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "policy.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("The grace period is 30 days.\n\nKnee surgery is covered after 90 days.\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "policy.txt", sess.Filename)
	assert.Equal(t, 2, sess.ChunkCount)
}

func TestUploadUnsupportedType(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "scan.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &scriptedModel{})

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
