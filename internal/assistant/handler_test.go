package assistant

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosaine-academy/backend/internal/auth"
	"github.com/rosaine-academy/backend/internal/quota"
)

type stubGate struct {
	status     quota.Status
	increments []string
	incErr     error
}

func (s *stubGate) Check(_ context.Context, _, _ string) quota.Status {
	return s.status
}

func (s *stubGate) Increment(_ context.Context, _ string, service string) error {
	s.increments = append(s.increments, service)
	return s.incErr
}

type stubGen struct {
	answer string
	err    error
	prompt string
	calls  int
}

func (s *stubGen) GenerateText(_ context.Context, _, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.answer, s.err
}

func (s *stubGen) GenerateWithImage(_ context.Context, _, prompt, _ string, _ []byte) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.answer, s.err
}

func allowedStatus() quota.Status {
	return quota.Status{Allowed: true, Used: 3, Limit: 5, Remaining: 2, Percentage: 60, Plan: quota.PlanGratuit}
}

func newVideoRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/video", strings.NewReader(body))
	return r.WithContext(auth.ContextWithClaims(r.Context(), &auth.Claims{UserID: "u1"}))
}

func TestVideo_AnswersAndIncrements(t *testing.T) {
	gate := &stubGate{status: allowedStatus()}
	gen := &stubGen{answer: "💡 Le module mesure la distance à l'origine."}
	h := NewHandler(gate, gen, nil)

	w := httptest.NewRecorder()
	h.Video(w, newVideoRequest(t, `{"question":"c'est quoi le module ?","video_title":"Complexes"}`))

	require.Equal(t, http.StatusOK, w.Code)

	var resp answerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, gen.answer, resp.Response)
	assert.Equal(t, 4, resp.Quota.Used)
	assert.Equal(t, 5, resp.Quota.Limit)
	assert.Equal(t, 1, resp.Quota.Remaining)
	assert.Equal(t, 80.0, resp.Quota.Percentage)
	assert.Equal(t, quota.LevelWarning, resp.Quota.WarningLevel)
	assert.NotEmpty(t, resp.Timestamp)

	assert.Equal(t, []string{quota.ServiceVideoAssistant}, gate.increments)
	assert.Contains(t, gen.prompt, "🎬 Vidéo: Complexes")
}

func TestVideo_DeniedReturns429Shape(t *testing.T) {
	gate := &stubGate{status: quota.Status{
		Allowed: false, Used: 10, Limit: 10, Remaining: 0, Percentage: 100, Plan: quota.PlanGratuit,
	}}
	gen := &stubGen{answer: "never"}
	h := NewHandler(gate, gen, nil)

	w := httptest.NewRecorder()
	h.Video(w, newVideoRequest(t, `{"question":"encore une ?"}`))

	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp deniedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Quota quotidien dépassé", resp.Error)
	assert.Contains(t, resp.Message, "questions vidéo")
	assert.Equal(t, 10, resp.Quota.Used)
	assert.Equal(t, quota.LevelBlocked, resp.Quota.WarningLevel)
	assert.Equal(t, "/pricing", resp.UpgradeURL)
	assert.Equal(t, quota.PlanGratuit, resp.Plan)

	assert.Zero(t, gen.calls, "denied requests must not reach the model")
	assert.Empty(t, gate.increments)
}

func TestVideo_GeneratorFailureDoesNotIncrement(t *testing.T) {
	gate := &stubGate{status: allowedStatus()}
	gen := &stubGen{err: errors.New("model unavailable")}
	h := NewHandler(gate, gen, nil)

	w := httptest.NewRecorder()
	h.Video(w, newVideoRequest(t, `{"question":"aide"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, gate.increments, "no usage counted for a failed generation")
}

func TestVideo_IncrementFailureStillReturnsAnswer(t *testing.T) {
	gate := &stubGate{status: allowedStatus(), incErr: errors.New("write timeout")}
	gen := &stubGen{answer: "réponse"}
	h := NewHandler(gate, gen, nil)

	w := httptest.NewRecorder()
	h.Video(w, newVideoRequest(t, `{"question":"aide"}`))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVideo_MissingQuestion(t *testing.T) {
	h := NewHandler(&stubGate{status: allowedStatus()}, &stubGen{}, nil)

	w := httptest.NewRecorder()
	h.Video(w, newVideoRequest(t, `{"video_title":"Complexes"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVideo_Unauthenticated(t *testing.T) {
	h := NewHandler(&stubGate{status: allowedStatus()}, &stubGen{answer: "x"}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/video", strings.NewReader(`{"question":"aide"}`))
	h.Video(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExo_AnswersWithExerciseContext(t *testing.T) {
	gate := &stubGate{status: allowedStatus()}
	gen := &stubGen{answer: "🎯 Commence par l'Exercice 1."}
	h := NewHandler(gate, gen, nil)

	body := `{"question":"par où commencer ?","active_exercises":[{"order":1,"title":"Les bases"}]}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/exo", strings.NewReader(body))
	r = r.WithContext(auth.ContextWithClaims(r.Context(), &auth.Claims{UserID: "u1"}))

	w := httptest.NewRecorder()
	h.Exo(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{quota.ServiceExoAssistant}, gate.increments)
	assert.Contains(t, gen.prompt, "Titre: Les bases")
}

func multipartImageRequest(t *testing.T, question, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("question", question))

	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="image"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/image", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r.WithContext(auth.ContextWithClaims(r.Context(), &auth.Claims{UserID: "u1"}))
}

func TestImage_AnswersAndIncrements(t *testing.T) {
	gate := &stubGate{status: allowedStatus()}
	gen := &stubGen{answer: "💡 C'est une identité remarquable."}
	h := NewHandler(gate, gen, nil)

	w := httptest.NewRecorder()
	h.Image(w, multipartImageRequest(t, "c'est quoi ça ?", "exo.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{quota.ServiceImageUpload}, gate.increments)
}

func TestImage_RejectsNonImage(t *testing.T) {
	gate := &stubGate{status: allowedStatus()}
	gen := &stubGen{answer: "x"}
	h := NewHandler(gate, gen, nil)

	w := httptest.NewRecorder()
	h.Image(w, multipartImageRequest(t, "aide", "notes.txt", "text/plain", []byte("du texte")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, gen.calls)
}

func TestImage_MissingFile(t *testing.T) {
	h := NewHandler(&stubGate{status: allowedStatus()}, &stubGen{}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("question", "aide"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/image", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r = r.WithContext(auth.ContextWithClaims(r.Context(), &auth.Claims{UserID: "u1"}))

	w := httptest.NewRecorder()
	h.Image(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
