package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type providerCall struct {
	path   string
	apiKey string
	query  string
	body   string
}

func fakeProvider(t *testing.T, status int, response string, calls *[]providerCall) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*calls = append(*calls, providerCall{
			path:   r.URL.Path,
			apiKey: r.Header.Get("x-goog-api-key"),
			query:  r.URL.RawQuery,
			body:   string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func postGenerate(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthHandler(t *testing.T) {
	router := NewServer(Opts{}).Router()

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGenerate_ForwardsToProvider(t *testing.T) {
	var calls []providerCall
	provider := fakeProvider(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`, &calls)
	router := NewServer(Opts{APIKey: "secret", BaseURL: provider.URL + "/v1beta"}).Router()

	w := postGenerate(router, `{"model":"gemini-2.5-flash","data":{"contents":[{"parts":[{"text":"bonjour"}]}]}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	require.Len(t, calls, 1)
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", calls[0].path)
	assert.Equal(t, "secret", calls[0].apiKey)
	assert.Empty(t, calls[0].query)
	assert.JSONEq(t, `{"contents":[{"parts":[{"text":"bonjour"}]}]}`, calls[0].body)
}

func TestGenerate_PassesProviderErrorThrough(t *testing.T) {
	var calls []providerCall
	envelope := `{"error":{"code":429,"message":"You exceeded your current quota","status":"RESOURCE_EXHAUSTED"}}`
	provider := fakeProvider(t, http.StatusTooManyRequests, envelope, &calls)
	router := NewServer(Opts{APIKey: "secret", BaseURL: provider.URL}).Router()

	w := postGenerate(router, `{"model":"m","data":{}}`)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, envelope, w.Body.String())
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	var calls []providerCall
	provider := fakeProvider(t, http.StatusOK, `{}`, &calls)
	router := NewServer(Opts{BaseURL: provider.URL}).Router()

	w := postGenerate(router, `{"model":"m","data":{}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "API Key not configured on server", resp.Error.Message)
	assert.Equal(t, 500, resp.Error.Status)
	assert.Empty(t, calls)
}

func TestGenerate_MissingModel(t *testing.T) {
	var calls []providerCall
	provider := fakeProvider(t, http.StatusOK, `{}`, &calls)
	router := NewServer(Opts{APIKey: "secret", BaseURL: provider.URL}).Router()

	for _, body := range []string{`{"data":{}}`, `{"model":"","data":{}}`} {
		w := postGenerate(router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "Model name is required", resp.Error.Message)
		assert.Equal(t, 400, resp.Error.Status)
	}
	assert.Empty(t, calls)
}

func TestGenerate_InvalidJSON(t *testing.T) {
	router := NewServer(Opts{APIKey: "secret", BaseURL: "http://127.0.0.1:1"}).Router()

	w := postGenerate(router, `{"model":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerate_NonJSONProviderBody(t *testing.T) {
	var calls []providerCall
	provider := fakeProvider(t, http.StatusBadGateway, `<html>bad gateway</html>`, &calls)
	router := NewServer(Opts{APIKey: "secret", BaseURL: provider.URL}).Router()

	w := postGenerate(router, `{"model":"m","data":{}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 500, decodeError(t, w).Error.Status)
}

func TestGenerate_ProviderUnreachable(t *testing.T) {
	provider := httptest.NewServer(http.NotFoundHandler())
	baseURL := provider.URL
	provider.Close()
	router := NewServer(Opts{APIKey: "secret", BaseURL: baseURL}).Router()

	w := postGenerate(router, `{"model":"m","data":{}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.NotEmpty(t, resp.Error.Message)
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	router := NewServer(Opts{APIKey: "secret", BaseURL: "http://127.0.0.1:1"}).Router()

	var body bytes.Buffer
	body.WriteString(`{"model":"m","data":"`)
	body.Write(bytes.Repeat([]byte("a"), MaxBodyBytes+1))
	body.WriteString(`"}`)

	w := postGenerate(router, body.String())
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
