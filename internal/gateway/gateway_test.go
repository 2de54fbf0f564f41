package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

type fakeServer struct {
	mu   sync.Mutex
	seen []seenRequest
	srv  *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.seen = append(f.seen, seenRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Header: r.Header.Clone(),
		})
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"forwarded":true}`))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) requests() []seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seenRequest(nil), f.seen...)
}

var gatewayNow = time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T, backend *fakeServer) *Gateway {
	t.Helper()
	g, err := New(
		config.GatewayConfig{ServerURL: backend.srv.URL, APIKey: "gw-key", APIExtra: "gw-extra"},
		config.APIAuthConfig{HeaderAPIKey: "x-api-key", HeaderExtra: "x-api-extra"},
		nil,
	)
	require.NoError(t, err)
	g.now = func() time.Time { return gatewayNow }
	return g
}

func call(g *Gateway, method, target, body string, userID string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(models.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNew_InvalidServerURL(t *testing.T) {
	_, err := New(config.GatewayConfig{ServerURL: "not a url"}, config.APIAuthConfig{}, nil)
	assert.Error(t, err)
}

func TestGateway_ForwardsValidRequests(t *testing.T) {
	backend := newFakeServer(t)
	g := newTestGateway(t, backend)

	body := `{"itemId":1,"start":"2030-06-16T10:00:00","end":"2030-06-16T12:00:00"}`
	rec := call(g, http.MethodPost, "/bookings", body, "2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"forwarded":true}`, rec.Body.String())

	seen := backend.requests()
	require.Len(t, seen, 1)
	assert.Equal(t, http.MethodPost, seen[0].Method)
	assert.Equal(t, "/bookings", seen[0].Path)
	assert.Equal(t, body, seen[0].Body)
	assert.Equal(t, "2", seen[0].Header.Get(models.UserIDHeader))
	assert.Equal(t, "gw-key", seen[0].Header.Get("x-api-key"))
	assert.Equal(t, "gw-extra", seen[0].Header.Get("x-api-extra"))
}

func TestGateway_DefaultPageSize(t *testing.T) {
	backend := newFakeServer(t)
	g := newTestGateway(t, backend)

	rec := call(g, http.MethodGet, "/bookings?state=future", "", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(g, http.MethodGet, "/requests/all?from=20&size=5", "", "1")
	require.Equal(t, http.StatusOK, rec.Code)

	seen := backend.requests()
	require.Len(t, seen, 2)
	assert.Equal(t, "from=0&size=10&state=future", seen[0].Query)
	assert.Equal(t, "from=20&size=5", seen[1].Query)
}

func TestGateway_RejectsInvalidRequests(t *testing.T) {
	backend := newFakeServer(t)
	g := newTestGateway(t, backend)

	cases := []struct {
		name   string
		method string
		target string
		body   string
		userID string
	}{
		{"missing user header", http.MethodGet, "/bookings", "", ""},
		{"non numeric user header", http.MethodGet, "/bookings", "", "abc"},
		{"unknown state", http.MethodGet, "/bookings?state=UNSUPPORTED_STATUS", "", "1"},
		{"negative from", http.MethodGet, "/bookings/owner?from=-1", "", "1"},
		{"zero size", http.MethodGet, "/requests/all?size=0", "", "1"},
		{"missing booking times", http.MethodPost, "/bookings", `{"itemId":1}`, "1"},
		{"end before start", http.MethodPost, "/bookings", `{"itemId":1,"start":"2030-06-16T12:00:00","end":"2030-06-16T10:00:00"}`, "1"},
		{"start in the past", http.MethodPost, "/bookings", `{"itemId":1,"start":"2030-06-14T12:00:00","end":"2030-06-16T10:00:00"}`, "1"},
		{"bad booking json", http.MethodPost, "/bookings", `{`, "1"},
		{"approval flag", http.MethodPatch, "/bookings/1?approved=maybe", "", "1"},
		{"bad booking id", http.MethodGet, "/bookings/x", "", "1"},
		{"item without name", http.MethodPost, "/items", `{"description":"d","available":true}`, "1"},
		{"item without availability", http.MethodPost, "/items", `{"name":"n","description":"d"}`, "1"},
		{"blank comment", http.MethodPost, "/items/1/comment", `{"text":"  "}`, "1"},
		{"user without name", http.MethodPost, "/users", `{"email":"a@example.com"}`, ""},
		{"user bad email", http.MethodPost, "/users", `{"name":"a","email":"nope"}`, ""},
		{"patch bad email", http.MethodPatch, "/users/1", `{"email":"nope"}`, ""},
		{"blank request", http.MethodPost, "/requests", `{"description":""}`, "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := call(g, tc.method, tc.target, tc.body, tc.userID)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, backend.requests())
}

func TestGateway_BlankSearchIsAnsweredLocally(t *testing.T) {
	backend := newFakeServer(t)
	g := newTestGateway(t, backend)

	rec := call(g, http.MethodGet, "/items/search?text=%20", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	assert.Empty(t, backend.requests())

	rec = call(g, http.MethodGet, "/items/search?text=drill", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, backend.requests(), 1)
	assert.Equal(t, "from=0&size=10&text=drill", backend.requests()[0].Query)
}

func TestGateway_BackendDown(t *testing.T) {
	backend := newFakeServer(t)
	g := newTestGateway(t, backend)
	backend.srv.Close()

	rec := call(g, http.MethodGet, "/users", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
