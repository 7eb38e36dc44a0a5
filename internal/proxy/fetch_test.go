package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func postFetch(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/fetch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFetchPreflight(t *testing.T) {
	h := NewFetchHandler(nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodOptions, "/api/fetch", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestFetchMethodNotAllowed(t *testing.T) {
	h := NewFetchHandler(nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/fetch", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFetchRejectsInvalidURLs(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"not a string", `{"url": 7}`},
		{"malformed json", `{"url":`},
		{"unsupported scheme", `{"url":"ftp://x.com"}`},
		{"relative url", `{"url":"example.com/page"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewFetchHandler(nil, nil, zap.NewNop())
			rec := postFetch(h, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFetchReturnsBodyAsJSON(t *testing.T) {
	const page = "<html><body>hello</body></html>"
	var gotUA, gotAccept string
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(page))
	}))
	defer site.Close()

	h := NewFetchHandler(nil, nil, zap.NewNop())
	rec := postFetch(h, `{"url":"`+site.URL+`"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"html":"`+page+`"}`, rec.Body.String())
	require.Equal(t, fetchUserAgent, gotUA)
	require.Contains(t, gotAccept, "text/html")
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	site := httptest.NewServer(mux)
	defer site.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("made it"))
	})

	h := NewFetchHandler(nil, nil, zap.NewNop())
	rec := postFetch(h, `{"url":"`+site.URL+`/start"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "made it")
}

func TestFetchUpstreamErrorStatus(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer site.Close()

	h := NewFetchHandler(nil, nil, zap.NewNop())
	rec := postFetch(h, `{"url":"`+site.URL+`"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, errorMessage(t, rec), "upstream returned status 503")
}

func TestFetchNetworkFailure(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := site.URL
	site.Close() // now nothing is listening

	h := NewFetchHandler(nil, nil, zap.NewNop())
	rec := postFetch(h, `{"url":"`+url+`"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, errorMessage(t, rec), "failed to fetch site")
}
