package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/catmatch/internal/app"
	"github.com/Aman-CERP/catmatch/internal/catalog"
	"github.com/Aman-CERP/catmatch/internal/search"
	"github.com/Aman-CERP/catmatch/pkg/version"
)

// fakeService serves a lexical-only engine over the default catalog.
type fakeService struct {
	*search.Engine
	statsErr error
	panicky  bool
}

func (f *fakeService) NewRequest(query string) search.Request {
	return search.NewRequest(query)
}

func (f *fakeService) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	if f.panicky {
		panic("boom")
	}
	return f.Engine.Search(ctx, req)
}

func (f *fakeService) Stats(context.Context) (*app.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	tree := f.Categories()
	return &app.Stats{
		TotalCategories:    tree.TotalCategories,
		TotalSubcategories: tree.TotalSubcategories,
		ModelName:          "none",
		SupportedMethods:   f.SupportedMethods(),
		Version:            version.Version,
	}, nil
}

func newFake(t *testing.T) *fakeService {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	engine, err := search.NewEngine(cat)
	require.NoError(t, err)
	return &fakeService{Engine: engine}
}

func newTestHTTP(t *testing.T, svc Service) *httptest.Server {
	t.Helper()
	s, err := NewServer(svc, "", nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, rawURL string, out any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(nil, ":0", nil)
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	ts := newTestHTTP(t, newFake(t))

	var info Info
	status := getJSON(t, ts.URL+"/", &info)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, version.ServiceName, info.Service)
	assert.Contains(t, info.Endpoints, "POST /search")
}

func TestUnknownPath(t *testing.T) {
	ts := newTestHTTP(t, newFake(t))

	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearch_Get(t *testing.T) {
	// Given: the REST API over the default catalog
	ts := newTestHTTP(t, newFake(t))

	// When: searching by query string
	var resp search.Response
	status := getJSON(t, ts.URL+"/search?"+url.Values{
		"q":         {"кафель"},
		"limit":     {"5"},
		"threshold": {"0.6"},
	}.Encode(), &resp)

	// Then: the synonym target ranks first
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "кафель", resp.Query)
	assert.Equal(t, "Плитка", resp.Results[0].Subcategory)
	assert.Equal(t, search.MethodSynonym, resp.Results[0].Method)
	assert.InDelta(t, 0.9, resp.Results[0].Score, 1e-9)
	assert.Equal(t, len(resp.Results), resp.Total)
}

func TestSearch_Post(t *testing.T) {
	ts := newTestHTTP(t, newFake(t))

	body := strings.NewReader(`{"query": "ламинат", "limit": 0}`)
	httpResp, err := http.Post(ts.URL+"/search", "application/json", body)
	require.NoError(t, err)
	defer httpResp.Body.Close()

	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	raw, err := io.ReadAll(httpResp.Body)
	require.NoError(t, err)
	// Results must encode as an empty array, not null.
	assert.Contains(t, string(raw), `"results":[]`)
	assert.Contains(t, string(raw), `"total":0`)
}

func TestSearch_BadRequests(t *testing.T) {
	ts := newTestHTTP(t, newFake(t))

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode string
	}{
		{"empty query", http.MethodGet, "/search?q=", "", "ERR_404_QUERY_EMPTY"},
		{"blank query", http.MethodGet, "/search?q=%20%20", "", "ERR_404_QUERY_EMPTY"},
		{"non-numeric limit", http.MethodGet, "/search?q=laminate&limit=ten", "", "ERR_401_INVALID_INPUT"},
		{"negative limit", http.MethodGet, "/search?q=laminate&limit=-1", "", "ERR_401_INVALID_INPUT"},
		{"threshold above one", http.MethodGet, "/search?q=laminate&threshold=1.5", "", "ERR_401_INVALID_INPUT"},
		{"bad threshold", http.MethodGet, "/search?q=laminate&threshold=abc", "", "ERR_401_INVALID_INPUT"},
		{"malformed body", http.MethodPost, "/search", "{", "ERR_401_INVALID_INPUT"},
		{"empty body query", http.MethodPost, "/search", `{"query": ""}`, "ERR_404_QUERY_EMPTY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.target, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var eb errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&eb))
			assert.Equal(t, tt.wantCode, eb.Error.Code)
			assert.NotEmpty(t, eb.Error.Message)
		})
	}
}

func TestSearch_Deterministic(t *testing.T) {
	ts := newTestHTTP(t, newFake(t))
	target := ts.URL + "/search?" + url.Values{"q": {"шпаклевка"}}.Encode()

	read := func() string {
		resp, err := http.Get(target)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		// processing_time differs between calls
		var r search.Response
		require.NoError(t, json.Unmarshal(raw, &r))
		out, err := json.Marshal(r.Results)
		require.NoError(t, err)
		return string(out)
	}

	assert.Equal(t, read(), read())
}

func TestCategoriesAndHealth(t *testing.T) {
	ts := newTestHTTP(t, newFake(t))

	var tree catalog.TreeView
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/categories", &tree))
	assert.Equal(t, 3, tree.TotalCategories)
	assert.Equal(t, 8, tree.TotalSubcategories)

	var health search.HealthReport
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", &health))
	assert.Equal(t, search.StatusDegraded, health.Status)
	assert.Equal(t, 8, health.Components.Categories)
	assert.False(t, health.Timestamp.IsZero())
}

func TestStats(t *testing.T) {
	ts := newTestHTTP(t, newFake(t))

	var st app.Stats
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/stats", &st))
	assert.Equal(t, 8, st.TotalSubcategories)
	assert.Equal(t, []string{"exact", "synonym"}, st.SupportedMethods)

	failing := newFake(t)
	failing.statsErr = errors.New("disk gone")
	failingTS := newTestHTTP(t, failing)
	var eb errorBody
	require.Equal(t, http.StatusInternalServerError, getJSON(t, failingTS.URL+"/stats", &eb))
	assert.Equal(t, "ERR_501_INTERNAL", eb.Error.Code)
}

func TestRecoverer(t *testing.T) {
	svc := newFake(t)
	svc.panicky = true
	ts := newTestHTTP(t, svc)

	var eb errorBody
	status := getJSON(t, ts.URL+"/search?q=laminate", &eb)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "ERR_501_INTERNAL", eb.Error.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, err := NewServer(newFake(t), "", nil)
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
