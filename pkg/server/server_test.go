package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/triage/pkg/server"
	"github.com/jamesainslie/triage/pkg/session"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client

	mu    sync.Mutex
	roots [][]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, client: newClient(t)}

	s, err := server.New(server.Options{
		Registry: session.NewRegistry(nil),
		Secret:   "test-secret",
		OnRootsChanged: func(roots []string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.roots = append(h.roots, roots)
		},
	})
	require.NoError(t, err)

	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

// newClient returns a client with its own cookie jar that does not follow
// redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (h *harness) lastRoots() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(h.t, h.roots)
	return h.roots[len(h.roots)-1]
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, string(body)
}

func (h *harness) post(path string, form url.Values) *http.Response {
	h.t.Helper()
	resp, err := h.client.PostForm(h.srv.URL+path, form)
	require.NoError(h.t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func (h *harness) open(root string) {
	h.t.Helper()
	resp, _ := h.get("/?path=" + url.QueryEscape(root))
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
}

func (h *harness) view() types.View {
	h.t.Helper()
	resp, body := h.get("/api/view")
	require.Equal(h.t, http.StatusOK, resp.StatusCode, body)
	var out struct {
		View types.View `json:"view"`
	}
	require.NoError(h.t, json.Unmarshal([]byte(body), &out))
	return out.View
}

func setupRoot(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(root, n), []byte(n), 0o644))
	}
	return root
}

func TestIndexWithoutPathShowsFolderForm(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get("/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="path"`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestIndexBadRoot(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get("/?path=" + url.QueryEscape(filepath.Join(t.TempDir(), "missing")))

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "does not exist")
}

func TestIndexRendersCurrentImage(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.png")
	h := newHarness(t)

	resp, body := h.get("/?path=" + url.QueryEscape(root))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "a.jpg")
	assert.Contains(t, body, "2 remaining")
	assert.Equal(t, []string{root}, h.lastRoots())
}

func TestClassifySkipUndoFlow(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.png", "c.gif")
	h := newHarness(t)
	h.open(root)

	resp := h.post("/skip", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "b.png", h.view().Image.Name)

	resp = h.post("/classify", url.Values{"tag": {"  Cats "}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := resp.Location()
	require.NoError(t, err)
	assert.Equal(t, root, loc.Query().Get("path"))
	assert.Contains(t, loc.Query().Get("flash"), "b.png")
	assert.FileExists(t, filepath.Join(root, "cats", "b.png"))

	view := h.view()
	assert.Equal(t, 2, view.Remaining)
	assert.Equal(t, []string{"cats"}, view.RecentTags)
	assert.True(t, view.UndoAvailable)

	resp = h.post("/undo", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.FileExists(t, filepath.Join(root, "b.png"))

	view = h.view()
	assert.Equal(t, "b.png", view.Image.Name)
	assert.False(t, view.UndoAvailable)
}

func TestClassifyEmptyTagRedirectsWithMessage(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	h := newHarness(t)
	h.open(root)

	resp := h.post("/classify", url.Values{"tag": {"   "}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := resp.Location()
	require.NoError(t, err)
	assert.Equal(t, types.UserMessage(types.ErrEmptyTag), loc.Query().Get("flash"))
	assert.FileExists(t, filepath.Join(root, "a.jpg"))
}

func TestClassifyEmptyQueueIsSilentRedirect(t *testing.T) {
	root := setupRoot(t)
	h := newHarness(t)
	h.open(root)

	resp := h.post("/classify", url.Values{"tag": {"cats"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := resp.Location()
	require.NoError(t, err)
	assert.Empty(t, loc.Query().Get("flash"))
}

func TestActionsWithoutRootRedirectHome(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/classify", "/skip", "/undo", "/reconcile"} {
		resp := h.post(path, url.Values{"tag": {"x"}})
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/", resp.Header.Get("Location"), path)
	}
}

func TestActionsRequirePost(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.get("/classify")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBareIndexClearsSession(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	h := newHarness(t)
	h.open(root)
	h.post("/classify", url.Values{"tag": {"cats"}})

	h.get("/")
	resp, body := h.get("/api/view")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, body)
	assert.Equal(t, []string{}, h.lastRoots())
}

func TestSessionsAreIsolated(t *testing.T) {
	root := setupRoot(t, "a.jpg", "b.jpg")
	h := newHarness(t)
	h.open(root)
	h.post("/skip", nil)

	other := &harness{t: t, srv: h.srv, client: newClient(t)}
	other.open(root)

	assert.Equal(t, "b.jpg", h.view().Image.Name)
	assert.Equal(t, "a.jpg", other.view().Image.Name)
}

func TestImageFileContainment(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	outside := setupRoot(t, "secret.jpg")
	h := newHarness(t)

	resp, _ := h.get("/image_file?path=" + url.QueryEscape(filepath.Join(root, "a.jpg")))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no active root")

	h.open(root)
	resp, body := h.get("/image_file?path=" + url.QueryEscape(filepath.Join(root, "a.jpg")))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a.jpg", body)

	for _, p := range []string{
		filepath.Join(outside, "secret.jpg"),
		root + "/../" + filepath.Base(outside) + "/secret.jpg",
		root,
		"a.jpg",
		filepath.Join(root, "missing.jpg"),
	} {
		resp, _ := h.get("/image_file?path=" + url.QueryEscape(p))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, p)
	}
}

func TestReconcilePicksUpNewFiles(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	h := newHarness(t)
	h.open(root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.jpg"), []byte("b"), 0o644))
	resp := h.post("/reconcile", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, 2, h.view().Remaining)
}

func TestAPIClassifyErrorStatus(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cats"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cats", "a.jpg"), []byte("x"), 0o644))
	h := newHarness(t)

	resp, err := h.client.PostForm(h.srv.URL+"/api/classify", url.Values{"path": {root}, "tag": {"cats"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var body struct {
		Message string     `json:"message"`
		View    types.View `json:"view"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, types.UserMessage(types.ErrDestinationConflict), body.Message)
	assert.Equal(t, 1, body.View.Remaining)
}

func TestAPIUndoReportsResult(t *testing.T) {
	root := setupRoot(t, "a.jpg")
	h := newHarness(t)
	h.open(root)

	resp, err := h.client.PostForm(h.srv.URL+"/api/undo", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Undo    types.UndoResult `json:"undo"`
		Message string           `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Undo.Performed)
	assert.True(t, strings.HasPrefix(body.Message, "Nothing"))
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", body)
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := server.New(server.Options{})
	assert.Error(t, err)
}
