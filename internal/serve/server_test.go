package serve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inkwell/internal/domain/config"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()

	tplDir := filepath.Join(root, "themes", "plain", "templates")
	require.NoError(t, os.MkdirAll(tplDir, 0o755))
	templates := map[string]string{
		"home.tmpl":           `HOME:{{range .Items}}{{.Slug}};{{end}}`,
		"post.tmpl":           `POST {{.Meta.Title}} draft={{.IsDraft}}`,
		"list.tmpl":           `LIST {{.Title}}`,
		"404.tmpl":            `NOT FOUND {{.Path}}`,
		"archives.tmpl":       `ARCHIVES {{.Total}}`,
		"tags-all.tmpl":       `TAGS`,
		"categories-all.tmpl": `CATS`,
	}
	for name, body := range templates {
		require.NoError(t, os.WriteFile(filepath.Join(tplDir, name), []byte(body), 0o644))
	}

	contentDir := filepath.Join(root, "content")
	require.NoError(t, os.MkdirAll(contentDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(contentDir, "hello.md"),
		[]byte("---\ntitle: Hello\ndate: 2024-03-07\ndraft: true\n---\nbody\n"),
		0o644,
	))

	cfg := config.Default()
	cfg.Site.Title = "Dev Blog"
	cfg.Site.BaseURL = "https://blog.example.com"
	cfg.Site.Theme = "plain"
	cfg.Build.SourceDir = contentDir
	cfg.Build.ThemeDir = filepath.Join(root, "themes")
	cfg.Build.PublicDir = filepath.Join(root, "public")

	s, err := New(cfg, filepath.Join(root, ".inkwell", "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.rebuild(context.Background()))
	return s, contentDir
}

func TestServer_HomeIncludesDrafts(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleHome(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "hello;")
}

func TestServer_PostByDatedPath(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handlePost(rec, httptest.NewRequest(http.MethodGet, "/post/2024/03/07/hello/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "POST Hello")
	require.Contains(t, rec.Body.String(), "draft=true")
}

func TestServer_UnknownSlugRendersNotFoundPage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handlePost(rec, httptest.NewRequest(http.MethodGet, "/post/2024/03/07/nope/", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT FOUND")
}

func TestServer_AliasRedirectsToCurrentSlug(t *testing.T) {
	s, contentDir := newTestServer(t)

	require.NoError(t, os.WriteFile(
		filepath.Join(contentDir, "renamed.md"),
		[]byte("---\ntitle: Renamed\nslug: new-name\ndate: 2024-04-01\naliases: [old-name]\n---\nbody\n"),
		0o644,
	))
	require.NoError(t, s.rebuild(context.Background()))

	rec := httptest.NewRecorder()
	s.handlePost(rec, httptest.NewRequest(http.MethodGet, "/post/2024/04/01/old-name/", nil))

	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "/post/2024/04/01/new-name/", rec.Header().Get("Location"))
}

func TestServer_RebuildSkippedWhenContentUnchanged(t *testing.T) {
	s, _ := newTestServer(t)

	s.mu.RLock()
	hash := s.contentHash
	s.mu.RUnlock()
	require.NotEmpty(t, hash)

	// 内容没变，哈希不该变
	require.NoError(t, s.rebuild(context.Background()))
	s.mu.RLock()
	require.Equal(t, hash, s.contentHash)
	s.mu.RUnlock()
}

func TestServer_ArchivesHandler(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleArchives(rec, httptest.NewRequest(http.MethodGet, "/archives", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ARCHIVES 1")
}

func TestServer_TagWithUnsafeRunesReachableBySafeSegment(t *testing.T) {
	s, contentDir := newTestServer(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(contentDir, "cpp.md"),
		[]byte("---\ntitle: CPP\ndate: 2024-04-01\ntags: [\"c++\"]\n---\nbody\n"),
		0o644,
	))
	require.NoError(t, s.rebuild(context.Background()))

	// 列表页链接指向 /tags/c--/，处理器要映射回 c++
	rec := httptest.NewRecorder()
	s.handleTag(rec, httptest.NewRequest(http.MethodGet, "/tags/c--/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Tag: c++")

	// 原名直查也照常
	rec = httptest.NewRecorder()
	s.handleTag(rec, httptest.NewRequest(http.MethodGet, "/tags/c++/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CategoryResolvedBySafeSegment(t *testing.T) {
	s, contentDir := newTestServer(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(contentDir, "notes.md"),
		[]byte("---\ntitle: Notes\ndate: 2024-04-02\ncategories: [\"dev notes\"]\n---\nbody\n"),
		0o644,
	))
	require.NoError(t, s.rebuild(context.Background()))

	rec := httptest.NewRecorder()
	s.handleCategory(rec, httptest.NewRequest(http.MethodGet, "/categories/dev-notes/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Category: dev notes")
}

func TestDebouncer_CollapsesBurstAndFiresOnce(t *testing.T) {
	d := newDebouncer()
	defer d.stop()

	for i := 0; i < 5; i++ {
		d.trigger(20 * time.Millisecond)
	}

	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("debounce never fired")
	}

	// 到期一次后就安静，不会自己再响
	select {
	case <-d.C():
		t.Fatal("debounce fired again without a trigger")
	case <-time.After(100 * time.Millisecond):
	}

	// 再触发还能用
	d.trigger(10 * time.Millisecond)
	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("debounce did not fire after re-trigger")
	}
}

func TestServer_PostDateInAliasRedirect(t *testing.T) {
	// alias 重定向用的是新文章自己的日期
	s, contentDir := newTestServer(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(contentDir, "moved.md"),
		[]byte("---\ntitle: Moved\nslug: moved-here\ndate: 2024-05-02\naliases: [was-there]\n---\nbody\n"),
		0o644,
	))
	require.NoError(t, s.rebuild(context.Background()))

	rec := httptest.NewRecorder()
	s.handlePost(rec, httptest.NewRequest(http.MethodGet, "/post/2020/01/01/was-there/", nil))
	require.Equal(t, http.StatusMovedPermanently, rec.Code)

	loc, err := time.Parse("/post/2006/01/02/", rec.Header().Get("Location")[:len("/post/2006/01/02/")])
	require.NoError(t, err)
	require.Equal(t, 2024, loc.Year())
}
