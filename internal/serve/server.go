package serve

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	domainbuild "inkwell/internal/domain/build"
	"inkwell/internal/domain/config"
	"inkwell/internal/domain/content"
	"inkwell/internal/domain/site"
	"inkwell/internal/index"
	"inkwell/internal/ingest"
	"inkwell/internal/render"
)

// Server 是本地预览：草稿全都展示，文件一变就重建
type Server struct {
	cfg config.Config
	log *slog.Logger

	indexPath string
	idx       *index.Store
	md        *render.MarkdownRenderer
	tpl       render.Renderer

	mu          sync.RWMutex
	documents   map[string]content.Document
	contentHash string

	sseMu     sync.Mutex
	sseConns  map[chan string]struct{}
	watcher   *fsnotify.Watcher
	watchOnce sync.Once
}

func New(cfg config.Config, indexPath string, log *slog.Logger) (*Server, error) {
	md := render.NewMarkdownRenderer()
	if err := render.CheckThemeTemplates(cfg.Build.ThemeDir, cfg.Site.Theme); err != nil {
		return nil, fmt.Errorf("serve: check theme(%s): %w", cfg.Site.Theme, err)
	}
	tpl, err := render.NewTemplateRenderer(cfg.Build.ThemeDir, cfg.Site.Theme)
	if err != nil {
		return nil, fmt.Errorf("serve: failed to create template renderer: %w", err)
	}
	st, err := index.Open(index.OpenOptions{Path: indexPath})
	if err != nil {
		return nil, fmt.Errorf("serve: failed to open index: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		indexPath: indexPath,
		idx:       st,
		md:        md,
		tpl:       tpl,
		documents: make(map[string]content.Document),
		sseConns:  make(map[chan string]struct{}),
	}
	return s, nil
}

func (s *Server) Close() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.idx != nil {
		return s.idx.Close()
	}
	return nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.rebuild(ctx); err != nil {
		return err
	}

	if err := s.startWatch(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/post/", s.handlePost)
	mux.HandleFunc("/tags/", s.handleTag)
	mux.HandleFunc("/categories/", s.handleCategory)
	mux.HandleFunc("/archives", s.handleArchives)
	mux.HandleFunc("/tags", s.handleTagsRoot)
	mux.HandleFunc("/categories", s.handleCategoriesRoot)

	// dev SSE
	mux.HandleFunc("/dev/events", s.handleSSE)

	staticDir := filepath.Join(s.cfg.Build.ThemeDir, s.cfg.Site.Theme, "static")
	fileServer := http.FileServer(http.Dir(staticDir))

	mux.Handle("/css/", fileServer)
	mux.Handle("/js/", fileServer)
	mux.Handle("/images/", fileServer)
	mux.Handle("/favicon.ico", fileServer)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	s.log.Info("listening", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) rebuild(ctx context.Context) error {
	sourceDir := s.cfg.Build.SourceDir
	docs, parseErrs, warns, err := ingest.Ingest(sourceDir)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	for _, pe := range parseErrs {
		s.log.Error("document excluded", "path", pe.Path, "reason", pe.Reason)
	}
	for _, w := range warns {
		s.log.Warn("document warning", "path", w.Path, "msg", w.Msg)
	}

	// 内容没变就不动索引，编辑器保存时 fsnotify 常常连发好几个事件
	hashes := make([]string, 0, len(docs))
	for _, d := range docs {
		hashes = append(hashes, d.Body.ContentHash)
	}
	sort.Strings(hashes)
	newHash := domainbuild.HashStrings(hashes)

	s.mu.RLock()
	unchanged := newHash == s.contentHash && s.contentHash != ""
	s.mu.RUnlock()
	if unchanged {
		s.log.Debug("content unchanged, skipping rebuild")
		return nil
	}

	if err := s.idx.Rebuild(docs, index.RebuildOptions{
		IncludeDrafts: true,
	}); err != nil {
		return fmt.Errorf("index rebuild: %w", err)
	}

	m := make(map[string]content.Document, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Meta.Slug) == "" {
			continue
		}
		m[d.Meta.Slug] = d
	}
	s.mu.Lock()
	s.documents = m
	s.contentHash = newHash
	s.mu.Unlock()

	s.log.Info("rebuild complete", "documents", len(docs))
	s.broadcastSSE("reload")

	return nil
}

func (s *Server) startWatch(ctx context.Context) error {
	var err error
	s.watchOnce.Do(func() {
		w, e := fsnotify.NewWatcher()
		if e != nil {
			err = e
			return
		}
		s.watcher = w

		go s.watchLoop(ctx)

		err = filepath.Walk(s.cfg.Build.SourceDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return w.Add(path)
			}
			return nil
		})
	})
	return err
}

func (s *Server) watchLoop(ctx context.Context) {
	s.log.Info("watching for file changes")
	debounce := newDebouncer()
	defer debounce.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				debounce.trigger(200 * time.Millisecond)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", "error", err)
		case <-debounce.C():
			ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := s.rebuild(ctx2); err != nil {
				s.log.Error("rebuild failed", "error", err)
			}
			cancel()
		}
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan string, 8)

	s.sseMu.Lock()
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseConns, ch)
		close(ch)
		s.sseMu.Unlock()
	}()
	fmt.Fprintf(w, "data: %s\n\n", "hello")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcastSSE(msg string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (s *Server) siteView() render.SiteView {
	return render.SiteView{
		Site: s.cfg.Site,
		Menu: s.cfg.SortedMenu(),
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.handleNotFound(w, r)
		return
	}

	items, err := s.idx.List(index.ListOptions{
		Sort:          s.cfg.Site.SortMode,
		Page:          1,
		Size:          s.cfg.Site.PageSize,
		IncludeDrafts: true,
	})
	if err != nil {
		http.Error(w, "home query error", http.StatusInternalServerError)
		return
	}

	page := render.HomePage{
		SiteView:  s.siteView(),
		Items:     items,
		Page:      1,
		PageCount: 1,
		PageSize:  s.cfg.Site.PageSize,
		Generated: time.Now(),
		PageTitle: "Home",
	}
	htmlBytes, err := s.tpl.RenderHome(r.Context(), page)
	if err != nil {
		s.log.Error("render home failed", "error", err)
		http.Error(w, "render home error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

// 文章详情页：/post/YYYY/MM/DD/slug/ 或 /post/YYYY/MM/DD/slug
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/post/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		s.handleNotFound(w, r)
		return
	}
	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		s.handleNotFound(w, r)
		return
	}
	slug := parts[len(parts)-1]

	s.mu.RLock()
	doc, ok := s.documents[slug]
	s.mu.RUnlock()
	if !ok {
		// 可能是旧 slug，查 alias 表，命中就 301
		if mapped, err := s.idx.ResolveAlias(slug); err == nil && mapped != slug {
			s.mu.RLock()
			target, found := s.documents[mapped]
			s.mu.RUnlock()
			if found {
				http.Redirect(w, r, site.PostURL(target.Meta.Date, mapped), http.StatusMovedPermanently)
				return
			}
		}
		s.handleNotFound(w, r)
		return
	}
	meta := doc.Meta

	src, err := os.ReadFile(doc.Body.SourcePath)
	if err != nil {
		s.log.Error("read source failed", "path", doc.Body.SourcePath, "error", err)
		http.Error(w, "read source error", http.StatusInternalServerError)
		return
	}
	_, body, fmErr := ingest.ParseFrontMatter(src)
	if fmErr != nil {
		body = src
	}

	mdResult, err := s.md.Render(body)
	if err != nil {
		s.log.Error("markdown render failed", "slug", slug, "error", err)
		http.Error(w, "markdown render error", http.StatusInternalServerError)
		return
	}

	pp := render.PostPage{
		SiteView:  s.siteView(),
		Meta:      meta,
		HTML:      template.HTML(mdResult.HTML),
		IsDraft:   meta.Draft,
		PageTitle: meta.Title,
	}
	if meta.TOC {
		pp.TOC = mdResult.Headings
	}

	htmlBytes, err := s.tpl.RenderPost(r.Context(), pp)
	if err != nil {
		s.log.Error("render post failed", "slug", slug, "error", err)
		http.Error(w, "render post error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

// URL 段是 SafePathSegment 压过的（"c++" -> "c--"），
// 先映射回真实标签再去索引查
func matchLabel(stats []index.LabelStat, seg string) string {
	for _, st := range stats {
		if st.Name == seg || site.SafePathSegment(st.Name) == seg {
			return st.Name
		}
	}
	return seg
}

// 标签页：/tags/<tag>/
func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/tags/"), "/")
	if tag == "" {
		s.handleTagsRoot(w, r)
		return
	}
	if stats, err := s.idx.TagStats(true); err == nil {
		tag = matchLabel(stats, tag)
	}

	items, err := s.idx.ListByTag(tag, index.ListOptions{
		Sort:          s.cfg.Site.SortMode,
		Page:          1,
		Size:          100,
		IncludeDrafts: true,
	})
	if err != nil || len(items) == 0 {
		s.handleNotFound(w, r)
		return
	}

	lp := render.ListPage{
		SiteView:  s.siteView(),
		Title:     fmt.Sprintf("Tag: %s", tag),
		Items:     items,
		Page:      1,
		PageSize:  len(items),
		Total:     len(items),
		Tag:       tag,
		Generated: time.Now(),
	}
	htmlBytes, err := s.tpl.RenderList(r.Context(), lp)
	if err != nil {
		s.log.Error("render tag failed", "tag", tag, "error", err)
		http.Error(w, "render tag error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

// 分类页：/categories/<cat>/
func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	cat := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/categories/"), "/")
	if cat == "" {
		s.handleCategoriesRoot(w, r)
		return
	}
	if stats, err := s.idx.CategoryStats(true); err == nil {
		cat = matchLabel(stats, cat)
	}

	items, err := s.idx.ListByCategory(cat, index.ListOptions{
		Sort:          s.cfg.Site.SortMode,
		Page:          1,
		Size:          100,
		IncludeDrafts: true,
	})
	if err != nil || len(items) == 0 {
		s.handleNotFound(w, r)
		return
	}

	lp := render.ListPage{
		SiteView:  s.siteView(),
		Title:     fmt.Sprintf("Category: %s", cat),
		Items:     items,
		Page:      1,
		PageSize:  len(items),
		Total:     len(items),
		Category:  cat,
		Generated: time.Now(),
	}
	htmlBytes, err := s.tpl.RenderList(r.Context(), lp)
	if err != nil {
		s.log.Error("render category failed", "category", cat, "error", err)
		http.Error(w, "render category error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

func (s *Server) handleArchives(w http.ResponseWriter, r *http.Request) {
	metas, err := s.idx.ListAll(s.cfg.Site.SortMode, true)
	if err != nil {
		http.Error(w, "archives query error", http.StatusInternalServerError)
		return
	}

	groupsMap := make(map[int][]content.DocumentMeta)
	for _, m := range metas {
		groupsMap[m.Date.Year()] = append(groupsMap[m.Date.Year()], m)
	}
	years := make([]int, 0, len(groupsMap))
	for y := range groupsMap {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	groups := make([]render.ArchivesGroup, 0, len(years))
	for _, y := range years {
		groups = append(groups, render.ArchivesGroup{
			Year:  y,
			Posts: groupsMap[y],
			Count: len(groupsMap[y]),
		})
	}

	page := render.ArchivesPage{
		SiteView:  s.siteView(),
		Groups:    groups,
		Total:     len(metas),
		PageTitle: "Archives",
	}
	htmlBytes, err := s.tpl.RenderArchives(r.Context(), page)
	if err != nil {
		s.log.Error("render archives failed", "error", err)
		http.Error(w, "render archives error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

func (s *Server) handleTagsRoot(w http.ResponseWriter, r *http.Request) {
	stats, err := s.idx.TagStats(true)
	if err != nil {
		http.Error(w, "tags query error", http.StatusInternalServerError)
		return
	}
	view := make([]render.LabelStat, 0, len(stats))
	for _, st := range stats {
		view = append(view, render.LabelStat{Name: st.Name, Count: st.Count})
	}
	page := render.TagsPage{
		SiteView:  s.siteView(),
		Tags:      view,
		Total:     len(view),
		PageTitle: "Tags",
	}
	htmlBytes, err := s.tpl.RenderTagsPage(r.Context(), page)
	if err != nil {
		s.log.Error("render tags failed", "error", err)
		http.Error(w, "render tags error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

func (s *Server) handleCategoriesRoot(w http.ResponseWriter, r *http.Request) {
	stats, err := s.idx.CategoryStats(true)
	if err != nil {
		http.Error(w, "categories query error", http.StatusInternalServerError)
		return
	}
	view := make([]render.LabelStat, 0, len(stats))
	for _, st := range stats {
		view = append(view, render.LabelStat{Name: st.Name, Count: st.Count})
	}
	page := render.CategoriesPage{
		SiteView:   s.siteView(),
		Categories: view,
		Total:      len(view),
		PageTitle:  "Categories",
	}
	htmlBytes, err := s.tpl.RenderCategoriesPage(r.Context(), page)
	if err != nil {
		s.log.Error("render categories failed", "error", err)
		http.Error(w, "render categories error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, htmlBytes)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	page := render.NotFoundPage{
		SiteView: s.siteView(),
		Path:     r.URL.Path,
	}
	htmlBytes, err := s.tpl.RenderNotFound(r.Context(), page)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(htmlBytes)
}

func writeHTML(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
