package build

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	domainbuild "inkwell/internal/domain/build"
	"inkwell/internal/domain/config"
	"inkwell/internal/domain/content"
	domainerr "inkwell/internal/domain/errors"
	"inkwell/internal/domain/site"
	"inkwell/internal/index"
	"inkwell/internal/ingest"
	"inkwell/internal/render"
)

type Builder struct {
	Cfg       config.Config
	IndexPath string
	Log       *slog.Logger
}

type Result struct {
	Documents   int
	Routes      []site.Route
	ParseErrors domainerr.ParseErrorList
	Warnings    []ingest.Warning
	Fingerprint domainbuild.Fingerprint
}

func (b *Builder) logger() *slog.Logger {
	if b.Log != nil {
		return b.Log
	}
	return slog.Default()
}

// Run 跑一次完整 build：读内容 -> 重建索引 -> 渲染全部页面 -> 拷贝静态资源。
// 单篇文档头损坏只记进 Result.ParseErrors，不影响其他文档；
// 模板渲染失败整个 build 失败。
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	docs, parseErrs, warns, err := ingest.Ingest(b.Cfg.Build.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}
	for _, pe := range parseErrs {
		b.logger().Error("document excluded", "path", pe.Path, "reason", pe.Reason)
	}
	for _, w := range warns {
		b.logger().Warn("document warning", "path", w.Path, "msg", w.Msg)
	}

	st, err := index.Open(index.OpenOptions{Path: b.IndexPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	if err := st.Rebuild(docs, index.RebuildOptions{
		IncludeDrafts: b.Cfg.Build.IncludeDrafts,
	}); err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	routes, err := b.renderPlan(st, docs)
	if err != nil {
		return nil, fmt.Errorf("plan routes: %w", err)
	}
	for _, r := range routes {
		b.logger().Debug("route planned", "route", r.String())
	}

	md := render.NewMarkdownRenderer()
	themeDir := b.Cfg.Build.ThemeDir
	themeName := b.Cfg.Site.Theme
	if err := render.CheckThemeTemplates(themeDir, themeName); err != nil {
		return nil, fmt.Errorf("check theme(%s): %w", themeName, err)
	}
	tpl, err := render.NewTemplateRenderer(themeDir, themeName)
	if err != nil {
		return nil, fmt.Errorf("load theme(%s): %w", themeName, err)
	}

	outDir := b.Cfg.Build.PublicDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir public: %w", err)
	}

	if err := b.buildAll(ctx, st, md, tpl, outDir, docs); err != nil {
		return nil, err
	}

	fp, err := b.computeFingerprint(docs)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Documents:   len(docs),
		Routes:      routes,
		ParseErrors: parseErrs,
		Warnings:    warns,
		Fingerprint: fp,
	}
	b.logger().Info("build complete",
		"documents", res.Documents,
		"pages", len(res.Routes),
		"parse_errors", len(res.ParseErrors),
		"fingerprint", fp.RenderHash[:12],
	)
	return res, nil
}

func (b *Builder) buildAll(
	ctx context.Context,
	st *index.Store,
	md *render.MarkdownRenderer,
	tpl render.Renderer,
	outDir string,
	docs []content.Document,
) error {
	if err := b.buildHome(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build home: %w", err)
	}

	if err := b.buildPosts(ctx, md, tpl, outDir, docs); err != nil {
		return fmt.Errorf("build posts: %w", err)
	}

	if err := b.buildAllTags(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build tags: %w", err)
	}

	if err := b.buildAllCategories(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build categories: %w", err)
	}

	if err := b.buildNotFound(ctx, tpl, outDir); err != nil {
		return fmt.Errorf("build 404: %w", err)
	}

	if err := b.buildArchives(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build archives: %w", err)
	}

	if err := b.buildTagsOverview(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build tags overview: %w", err)
	}

	if err := b.buildCategoriesOverview(ctx, st, tpl, outDir); err != nil {
		return fmt.Errorf("build categories overview: %w", err)
	}

	if b.Cfg.WantsOutput(config.OutputJSON) {
		if err := b.buildJSONIndex(st, outDir); err != nil {
			return fmt.Errorf("build json index: %w", err)
		}
	}

	if err := b.copyStaticAssets(outDir); err != nil {
		return fmt.Errorf("copy static assets: %w", err)
	}
	return nil
}

func (b *Builder) siteView() render.SiteView {
	return render.SiteView{
		Site: b.Cfg.Site,
		Menu: b.Cfg.SortedMenu(),
	}
}

func (b *Builder) listOptions(page int) index.ListOptions {
	return index.ListOptions{
		Sort:          b.Cfg.Site.SortMode,
		Page:          page,
		Size:          b.Cfg.Site.PageSize,
		IncludeDrafts: b.Cfg.Build.IncludeDrafts,
	}
}

func (b *Builder) buildHome(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	total, err := st.CountAll(b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return err
	}
	size := b.Cfg.Site.PageSize
	pageCount := (total + size - 1) / size
	if pageCount < 1 {
		pageCount = 1
	}

	for page := 1; page <= pageCount; page++ {
		items, err := st.List(b.listOptions(page))
		if err != nil {
			return err
		}

		hp := render.HomePage{
			SiteView:  b.siteView(),
			Items:     items,
			Page:      page,
			PageCount: pageCount,
			PageSize:  size,
			Generated: b.Cfg.Build.Now,
			PageTitle: "Home",
		}
		htmlBytes, err := tpl.RenderHome(ctx, hp)
		if err != nil {
			return err
		}
		if err := writeFile(outDir, site.HomePath(page), htmlBytes); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildPosts(
	ctx context.Context,
	md *render.MarkdownRenderer,
	tpl render.Renderer,
	outDir string,
	docs []content.Document,
) error {
	for _, d := range docs {
		meta := d.Meta

		if meta.Draft && !b.Cfg.Build.IncludeDrafts {
			continue
		}

		src, err := os.ReadFile(d.Body.SourcePath)
		if err != nil {
			return fmt.Errorf("read post source(%s): %w", d.Body.SourcePath, err)
		}

		// 只借 ParseFrontMatter 切掉头部
		_, body, fmErr := ingest.ParseFrontMatter(src)
		if fmErr != nil {
			body = src
		}

		mdResult, err := md.Render(body)
		if err != nil {
			return fmt.Errorf("markdown render(%s): %w", meta.Slug, err)
		}

		pp := render.PostPage{
			SiteView:  b.siteView(),
			Meta:      meta,
			HTML:      template.HTML(mdResult.HTML),
			IsDraft:   meta.Draft,
			PageTitle: meta.Title,
		}
		if meta.TOC {
			pp.TOC = mdResult.Headings
		}

		htmlBytes, err := tpl.RenderPost(ctx, pp)
		if err != nil {
			return fmt.Errorf("render post(%s): %w", meta.Slug, err)
		}

		if err := writeFile(outDir, site.PostPath(meta.Date, meta.Slug), htmlBytes); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildAllTags(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	stats, err := st.TagStats(b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return err
	}

	// 不同标签可能压成同一个路径段（"c++" 和 "c--"），保留先到的那个
	seen := make(map[string]string, len(stats))
	for _, stat := range stats {
		seg := site.SafePathSegment(stat.Name)
		if prev, ok := seen[seg]; ok {
			b.logger().Warn("tag path collision, skipping", "tag", stat.Name, "kept", prev, "segment", seg)
			continue
		}
		seen[seg] = stat.Name

		items, err := st.ListByTag(stat.Name, index.ListOptions{
			Sort:          b.Cfg.Site.SortMode,
			Page:          1,
			Size:          100,
			IncludeDrafts: b.Cfg.Build.IncludeDrafts,
		})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			continue
		}

		lp := render.ListPage{
			SiteView:  b.siteView(),
			Title:     fmt.Sprintf("Tag: %s", stat.Name),
			Items:     items,
			Page:      1,
			PageSize:  len(items),
			Total:     stat.Count,
			Tag:       stat.Name,
			Generated: b.Cfg.Build.Now,
		}

		htmlBytes, err := tpl.RenderList(ctx, lp)
		if err != nil {
			return fmt.Errorf("render tag(%s): %w", stat.Name, err)
		}

		if err := writeFile(outDir, site.TagPath(stat.Name), htmlBytes); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildAllCategories(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	stats, err := st.CategoryStats(b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return err
	}

	seen := make(map[string]string, len(stats))
	for _, stat := range stats {
		seg := site.SafePathSegment(stat.Name)
		if prev, ok := seen[seg]; ok {
			b.logger().Warn("category path collision, skipping", "category", stat.Name, "kept", prev, "segment", seg)
			continue
		}
		seen[seg] = stat.Name

		items, err := st.ListByCategory(stat.Name, index.ListOptions{
			Sort:          b.Cfg.Site.SortMode,
			Page:          1,
			Size:          100,
			IncludeDrafts: b.Cfg.Build.IncludeDrafts,
		})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			continue
		}

		lp := render.ListPage{
			SiteView:  b.siteView(),
			Title:     fmt.Sprintf("Category: %s", stat.Name),
			Items:     items,
			Page:      1,
			PageSize:  len(items),
			Total:     stat.Count,
			Category:  stat.Name,
			Generated: b.Cfg.Build.Now,
		}

		htmlBytes, err := tpl.RenderList(ctx, lp)
		if err != nil {
			return fmt.Errorf("render category(%s): %w", stat.Name, err)
		}

		if err := writeFile(outDir, site.CategoryPath(stat.Name), htmlBytes); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildNotFound(
	ctx context.Context,
	tpl render.Renderer,
	outDir string,
) error {
	page := render.NotFoundPage{
		SiteView: b.siteView(),
		Path:     "",
	}
	htmlBytes, err := tpl.RenderNotFound(ctx, page)
	if err != nil {
		return err
	}
	return writeFile(outDir, "404.html", htmlBytes)
}

func (b *Builder) buildArchives(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	metas, err := st.ListAll(b.Cfg.Site.SortMode, b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return err
	}

	groupsMap := make(map[int][]content.DocumentMeta)
	for _, m := range metas {
		y := m.Date.Year()
		groupsMap[y] = append(groupsMap[y], m)
	}

	years := make([]int, 0, len(groupsMap))
	for y := range groupsMap {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	groups := make([]render.ArchivesGroup, 0, len(years))
	for _, y := range years {
		posts := groupsMap[y]
		groups = append(groups, render.ArchivesGroup{
			Year:  y,
			Posts: posts,
			Count: len(posts),
		})
	}

	page := render.ArchivesPage{
		SiteView:  b.siteView(),
		Groups:    groups,
		Total:     len(metas),
		PageTitle: "Archives",
	}

	htmlBytes, err := tpl.RenderArchives(ctx, page)
	if err != nil {
		return err
	}
	return writeFile(outDir, filepath.Join("archives", "index.html"), htmlBytes)
}

func (b *Builder) buildTagsOverview(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	stats, err := st.TagStats(b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return err
	}

	view := make([]render.LabelStat, 0, len(stats))
	for _, s := range stats {
		view = append(view, render.LabelStat{Name: s.Name, Count: s.Count})
	}

	page := render.TagsPage{
		SiteView:  b.siteView(),
		Tags:      view,
		Total:     len(view),
		PageTitle: "Tags",
	}
	htmlBytes, err := tpl.RenderTagsPage(ctx, page)
	if err != nil {
		return err
	}
	return writeFile(outDir, filepath.Join("tags", "index.html"), htmlBytes)
}

func (b *Builder) buildCategoriesOverview(
	ctx context.Context,
	st *index.Store,
	tpl render.Renderer,
	outDir string,
) error {
	stats, err := st.CategoryStats(b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return err
	}

	view := make([]render.LabelStat, 0, len(stats))
	for _, s := range stats {
		view = append(view, render.LabelStat{Name: s.Name, Count: s.Count})
	}

	page := render.CategoriesPage{
		SiteView:   b.siteView(),
		Categories: view,
		Total:      len(view),
		PageTitle:  "Categories",
	}
	htmlBytes, err := tpl.RenderCategoriesPage(ctx, page)
	if err != nil {
		return err
	}
	return writeFile(outDir, filepath.Join("categories", "index.html"), htmlBytes)
}

func (b *Builder) copyStaticAssets(outDir string) error {
	src := filepath.Join(b.Cfg.Build.ThemeDir, b.Cfg.Site.Theme, "static")
	// 主题没有 static 目录就算了
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(outDir, rel)

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}

		in, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(dst, in, 0o644)
	})
}

func (b *Builder) computeFingerprint(docs []content.Document) (domainbuild.Fingerprint, error) {
	var fp domainbuild.Fingerprint

	hashes := make([]string, 0, len(docs))
	for _, d := range docs {
		hashes = append(hashes, d.Body.ContentHash)
	}
	sort.Strings(hashes)
	fp.ContentHash = domainbuild.HashStrings(hashes)

	// 配置哈希不掺 build.now，不然每次 Load 都变
	cfgBytes, err := yaml.Marshal(struct {
		Site    config.SiteConfig
		Menu    []config.MenuEntry
		Outputs []config.Output
	}{b.Cfg.Site, b.Cfg.Menu, b.Cfg.Outputs})
	if err != nil {
		return fp, err
	}
	fp.ConfigHash = domainbuild.HashBytes(cfgBytes)

	themeHash, err := hashDirectory(filepath.Join(b.Cfg.Build.ThemeDir, b.Cfg.Site.Theme))
	if err != nil {
		return fp, err
	}
	fp.ThemeHash = themeHash

	fp.ComputeRenderHash()
	return fp, nil
}

func hashDirectory(root string) (string, error) {
	var items []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		items = append(items, rel+":"+domainbuild.HashBytes(data))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	sort.Strings(items)
	return domainbuild.HashStrings(items), nil
}

func writeFile(root, rel string, data []byte) error {
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}
