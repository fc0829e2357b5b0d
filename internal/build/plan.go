package build

import (
	"path/filepath"

	"inkwell/internal/domain/config"
	"inkwell/internal/domain/content"
	"inkwell/internal/domain/site"
	"inkwell/internal/index"
)

// renderPlan 列出这次 build 会落盘的全部路由，和 buildAll 的写出一一对应，
// 日志里好对账
func (b *Builder) renderPlan(st *index.Store, docs []content.Document) ([]site.Route, error) {
	var routes []site.Route

	total, err := st.CountAll(b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return nil, err
	}
	pageCount := (total + b.Cfg.Site.PageSize - 1) / b.Cfg.Site.PageSize
	if pageCount < 1 {
		pageCount = 1
	}
	for page := 1; page <= pageCount; page++ {
		routes = append(routes, site.Route{
			Kind:    site.RouteIndex,
			Page:    page,
			OutPath: site.HomePath(page),
		})
	}

	for _, d := range docs {
		if d.Meta.Draft && !b.Cfg.Build.IncludeDrafts {
			continue
		}
		routes = append(routes, site.Route{
			Kind:    site.RoutePost,
			Slug:    d.Meta.Slug,
			OutPath: site.PostPath(d.Meta.Date, d.Meta.Slug),
		})
	}

	tagStats, err := st.TagStats(b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return nil, err
	}
	for _, stat := range tagStats {
		routes = append(routes, site.Route{
			Kind:    site.RouteTag,
			Key:     stat.Name,
			OutPath: site.TagPath(stat.Name),
		})
	}
	routes = append(routes, site.Route{
		Kind:    site.RouteTag,
		OutPath: filepath.Join("tags", "index.html"),
	})

	catStats, err := st.CategoryStats(b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return nil, err
	}
	for _, stat := range catStats {
		routes = append(routes, site.Route{
			Kind:    site.RouteCategory,
			Key:     stat.Name,
			OutPath: site.CategoryPath(stat.Name),
		})
	}
	routes = append(routes, site.Route{
		Kind:    site.RouteCategory,
		OutPath: filepath.Join("categories", "index.html"),
	})

	routes = append(routes, site.Route{
		Kind:    site.RouteArchive,
		OutPath: filepath.Join("archives", "index.html"),
	})
	routes = append(routes, site.Route{
		Kind:    site.RouteNotFound,
		OutPath: "404.html",
	})
	if b.Cfg.WantsOutput(config.OutputJSON) {
		routes = append(routes, site.Route{
			Kind:    site.RouteJSONFeed,
			OutPath: "index.json",
		})
	}

	return routes, nil
}
