package site

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type RouteKind string

const (
	RouteIndex    RouteKind = "index"
	RoutePost     RouteKind = "post"
	RouteTag      RouteKind = "tag"
	RouteCategory RouteKind = "category"
	RouteArchive  RouteKind = "archive"
	RouteNotFound RouteKind = "404"
	RouteJSONFeed RouteKind = "json"
)

type Route struct {
	Kind    RouteKind
	Slug    string
	Key     string
	Page    int
	OutPath string
}

func (r Route) String() string {
	var parts []string
	parts = append(parts, string(r.Kind))
	if r.Slug != "" {
		parts = append(parts, "slug="+r.Slug)
	}
	if r.Key != "" {
		parts = append(parts, "key="+r.Key)
	}
	if r.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", r.Page))
	}
	if r.OutPath != "" {
		parts = append(parts, "out="+r.OutPath)
	}
	return strings.Join(parts, " ")
}

// PostPath 文章落盘路径：post/YYYY/MM/DD/slug/index.html
func PostPath(date time.Time, slug string) string {
	y, mo, d := date.Date()
	return filepath.Join(
		"post",
		fmt.Sprintf("%04d", y),
		fmt.Sprintf("%02d", mo),
		fmt.Sprintf("%02d", d),
		slug,
		"index.html",
	)
}

// PostURL 文章访问路径，和 PostPath 对应
func PostURL(date time.Time, slug string) string {
	y, mo, d := date.Date()
	return fmt.Sprintf("/post/%04d/%02d/%02d/%s/", y, int(mo), d, slug)
}

func TagPath(tag string) string {
	return filepath.Join("tags", SafePathSegment(tag), "index.html")
}

func CategoryPath(cat string) string {
	return filepath.Join("categories", SafePathSegment(cat), "index.html")
}

// HomePath 首页分页：第 1 页是 index.html，后面是 page/N/index.html
func HomePath(page int) string {
	if page <= 1 {
		return "index.html"
	}
	return filepath.Join("page", fmt.Sprintf("%d", page), "index.html")
}

func SafePathSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "untitled"
	}
	repl := func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}
	return strings.Map(repl, s)
}
