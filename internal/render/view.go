package render

import (
	"html/template"
	"time"

	"inkwell/internal/domain/config"
	"inkwell/internal/domain/content"
)

type Heading struct {
	Level int
	ID    string
	Text  string
}

// SiteView 每个页面都带：站点配置 + 按 weight 排好序的菜单
type SiteView struct {
	Site config.SiteConfig
	Menu []config.MenuEntry
}

type PostPage struct {
	SiteView
	Meta content.DocumentMeta
	HTML template.HTML
	TOC  []Heading

	IsDraft   bool
	PageTitle string
}

type ListPage struct {
	SiteView
	Title     string
	SubTitle  string
	Items     []content.DocumentMeta
	Page      int
	PageSize  int
	Total     int
	Tag       string
	Category  string
	Generated time.Time
}

type HomePage struct {
	SiteView
	Items     []content.DocumentMeta
	Page      int
	PageCount int
	PageSize  int
	Generated time.Time
	PageTitle string
}

type NotFoundPage struct {
	SiteView
	Path string
}

type ArchivesGroup struct {
	Year  int
	Posts []content.DocumentMeta
	Count int
}

type ArchivesPage struct {
	SiteView
	Groups    []ArchivesGroup
	Total     int
	PageTitle string
}

type LabelStat struct {
	Name  string
	Count int
}

type TagsPage struct {
	SiteView
	Tags      []LabelStat
	Total     int
	PageTitle string
}

type CategoriesPage struct {
	SiteView
	Categories []LabelStat
	Total      int
	PageTitle  string
}
