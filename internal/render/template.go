package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"inkwell/internal/domain/content"
	"inkwell/internal/domain/site"
)

type TemplateRenderer struct {
	tpl *template.Template
}

func NewTemplateRenderer(themeDir, themeName string) (*TemplateRenderer, error) {
	pattern := filepath.Join(themeDir, themeName, "templates", "*.tmpl")
	tpl, err := template.New("").Funcs(templateFuncs()).ParseGlob(pattern)
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{tpl: tpl}, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"date": func(t interface{}, layout string) string {
			switch v := t.(type) {
			case nil:
				return ""
			case string:
				return v
			case interface{ Format(string) string }:
				return v.Format(layout)
			default:
				return ""
			}
		},
		"postURL": func(m content.DocumentMeta) string {
			return site.PostURL(m.Date, m.Slug)
		},
		"tagURL": func(tag string) string {
			return "/tags/" + site.SafePathSegment(tag) + "/"
		},
		"categoryURL": func(cat string) string {
			return "/categories/" + site.SafePathSegment(cat) + "/"
		},
		"param": func(m content.DocumentMeta, key string) content.Value {
			return m.Params[key]
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

func (r *TemplateRenderer) RenderHome(ctx context.Context, page HomePage) ([]byte, error) {
	return r.exec("home.tmpl", page)
}

func (r *TemplateRenderer) RenderPost(ctx context.Context, page PostPage) ([]byte, error) {
	return r.exec("post.tmpl", page)
}

func (r *TemplateRenderer) RenderList(ctx context.Context, page ListPage) ([]byte, error) {
	return r.exec("list.tmpl", page)
}

func (r *TemplateRenderer) RenderNotFound(ctx context.Context, page NotFoundPage) ([]byte, error) {
	return r.exec("404.tmpl", page)
}

func (r *TemplateRenderer) RenderArchives(ctx context.Context, page ArchivesPage) ([]byte, error) {
	return r.exec("archives.tmpl", page)
}

func (r *TemplateRenderer) RenderTagsPage(ctx context.Context, page TagsPage) ([]byte, error) {
	return r.exec("tags-all.tmpl", page)
}

func (r *TemplateRenderer) RenderCategoriesPage(ctx context.Context, page CategoriesPage) ([]byte, error) {
	return r.exec("categories-all.tmpl", page)
}

func (r *TemplateRenderer) exec(name string, data interface{}) ([]byte, error) {
	t := r.tpl.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CheckThemeTemplates 启动时先把必需模板点一遍，
// 缺哪个直接报名字，比渲染到一半才炸强
func CheckThemeTemplates(themeDir, themeName string) error {
	required := []string{
		"home.tmpl",
		"post.tmpl",
		"list.tmpl",
		"404.tmpl",
		"archives.tmpl",
		"tags-all.tmpl",
		"categories-all.tmpl",
	}
	base := filepath.Join(themeDir, themeName, "templates")
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(base, name)); err != nil {
			return fmt.Errorf("missing template: %s", name)
		}
	}
	return nil
}
