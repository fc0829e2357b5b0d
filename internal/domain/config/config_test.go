package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainerr "inkwell/internal/domain/errors"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad_OverridesDefaultsKeepsRest(t *testing.T) {
	path := writeConfig(t, `
site:
  title: My Blog
  base_url: https://blog.example.com
  language: en-US
  page_size: 5
menu:
  - {identifier: home, name: Home, url: /, weight: 1}
outputs: [html, json]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "My Blog", cfg.Site.Title)
	require.Equal(t, 5, cfg.Site.PageSize)
	// 没写的字段保留默认
	require.Equal(t, "default", cfg.Site.Theme)
	require.Equal(t, "content", cfg.Build.SourceDir)
	require.True(t, cfg.WantsOutput(OutputJSON))
	// now 不配置就保持零值，build 输出才可复现
	require.True(t, cfg.Build.Now.IsZero())
}

func TestLoad_NowConfigured_Parsed(t *testing.T) {
	path := writeConfig(t, `
site:
  title: My Blog
build:
  now: 2024-06-01T00:00:00Z
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), cfg.Build.Now.UTC())
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_CollectsEveryBadField(t *testing.T) {
	cfg := Default()
	cfg.Site.Title = ""
	cfg.Site.BaseURL = "not-a-url"
	cfg.Site.Language = "zz-!!-bogus"
	cfg.Site.PageSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.True(t, errors.Is(err, domainerr.ErrInvalid))

	var ve domainerr.ValidationError
	require.ErrorAs(t, err, &ve)
	require.GreaterOrEqual(t, len(ve.Items), 4)
}

func TestValidate_RejectsUnknownOutputFormat(t *testing.T) {
	cfg := Default()
	cfg.Site.BaseURL = "https://example.com"
	cfg.Outputs = []Output{OutputHTML, Output("rss")}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown output format")
}

func TestValidate_MenuEntriesNeedNameAndURL(t *testing.T) {
	cfg := Default()
	cfg.Site.BaseURL = "https://example.com"
	cfg.Menu = []MenuEntry{{Identifier: "x", Weight: 1}}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "menu[0].name")
	require.Contains(t, err.Error(), "menu[0].url")
}

func TestSortedMenu_AscendingWeightStableTies(t *testing.T) {
	cfg := Default()
	cfg.Menu = []MenuEntry{
		{Identifier: "about", Name: "About", URL: "/about/", Weight: 20},
		{Identifier: "posts", Name: "Posts", URL: "/", Weight: 10},
		{Identifier: "tags", Name: "Tags", URL: "/tags/", Weight: 20},
		{Identifier: "archives", Name: "Archives", URL: "/archives/", Weight: 10},
	}

	sorted := cfg.SortedMenu()
	ids := make([]string, 0, len(sorted))
	for _, m := range sorted {
		ids = append(ids, m.Identifier)
	}
	// 同 weight 保持文件顺序
	require.Equal(t, []string{"posts", "archives", "about", "tags"}, ids)

	// 原切片不动
	require.Equal(t, "about", cfg.Menu[0].Identifier)
}

func TestValidate_BasePathShape(t *testing.T) {
	cfg := Default()
	cfg.Site.BaseURL = "https://example.com"

	cfg.Build.BasePath = "blog"
	require.Error(t, cfg.Validate())

	cfg.Build.BasePath = "/blog/"
	require.Error(t, cfg.Validate())

	cfg.Build.BasePath = "/blog"
	require.NoError(t, cfg.Validate())
}
