package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	domainerr "inkwell/internal/domain/errors"
)

type Config struct {
	Site    SiteConfig  `yaml:"site"`
	Menu    []MenuEntry `yaml:"menu"`
	Outputs []Output    `yaml:"outputs"`
	Build   BuildConfig `yaml:"build"`
}

type SiteConfig struct {
	Title       string   `yaml:"title"`
	Subtitle    string   `yaml:"subtitle"`
	Author      string   `yaml:"author"`
	BaseURL     string   `yaml:"base_url"`
	Theme       string   `yaml:"theme"`
	SortMode    SortMode `yaml:"sort_mode"`
	Language    string   `yaml:"language"`
	Description string   `yaml:"description"`
	PageSize    int      `yaml:"page_size"`
}

// MenuEntry 一条导航链接，weight 升序展示，相同 weight 按文件里的顺序
type MenuEntry struct {
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	Weight     int    `yaml:"weight"`
}

type SortMode string

const (
	SortUpdated SortMode = "updated"
	SortCreated SortMode = "created"
)

type Output string

const (
	OutputHTML Output = "html"
	OutputJSON Output = "json"
)

type BuildConfig struct {
	SourceDir     string    `yaml:"source_dir"`
	PublicDir     string    `yaml:"public_dir"`
	ThemeDir      string    `yaml:"theme_dir"`
	BasePath      string    `yaml:"base_path"`
	IncludeDrafts bool      `yaml:"include_drafts"`
	Now           time.Time `yaml:"now"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:    "Inkwell",
			Theme:    "default",
			SortMode: SortCreated,
			Language: "en",
			PageSize: 10,
		},
		Outputs: []Output{OutputHTML},
		Build: BuildConfig{
			SourceDir:     "content",
			PublicDir:     "public",
			ThemeDir:      "themes",
			BasePath:      "",
			IncludeDrafts: false,
		},
	}
}

// SortedMenu 返回按 weight 升序的副本，稳定排序保证同权重保持原顺序
func (c Config) SortedMenu() []MenuEntry {
	out := make([]MenuEntry, len(c.Menu))
	copy(out, c.Menu)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight < out[j].Weight
	})
	return out
}

func (c Config) WantsOutput(o Output) bool {
	for _, got := range c.Outputs {
		if got == o {
			return true
		}
	}
	return false
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}

	if strings.TrimSpace(c.Site.BaseURL) == "" {
		ve.Add("site.base_url", "must not be empty")
	} else if !isValidAbsURL(c.Site.BaseURL) {
		ve.Add("site.base_url", "must be a valid absolute URL")
	}

	switch c.Site.SortMode {
	case "", SortUpdated, SortCreated:
	default:
		ve.Add("site.sort_mode", "must be 'updated' or 'created'")
	}

	if strings.TrimSpace(c.Site.Theme) == "" {
		ve.Add("site.theme", "must not be empty")
	}

	if c.Site.PageSize <= 0 || c.Site.PageSize > 100 {
		ve.Add("site.page_size", "must be between 1 and 100")
	}

	if lang := strings.TrimSpace(c.Site.Language); lang != "" {
		if _, err := language.Parse(lang); err != nil {
			ve.Add("site.language", "must be a valid BCP 47 language code")
		}
	}

	for i, m := range c.Menu {
		if strings.TrimSpace(m.Name) == "" {
			ve.Add(fmt.Sprintf("menu[%d].name", i), "must not be empty")
		}
		if strings.TrimSpace(m.URL) == "" {
			ve.Add(fmt.Sprintf("menu[%d].url", i), "must not be empty")
		}
	}

	for _, o := range c.Outputs {
		switch o {
		case OutputHTML, OutputJSON:
		default:
			ve.Add("outputs", "unknown output format: "+string(o))
		}
	}

	if strings.TrimSpace(c.Build.SourceDir) == "" {
		ve.Add("build.source_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.PublicDir) == "" {
		ve.Add("build.public_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.ThemeDir) == "" {
		ve.Add("build.theme_dir", "must not be empty")
	}
	if bp := strings.TrimSpace(c.Build.BasePath); bp != "" {
		if !strings.HasPrefix(bp, "/") {
			ve.Add("build.base_path", "must start with '/'")
		}
		if strings.HasSuffix(bp, "/") && bp != "/" {
			ve.Add("build.base_path", "must not end with '/'")
		}
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	// 直接 Unmarshal 到 cfg 上：文件里写到的字段覆盖默认值，其余保留 Default
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	if len(cfg.Outputs) == 0 {
		cfg.Outputs = []Output{OutputHTML}
	}
	// now 不设就保持零值，两次 build 才能逐字节一致；预览端自己取当前时间

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
