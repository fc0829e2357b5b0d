package build

import (
	"bytes"
	"encoding/json"
	"time"

	"inkwell/internal/domain/site"
	"inkwell/internal/index"
)

// JSONIndex 是 outputs 里开了 json 时落到 public/index.json 的站点索引。
// 故意不放生成时间，保证内容不变时逐字节可复现。
type JSONIndex struct {
	Title   string          `json:"title"`
	BaseURL string          `json:"base_url"`
	Posts   []JSONIndexPost `json:"posts"`
}

type JSONIndexPost struct {
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Date       time.Time `json:"date"`
	Updated    time.Time `json:"updated"`
	Tags       []string  `json:"tags,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	Summary    string    `json:"summary,omitempty"`
}

func (b *Builder) buildJSONIndex(st *index.Store, outDir string) error {
	metas, err := st.ListAll(b.Cfg.Site.SortMode, b.Cfg.Build.IncludeDrafts)
	if err != nil {
		return err
	}

	out := JSONIndex{
		Title:   b.Cfg.Site.Title,
		BaseURL: b.Cfg.Site.BaseURL,
		Posts:   make([]JSONIndexPost, 0, len(metas)),
	}
	for _, m := range metas {
		out.Posts = append(out.Posts, JSONIndexPost{
			Slug:       m.Slug,
			Title:      m.Title,
			URL:        site.PostURL(m.Date, m.Slug),
			Date:       m.Date,
			Updated:    m.Updated,
			Tags:       m.Tags,
			Categories: m.Categories,
			Summary:    m.Summary,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	return writeFile(outDir, "index.json", buf.Bytes())
}
