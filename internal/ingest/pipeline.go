package ingest

import (
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	domainbuild "inkwell/internal/domain/build"
	"inkwell/internal/domain/content"
	domainerr "inkwell/internal/domain/errors"
)

// Warning 是软问题：文档还能用，但值得在 build 日志里提一句
type Warning struct {
	Path string
	Msg  string
}

type result struct {
	Doc      content.Document
	ParseErr *domainerr.ParseError
	Warns    []Warning
	Skip     bool
}

// Ingest 读入 sourceDir 下全部文档。
// 单个文件头损坏只算那一个文件的 ParseError，其余文档照常返回；
// 只有目录遍历这类全局故障才走最后一个 error。
func Ingest(sourceDir string) ([]content.Document, domainerr.ParseErrorList, []Warning, error) {
	files, err := DiscoverSource(sourceDir)
	if err != nil {
		return nil, nil, nil, err
	}

	workers := runtime.GOMAXPROCS(0)
	jobs := make(chan SourceFile)
	results := make(chan result)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sf := range jobs {
				results <- parseOne(sf)
			}
		}()
	}

	go func() {
		for _, f := range files {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var out []content.Document
	var parseErrs domainerr.ParseErrorList
	var warns []Warning
	for r := range results {
		if r.ParseErr != nil {
			parseErrs = append(parseErrs, *r.ParseErr)
		}
		if len(r.Warns) > 0 {
			warns = append(warns, r.Warns...)
		}
		if r.Skip || r.ParseErr != nil {
			continue
		}
		out = append(out, r.Doc)
	}

	// worker 返回顺序不定，按路径排一下保证两次 Ingest 结果一致
	sort.Slice(out, func(i, j int) bool {
		return out[i].Body.SourcePath < out[j].Body.SourcePath
	})
	sort.Slice(parseErrs, func(i, j int) bool {
		return parseErrs[i].Path < parseErrs[j].Path
	})
	sort.Slice(warns, func(i, j int) bool {
		if warns[i].Path == warns[j].Path {
			return warns[i].Msg < warns[j].Msg
		}
		return warns[i].Path < warns[j].Path
	})

	seen := make(map[string]struct{}, len(out))
	filtered := make([]content.Document, 0, len(out))
	for _, d := range out {
		if _, ok := seen[d.Meta.Slug]; ok {
			warns = append(warns, Warning{Path: d.Body.SourcePath, Msg: "duplicate slug, skipped: " + d.Meta.Slug})
			continue
		}
		seen[d.Meta.Slug] = struct{}{}
		filtered = append(filtered, d)
	}
	return filtered, parseErrs, warns, nil
}

func parseOne(sf SourceFile) result {
	st, statErr := os.Stat(sf.Path)
	if statErr != nil {
		return result{ParseErr: &domainerr.ParseError{Path: sf.Path, Reason: statErr.Error()}}
	}
	raw, readErr := os.ReadFile(sf.Path)
	if readErr != nil {
		return result{ParseErr: &domainerr.ParseError{Path: sf.Path, Reason: readErr.Error()}}
	}
	contentHash := domainbuild.HashBytes(raw)

	fm, _, fmErr := ParseFrontMatter(raw)
	if fmErr != nil && fmErr != ErrNoFrontMatter {
		return result{ParseErr: &domainerr.ParseError{
			Path:   sf.Path,
			Reason: "malformed front matter: " + fmErr.Error(),
		}}
	}

	var warns []Warning
	slug := ResolveSlug(fm, sf.Path)
	if slug == "" {
		warns = append(warns, Warning{Path: sf.Path, Msg: "empty slug"})
		return result{Warns: warns, Skip: true}
	}

	meta := content.DocumentMeta{
		Title:      fm.Title,
		Slug:       slug,
		Tags:       fm.Tags,
		Categories: fm.Categories,
		Summary:    fm.Summary,
		Image:      fm.Image,
		Weight:     fm.Weight,
		Draft:      fm.Draft,
		Comments:   fm.Comments,
		TOC:        fm.TOC,
		Aliases:    fm.Aliases,
		Params:     fm.Params,
	}
	mt := st.ModTime().In(time.Local)
	meta.Date = ParseTime(fm.Date)
	meta.Updated = ParseTime(fm.Updated)
	if meta.Date.IsZero() {
		meta.Date = mt
		warns = append(warns, Warning{
			Path: sf.Path,
			Msg:  "using file modification time for date",
		})
	}
	if meta.Updated.IsZero() {
		meta.Updated = meta.Date
	}
	if strings.TrimSpace(meta.Title) == "" {
		warns = append(warns, Warning{Path: sf.Path, Msg: "title is empty"})
	}
	meta.Normalize()
	return result{
		Doc: content.Document{
			Meta: meta,
			Body: content.BodyRef{
				SourcePath:  sf.Path,
				ContentHash: contentHash,
			},
		},
		Warns: warns,
	}
}
