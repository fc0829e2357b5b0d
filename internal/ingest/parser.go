package ingest

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"inkwell/internal/domain/content"
)

var ErrNoFrontMatter = errors.New("no front matter found")
var ErrInvalidFrontMatter = errors.New("invalid front matter")

type FrontMatter struct {
	Title   string `yaml:"title"`
	Slug    string `yaml:"slug"`
	Date    string `yaml:"date"`
	Updated string `yaml:"updated"`

	Tags       []string `yaml:"tags"`
	Categories []string `yaml:"categories"`

	Summary string `yaml:"summary"`
	Image   string `yaml:"image"`

	Weight int  `yaml:"weight"`
	Draft  bool `yaml:"draft"`

	Comments bool `yaml:"comments"`
	TOC      bool `yaml:"toc"`

	Aliases []string `yaml:"aliases"`

	// 头部里其余的键收进 Params
	Params map[string]content.Value `yaml:",inline"`
}

func defaultFrontMatter() FrontMatter {
	return FrontMatter{
		Comments: true,
	}
}

// ParseFrontMatter 切出 "---" 包住的 YAML 头和正文。
// 头损坏（没闭合 / YAML 解析失败）返回错误，由调用方决定怎么报。
func ParseFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	fm := defaultFrontMatter()

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fm, raw, ErrNoFrontMatter
	}

	// 统一换行符
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))

	const (
		sep      = "---"
		sepLine  = sep + "\n"
		closeMid = "\n" + sep + "\n"
	)

	if !bytes.HasPrefix(norm, []byte(sepLine)) {
		return fm, raw, ErrNoFrontMatter
	}

	// 去掉首行 "---\n"
	rest := norm[len(sepLine):]

	var yamlPart, bodyPart []byte

	// 最常见：中间有 "\n---\n"
	if parts := bytes.SplitN(rest, []byte(closeMid), 2); len(parts) == 2 {
		yamlPart = parts[0]
		bodyPart = parts[1]
	} else {
		// 结尾是 "\n---" 且没有正文
		if bytes.HasSuffix(rest, []byte("\n"+sep)) {
			yamlPart = rest[:len(rest)-len("\n"+sep)]
			bodyPart = nil
		} else if bytes.Equal(bytes.TrimSpace(rest), []byte(sep)) {
			// "---\n---"：空头无正文
			yamlPart = nil
			bodyPart = nil
		} else {
			return fm, raw, ErrInvalidFrontMatter
		}
	}

	yamlPart = bytes.TrimSpace(yamlPart)
	bodyPart = bytes.TrimSpace(bodyPart)

	if len(yamlPart) > 0 {
		if err := yaml.Unmarshal(yamlPart, &fm); err != nil {
			return defaultFrontMatter(), raw, err
		}
	}

	return fm, bodyPart, nil
}

func ResolveSlug(fm FrontMatter, path string) string {
	if s := strings.TrimSpace(fm.Slug); s != "" {
		return Slugify(s)
	}
	if t := strings.TrimSpace(fm.Title); t != "" {
		return Slugify(t)
	}
	base := filepath.Base(path)
	return Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
}

func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		time.DateOnly,
		"2006-01-02 15:04",
		time.DateTime,
	} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func Slugify(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var out []rune
	lastDash := false

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]

		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if r <= unicode.MaxASCII {
				if 'A' <= r && r <= 'Z' {
					r = r + ('a' - 'A')
				}
			}
			out = append(out, r)
			lastDash = false
		case r == '-' || r == '_' || r == '.' || unicode.IsSpace(r):
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		default:
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}
