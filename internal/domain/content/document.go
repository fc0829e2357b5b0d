package content

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type DocumentMeta struct {
	Title   string
	Slug    string
	Date    time.Time
	Updated time.Time

	Tags       []string
	Categories []string

	Summary string
	Image   string

	// weight 越小越靠前，0 表示不置顶
	Weight int
	Draft  bool

	Comments bool
	TOC      bool

	Aliases []string

	// 头部里不认识的键都收进 Params，模板侧按需取用
	Params map[string]Value
}

// BodyRef 指向正文来源，正文本身 build 时再读
type BodyRef struct {
	SourcePath  string
	ContentHash string
}

type Document struct {
	Meta DocumentMeta
	Body BodyRef
}

func (m *DocumentMeta) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Slug = strings.TrimSpace(m.Slug)
	m.Summary = strings.TrimSpace(m.Summary)
	m.Image = strings.TrimSpace(m.Image)

	m.Tags = normalizeLabels(m.Tags)
	m.Categories = normalizeLabels(m.Categories)
	m.Aliases = normalizeLabels(m.Aliases)

	if m.Weight < 0 {
		m.Weight = 0
	}
}

func normalizeLabels(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		item = strings.ToLower(item)
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

type ValueKind string

const (
	ValueString  ValueKind = "string"
	ValueBool    ValueKind = "bool"
	ValueInt     ValueKind = "int"
	ValueStrings ValueKind = "strings"
)

// Value 是 params 里的一个值：string / bool / int / []string 四选一。
// 不用 map[string]any，静态类型下模板和测试都好对付。
type Value struct {
	Kind    ValueKind
	Str     string
	Bool    bool
	Int     int
	Strings []string
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return fmt.Errorf("params: list values must be strings: %w", err)
		}
		*v = Value{Kind: ValueStrings, Strings: items}
		return nil
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			*v = Value{Kind: ValueBool, Bool: b}
			return nil
		case "!!int":
			var n int
			if err := node.Decode(&n); err != nil {
				return err
			}
			*v = Value{Kind: ValueInt, Int: n}
			return nil
		default:
			*v = Value{Kind: ValueString, Str: node.Value}
			return nil
		}
	default:
		return fmt.Errorf("params: unsupported value at line %d", node.Line)
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueStrings:
		return strings.Join(v.Strings, ", ")
	}
	return ""
}
