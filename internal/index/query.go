package index

import (
	"encoding/json"
	"errors"
	"strings"

	bolt "go.etcd.io/bbolt"

	"inkwell/internal/domain/config"
	"inkwell/internal/domain/content"
)

var ErrNotFound = errors.New("not found")

type ListOptions struct {
	Sort          config.SortMode
	Page          int
	Size          int
	IncludeDrafts bool
}

func (s *Store) GetMeta(slug string) (content.DocumentMeta, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return content.DocumentMeta{}, ErrNotFound
	}
	var m content.DocumentMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bMeta)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(slug))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &m)
	})
	return m, err
}

func (s *Store) ResolveAlias(slugOrOld string) (string, error) {
	slugOrOld = strings.TrimSpace(slugOrOld)
	if slugOrOld == "" {
		return "", ErrNotFound
	}

	if _, err := s.GetMeta(slugOrOld); err == nil {
		return slugOrOld, nil
	}

	var mapped string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bAlias)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(slugOrOld))
		if v == nil {
			return ErrNotFound
		}
		mapped = string(v)
		return nil
	})
	return mapped, err
}

func normalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

func (s *Store) orderBucket(sort config.SortMode) []byte {
	switch sort {
	case config.SortUpdated:
		return bIdxUpdated
	default:
		return bIdxCreated
	}
}

func (s *Store) List(opt ListOptions) ([]content.DocumentMeta, error) {
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)

	var out []content.DocumentMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(s.orderBucket(opt.Sort))
		metaB := tx.Bucket(bMeta)
		if idx == nil || metaB == nil {
			return nil
		}

		skip := (opt.Page - 1) * opt.Size
		cur := idx.Cursor()

		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromWeightTimeSlugKey(k)
			if slug == "" {
				continue
			}
			v := metaB.Get([]byte(slug))
			if v == nil {
				continue
			}

			var m content.DocumentMeta
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			if m.Draft && !opt.IncludeDrafts {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			out = append(out, m)
			if len(out) >= opt.Size {
				break
			}
		}
		return nil
	})
	return out, err
}

// ListAll 不走分页，build 端（归档 / JSON 索引 / 统计）用
func (s *Store) ListAll(sort config.SortMode, includeDrafts bool) ([]content.DocumentMeta, error) {
	var out []content.DocumentMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(s.orderBucket(sort))
		metaB := tx.Bucket(bMeta)
		if idx == nil || metaB == nil {
			return nil
		}
		cur := idx.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromWeightTimeSlugKey(k)
			if slug == "" {
				continue
			}
			v := metaB.Get([]byte(slug))
			if v == nil {
				continue
			}
			var m content.DocumentMeta
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			if m.Draft && !includeDrafts {
				continue
			}
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

func (s *Store) ListByTag(tag string, opt ListOptions) ([]content.DocumentMeta, error) {
	tag = strings.TrimSpace(strings.ToLower(tag))
	return s.listByLabel(bIdxTag, tag, opt)
}

func (s *Store) ListByCategory(cat string, opt ListOptions) ([]content.DocumentMeta, error) {
	cat = strings.TrimSpace(strings.ToLower(cat))
	return s.listByLabel(bIdxCat, cat, opt)
}

func (s *Store) listByLabel(parentBucket []byte, label string, opt ListOptions) ([]content.DocumentMeta, error) {
	if label == "" {
		return nil, nil
	}
	opt.Page, opt.Size = normalizePaging(opt.Page, opt.Size)

	var out []content.DocumentMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		parent := tx.Bucket(parentBucket)
		metaB := tx.Bucket(bMeta)
		if parent == nil || metaB == nil {
			return nil
		}
		sb := parent.Bucket([]byte(label))
		if sb == nil {
			return nil
		}

		skip := (opt.Page - 1) * opt.Size
		cur := sb.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromWeightTimeSlugKey(k)
			if slug == "" {
				continue
			}
			v := metaB.Get([]byte(slug))
			if v == nil {
				continue
			}
			var m content.DocumentMeta
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			if m.Draft && !opt.IncludeDrafts {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			out = append(out, m)
			if len(out) >= opt.Size {
				break
			}
		}
		return nil
	})
	return out, err
}
