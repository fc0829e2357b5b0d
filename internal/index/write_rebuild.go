package index

import (
	"encoding/json"
	"strings"

	bolt "go.etcd.io/bbolt"

	"inkwell/internal/domain/content"
)

type RebuildOptions struct {
	IncludeDrafts bool
}

// Rebuild 全量重建索引：每次 build/serve 启动时从头写一遍，没有增量状态
func (s *Store) Rebuild(docs []content.Document, opt RebuildOptions) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		_ = tx.DeleteBucket(bMeta)
		_ = tx.DeleteBucket(bAlias)
		_ = tx.DeleteBucket(bIdxTag)
		_ = tx.DeleteBucket(bIdxCat)
		_ = tx.DeleteBucket(bIdxUpdated)
		_ = tx.DeleteBucket(bIdxCreated)

		metaB, _ := tx.CreateBucket(bMeta)
		aliasB, _ := tx.CreateBucket(bAlias)

		idxUpdatedB, _ := tx.CreateBucket(bIdxUpdated)
		idxCreatedB, _ := tx.CreateBucket(bIdxCreated)

		idxTagB, _ := tx.CreateBucket(bIdxTag)
		idxCatB, _ := tx.CreateBucket(bIdxCat)

		for _, d := range docs {
			m := d.Meta
			if m.Draft && !opt.IncludeDrafts {
				continue
			}
			if strings.TrimSpace(m.Slug) == "" {
				continue
			}
			mb, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := metaB.Put([]byte(m.Slug), mb); err != nil {
				return err
			}

			uKey := makeWeightTimeSlugKey(m.Weight, m.Updated.UnixNano(), m.Slug)
			if err := idxUpdatedB.Put(uKey, []byte{1}); err != nil {
				return err
			}

			cKey := makeWeightTimeSlugKey(m.Weight, m.Date.UnixNano(), m.Slug)
			if err := idxCreatedB.Put(cKey, []byte{1}); err != nil {
				return err
			}

			for _, tag := range m.Tags {
				if tag == "" {
					continue
				}
				sb, err := idxTagB.CreateBucketIfNotExists([]byte(tag))
				if err != nil {
					return err
				}
				if err := sb.Put(uKey, []byte{1}); err != nil {
					return err
				}
			}

			for _, cat := range m.Categories {
				cat = strings.TrimSpace(cat)
				if cat == "" {
					continue
				}
				sb, err := idxCatB.CreateBucketIfNotExists([]byte(cat))
				if err != nil {
					return err
				}
				if err := sb.Put(uKey, []byte{1}); err != nil {
					return err
				}
			}

			for _, old := range m.Aliases {
				old = strings.TrimSpace(old)
				if old == "" {
					continue
				}
				if err := aliasB.Put([]byte(old), []byte(m.Slug)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
