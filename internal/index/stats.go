package index

import (
	"encoding/json"
	"sort"

	bolt "go.etcd.io/bbolt"

	"inkwell/internal/domain/content"
)

type LabelStat struct {
	Name  string
	Count int
}

// TagStats 全部标签及数量，按数量降序、同数量按名字升序。
// 排序固定是为了两次 build 输出逐字节一致。
func (s *Store) TagStats(includeDrafts bool) ([]LabelStat, error) {
	return s.labelStats(bIdxTag, includeDrafts)
}

func (s *Store) CategoryStats(includeDrafts bool) ([]LabelStat, error) {
	return s.labelStats(bIdxCat, includeDrafts)
}

func (s *Store) labelStats(parentBucket []byte, includeDrafts bool) ([]LabelStat, error) {
	var stats []LabelStat
	err := s.db.View(func(tx *bolt.Tx) error {
		parent := tx.Bucket(parentBucket)
		metaB := tx.Bucket(bMeta)
		if parent == nil || metaB == nil {
			return nil
		}
		return parent.ForEachBucket(func(name []byte) error {
			sb := parent.Bucket(name)
			if sb == nil {
				return nil
			}
			count := 0
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
				if m.Draft && !includeDrafts {
					continue
				}
				count++
			}
			if count > 0 {
				stats = append(stats, LabelStat{Name: string(name), Count: count})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].Count > stats[j].Count
	})
	return stats, nil
}

// CountAll 可见文档总数，分页用
func (s *Store) CountAll(includeDrafts bool) (int, error) {
	total := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		metaB := tx.Bucket(bMeta)
		if metaB == nil {
			return nil
		}
		return metaB.ForEach(func(k, v []byte) error {
			var m content.DocumentMeta
			if err := json.Unmarshal(v, &m); err != nil {
				return nil
			}
			if m.Draft && !includeDrafts {
				return nil
			}
			total++
			return nil
		})
	})
	return total, err
}
