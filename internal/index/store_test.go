package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inkwell/internal/domain/config"
	"inkwell/internal/domain/content"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(OpenOptions{Path: filepath.Join(t.TempDir(), "index.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func doc(slug string, date time.Time, weight int, draft bool, tags, cats []string) content.Document {
	return content.Document{
		Meta: content.DocumentMeta{
			Title:      slug,
			Slug:       slug,
			Date:       date,
			Updated:    date,
			Weight:     weight,
			Draft:      draft,
			Tags:       tags,
			Categories: cats,
		},
		Body: content.BodyRef{SourcePath: slug + ".md"},
	}
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
}

func TestList_WeightedFirstThenReverseChronological(t *testing.T) {
	st := openTestStore(t)

	docs := []content.Document{
		doc("old", day(1), 0, false, nil, nil),
		doc("new", day(20), 0, false, nil, nil),
		doc("pinned-second", day(5), 2, false, nil, nil),
		doc("pinned-first", day(3), 1, false, nil, nil),
	}
	require.NoError(t, st.Rebuild(docs, RebuildOptions{}))

	got, err := st.List(ListOptions{Sort: config.SortCreated, Page: 1, Size: 10})
	require.NoError(t, err)

	slugs := make([]string, 0, len(got))
	for _, m := range got {
		slugs = append(slugs, m.Slug)
	}
	require.Equal(t, []string{"pinned-first", "pinned-second", "new", "old"}, slugs)
}

func TestRebuild_ExcludesDraftsUnlessIncluded(t *testing.T) {
	st := openTestStore(t)

	docs := []content.Document{
		doc("published", day(1), 0, false, nil, nil),
		doc("draft", day(2), 0, true, nil, nil),
	}

	require.NoError(t, st.Rebuild(docs, RebuildOptions{}))
	got, err := st.ListAll(config.SortCreated, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "published", got[0].Slug)

	require.NoError(t, st.Rebuild(docs, RebuildOptions{IncludeDrafts: true}))
	got, err = st.ListAll(config.SortCreated, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestListByTagAndCategory(t *testing.T) {
	st := openTestStore(t)

	docs := []content.Document{
		doc("a", day(1), 0, false, []string{"go"}, []string{"programming"}),
		doc("b", day(2), 0, false, []string{"go", "testing"}, nil),
		doc("c", day(3), 0, false, []string{"python"}, []string{"programming"}),
	}
	require.NoError(t, st.Rebuild(docs, RebuildOptions{}))

	opt := ListOptions{Sort: config.SortCreated, Page: 1, Size: 10}

	got, err := st.ListByTag("go", opt)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].Slug) // 时间倒序
	require.Equal(t, "a", got[1].Slug)

	got, err = st.ListByCategory("programming", opt)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = st.ListByTag("missing", opt)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestTagStats_SortedByCountThenName(t *testing.T) {
	st := openTestStore(t)

	docs := []content.Document{
		doc("a", day(1), 0, false, []string{"go", "web"}, nil),
		doc("b", day(2), 0, false, []string{"go", "db"}, nil),
		doc("c", day(3), 0, false, []string{"db"}, nil),
	}
	require.NoError(t, st.Rebuild(docs, RebuildOptions{}))

	stats, err := st.TagStats(false)
	require.NoError(t, err)
	require.Equal(t, []LabelStat{
		{Name: "db", Count: 2},
		{Name: "go", Count: 2},
		{Name: "web", Count: 1},
	}, stats)
}

func TestResolveAlias_MapsOldSlug(t *testing.T) {
	st := openTestStore(t)

	d := doc("new-slug", day(1), 0, false, nil, nil)
	d.Meta.Aliases = []string{"old-slug"}
	require.NoError(t, st.Rebuild([]content.Document{d}, RebuildOptions{}))

	mapped, err := st.ResolveAlias("old-slug")
	require.NoError(t, err)
	require.Equal(t, "new-slug", mapped)

	// 现行 slug 原样返回
	mapped, err = st.ResolveAlias("new-slug")
	require.NoError(t, err)
	require.Equal(t, "new-slug", mapped)

	_, err = st.ResolveAlias("never-existed")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_Paging(t *testing.T) {
	st := openTestStore(t)

	var docs []content.Document
	for i := 1; i <= 5; i++ {
		docs = append(docs, doc(string(rune('a'+i-1)), day(i), 0, false, nil, nil))
	}
	require.NoError(t, st.Rebuild(docs, RebuildOptions{}))

	page1, err := st.List(ListOptions{Sort: config.SortCreated, Page: 1, Size: 2})
	require.NoError(t, err)
	page2, err := st.List(ListOptions{Sort: config.SortCreated, Page: 2, Size: 2})
	require.NoError(t, err)
	page3, err := st.List(ListOptions{Sort: config.SortCreated, Page: 3, Size: 2})
	require.NoError(t, err)

	require.Len(t, page1, 2)
	require.Len(t, page2, 2)
	require.Len(t, page3, 1)
	require.Equal(t, "e", page1[0].Slug)
	require.Equal(t, "a", page3[0].Slug)
}

func TestCountAll(t *testing.T) {
	st := openTestStore(t)

	docs := []content.Document{
		doc("x", day(1), 0, false, nil, nil),
		doc("y", day(2), 0, true, nil, nil),
	}
	require.NoError(t, st.Rebuild(docs, RebuildOptions{IncludeDrafts: true}))

	n, err := st.CountAll(false)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = st.CountAll(true)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
