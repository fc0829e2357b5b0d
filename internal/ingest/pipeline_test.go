package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestIngest_MalformedDocument_FailsOnlyThatDocument(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "one.md", "---\ntitle: One\ndate: 2024-01-01\n---\nbody\n")
	writeSource(t, dir, "two.md", "---\ntitle: Two\ndate: 2024-01-02\n---\nbody\n")
	writeSource(t, dir, "three.md", "---\ntitle: Three\ndate: 2024-01-03\n---\nbody\n")
	bad := writeSource(t, dir, "broken.md", "---\ntitle: [unclosed\n---\nbody\n")

	docs, parseErrs, _, err := Ingest(dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Len(t, parseErrs, 1)
	require.Equal(t, bad, parseErrs[0].Path)
	require.Contains(t, parseErrs[0].Reason, "malformed front matter")
}

func TestIngest_UnchangedTree_YieldsIdenticalDocuments(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.md", "---\ntitle: Alpha\ndate: 2024-02-01\ntags: [x, y]\n---\nbody a\n")
	writeSource(t, dir, "nested/b.md", "---\ntitle: Beta\ndate: 2024-02-02\n---\nbody b\n")

	first, errs1, _, err := Ingest(dir)
	require.NoError(t, err)
	require.Empty(t, errs1)

	second, errs2, _, err := Ingest(dir)
	require.NoError(t, err)
	require.Empty(t, errs2)

	require.Equal(t, first, second)
}

func TestIngest_DraftsAreLoaded_FilteringHappensDownstream(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "d.md", "---\ntitle: Draft Post\ndate: 2024-03-01\ndraft: true\n---\nbody\n")

	docs, parseErrs, _, err := Ingest(dir)
	require.NoError(t, err)
	require.Empty(t, parseErrs)
	require.Len(t, docs, 1)
	require.True(t, docs[0].Meta.Draft)
}

func TestIngest_DuplicateSlug_KeepsFirstWarnsSecond(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.md", "---\ntitle: Same Title\ndate: 2024-01-01\n---\nbody one\n")
	writeSource(t, dir, "b.md", "---\ntitle: Same Title\ndate: 2024-01-02\n---\nbody two\n")

	docs, _, warns, err := Ingest(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	found := false
	for _, w := range warns {
		if w.Path != "" && w.Msg != "" && filepath.Base(w.Path) == "b.md" {
			found = true
		}
	}
	require.True(t, found, "expected a duplicate-slug warning for b.md")
}

func TestIngest_MissingDate_FallsBackToModTimeWithWarning(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "nodate.md", "---\ntitle: No Date\n---\nbody\n")

	docs, parseErrs, warns, err := Ingest(dir)
	require.NoError(t, err)
	require.Empty(t, parseErrs)
	require.Len(t, docs, 1)
	require.False(t, docs[0].Meta.Date.IsZero())

	found := false
	for _, w := range warns {
		if w.Path == path {
			found = true
		}
	}
	require.True(t, found)
}

func TestIngest_NonMarkdownFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "post.md", "---\ntitle: Post\ndate: 2024-01-01\n---\nbody\n")
	writeSource(t, dir, "notes.txt", "not markdown")
	writeSource(t, dir, "image.png", "binary-ish")

	docs, parseErrs, _, err := Ingest(dir)
	require.NoError(t, err)
	require.Empty(t, parseErrs)
	require.Len(t, docs, 1)
	require.Equal(t, "post", docs[0].Meta.Slug)
}

func TestIngest_MissingRoot_ReturnsError(t *testing.T) {
	_, _, _, err := Ingest(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
