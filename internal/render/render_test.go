package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starmap/internal/model"
)

func fixedClock() time.Time {
	return time.Date(2024, 7, 1, 12, 30, 0, 0, time.UTC)
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(fixedClock)
	require.NoError(t, err)
	return r
}

func TestRenderer_Render(t *testing.T) {
	t.Run("renders header and one section per record", func(t *testing.T) {
		records := []model.StarRecord{
			{Name: "golang/go", URL: "https://github.com/golang/go", Description: "The Go programming language", Language: "Go", Topics: []string{"go", "language"}, Stars: 120000, StarredAt: "2024-02-01T00:00:00Z"},
		}

		doc, err := newTestRenderer(t).Render(records)

		require.NoError(t, err)
		expected := "# My GitHub Stars\n\n" +
			"> Last updated: 2024-07-01 12:30 UTC\n" +
			"> Total repositories: 1\n\n" +
			"---\n\n" +
			"## [golang/go](https://github.com/golang/go)\n\n" +
			"The Go programming language\n\n" +
			"![Go](https://img.shields.io/badge/-Go-grey) ⭐ 120000 stars\n\n" +
			"`go` · `language`\n\n" +
			"---\n\n"
		assert.Equal(t, expected, doc)
	})

	t.Run("uses a placeholder for empty descriptions", func(t *testing.T) {
		doc, err := newTestRenderer(t).Render([]model.StarRecord{{Name: "a/b", Language: "Go", Topics: []string{}}})

		require.NoError(t, err)
		assert.Contains(t, doc, "_No description provided_")
	})

	t.Run("omits the language badge for unknown languages", func(t *testing.T) {
		doc, err := newTestRenderer(t).Render([]model.StarRecord{{Name: "a/b", Language: model.UnknownLanguage, Stars: 7, Topics: []string{}}})

		require.NoError(t, err)
		assert.NotContains(t, doc, "img.shields.io")
		assert.Contains(t, doc, "\n⭐ 7 stars\n")
	})

	t.Run("escapes badge labels", func(t *testing.T) {
		assert.Equal(t, "![Vim Script](https://img.shields.io/badge/-Vim%20Script-grey)", languageBadge("Vim Script"))
		assert.Equal(t, "![Objective-C](https://img.shields.io/badge/-Objective--C-grey)", languageBadge("Objective-C"))
	})

	t.Run("shows at most five topics", func(t *testing.T) {
		records := []model.StarRecord{{Name: "a/b", Topics: []string{"t1", "t2", "t3", "t4", "t5", "t6"}}}

		doc, err := newTestRenderer(t).Render(records)

		require.NoError(t, err)
		assert.Contains(t, doc, "`t1` · `t2` · `t3` · `t4` · `t5`")
		assert.NotContains(t, doc, "`t6`")
	})

	t.Run("sorts the caller's records by recency with empty timestamps last", func(t *testing.T) {
		records := []model.StarRecord{
			{Name: "none/starred", StarredAt: "", Topics: []string{}},
			{Name: "old/starred", StarredAt: "2023-06-01T00:00:00Z", Topics: []string{}},
			{Name: "new/starred", StarredAt: "2024-01-01T00:00:00Z", Topics: []string{}},
		}

		doc, err := newTestRenderer(t).Render(records)

		require.NoError(t, err)
		assert.Equal(t, "new/starred", records[0].Name)
		assert.Equal(t, "old/starred", records[1].Name)
		assert.Equal(t, "none/starred", records[2].Name)

		iNew := strings.Index(doc, "## [new/starred]")
		iOld := strings.Index(doc, "## [old/starred]")
		iNone := strings.Index(doc, "## [none/starred]")
		assert.True(t, iNew >= 0 && iNew < iOld && iOld < iNone)
		assert.Equal(t, 3, strings.Count(doc, "\n## ["))
	})

	t.Run("is deterministic for a fixed clock and input", func(t *testing.T) {
		r := newTestRenderer(t)
		records := []model.StarRecord{{Name: "a/b", StarredAt: "2024-01-01T00:00:00Z", Topics: []string{}}}

		first, err := r.Render(records)
		require.NoError(t, err)
		second, err := r.Render(records)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("renders an empty set as a header only", func(t *testing.T) {
		doc, err := newTestRenderer(t).Render(nil)

		require.NoError(t, err)
		assert.Contains(t, doc, "> Total repositories: 0")
		assert.NotContains(t, doc, "## [")
	})
}
