package tags

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailquill/backend/internal/models"
)

func defs(names ...string) []models.Tag {
	out := make([]models.Tag, 0, len(names))
	for _, name := range names {
		out = append(out, models.Tag{Name: name, Marker: MarkerFor(name)})
	}
	return out
}

func TestMarkerFor(t *testing.T) {
	assert.Equal(t, "[[Urgent]]", MarkerFor("Urgent"))
	assert.Equal(t, "[[follow up]]", MarkerFor("follow up"))
}

func TestExtract(t *testing.T) {
	t.Run("removes marker and records tag once", func(t *testing.T) {
		text := "Task found [[Urgent]] please review [[Urgent]] soon"
		cleaned, matched := Extract(text, defs("Urgent"))

		assert.Equal(t, "Task found  please review  soon", cleaned)
		assert.Equal(t, []string{"Urgent"}, matched)
	})

	t.Run("case-insensitive matching", func(t *testing.T) {
		cleaned, matched := Extract("done [[urgent]] now", defs("Urgent"))

		assert.Equal(t, "done  now", cleaned)
		assert.Equal(t, []string{"Urgent"}, matched)
	})

	t.Run("matched names follow definition order", func(t *testing.T) {
		text := "[[Later]] and [[Urgent]]"
		_, matched := Extract(text, defs("Urgent", "Later"))

		assert.Equal(t, []string{"Urgent", "Later"}, matched)
	})

	t.Run("text without markers is unchanged", func(t *testing.T) {
		text := "nothing to see here"
		cleaned, matched := Extract(text, defs("Urgent"))

		assert.Equal(t, text, cleaned)
		assert.Empty(t, matched)
	})

	t.Run("empty marker is skipped", func(t *testing.T) {
		tagDefs := []models.Tag{{Name: "Broken", Marker: ""}}
		cleaned, matched := Extract("some text", tagDefs)

		assert.Equal(t, "some text", cleaned)
		assert.Empty(t, matched)
	})

	t.Run("extraction is idempotent", func(t *testing.T) {
		tagDefs := defs("Urgent", "Later")
		once, _ := Extract("a [[Urgent]] b [[Later]] c", tagDefs)
		twice, matched := Extract(once, tagDefs)

		assert.Equal(t, once, twice)
		assert.Empty(t, matched)
	})

	t.Run("non-ascii text before a marker stays intact", func(t *testing.T) {
		// 'İ' lowercases to a different byte length, which must not shift
		// the match offsets.
		cleaned, matched := Extract("İ[[Urgent]] done", defs("Urgent"))

		assert.Equal(t, "İ done", cleaned)
		assert.True(t, utf8.ValidString(cleaned))
		assert.Equal(t, []string{"Urgent"}, matched)
	})

	t.Run("rune with longer lowercase form does not break excision", func(t *testing.T) {
		// 'Ⱥ' (U+023A) is two bytes but its lowercase form is three.
		cleaned, matched := Extract("Ⱥ[[Urgent]]", defs("Urgent"))

		assert.Equal(t, "Ⱥ", cleaned)
		assert.True(t, utf8.ValidString(cleaned))
		assert.Equal(t, []string{"Urgent"}, matched)
	})

	t.Run("non-ascii inside markers matches case-insensitively", func(t *testing.T) {
		tagDefs := []models.Tag{{Name: "Über", Marker: MarkerFor("Über")}}
		cleaned, matched := Extract("done [[über]] now İİ", tagDefs)

		assert.Equal(t, "done  now İİ", cleaned)
		assert.True(t, utf8.ValidString(cleaned))
		assert.Equal(t, []string{"Über"}, matched)
	})

	t.Run("many occurrences all removed", func(t *testing.T) {
		text := strings.Repeat("[[X]] ", 50)
		cleaned, matched := Extract(text, defs("X"))

		assert.Equal(t, strings.Repeat(" ", 50), cleaned)
		assert.Equal(t, []string{"X"}, matched)
	})
}

func TestValidateSet(t *testing.T) {
	t.Run("accepts distinct tags", func(t *testing.T) {
		require.NoError(t, ValidateSet(defs("Urgent", "Later", "Waiting")))
	})

	t.Run("rejects names differing only by case", func(t *testing.T) {
		err := ValidateSet(defs("Urgent", "urgent"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "share a name")
	})

	t.Run("rejects colliding markers", func(t *testing.T) {
		tagDefs := []models.Tag{
			{Name: "A", Marker: "[[Same]]"},
			{Name: "B", Marker: "[[same]]"},
		}
		err := ValidateSet(tagDefs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "share a marker")
	})

	t.Run("empty set is valid", func(t *testing.T) {
		require.NoError(t, ValidateSet(nil))
	})
}
