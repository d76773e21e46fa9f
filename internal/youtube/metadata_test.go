package youtube

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"shorts", "funny", "tips"}, ParseTags("shorts, funny,, tips"))
	assert.Equal(t, []string{"one"}, ParseTags("  one  "))
	assert.Nil(t, ParseTags(""))
	assert.Nil(t, ParseTags(" , ,"))
}

func TestParsePrivacy(t *testing.T) {
	tests := []struct {
		in   string
		want Privacy
	}{
		{"private", PrivacyPrivate},
		{"Unlisted", PrivacyUnlisted},
		{" PUBLIC ", PrivacyPublic},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrivacy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(tt.in)), got.String())
		})
	}

	_, err := ParsePrivacy("secret")
	assert.Error(t, err)
}

func TestSetPrivacy_ClearsPublishAt(t *testing.T) {
	md := Metadata{Privacy: PrivacyPrivate, PublishAt: time.Now().Add(time.Hour)}

	md.SetPrivacy(PrivacyPrivate)
	assert.False(t, md.PublishAt.IsZero())

	md.SetPrivacy(PrivacyPublic)
	assert.Equal(t, PrivacyPublic, md.Privacy)
	assert.True(t, md.PublishAt.IsZero())
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		md    Metadata
		field string // empty means valid
	}{
		{name: "minimal", md: Metadata{Title: "Hello"}},
		{name: "blank title", md: Metadata{Title: "   "}, field: "title"},
		{name: "title at limit", md: Metadata{Title: strings.Repeat("é", MaxTitleChars)}},
		{name: "title too long", md: Metadata{Title: strings.Repeat("a", MaxTitleChars+1)}, field: "title"},
		{name: "title angle bracket", md: Metadata{Title: "a <b>"}, field: "title"},
		{
			name:  "description too long",
			md:    Metadata{Title: "t", Description: strings.Repeat("x", MaxDescriptionBytes+1)},
			field: "description",
		},
		{name: "description angle bracket", md: Metadata{Title: "t", Description: "1 > 0"}, field: "description"},
		{
			name:  "tags too long",
			md:    Metadata{Title: "t", Tags: []string{strings.Repeat("a", 300), strings.Repeat("b", 200)}},
			field: "tags",
		},
		{
			name: "tags at limit",
			md:   Metadata{Title: "t", Tags: []string{strings.Repeat("a", 299), strings.Repeat("b", 200)}},
		},
		{name: "unknown privacy", md: Metadata{Title: "t", Privacy: Privacy(7)}, field: "privacy"},
		{name: "category not numeric", md: Metadata{Title: "t", CategoryID: "music"}, field: "categoryId"},
		{
			name:  "public with publish time",
			md:    Metadata{Title: "t", Privacy: PrivacyPublic, PublishAt: now.Add(time.Hour)},
			field: "publishAt",
		},
		{
			name:  "unlisted with publish time",
			md:    Metadata{Title: "t", Privacy: PrivacyUnlisted, PublishAt: now.Add(time.Hour)},
			field: "publishAt",
		},
		{
			name:  "publish time in the past",
			md:    Metadata{Title: "t", Privacy: PrivacyPrivate, PublishAt: now.Add(-time.Minute)},
			field: "publishAt",
		},
		{
			name: "scheduled private",
			md:   Metadata{Title: "t", Privacy: PrivacyPrivate, PublishAt: now.Add(24 * time.Hour)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.md.Validate(now)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrInvalidMetadata)

			var me *MetadataError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.field, me.Field)
		})
	}
}

func TestTagsLength(t *testing.T) {
	assert.Equal(t, 0, tagsLength(nil))
	assert.Equal(t, 3, tagsLength([]string{"abc"}))
	// "abc","d e" → abc + comma + quoted "d e".
	assert.Equal(t, 3+1+3+2, tagsLength([]string{"abc", "d e"}))
}

func TestNormalized(t *testing.T) {
	md := Metadata{
		Title: "  Café  ",
		Tags:  []string{" a ", "", "  "},
	}

	n := md.normalized()
	assert.Equal(t, "Café", n.Title)
	assert.Equal(t, []string{"a"}, n.Tags)
	assert.Equal(t, DefaultCategoryID, n.CategoryID)

	// The original is untouched.
	assert.Equal(t, "  Café  ", md.Title)
}

func TestToVideo_JSON(t *testing.T) {
	publish := time.Date(2030, 5, 1, 9, 30, 0, 0, time.FixedZone("X", 2*3600))
	md := Metadata{
		Title:       "Title",
		Description: "Desc",
		Tags:        []string{"a", "b"},
		Privacy:     PrivacyPrivate,
		PublishAt:   publish,
	}.normalized()

	raw, err := json.Marshal(md.toVideo())
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "Title", got["snippet"]["title"])
	assert.Equal(t, "Desc", got["snippet"]["description"])
	assert.Equal(t, []any{"a", "b"}, got["snippet"]["tags"])
	assert.Equal(t, "22", got["snippet"]["categoryId"])
	assert.Equal(t, "private", got["status"]["privacyStatus"])
	assert.Equal(t, "2030-05-01T07:30:00Z", got["status"]["publishAt"])
	assert.Equal(t, false, got["status"]["selfDeclaredMadeForKids"])
}

func TestToVideo_NoPublishAt(t *testing.T) {
	raw, err := json.Marshal(Metadata{Title: "t", Privacy: PrivacyPublic, MadeForKids: true}.normalized().toVideo())
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "publishAt")
	assert.Contains(t, string(raw), `"selfDeclaredMadeForKids":true`)
	assert.Contains(t, string(raw), `"privacyStatus":"public"`)
}
