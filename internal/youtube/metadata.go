package youtube

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	ytapi "google.golang.org/api/youtube/v3"
)

// Limits enforced by the YouTube Data API for video snippets.
const (
	MaxTitleChars       = 100
	MaxDescriptionBytes = 5000
	MaxTagsChars        = 500

	// DefaultCategoryID is "People & Blogs".
	DefaultCategoryID = "22"
)

// Privacy is the video's visibility.
type Privacy int

const (
	PrivacyPrivate Privacy = iota
	PrivacyUnlisted
	PrivacyPublic
)

var privacyNames = [...]string{
	PrivacyPrivate:  "private",
	PrivacyUnlisted: "unlisted",
	PrivacyPublic:   "public",
}

func (p Privacy) String() string {
	if p < 0 || int(p) >= len(privacyNames) {
		return fmt.Sprintf("Privacy(%d)", int(p))
	}

	return privacyNames[p]
}

func (p Privacy) valid() bool {
	return p >= PrivacyPrivate && p <= PrivacyPublic
}

// ParsePrivacy parses "private", "unlisted" or "public", ignoring case.
func ParsePrivacy(s string) (Privacy, error) {
	want := strings.ToLower(strings.TrimSpace(s))

	for i, name := range privacyNames {
		if name == want {
			return Privacy(i), nil
		}
	}

	return PrivacyPrivate, fmt.Errorf("youtube: unknown privacy %q (want private, unlisted or public)", s)
}

// Metadata is the user-editable part of an upload.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	Privacy     Privacy
	PublishAt   time.Time // zero means publish immediately
	MadeForKids bool
	CategoryID  string
}

// ParseTags splits a comma-separated tag list, dropping blank entries.
func ParseTags(s string) []string {
	var tags []string

	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return tags
}

// SetPrivacy changes the privacy. Leaving private clears any scheduled
// publish time, since only private videos can be scheduled.
func (m *Metadata) SetPrivacy(p Privacy) {
	m.Privacy = p
	if p != PrivacyPrivate {
		m.PublishAt = time.Time{}
	}
}

// normalized returns a copy with text trimmed and NFC-normalized, empty tags
// dropped and the default category filled in.
func (m Metadata) normalized() Metadata {
	out := m
	out.Title = norm.NFC.String(strings.TrimSpace(m.Title))
	out.Description = norm.NFC.String(m.Description)
	out.Tags = nil

	for _, t := range m.Tags {
		if t = norm.NFC.String(strings.TrimSpace(t)); t != "" {
			out.Tags = append(out.Tags, t)
		}
	}

	if out.CategoryID == "" {
		out.CategoryID = DefaultCategoryID
	}

	return out
}

// Validate checks the metadata against the API's limits. now is the
// reference time for PublishAt. Errors wrap ErrInvalidMetadata.
func (m Metadata) Validate(now time.Time) error {
	n := m.normalized()

	switch {
	case n.Title == "":
		return &MetadataError{Field: "title", Reason: "must not be empty"}
	case utf8.RuneCountInString(n.Title) > MaxTitleChars:
		return &MetadataError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", MaxTitleChars)}
	case strings.ContainsAny(n.Title, "<>"):
		return &MetadataError{Field: "title", Reason: "must not contain < or >"}
	case len(n.Description) > MaxDescriptionBytes:
		return &MetadataError{Field: "description", Reason: fmt.Sprintf("must be at most %d bytes", MaxDescriptionBytes)}
	case strings.ContainsAny(n.Description, "<>"):
		return &MetadataError{Field: "description", Reason: "must not contain < or >"}
	case tagsLength(n.Tags) > MaxTagsChars:
		return &MetadataError{Field: "tags", Reason: fmt.Sprintf("must total at most %d characters", MaxTagsChars)}
	case !n.Privacy.valid():
		return &MetadataError{Field: "privacy", Reason: fmt.Sprintf("has unknown value %d", int(n.Privacy))}
	case !isDigits(n.CategoryID):
		return &MetadataError{Field: "categoryId", Reason: "must be numeric"}
	}

	if !n.PublishAt.IsZero() {
		if n.Privacy != PrivacyPrivate {
			return &MetadataError{Field: "publishAt", Reason: "requires private privacy"}
		}

		if !n.PublishAt.After(now) {
			return &MetadataError{Field: "publishAt", Reason: "must be in the future"}
		}
	}

	return nil
}

// tagsLength counts tags the way YouTube does: separating commas count, and
// a tag containing a space counts its surrounding quotes.
func tagsLength(tags []string) int {
	total := 0

	for i, t := range tags {
		total += utf8.RuneCountInString(t)
		if strings.Contains(t, " ") {
			total += 2
		}

		if i > 0 {
			total++
		}
	}

	return total
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// toVideo builds the request body for session initiation. m must already be
// normalized.
func (m Metadata) toVideo() *ytapi.Video {
	v := &ytapi.Video{
		Snippet: &ytapi.VideoSnippet{
			Title:       m.Title,
			Description: m.Description,
			Tags:        m.Tags,
			CategoryId:  m.CategoryID,
		},
		Status: &ytapi.VideoStatus{
			PrivacyStatus:           m.Privacy.String(),
			SelfDeclaredMadeForKids: m.MadeForKids,
			// Omitting false leaves the audience setting unset.
			ForceSendFields: []string{"SelfDeclaredMadeForKids"},
		},
	}

	if !m.PublishAt.IsZero() {
		v.Status.PublishAt = m.PublishAt.UTC().Format(time.RFC3339)
	}

	return v
}
