package tokenstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestTokenSet_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		skew      time.Duration
		want      bool
	}{
		{"zero expiry", time.Time{}, 0, true},
		{"past", now.Add(-time.Minute), 0, true},
		{"exactly now", now, 0, true},
		{"future", now.Add(time.Hour), time.Minute, false},
		{"inside skew", now.Add(30 * time.Second), time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := &TokenSet{AccessToken: "a", ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, ts.Expired(now, tt.skew))
		})
	}
}

func TestFromOAuth2_ReadsScope(t *testing.T) {
	expiry := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := (&oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       expiry,
	}).WithExtra(map[string]any{"scope": "https://www.googleapis.com/auth/youtube.upload"})

	ts := FromOAuth2(tok)
	assert.Equal(t, "access", ts.AccessToken)
	assert.Equal(t, "refresh", ts.RefreshToken)
	assert.Equal(t, "Bearer", ts.TokenType)
	assert.True(t, ts.ExpiresAt.Equal(expiry))
	assert.Equal(t, "https://www.googleapis.com/auth/youtube.upload", ts.Scope)

	back := ts.OAuth2()
	assert.Equal(t, "access", back.AccessToken)
	assert.Equal(t, "refresh", back.RefreshToken)
	assert.True(t, back.Expiry.Equal(expiry))
}

func TestFromOAuth2_NoScope(t *testing.T) {
	ts := FromOAuth2(&oauth2.Token{AccessToken: "a"})
	assert.Empty(t, ts.Scope)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()

	tok, err := s.Load()
	assert.NoError(t, err)
	assert.Nil(t, tok)

	in := &TokenSet{AccessToken: "a"}
	assert.NoError(t, s.Save(in))
	in.AccessToken = "mutated"

	out, err := s.Load()
	assert.NoError(t, err)
	assert.Equal(t, "a", out.AccessToken)

	assert.NoError(t, s.Clear())

	out, err = s.Load()
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestMemoryStore_TakePendingConsumes(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.PutPending(&PendingAuth{State: "abc", Scopes: []string{"x"}}))

	p, err := s.TakePending()
	assert.NoError(t, err)
	assert.Equal(t, "abc", p.State)

	p, err = s.TakePending()
	assert.NoError(t, err)
	assert.Nil(t, p)
}
