// Package tokenstore persists the OAuth token set and the pending
// authorization request for the signed-in user. It is a leaf package:
// backends only get, set and clear records. Deciding whether a stored token
// is still usable is the oauth package's job.
package tokenstore

import (
	"time"

	"golang.org/x/oauth2"
)

// AppKey is the fixed key under which the token set is stored.
const AppKey = "shorts-go.youtube"

// TokenSet is the persisted OAuth token set.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope,omitempty"`
}

// Expired reports whether the token is expired at now, treating it as
// expired skew early. A zero ExpiresAt counts as expired.
func (t *TokenSet) Expired(now time.Time, skew time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return true
	}

	return !now.Before(t.ExpiresAt.Add(-skew))
}

// OAuth2 converts the token set to an *oauth2.Token.
func (t *TokenSet) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt,
	}
}

// FromOAuth2 builds a TokenSet from a token endpoint response. The granted
// scope is read from the response's "scope" field when present.
func FromOAuth2(tok *oauth2.Token) *TokenSet {
	ts := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}

	if scope, ok := tok.Extra("scope").(string); ok {
		ts.Scope = scope
	}

	return ts
}

// PendingAuth is an authorization request that has been sent to the
// provider and is waiting for its redirect callback.
type PendingAuth struct {
	State       string    `json:"state"`
	Verifier    string    `json:"verifier"`
	RedirectURI string    `json:"redirect_uri"`
	Scopes      []string  `json:"scopes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store holds at most one TokenSet. Load returns (nil, nil) when nothing is
// stored; Save overwrites; Clear on an empty store is not an error.
type Store interface {
	Load() (*TokenSet, error)
	Save(ts *TokenSet) error
	Clear() error
}

// PendingStore is the short-lived slot for the in-flight authorization
// request. TakePending removes the request it returns, so a state nonce can
// be consumed only once. Returns (nil, nil) when no request is pending.
type PendingStore interface {
	PutPending(p *PendingAuth) error
	TakePending() (*PendingAuth, error)
}
