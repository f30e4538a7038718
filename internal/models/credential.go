package models

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// DefaultUserKey is the key used while only one user is supported.
const DefaultUserKey = "default"

// Credential holds the OAuth tokens for one user.
type Credential struct {
	UserKey         string    `json:"userKey"`
	TidalUserID     string    `json:"tidalUserId,omitempty"`
	AccessToken     string    `json:"-"`
	RefreshToken    string    `json:"-"`
	TokenExpiration time.Time `json:"tokenExpiration"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (c *Credential) Key() string { return c.UserKey }

// Validate checks the credential can be stored.
func (c *Credential) Validate() error {
	if c.UserKey == "" {
		return fmt.Errorf("user key is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	if c.TokenExpiration.IsZero() {
		return fmt.Errorf("token expiration is required")
	}
	return nil
}

// Expired reports whether the access token must be refreshed before use at now.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.TokenExpiration)
}

// Token converts the credential into an [oauth2.Token].
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.TokenExpiration,
	}
}

// Changed reports whether other carries different tokens than c.
func (c *Credential) Changed(other *Credential) bool {
	if other == nil {
		return false
	}
	return c.AccessToken != other.AccessToken ||
		c.RefreshToken != other.RefreshToken ||
		!c.TokenExpiration.Equal(other.TokenExpiration)
}

// CredentialFromToken builds a credential for userKey from an [oauth2.Token].
//
// An empty refresh token in tok keeps the one from previous, since Tidal may omit it on refresh.
func CredentialFromToken(userKey string, tok *oauth2.Token, previous *Credential) *Credential {
	cred := &Credential{
		UserKey:         userKey,
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
		TokenExpiration: tok.Expiry,
	}

	if uid, ok := tok.Extra("user_id").(float64); ok {
		cred.TidalUserID = fmt.Sprintf("%.0f", uid)
	} else if uid, ok := tok.Extra("user_id").(string); ok {
		cred.TidalUserID = uid
	}

	if previous != nil {
		if cred.RefreshToken == "" {
			cred.RefreshToken = previous.RefreshToken
		}
		if cred.TidalUserID == "" {
			cred.TidalUserID = previous.TidalUserID
		}
		cred.CreatedAt = previous.CreatedAt
	}

	return cred
}
