// Package google provides shared infrastructure for the Google Drive store.
//
// It contains:
//   - TokenSource adapter to bridge driven.TokenProvider to oauth2.TokenSource
//   - Service factory for creating Drive API clients
//   - Error handling for common Google API errors (401, 403, 404, 410, 429, 5xx)
//   - Rate limiting to respect Drive API quotas
//
// # Usage
//
//	ts := google.NewTokenSource(ctx, tokenProvider)
//	svc, err := google.NewDriveService(ctx, ts)
//	store := drive.New(svc, google.NewRateLimiter(), drive.DefaultConfig())
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/drive (derivatives are written next to their sources)
//   - https://www.googleapis.com/auth/userinfo.email (non-sensitive)
package google
