// Package google provides shared infrastructure for the Google Drive object
// store backend.
//
// It contains:
//   - TokenSource adapter to bridge the TokenProvider port to oauth2.TokenSource
//   - A static TokenProvider for pre-issued access tokens
//   - The Drive service factory
//   - Mapping of Google API errors onto transport status errors (401, 403, 404, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	ts := google.NewTokenSource(ctx, google.NewStaticTokenProvider(token))
//	svc, err := google.NewDriveService(ctx, ts)
//	store := drive.NewStore(svc, google.NewRateLimiter(google.ServiceDrive))
//
// # OAuth2 Scopes
//
// The Drive backend needs https://www.googleapis.com/auth/drive.file, which
// covers files the application itself created.
package google
