// Package services implements the Spotify side of the server: a Web API client, the token authority that
// keeps its bearer token valid, and the invoker that every remote call goes through.
//
// # Token lifecycle
//
// [TokenAuthority] moves once from uninitialized to one of three terminal states:
//   - not configured : no client id or secret; only refresh-token issuance works
//   - partially configured : no refresh token; same restriction
//   - ready : an access token was obtained and the account id resolved
//
// A token is treated as expired [TokenExpiryBuffer] before its real expiry. Refreshes use
// [golang.org/x/oauth2] against the accounts token endpoint and are coalesced when they overlap.
//
// # Invoking
//
// [Execute] wraps a raw [SpotifyClient] call: it ensures a valid token, runs the call, and on a 401
// forces one refresh and retries once. Failures leave as [shared.ToolError] values via [Classify]:
//   - 401, 403 : AUTH_REQUIRED
//   - 404 : NOT_FOUND
//   - 429 : RATE_LIMITED with the Retry-After header as retry_after
//   - 400 : INVALID_ARGUMENT
//   - anything else : SPOTIFY_ERROR
//
// # Client
//
// [SpotifyClient] maps endpoints one to one and never retries. Non-2xx responses become [APIError];
// 204 No Content is a success with no body.
package services
