// Package services implements the Spotify Web API client used by the player.
//
// # Requests
//
// Every call goes through one request path that attaches the bearer token from a [TokenSource],
// waits on the optional request limiter and classifies the outcome:
//   - [shared.ErrNotAuthenticated] : no access token is available
//   - [shared.ErrInvalidURL] : the endpoint could not be built
//   - [shared.ErrTransport] : the round trip failed
//   - [shared.BadResponseError] : a non-2xx status, matched by [shared.ErrBadResponse]
//   - [shared.ErrNoData] : a 2xx response without the body the operation needs
//   - [shared.ErrDecode] : a body that does not match the expected shape
//
// The client never retries. [WithRefreshRetry] is the caller-side policy that refreshes once on a
// 401 and tries again.
//
// # Player
//
// [Player] is the surface the TUI and CLI depend on; [SpotifyClient] implements it.
package services
