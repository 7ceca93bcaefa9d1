// Package models defines the Spotify entities exchanged by the floater core.
//
// The types mirror the subset of the Web API payloads the player needs:
//   - [PlaybackSnapshot] : the currently-playing response
//   - [Track], [Album], [Artist], [Image] : track metadata and artwork
//   - [TokenResponse] : the accounts service token payload
//
// [PlayerAction] enumerates the transport controls and knows its HTTP method and path.
package models
