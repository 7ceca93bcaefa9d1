// Package ui implements the floating player as a bubbletea program.
//
// The [Model] has three views:
//  1. [LoginView] : shown until the token manager is authenticated
//  2. [PlayerView] : the current track with transport controls
//  3. [HistoryView] : tracks seen during this session
//
// Playback is polled on a fixed interval and after every control action. A poll that fails with a
// 401 refreshes the token once and retries; a 403 (no active device) keeps the last track on screen
// while every other failure clears it. The favorite flag only changes after the API confirms it.
//
// Album art is fetched on track change and treated as optional.
package ui
