// Package auth implements the Spotify OAuth2 authorization code client.
//
// [Manager] owns the session and its state machine:
//
//	unauthenticated --start_auth--> authorizing --exchange_ok--> authenticated
//	authenticated --refresh--> refreshing --refresh_ok--> authenticated
//	refreshing --refresh_failed--> unauthenticated
//
// Logout is accepted from every state. Refresh is not accepted while authorizing. A refresh rejected
// by the server or lost on the network clears the stored refresh token so an invalid token is never
// retried on the next start. One abandoned by the caller's context leaves everything as it was.
//
// [BrowserAuthorizer] performs the consent round trip with the system browser and a loopback
// callback server; [Login] glues the two together.
package auth
