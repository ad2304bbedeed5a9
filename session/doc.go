// Package session keeps per-conversation state: the shared memory window,
// the session variables (destination, locale, ...) and a run lock that
// serializes user turns of one conversation.
//
// Sessions live in process memory only; they end on explicit Delete.
package session
