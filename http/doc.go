// Package http provides the single-attempt request executor and the error
// classifier used by the ridekit client.
//
// Executor
//   - Exactly one network attempt per Execute call; retry lives in package retry.
//   - Every attempt carries its own timeout (Builder.WithTimeout, default 15s).
//     An attempt that runs past it is abandoned and reported as a network error.
//   - Content-Type and Accept are always application/json. A non-empty token is
//     sent as "Authorization: Bearer <token>".
//   - Non-2xx responses are returned together with an *Error whose message is taken
//     from a {"message"} or {"error"} body, or "request failed with status N".
//
// Classification
//   - NormalizeTransportError folds every transport signature (timeouts, refused or
//     reset connections, DNS failures, EOFs, "network error" messages) into a
//     TransportOutcome without a response.
//   - Classify: no response -> network, 401/403 -> auth_invalid, other 4xx -> client,
//     5xx -> server. DecodeJSON reports undecodable bodies as malformed.
//   - A done caller context is always reported as canceled, never as network.
package http
