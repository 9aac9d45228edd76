// Package gateway connects the roster to a chat platform relay over a
// websocket. Inbound reaction_add frames are handed to the reaction service;
// Relay turns roster side effects (render, clear marker, private message,
// delete) into outbound frames.
//
// Every frame is a JSON envelope:
//
//	{"op": "reaction_add", "d": {"emoji": "✅", "user_id": 42, ...}}
package gateway
