// Package handler provides HTTP request handlers for the raidbot API.
//
// Each handler struct wraps the service it exposes and registers its own
// routes on a http.ServeMux with RegisterRoutes.
//
// # Handler Pattern
//
//   - Constructor function (NewXxxHandler) accepts the services it needs
//   - Methods handle specific HTTP endpoints
//   - Response helpers from response.go standardize output format
//   - Service errors are mapped to RFC 9457 Problem Details by MapServiceError
//
// # Response Format
//
//   - WriteData: single resource with optional HATEOAS links
//   - WriteCollection: list of resources with a count
//   - WriteCSV: roster exports
//   - WriteError: RFC 9457 Problem Details error response
//
// # Guild Scoping
//
// Routes under /v1/guilds/{guildId} only see raids of that guild. A raid
// requested under any other guild answers 404, the same as a missing raid.
//
// # Example Usage
//
//	mux := http.NewServeMux()
//	handler.NewRaidHandler(roster).RegisterRoutes(mux)
//	handler.NewRosterHandler(roster).RegisterRoutes(mux)
package handler
