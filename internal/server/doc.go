// Package server implements the MCP (Model Context Protocol) server for
// roster screenshot recognition.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Screenshot:
//   - roster_load: Load a screenshot and get metadata
//   - roster_crop: Extract a rectangular region
//   - roster_sample_color: Get the color at a pixel
//
// Recognition:
//   - roster_scan: Recognize the full grid, optionally with a debug overlay
//   - roster_layout: Reconstruct grid geometry only
//
// Hashing:
//   - roster_hash_region: Perceptual hash of a region
//   - roster_hash_distance: Compare two hashes against the match threshold
//   - roster_reference_hash: Hash of a champion's reference portrait
//
// # Image Caching
//
// Screenshots are cached by path for the lifetime of the server process, so
// a scan followed by crops of the same file decodes it once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(svc, matcher, catalog)
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal().Err(err).Msg("server error")
//	}
package server
