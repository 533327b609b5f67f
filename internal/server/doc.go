// Package server implements the MCP (Model Context Protocol) server for document
// scanning tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the rectification
// pipeline through the MCP protocol, so that MCP-compatible clients can turn
// photographs of printed pages into flat, binarised scans.
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
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_edge_detect: Canny edge map with the pipeline's settings
//
// Document Operations:
//   - document_detect: Find markers and page corners without warping
//   - document_rectify: Detect, warp, crop and binarise one photo
//   - document_rectify_batch: Rectify many photos into a directory
//
// The document tools accept per-call overrides of the detection tolerances,
// crop ratio and aspect ratio. Overrides apply to that call only.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across tool calls. Batch runs evict their inputs once
// processed.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A photo in which no page can be found is not an error: document_rectify
// reports it with state "failed" and the reason in the error field.
//
// # Usage
//
//	p, _ := rectify.New(vision.Native{}, rectify.DefaultConfig(), logger, nil)
//	srv := server.New(p, server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server error", zap.Error(err))
//	}
package server
