// Package mcpapi documents the Model Context Protocol surface for the RAG
// engine. It is a contract, not a server: the engine's behavior is fully
// owned by internal/httpapi, and this package exists so an MCP front end
// can be added later without re-deriving the tool surface.
//
// An MCP server for this engine would speak JSON-RPC 2.0 over stdio or a
// Streamable HTTP transport and implement three methods:
//
//   - initialize   — protocol/version and capability negotiation
//   - tools/list   — enumerate the tools below
//   - tools/call   — invoke one of them by name
//
// Tools, each a thin wrapper over the matching internal/httpapi handler:
//
//   - rag_query        — collection, query, top_k?, alpha? -> answer, sources, scores
//   - rag_retrieve      — collection, query, top_k?, alpha? -> ranked chunks, no generation
//   - rag_ingest_text    — collection, file_name, content -> job_id
//   - rag_collections    — (no args) -> collection names
//   - rag_metrics       — query_id -> faithfulness, relevance, hallucination_rate, context_precision, context_recall
//
// Errors follow the JSON-RPC reserved codes: -32700 (parse error) for
// malformed JSON, -32601 (method not found) for an unrecognized tool name,
// -32602 (invalid params) for a tool call missing a required argument.
package mcpapi
