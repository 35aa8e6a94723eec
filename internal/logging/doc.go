// Package logging sets up structured slog logging for catmatch.
//
// Logs are JSON lines written to a size-rotated file under ~/.catmatch/logs/
// and optionally teed to stderr. The MCP stdio transport must keep stdout and
// stderr clean, so it sets up logging with WriteToStderr disabled.
package logging
