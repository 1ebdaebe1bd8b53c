// Package backup retrieves the controller's Design Center project file
// over the file port and caches it locally.
//
// The controller exposes a request/response XML service on the file
// port (default 2001). A session optionally authenticates with an
// ILogin exchange, then requests the project backup with an IBackup
// GetFile call. The reply carries the file base64-encoded, either as
// the text of the return node or inside a File processing instruction,
// depending on firmware revision; both forms are handled.
//
// Fetched files are written through to a SQLite cache keyed by
// controller hostname, so restarts avoid the (slow) file-port
// transfer. Any cache read failure is treated as a miss and falls back
// to a live fetch.
package backup
