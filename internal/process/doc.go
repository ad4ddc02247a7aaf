// Package process spawns and supervises the copilot language server
// subprocess.
//
// A Server wraps the running binary with exit tracking, serialized stdin
// writes, and a graceful stop path (SIGTERM, then SIGKILL after a grace
// period). The caller owns the Stdout and Stderr pipes and must drain
// them to keep the subprocess from blocking.
//
// Alive probes an arbitrary pid with signal 0; the bridge uses it to
// notice its host editor going away.
//
// Server is safe for concurrent use.
package process
