// Package bridge is the composition root. A Bridge owns one language
// server subprocess, one IPC directory, and the loops that shuttle
// traffic between them: framed protocol messages on the subprocess
// side, appended JSON lines on the host side.
//
// The lifecycle is Starting -> Running -> Draining -> Stopped. New
// prepares the IPC directory, writes the handshake file and spawns the
// subprocess; Run starts the loops and blocks until a shutdown trigger
// fires (host gone, subprocess exited, or Shutdown called). Cleanup of
// the IPC directory happens exactly once, on the way out.
package bridge
