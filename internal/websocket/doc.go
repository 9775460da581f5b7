// Package websocket pushes pipeline run progress to dashboard clients.
//
// The Hub owns the client set and fans broadcast messages out to per-client
// buffered channels; each connection runs the standard gorilla read/write
// pump pair. Slow consumers are disconnected rather than allowed to stall
// the broadcast loop.
//
// Message envelope:
//
//	{
//	    "type":      "run:progress" | "dataset:refreshed" | "connection",
//	    "data":      ...,
//	    "timestamp": "2025-03-01T03:10:00Z"
//	}
//
// The hub knows nothing about the run manager; the application wires
// Manager.OnProgress to BroadcastRunProgress.
package websocket
