// Package api provides the HTTP and WebSocket surface of Iris Core.
//
// It accepts sensor pushes (POST /api/v1/interrupts/{kind}), exposes
// read-only views of the device registry and the live session, probes
// component health, and streams session transitions to WebSocket
// clients.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// The API is LAN-only and unauthenticated; the glasses, the sensors
// and the core share a private network.
package api
