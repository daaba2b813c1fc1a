package wsconn

import "errors"

// ErrUpgradeFailed wraps any failure during the RFC 6455 §4.2.2 handshake
// (bad request line, missing/invalid Sec-WebSocket-Key, negotiation
// failure inside gorilla/websocket itself).
var ErrUpgradeFailed = errors.New("wsconn: upgrade handshake failed")

// ErrClosed is returned by Send/Disconnect/ForceDisconnect once a Conn has
// left the open state.
var ErrClosed = errors.New("wsconn: connection is closed")
