package router

// WSConn is the slice of wsconn.Conn's API a router-dispatched WebSocket
// handler needs. Router depends on this interface, not on package wsconn
// directly, so the concrete upgrade mechanics stay httpconn's concern —
// router only ever needs to find the right handler and hand it a live
// connection.
type WSConn interface {
	Serve()
	Send(messageType int, data []byte) error
	OnMessage(fn func(messageType int, data []byte))
	OnClose(fn func(err error))
	Disconnect(code int, reason string) error
	ForceDisconnect() error
}
