package proxy

import "net"

// HttpProxy handles one inbound plaintext connection.
type HttpProxy interface {
	HandleHttp(conn net.Conn)
}
