package wol

import (
	"net"
	"syscall"
)

// packetConn adapts an unconnected PacketConn to net.Conn so a broadcast
// socket can be written like a dialed one.
type packetConn struct {
	net.PacketConn
	raddr net.Addr
}

func (c *packetConn) Read(b []byte) (int, error) {
	n, _, err := c.ReadFrom(b)
	return n, err
}

func (c *packetConn) Write(b []byte) (int, error) {
	return c.WriteTo(b, c.raddr)
}

func (c *packetConn) RemoteAddr() net.Addr { return c.raddr }

func setBroadcast(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = setSockoptBroadcast(fd)
	})
	if err != nil {
		return err
	}
	return sockErr
}
