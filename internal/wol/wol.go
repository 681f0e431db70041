// Package wol sends Wake-on-LAN magic packets.
package wol

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/logging"
)

const (
	// BroadcastAddr is where magic packets are sent.
	BroadcastAddr = "255.255.255.255:9"

	// PacketSize is the length of a magic packet.
	PacketSize = 6 + 16*6
)

// HardwareAddr is a 6-byte MAC address.
type HardwareAddr [6]byte

// String formats the address as colon-separated lowercase hex.
func (a HardwareAddr) String() string {
	return net.HardwareAddr(a[:]).String()
}

// ParseMAC parses six ':' or '-' separated groups of one or two hex digits.
// Anything else is a CommandError wrapping errs.ErrInvalidHardware.
func ParseMAC(s string) (HardwareAddr, error) {
	var addr HardwareAddr

	parts := strings.Split(strings.ReplaceAll(s, "-", ":"), ":")
	if len(parts) != 6 {
		return addr, errs.NewCommandError("wake", fmt.Sprintf("mac address should have 6 parts: %q", s), errs.ErrInvalidHardware)
	}

	for i, part := range parts {
		if len(part) == 0 || len(part) > 2 {
			return addr, errs.NewCommandError("wake", fmt.Sprintf("invalid mac address group %q", part), errs.ErrInvalidHardware)
		}
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return addr, errs.NewCommandError("wake", fmt.Sprintf("invalid mac address group %q", part), fmt.Errorf("%w: %w", errs.ErrInvalidHardware, err))
		}
		addr[i] = byte(b)
	}

	return addr, nil
}

// MagicPacket returns six 0xFF bytes followed by addr repeated 16 times.
func MagicPacket(addr HardwareAddr) []byte {
	packet := make([]byte, 0, PacketSize)
	packet = append(packet, bytes.Repeat([]byte{0xFF}, 6)...)
	for i := 0; i < 16; i++ {
		packet = append(packet, addr[:]...)
	}
	return packet
}

// DialFunc opens the UDP socket used to send the packet.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Sender sends magic packets.
type Sender struct {
	// Addr overrides BroadcastAddr.
	Addr string

	// Dial overrides the socket used, for tests.
	Dial DialFunc

	Logger *zap.Logger
}

// Wake parses mac and broadcasts a magic packet for it with the default
// sender.
func Wake(ctx context.Context, mac string) error {
	return (&Sender{}).Wake(ctx, mac)
}

// Wake parses mac and broadcasts a magic packet for it. A successful send
// says nothing about whether the display woke up.
func (s *Sender) Wake(ctx context.Context, mac string) error {
	addr, err := ParseMAC(mac)
	if err != nil {
		return err
	}
	return s.Send(ctx, addr)
}

// Send broadcasts a magic packet for addr.
func (s *Sender) Send(ctx context.Context, addr HardwareAddr) error {
	target := s.Addr
	if target == "" {
		target = BroadcastAddr
	}

	dial := s.Dial
	if dial == nil {
		dial = dialBroadcast
	}

	log := s.Logger
	if log == nil {
		log = logging.GetLogger()
	}

	conn, err := dial(ctx, "udp4", target)
	if err != nil {
		return errs.NewCommandError("wake", "failed to open broadcast socket", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	if _, err := conn.Write(MagicPacket(addr)); err != nil {
		return errs.NewCommandError("wake", "failed to send magic packet", err)
	}

	log.Debug("Sent magic packet", zap.Stringer("mac", addr), zap.String("target", target))
	return nil
}

// dialBroadcast opens a UDP socket with SO_BROADCAST set.
func dialBroadcast(ctx context.Context, network, address string) (net.Conn, error) {
	raddr, err := net.ResolveUDPAddr(network, address)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: setBroadcast}
	pc, err := lc.ListenPacket(ctx, network, ":0")
	if err != nil {
		return nil, err
	}
	return &packetConn{PacketConn: pc, raddr: raddr}, nil
}
