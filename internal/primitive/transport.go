// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package primitive

import (
	"errors"
	"net"
	"os"
	"time"

	"k8s.io/klog/v2"
)

// Listener owns the L1 transport's Unix-domain socket: a simple
// length-prefixed UNIX-domain socket connection. Unlike internal/ns,
// which inverts its transport entirely into caller-supplied hooks because
// the orchestrator's UDP server already owns that socket, internal/
// primitive is the direct owner of this listener since nothing else in
// the stack has a socket to reuse for it. Grounded on a net.ListenUDP-
// based server construction style, adapted to a stream listener and to
// the cooperative, deadline-polled accept/read style this core uses
// instead of a read-loop goroutine.
type Listener struct {
	ln   *net.UnixListener
	link *Link
}

// ListenL1 opens path as a Unix-domain socket for the L1 primitive
// transport, removing any stale socket file left behind by a prior run.
func ListenL1(path string) (*Listener, error) {
	_ = os.Remove(path)
	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

// Close releases the listener and any accepted connection.
func (l *Listener) Close() error {
	if l.link != nil {
		_ = l.link.Close()
	}
	return l.ln.Close()
}

// AcceptOnce accepts a single pending connection within deadline,
// replacing any previously accepted link (the L1 transport is a single
// modem-to-host session). Returns (false, nil) on a plain accept timeout
// so the caller's event loop can move on to its next phase.
func (l *Listener) AcceptOnce(deadline time.Time) (bool, error) {
	if err := l.ln.SetDeadline(deadline); err != nil {
		return false, err
	}
	conn, err := l.ln.AcceptUnix()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, nil
		}
		return false, err
	}
	if l.link != nil {
		_ = l.link.Close()
	}
	l.link = &Link{conn: conn}
	return true, nil
}

// Link returns the currently accepted connection, or nil if none.
func (l *Listener) Link() *Link { return l.link }

// Link is one accepted L1 transport connection.
type Link struct {
	conn *net.UnixConn
}

// Close closes the underlying connection.
func (c *Link) Close() error { return c.conn.Close() }

// PumpOnce reads a single IPA-framed L1 primitive within deadline and
// dispatches it to bus.L1Indicate. Returns (false, nil) on a read
// timeout with nothing to report.
func (c *Link) PumpOnce(deadline time.Time, bus *Bus) (bool, error) {
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return false, err
	}
	proto, ext, payload, err := ReadIPAFrame(c.conn)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, nil
		}
		return false, err
	}
	if proto != ProtoOSMO || ext != ExtProtoL1CTL {
		klog.Warningf("primitive: non-L1CTL frame on L1 transport, proto=%#x ext=%#x", proto, ext)
		return false, nil
	}
	prim, err := DecodeL1Primitive(wrapPayload(payload))
	if err != nil {
		klog.Warningf("primitive: malformed L1 primitive: %v", err)
		return false, nil
	}
	if bus.L1Indicate != nil {
		bus.L1Indicate(prim)
	}
	return true, nil
}

// Send frames p with the IPA header pair and writes it to the
// connection, implementing the downward half of Bus.L1DataReq.
func (c *Link) Send(p L1Primitive) error {
	return WriteIPAFrame(c.conn, ProtoOSMO, ExtProtoL1CTL, EncodeL1Primitive(p).Data())
}

// AttachSend wires bus.L1DataReq to this link, so SMC/SMR/BSSGP's
// downward path can hand primitives straight to the connected modem.
func (c *Link) AttachSend(bus *Bus) {
	bus.L1DataReq = func(p L1Primitive) {
		if err := c.Send(p); err != nil {
			klog.Warningf("primitive: L1 send failed: %v", err)
		}
	}
}
