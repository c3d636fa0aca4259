// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package ctrl

import (
	"errors"
	"net"
	"time"

	"github.com/gsmcore/gsmcore/internal/logging"
	"github.com/gsmcore/gsmcore/internal/primitive"
	"github.com/mitchellh/hashstructure/v2"
	"k8s.io/klog/v2"
)

// Server owns the control channel's TCP listener, the connected sessions,
// and the variable registry. Grounded on control_if.c's
// ctrl_handle/ctrl_connection pair (original_source/src/ctrl/control_if.c):
// one listener, a slice of live connections, deadline-polled accept/read
// instead of a goroutine-per-connection fan-out, keeping every session on
// the single event-loop thread.
type Server struct {
	ln       *net.TCPListener
	registry *Registry
	sessions []*session
	txID     nextTransactionID

	// hashes remembers the last-seen hashstructure digest of every
	// concrete (non-wildcard) registered variable, so PollTraps can
	// detect changes by diffing against the prior poll (an ecosystem
	// pick noted in DESIGN.md).
	hashes map[string]uint64
}

// NewServer creates a control server over registry, not yet listening.
func NewServer(registry *Registry) *Server {
	return &Server{registry: registry, hashes: make(map[string]uint64)}
}

// Listen opens addr (host:port) as the control channel's TCP listener.
func Listen(registry *Registry, addr string) (*Server, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}
	s := NewServer(registry)
	s.ln = ln
	return s, nil
}

// Addr returns the listener's bound address, useful when Listen was
// called with a ":0" port.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close closes the listener and every connected session.
func (s *Server) Close() error {
	for _, sess := range s.sessions {
		_ = sess.conn.Close()
	}
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

type session struct {
	conn *net.TCPConn
}

// AcceptOnce accepts a single pending connection within deadline.
// Returns (false, nil) on a plain accept timeout.
func (s *Server) AcceptOnce(deadline time.Time) (bool, error) {
	if err := s.ln.SetDeadline(deadline); err != nil {
		return false, err
	}
	conn, err := s.ln.AcceptTCP()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, nil
		}
		return false, err
	}
	s.sessions = append(s.sessions, &session{conn: conn})
	return true, nil
}

// PumpOnce reads and handles a single framed command line from every
// connected session within deadline, closing and dropping any session
// whose connection errors out.
func (s *Server) PumpOnce(deadline time.Time) {
	live := s.sessions[:0]
	for _, sess := range s.sessions {
		if err := s.pumpSession(sess, deadline); err != nil {
			_ = sess.conn.Close()
			continue
		}
		live = append(live, sess)
	}
	s.sessions = live
}

func (s *Server) pumpSession(sess *session, deadline time.Time) error {
	if err := sess.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	proto, ext, payload, err := primitive.ReadIPAFrame(sess.conn)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	}
	if proto != primitive.ProtoOSMO || ext != primitive.ExtProtoCTRL {
		klog.Warningf("ctrl: non-CTRL frame, proto=%#x ext=%#x", proto, ext)
		return nil
	}
	cmd := ParseLine(string(payload))
	reply := s.handle(cmd)
	return s.send(sess, reply)
}

func (s *Server) handle(cmd Cmd) Cmd {
	switch cmd.Type {
	case TypeGet:
		value, err := s.registry.Get(cmd.Variable)
		if err != nil {
			logging.Errorf("GET %s failed: %v", cmd.Variable, err)
			return errCmd(cmd.ID, err.Error())
		}
		logging.Logf("GET %s = %s", cmd.Variable, value)
		return Cmd{Type: TypeGetReply, ID: cmd.ID, Variable: cmd.Variable, Value: value}
	case TypeSet:
		if err := s.registry.Set(cmd.Variable, cmd.Value); err != nil {
			logging.Errorf("SET %s := %s failed: %v", cmd.Variable, cmd.Value, err)
			return errCmd(cmd.ID, err.Error())
		}
		logging.Logf("SET %s := %s", cmd.Variable, cmd.Value)
		return Cmd{Type: TypeSetReply, ID: cmd.ID, Variable: cmd.Variable, Value: cmd.Value}
	default:
		logging.Errorf("rejected command type %v", cmd.Type)
		return errCmd(cmd.ID, "Trying to execute something not GET or SET")
	}
}

func (s *Server) send(sess *session, cmd Cmd) error {
	return primitive.WriteIPAFrame(sess.conn, primitive.ProtoOSMO, primitive.ExtProtoCTRL, []byte(cmd.Format()))
}

// PollTraps re-reads every concrete (non-wildcard) registered variable,
// hashes its value with hashstructure, and broadcasts a TRAP to every
// connected session for each one whose hash changed since the last poll.
// Grounded on control_if.c's ctrl_cmd_trap (the TRAP envelope shape) but
// the change-detection mechanism itself has no direct analogue in
// control_if.c, which traps on explicit state-machine callbacks rather
// than polling; hashstructure is used here as the ecosystem pick for
// detecting changes in arbitrary Go values without per-variable
// equality code (see DESIGN.md).
func (s *Server) PollTraps() {
	for _, variable := range s.registry.Variables() {
		if containsWildcard(variable) {
			continue
		}
		value, err := s.registry.Get(variable)
		if err != nil {
			continue
		}
		h, err := hashstructure.Hash(value, hashstructure.FormatV2, nil)
		if err != nil {
			klog.Warningf("ctrl: hashstructure failed for %q: %v", variable, err)
			continue
		}
		prev, seen := s.hashes[variable]
		if seen && prev == h {
			continue
		}
		s.hashes[variable] = h
		if !seen {
			// First sighting only records the baseline hash.
			continue
		}
		trap := Cmd{Type: TypeTrap, ID: s.txID.next(), Variable: variable, Value: value}
		logging.Logf("TRAP %s = %s", variable, value)
		for _, sess := range s.sessions {
			if err := s.send(sess, trap); err != nil {
				logging.Errorf("TRAP %s send failed: %v", variable, err)
				klog.Warningf("ctrl: TRAP send failed: %v", err)
			}
		}
	}
}

func containsWildcard(variable string) bool {
	for i := 0; i < len(variable); i++ {
		if variable[i] == '*' {
			return true
		}
	}
	return false
}
