// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package stack implements the protocol stack orchestrator: it owns one
// instance of every protocol component, wires their hook-based contracts
// together, and drives them from a single cooperative event loop rather
// than a goroutine per concern.
package stack

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gsmcore/gsmcore/internal/bssgp"
	"github.com/gsmcore/gsmcore/internal/config"
	"github.com/gsmcore/gsmcore/internal/ctrl"
	"github.com/gsmcore/gsmcore/internal/metrics"
	"github.com/gsmcore/gsmcore/internal/msgb"
	"github.com/gsmcore/gsmcore/internal/ns"
	"github.com/gsmcore/gsmcore/internal/primitive"
	"github.com/gsmcore/gsmcore/internal/sched"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"k8s.io/klog/v2"
)

// Default scheduler shape for the single TRX this skeleton wires up: one
// head per logical timeslot on a GSM carrier, sized generously against
// the arena/filler design internal/sched implements.
const (
	schedTimeslots = 8
	schedCapacity  = 64
	// schedFillPeriod cycles fillers over one 26-multiframe, the common
	// period for both TCH and most control channels.
	schedFillPeriod = 26

	udpReadBufSize = 4096
)

// Stack owns every protocol component instance and the event-loop
// plumbing (timers, scheduler) that drives them.
type Stack struct {
	Config  *config.Config
	Metrics *metrics.Metrics

	NS    *ns.Instance
	BSSGP *bssgp.Instance
	Sched *sched.Scheduler
	Bus   *primitive.Bus

	Timers *TimerHeap

	udpConn *net.UDPConn
	l1      *primitive.Listener
	ctrlSrv *ctrl.Server
	ctrlReg *ctrl.Registry

	nsAliveTimers map[*ns.NSVC]*Timer

	fn uint32
}

// New builds a Stack with every component constructed and wired
// together, but with no sockets open yet; call Run to open them and
// drive the event loop.
func New(cfg *config.Config) *Stack {
	s := &Stack{
		Config:        cfg,
		Metrics:       metrics.NewMetrics(),
		NS:            ns.New(),
		BSSGP:         bssgp.New(),
		Sched:         sched.New(schedTimeslots, schedCapacity, schedFillPeriod),
		Bus:           &primitive.Bus{},
		Timers:        NewTimerHeap(),
		ctrlReg:       ctrl.NewRegistry(),
		nsAliveTimers: make(map[*ns.NSVC]*Timer),
	}
	s.wireNSBSSGP()
	s.registerCtrlTree()
	return s
}

// wireNSBSSGP connects the NS and BSSGP sublayers to each other and to
// the timer heap, mirroring how internal/ns and internal/bssgp's own
// tests wire their hook fields, but with the stack's real UDP transport
// and TimerHeap standing in for the test harnesses' recording stubs.
func (s *Stack) wireNSBSSGP() {
	s.NS.Deliver = func(nsvc *ns.NSVC, event ns.Event, bvci uint16, msg *msgb.MsgBuf) {
		switch event {
		case ns.EventUnitData:
			if err := s.BSSGP.RcvMsg(nsvc.NSEI, bvci, msg); err != nil {
				klog.Warningf("stack: BSSGP rx error from NSEI %d: %v", nsvc.NSEI, err)
			}
		case ns.EventBlocked:
			klog.Warningf("stack: NSVC %d (NSEI %d) blocked", nsvc.NSVCI, nsvc.NSEI)
			s.Metrics.NSVCBlockedTotal.WithLabelValues(fmt.Sprint(nsvc.NSEI), "peer-initiated").Inc()
		}
	}
	s.NS.Send = func(nsvc *ns.NSVC, msg *msgb.MsgBuf) {
		if s.udpConn == nil {
			return
		}
		if _, err := s.udpConn.WriteToUDP(msg.Data(), nsvc.RemoteAddr); err != nil {
			klog.Warningf("stack: NS UDP write to %s failed: %v", nsvc.RemoteAddr, err)
		}
	}
	s.NS.ArmAliveTimer = func(nsvc *ns.NSVC, d time.Duration) {
		s.nsAliveTimers[nsvc] = s.Timers.Schedule(d, func() { s.NS.AliveTimerExpired(nsvc) })
	}
	s.NS.CancelAliveTimer = func(nsvc *ns.NSVC) {
		if t, ok := s.nsAliveTimers[nsvc]; ok {
			t.Cancel()
			delete(s.nsAliveTimers, nsvc)
		}
	}
	s.BSSGP.NSSend = s.NS.SendMsg
	s.BSSGP.Deliver = func(ctx *bssgp.BTSContext, event bssgp.Event, tlli uint32, msg *msgb.MsgBuf) {
		klog.V(2).Infof("stack: BSSGP delivered event %d for TLLI %#x (BVCI %d)", event, tlli, ctx.BVCI)
	}
}

// registerCtrlTree registers the small set of concrete, stack-owned
// variables the control skeleton can serve without a live BTS/TRX
// instance registry: only "net" and the scheduler's frame counter are
// concrete enough to back with real state in this skeleton — bts.N/
// trx.N/ts.N need a per-instance registry a fuller deployment would add
// once BTS/TRX configuration exists.
func (s *Stack) registerCtrlTree() {
	s.ctrlReg.Register("net.name",
		func([]string) (string, error) { return s.Config.NetworkName, nil }, nil)
	s.ctrlReg.Register("net.fn",
		func([]string) (string, error) { return fmt.Sprint(s.fn), nil }, nil)
}

// CtrlRegistry exposes the variable registry so a caller can register
// additional concrete nodes (e.g. once BTS/TRX configuration is known)
// before Run starts serving the control channel.
func (s *Stack) CtrlRegistry() *ctrl.Registry { return s.ctrlReg }

// Run opens every configured socket and drives the single-threaded event
// loop until ctx is cancelled: drain the I/O selector, advance due
// timers, tick the TDMA scheduler.
func (s *Stack) Run(ctx context.Context) error {
	if err := s.openSockets(); err != nil {
		return err
	}
	defer s.closeSockets()

	buf := make([]byte, udpReadBufSize)
	frameTicker := time.NewTicker(sched.FramePeriod)
	defer frameTicker.Stop()

	const selectorBudget = 5 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		s.pumpUDP(buf, time.Now().Add(selectorBudget))
		s.pumpL1(time.Now().Add(selectorBudget))
		s.pumpCtrl(time.Now().Add(selectorBudget))

		s.Timers.RunDue(time.Now())

		select {
		case <-frameTicker.C:
			s.tickScheduler()
		default:
		}
	}
}

func (s *Stack) openSockets() error {
	udpAddr := &net.UDPAddr{IP: net.ParseIP(s.Config.ListenAddr), Port: s.Config.NSPort}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("stack: NS UDP listen on %s: %w", udpAddr, err)
	}
	s.udpConn = conn

	l1, err := primitive.ListenL1(s.Config.L1SocketPath)
	if err != nil {
		return fmt.Errorf("stack: L1 transport listen on %s: %w", s.Config.L1SocketPath, err)
	}
	s.l1 = l1

	ctrlSrv, err := ctrl.Listen(s.ctrlReg, s.Config.ControlAddr())
	if err != nil {
		return fmt.Errorf("stack: control channel listen on port %d: %w", s.Config.ControlPort, err)
	}
	s.ctrlSrv = ctrlSrv
	return nil
}

func (s *Stack) closeSockets() {
	if s.udpConn != nil {
		_ = s.udpConn.Close()
	}
	if s.l1 != nil {
		_ = s.l1.Close()
	}
	if s.ctrlSrv != nil {
		_ = s.ctrlSrv.Close()
	}
}

func (s *Stack) pumpUDP(buf []byte, deadline time.Time) {
	if err := s.udpConn.SetReadDeadline(deadline); err != nil {
		klog.Warningf("stack: set NS UDP read deadline: %v", err)
		return
	}
	n, addr, err := s.udpConn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return
		}
		klog.Warningf("stack: NS UDP read error: %v", err)
		return
	}
	_, span := otel.Tracer("gsmcore").Start(context.Background(), "Stack.pumpUDP")
	defer span.End()
	span.SetAttributes(attribute.String("ns.remote_addr", addr.String()), attribute.Int("ns.bytes", n))

	msg := msgb.Alloc(n, "ns-rx")
	copy(msg.Put(n), buf[:n])
	msg.SetL2H(0)
	s.NS.RcvMsg(addr, msg)
}

func (s *Stack) pumpL1(deadline time.Time) {
	if accepted, err := s.l1.AcceptOnce(time.Now()); err != nil {
		klog.Warningf("stack: L1 accept error: %v", err)
	} else if accepted {
		s.l1.Link().AttachSend(s.Bus)
	}
	if link := s.l1.Link(); link != nil {
		if _, err := link.PumpOnce(deadline, s.Bus); err != nil {
			klog.Warningf("stack: L1 transport error: %v", err)
		}
	}
}

func (s *Stack) pumpCtrl(deadline time.Time) {
	if accepted, err := s.ctrlSrv.AcceptOnce(time.Now()); err != nil {
		klog.Warningf("stack: control channel accept error: %v", err)
	} else if accepted {
		klog.V(2).Info("stack: control channel session accepted")
	}
	s.ctrlSrv.PumpOnce(deadline)
	s.ctrlSrv.PollTraps()
}

// tickScheduler advances the GSM frame counter and pulls the due burst
// for every timeslot via the scheduler's GetBurst pull contract, handing
// any non-idle burst to the L1 bus as a downlink traffic indication.
func (s *Stack) tickScheduler() {
	_, span := otel.Tracer("gsmcore").Start(context.Background(), "Stack.tickScheduler")
	defer span.End()
	span.SetAttributes(attribute.Int64("ns.fn", int64(s.fn)))

	for tn := 0; tn < schedTimeslots; tn++ {
		burst := s.Sched.GetBurst(tn, s.fn)
		if burst.Type != sched.BurstNB || burst.Len == 0 || s.Bus.L1Indicate == nil {
			continue
		}
		data := msgb.Alloc(burst.Len, "dl-burst")
		copy(data.Put(burst.Len), burst.Payload[:burst.Len])
		s.Bus.L1Indicate(primitive.L1Primitive{
			Op:   primitive.L1OpTrafficInd,
			Info: primitive.L1Info{FN: s.fn},
			Data: data,
		})
	}
	s.fn = uint32((uint64(s.fn) + 1) % sched.FNMax)
}
