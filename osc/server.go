package osc

import (
	"context"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/scgolang/osc"
	"github.com/scgolang/syncosc"
	"golang.org/x/sync/errgroup"

	"go-pulse/clock"
	"go-pulse/debug"
)

// Tempo bounds enforced at this boundary. The scheduler core accepts any
// positive tempo; remote peers do not get to pick silly ones.
const (
	MinTempo = 30
	MaxTempo = 300
)

// Server exposes the scheduler's control surface over OSC: tempo get/set
// plus slave registration for pulse broadcast.
type Server struct {
	host  string
	sched *clock.PulseScheduler
	sink  *Sink
	conn  osc.Conn
}

// NewServer creates a server for the scheduler, listening on host at the
// syncosc master port once Run is called.
func NewServer(host string, sched *clock.PulseScheduler) *Server {
	srv := &Server{host: host, sched: sched}
	srv.sink = NewSink(srv.sendTo, sched.Tempo)
	return srv
}

// Sink returns the broadcast sink fed by this server's slave registry.
// Register it with the scheduler to put pulses on the wire.
func (srv *Server) Sink() *Sink {
	return srv.sink
}

// Run listens for OSC messages until ctx is cancelled. Blocking.
func (srv *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	laddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(srv.host, strconv.Itoa(syncosc.MasterPort)))
	if err != nil {
		return errors.Wrap(err, "resolving listen address")
	}
	conn, err := osc.ListenUDPContext(gctx, "udp", laddr)
	if err != nil {
		return errors.Wrap(err, "creating OSC server")
	}
	srv.conn = conn
	debug.Log("osc", "listening on %s", laddr)

	g.Go(func() error {
		return conn.Serve(osc.Dispatcher{
			syncosc.AddressTempo:       osc.Method(srv.handleTempo),
			syncosc.AddressSlaveAdd:    osc.Method(srv.handleSlaveAdd),
			syncosc.AddressSlaveRemove: osc.Method(srv.handleSlaveRemove),
		})
	})
	return g.Wait()
}

func (srv *Server) sendTo(addr net.Addr, m osc.Message) error {
	if srv.conn == nil {
		return errors.New("OSC connection has not been initialized")
	}
	return srv.conn.SendTo(addr, m)
}

// handleTempo sets the tempo, or replies with the current one when the
// message carries no arguments.
func (srv *Server) handleTempo(m osc.Message) error {
	if len(m.Arguments) == 0 {
		return errors.Wrap(srv.sendTo(m.Sender, osc.Message{
			Address: "/reply",
			Arguments: osc.Arguments{
				osc.String(syncosc.AddressTempo),
				osc.Float(float32(srv.sched.Tempo())),
			},
		}), "replying with tempo")
	}
	tempo, err := m.Arguments[0].ReadFloat32()
	if err != nil {
		return errors.Wrap(err, "reading tempo")
	}
	srv.sched.SetTempo(ClampTempo(float64(tempo)))
	return nil
}

func (srv *Server) handleSlaveAdd(m osc.Message) error {
	addr, err := slaveAddr(m)
	if err != nil {
		return errors.Wrap(err, "adding slave")
	}
	srv.sink.AddSlave(addr)
	// Pulse the new slave immediately so its ticker starts without waiting
	// for the next bar boundary.
	srv.sink.welcome(addr)
	return nil
}

func (srv *Server) handleSlaveRemove(m osc.Message) error {
	addr, err := slaveAddr(m)
	if err != nil {
		return errors.Wrap(err, "removing slave")
	}
	srv.sink.RemoveSlave(addr)
	return nil
}

// slaveAddr reads the (host, port) arguments slaves announce themselves with.
func slaveAddr(m osc.Message) (net.Addr, error) {
	if expected, got := 2, len(m.Arguments); expected != got {
		return nil, errors.Errorf("expected %d arguments, got %d", expected, got)
	}
	host, err := m.Arguments[0].ReadString()
	if err != nil {
		return nil, errors.Wrap(err, "reading slave host")
	}
	port, err := m.Arguments[1].ReadInt32()
	if err != nil {
		return nil, errors.Wrap(err, "reading slave port")
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	return addr, errors.Wrap(err, "resolving slave address")
}

// ClampTempo bounds a tempo to the range this surface accepts.
func ClampTempo(bpm float64) float64 {
	if bpm < MinTempo {
		return MinTempo
	}
	if bpm > MaxTempo {
		return MaxTempo
	}
	return bpm
}
