package broker

import (
	"context"
	"errors"
	"net"
)

// Acceptor is the AMQP TCP listener (spec §2 "Server/acceptor"): it accepts
// sockets and hands each one to a fresh amqpserver.Connection, running its
// own goroutine.
type Acceptor struct {
	broker   *Broker
	listener net.Listener
}

// Listen binds addr and returns an Acceptor ready to Serve.
func Listen(addr string, b *Broker) (*Acceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Acceptor{broker: b, listener: ln}, nil
}

// Addr reports the bound address (useful when addr was ":0" in tests).
func (a *Acceptor) Addr() net.Addr { return a.listener.Addr() }

// Serve accepts connections until ctx is cancelled or the listener errors.
// On ctx cancellation it closes the listener, which unblocks Accept with an
// error this function treats as a clean shutdown rather than a failure —
// matching the worker.Run(ctx) "drain on cancellation" shape used elsewhere
// in this codebase, adapted to a listen loop instead of a consume loop.
func (a *Acceptor) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.listener.Close()
	}()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go a.broker.NewAMQPConnection(conn).Serve()
	}
}

// Close closes the listener socket directly, for callers that are not
// driving Serve via a cancellable context (e.g. a test harness).
func (a *Acceptor) Close() error { return a.listener.Close() }
