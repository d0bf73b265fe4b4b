// Package amqpserver implements the AMQP 0-9-1 connection state machine
// (spec §4.2) and the per-consumer delivery loop (spec §4.5) on top of the
// amqpframe wire codec.
package amqpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"amqpmock/internal/amqpframe"
	"amqpmock/internal/message"
	"amqpmock/internal/storage"
)

// handshakeState is the connection-level state machine described in spec §4.2.
type handshakeState int

const (
	awaitProtocolHeader handshakeState = iota
	awaitStartOk
	awaitTuneOk
	awaitOpen
	stateOpen
	stateClosing
	stateClosed
)

// Connection is one AMQP client socket. It owns no business logic: every
// side effect runs through Hooks.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	hooks            Hooks
	serverProperties amqpframe.Table

	state   handshakeState
	stateMu sync.Mutex

	channels   map[uint16]*channel
	channelsMu sync.Mutex

	deliveryTag atomic.Uint64

	deliveries   map[uint64]deliveryRef
	deliveriesMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	consumers sync.WaitGroup

	closeOnce sync.Once
}

type deliveryRef struct {
	queue     string
	messageID string
}

// NewConnection wraps conn in a Connection bound to hooks. serverProperties
// are advertised in Connection.Start.
func NewConnection(conn net.Conn, hooks Hooks, serverProperties amqpframe.Table) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:             conn,
		reader:           bufio.NewReader(conn),
		hooks:            hooks,
		serverProperties: serverProperties,
		channels:         make(map[uint16]*channel),
		deliveries:       make(map[uint64]deliveryRef),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// RemoteAddr reports the peer address, for logging.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Serve drives the connection until the socket closes or a protocol error
// occurs. It blocks; call it in its own goroutine per accepted connection.
func (c *Connection) Serve() {
	defer c.teardown()

	if err := amqpframe.ReadProtocolHeader(c.reader); err != nil {
		slog.Debug("bad protocol header", "component", "amqp", "remote", c.RemoteAddr(), "error", err)
		return
	}
	if err := c.sendMethod(0, amqpframe.ConnectionStart{
		VersionMajor:     0,
		VersionMinor:     9,
		ServerProperties: c.serverProperties,
		Mechanisms:       "PLAIN",
		Locales:          "en_US",
	}); err != nil {
		return
	}
	c.setState(awaitStartOk)

	for {
		channelID, frame, err := amqpframe.ReadFrame(c.reader)
		if err != nil {
			if err != io.EOF {
				slog.Debug("frame read ended", "component", "amqp", "remote", c.RemoteAddr(), "error", err)
			}
			return
		}
		if c.getState() == stateClosed {
			return
		}
		if err := c.dispatch(channelID, frame); err != nil {
			slog.Debug("dispatch aborting connection", "component", "amqp", "error", err)
			return
		}
		if c.getState() == stateClosed {
			return
		}
	}
}

func (c *Connection) getState() handshakeState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Connection) setState(s handshakeState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = s
}

func (c *Connection) nextDeliveryTag() uint64 { return c.deliveryTag.Add(1) }

// sendMethod writes a single method frame, serialized against every other
// writer on this connection (spec O1: "writes are serialized").
func (c *Connection) sendMethod(channelID uint16, m amqpframe.Method) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return amqpframe.WriteMethod(c.conn, channelID, m)
}

// sendPublication writes Deliver+Header+Body as one atomic write under the
// connection's write lock so no other frame interleaves between them.
func (c *Connection) sendPublication(channelID uint16, deliver amqpframe.BasicDeliver, header amqpframe.ContentHeader, body []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := amqpframe.WriteMethod(c.conn, channelID, deliver); err != nil {
		return err
	}
	if err := amqpframe.WriteContentHeader(c.conn, channelID, header); err != nil {
		return err
	}
	return amqpframe.WriteContentBody(c.conn, channelID, body)
}

func (c *Connection) dispatch(channelID uint16, frame any) error {
	switch f := frame.(type) {
	case amqpframe.Heartbeat:
		return nil
	case amqpframe.ContentHeader:
		return c.handleContentHeader(channelID, f)
	case amqpframe.ContentBody:
		return c.handleContentBody(channelID, f)
	case amqpframe.Method:
		return c.dispatchMethod(channelID, f)
	default:
		return fmt.Errorf("amqpserver: unrecognized frame %T", frame)
	}
}

func (c *Connection) dispatchMethod(channelID uint16, m amqpframe.Method) error {
	switch msg := m.(type) {
	case amqpframe.ConnectionStartOk:
		return c.handleConnectionStartOk(channelID)
	case amqpframe.ConnectionTuneOk:
		c.setState(awaitOpen)
		return nil
	case amqpframe.ConnectionOpen:
		return c.handleConnectionOpen(channelID)
	case amqpframe.ConnectionClose:
		return c.handleConnectionClose(channelID)
	case amqpframe.ConnectionCloseOk:
		c.setState(stateClosed)
		return nil
	case amqpframe.ChannelOpen:
		return c.handleChannelOpen(channelID)
	case amqpframe.ChannelClose:
		return c.handleChannelClose(channelID)
	case amqpframe.ExchangeDeclare:
		return c.handleExchangeDeclare(channelID, msg)
	case amqpframe.QueueDeclare:
		return c.handleQueueDeclare(channelID, msg)
	case amqpframe.QueueBind:
		return c.handleQueueBind(channelID, msg)
	case amqpframe.BasicQos:
		return c.sendMethod(channelID, amqpframe.BasicQosOk{})
	case amqpframe.BasicPublish:
		return c.handleBasicPublish(channelID, msg)
	case amqpframe.BasicConsume:
		return c.handleBasicConsume(channelID, msg)
	case amqpframe.BasicCancel:
		return c.handleBasicCancel(channelID, msg)
	case amqpframe.BasicAck:
		c.handleAck(msg.DeliveryTag)
		return nil
	case amqpframe.BasicNack:
		c.handleNack(msg.DeliveryTag)
		return nil
	case amqpframe.ConfirmSelect:
		return c.handleConfirmSelect(channelID)
	case amqpframe.TxSelect:
		return c.handleTxSelect(channelID)
	case amqpframe.TxCommit:
		return c.handleTxCommit(channelID)
	case amqpframe.TxRollback:
		return c.handleTxRollback(channelID)
	case amqpframe.UnknownMethod:
		slog.Debug("unknown method", "component", "amqp", "class", msg.Class, "method", msg.Method)
		return nil
	default:
		slog.Debug("unhandled method", "component", "amqp", "type", fmt.Sprintf("%T", msg))
		return nil
	}
}

func (c *Connection) handleConnectionStartOk(channelID uint16) error {
	if err := c.sendMethod(channelID, amqpframe.ConnectionTune{ChannelMax: 0, FrameMax: 0, Heartbeat: 0}); err != nil {
		return err
	}
	c.setState(awaitTuneOk)
	return nil
}

func (c *Connection) handleConnectionOpen(channelID uint16) error {
	if err := c.sendMethod(channelID, amqpframe.ConnectionOpenOk{}); err != nil {
		return err
	}
	c.setState(stateOpen)
	c.hooks.OnOpen(c)
	return nil
}

func (c *Connection) handleConnectionClose(channelID uint16) error {
	if err := c.sendMethod(channelID, amqpframe.ConnectionCloseOk{}); err != nil {
		return err
	}
	c.setState(stateClosed)
	return nil
}

func (c *Connection) handleChannelOpen(channelID uint16) error {
	c.channelsMu.Lock()
	c.channels[channelID] = newChannel(channelID)
	c.channelsMu.Unlock()
	return c.sendMethod(channelID, amqpframe.ChannelOpenOk{})
}

func (c *Connection) handleChannelClose(channelID uint16) error {
	c.channelsMu.Lock()
	ch, ok := c.channels[channelID]
	delete(c.channels, channelID)
	c.channelsMu.Unlock()
	if ok {
		c.cancelChannelConsumers(ch)
	}
	return c.sendMethod(channelID, amqpframe.ChannelCloseOk{})
}

func (c *Connection) channelFor(id uint16) *channel {
	c.channelsMu.Lock()
	defer c.channelsMu.Unlock()
	ch, ok := c.channels[id]
	if !ok {
		ch = newChannel(id)
		c.channels[id] = ch
	}
	return ch
}

func (c *Connection) handleExchangeDeclare(channelID uint16, m amqpframe.ExchangeDeclare) error {
	kind := storage.ExchangeType(m.Type)
	if kind == "" {
		kind = storage.ExchangeDirect
	}
	c.hooks.DeclareExchange(m.Exchange, kind)
	return c.sendMethod(channelID, amqpframe.ExchangeDeclareOk{})
}

func (c *Connection) handleQueueDeclare(channelID uint16, m amqpframe.QueueDeclare) error {
	name := m.Queue
	if name == "" {
		name = generateName("amq.gen")
	}
	c.hooks.DeclareQueue(name)
	return c.sendMethod(channelID, amqpframe.QueueDeclareOk{Queue: name, MessageCount: 0, ConsumerCount: 0})
}

func (c *Connection) handleQueueBind(channelID uint16, m amqpframe.QueueBind) error {
	c.hooks.Bind(m.Queue, m.Exchange, m.RoutingKey)
	return c.sendMethod(channelID, amqpframe.QueueBindOk{})
}

func (c *Connection) handleConfirmSelect(channelID uint16) error {
	return c.sendMethod(channelID, amqpframe.ConfirmSelectOk{})
}

func (c *Connection) handleTxSelect(channelID uint16) error {
	ch := c.channelFor(channelID)
	ch.txMode = true
	ch.txBuffer = nil
	return c.sendMethod(channelID, amqpframe.TxSelectOk{})
}

func (c *Connection) handleTxCommit(channelID uint16) error {
	ch := c.channelFor(channelID)
	buffered := ch.txBuffer
	ch.txBuffer = nil
	for _, m := range buffered {
		c.hooks.Publish(m)
	}
	return c.sendMethod(channelID, amqpframe.TxCommitOk{})
}

func (c *Connection) handleTxRollback(channelID uint16) error {
	ch := c.channelFor(channelID)
	ch.txBuffer = nil
	return c.sendMethod(channelID, amqpframe.TxRollbackOk{})
}

func (c *Connection) handleBasicPublish(channelID uint16, m amqpframe.BasicPublish) error {
	ch := c.channelFor(channelID)
	ch.beginPublish(m.Exchange, m.RoutingKey)
	return nil
}

func (c *Connection) handleContentHeader(channelID uint16, h amqpframe.ContentHeader) error {
	ch := c.channelFor(channelID)
	if ch.incoming == nil {
		return nil
	}
	ch.incoming.Properties = message.Properties(h.Properties)
	ch.incomingSize = h.BodySize
	if ch.incomingSize == 0 {
		return c.finalizePublish(channelID, ch)
	}
	return nil
}

func (c *Connection) handleContentBody(channelID uint16, b amqpframe.ContentBody) error {
	ch := c.channelFor(channelID)
	if ch.incoming == nil {
		return nil
	}
	ch.incomingBody = append(ch.incomingBody, b.Payload...)
	ch.incomingReceived += uint64(len(b.Payload))
	if ch.incomingReceived >= ch.incomingSize {
		return c.finalizePublish(channelID, ch)
	}
	return nil
}

// finalizePublish decodes the accumulated body as JSON, falling back to a
// string per spec §7.5, then either buffers the message for a pending
// transaction or routes it immediately and acks the publisher.
func (c *Connection) finalizePublish(channelID uint16, ch *channel) error {
	msg := ch.incoming
	ch.incoming = nil

	var value any
	if err := json.Unmarshal(ch.incomingBody, &value); err != nil {
		value = string(ch.incomingBody)
	}
	msg.Value = value
	msg.EnsureID()

	if ch.txMode {
		ch.txBuffer = append(ch.txBuffer, msg)
		return nil
	}

	c.hooks.Publish(msg)
	return c.sendMethod(channelID, amqpframe.BasicAck{DeliveryTag: c.nextDeliveryTag(), Multiple: false})
}

func (c *Connection) handleBasicConsume(channelID uint16, m amqpframe.BasicConsume) error {
	tag := m.ConsumerTag
	if tag == "" {
		tag = generateName("amq.ctag")
	}
	if err := c.sendMethod(channelID, amqpframe.BasicConsumeOk{ConsumerTag: tag}); err != nil {
		return err
	}

	ch := c.channelFor(channelID)
	ctx, cancel := context.WithCancel(c.ctx)
	cons := &consumer{tag: tag, queue: m.Queue, cancel: cancel, done: make(chan struct{})}
	ch.addConsumer(cons)

	c.consumers.Add(1)
	go c.runConsumer(ctx, channelID, cons, ch)
	return nil
}

func (c *Connection) handleBasicCancel(channelID uint16, m amqpframe.BasicCancel) error {
	ch := c.channelFor(channelID)
	if cons, ok := ch.takeConsumer(m.ConsumerTag); ok {
		cons.cancel()
		<-cons.done
	}
	return c.sendMethod(channelID, amqpframe.BasicCancelOk{ConsumerTag: m.ConsumerTag})
}

func (c *Connection) handleAck(tag uint64) {
	ref, ok := c.takeDelivery(tag)
	if !ok {
		return
	}
	c.hooks.Ack(ref.queue, ref.messageID)
}

func (c *Connection) handleNack(tag uint64) {
	ref, ok := c.takeDelivery(tag)
	if !ok {
		return
	}
	c.hooks.Nack(ref.queue, ref.messageID)
}

func (c *Connection) recordDelivery(tag uint64, ref deliveryRef) {
	c.deliveriesMu.Lock()
	defer c.deliveriesMu.Unlock()
	c.deliveries[tag] = ref
}

func (c *Connection) takeDelivery(tag uint64) (deliveryRef, bool) {
	c.deliveriesMu.Lock()
	defer c.deliveriesMu.Unlock()
	ref, ok := c.deliveries[tag]
	if ok {
		delete(c.deliveries, tag)
	}
	return ref, ok
}

func (c *Connection) cancelChannelConsumers(ch *channel) {
	for _, cons := range ch.allConsumers() {
		cons.cancel()
		<-cons.done
	}
}

// teardown cancels every consumer, closes the socket, and fires OnClose
// exactly once (spec §5: "Connection close cancels all consumer tasks in
// parallel, then closes the socket writer ... then fires onClose").
func (c *Connection) teardown() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.consumers.Wait()
		c.conn.Close()
		c.hooks.OnClose(c)
	})
}

var genCounter atomic.Uint64

// generateName produces a unique server-assigned name for an empty queue
// name (Queue.Declare) or consumer tag (Basic.Consume).
func generateName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, genCounter.Add(1))
}
