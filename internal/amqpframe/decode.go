package amqpframe

import "fmt"

// UnknownMethod represents a parseable-but-unhandled method id (spec §7.3):
// acknowledged with a no-op, never closes the connection.
type UnknownMethod struct {
	Class, Method uint16
}

func (m UnknownMethod) ClassID() uint16  { return m.Class }
func (m UnknownMethod) MethodID() uint16 { return m.Method }

// DecodeMethod parses a method frame's payload (after the leading class-id
// and method-id shorts, which this function also reads) into a typed Method.
func DecodeMethod(payload []byte) (Method, error) {
	r := newReader(payload)
	class, err := r.short()
	if err != nil {
		return nil, err
	}
	meth, err := r.short()
	if err != nil {
		return nil, err
	}

	switch classMethod(class, meth) {
	case classMethod(ClassConnection, MethodConnectionStartOk):
		props, err := r.table()
		if err != nil {
			return nil, err
		}
		mech, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		resp, err := r.longstr()
		if err != nil {
			return nil, err
		}
		locale, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		return ConnectionStartOk{ClientProperties: props, Mechanism: mech, Response: resp, Locale: locale}, nil

	case classMethod(ClassConnection, MethodConnectionTuneOk):
		chMax, err := r.short()
		if err != nil {
			return nil, err
		}
		frMax, err := r.long()
		if err != nil {
			return nil, err
		}
		hb, err := r.short()
		if err != nil {
			return nil, err
		}
		return ConnectionTuneOk{ChannelMax: chMax, FrameMax: frMax, Heartbeat: hb}, nil

	case classMethod(ClassConnection, MethodConnectionOpen):
		vhost, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		if _, err := r.shortstr(); err != nil { // reserved: capabilities
			return nil, err
		}
		if _, err := r.bits(1); err != nil { // reserved: insist
			return nil, err
		}
		return ConnectionOpen{VirtualHost: vhost}, nil

	case classMethod(ClassConnection, MethodConnectionClose):
		code, err := r.short()
		if err != nil {
			return nil, err
		}
		text, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		cid, err := r.short()
		if err != nil {
			return nil, err
		}
		mid, err := r.short()
		if err != nil {
			return nil, err
		}
		return ConnectionClose{ReplyCode: code, ReplyText: text, ClassID0: cid, MethodID0: mid}, nil

	case classMethod(ClassConnection, MethodConnectionCloseOk):
		return ConnectionCloseOk{}, nil

	case classMethod(ClassChannel, MethodChannelOpen):
		if _, err := r.shortstr(); err != nil { // reserved: out-of-band
			return nil, err
		}
		return ChannelOpen{}, nil

	case classMethod(ClassChannel, MethodChannelClose):
		code, err := r.short()
		if err != nil {
			return nil, err
		}
		text, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		cid, err := r.short()
		if err != nil {
			return nil, err
		}
		mid, err := r.short()
		if err != nil {
			return nil, err
		}
		return ChannelClose{ReplyCode: code, ReplyText: text, ClassID0: cid, MethodID0: mid}, nil

	case classMethod(ClassChannel, MethodChannelCloseOk):
		return ChannelCloseOk{}, nil

	case classMethod(ClassExchange, MethodExchangeDeclare):
		if _, err := r.short(); err != nil { // reserved: ticket
			return nil, err
		}
		name, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		typ, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(5)
		if err != nil {
			return nil, err
		}
		args, err := r.table()
		if err != nil {
			return nil, err
		}
		return ExchangeDeclare{
			Exchange: name, Type: typ,
			Passive: bits[0], Durable: bits[1], AutoDelete: bits[2], Internal: bits[3], NoWait: bits[4],
			Arguments: args,
		}, nil

	case classMethod(ClassQueue, MethodQueueDeclare):
		if _, err := r.short(); err != nil { // reserved: ticket
			return nil, err
		}
		name, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(5)
		if err != nil {
			return nil, err
		}
		args, err := r.table()
		if err != nil {
			return nil, err
		}
		return QueueDeclare{
			Queue: name,
			Passive: bits[0], Durable: bits[1], Exclusive: bits[2], AutoDelete: bits[3], NoWait: bits[4],
			Arguments: args,
		}, nil

	case classMethod(ClassQueue, MethodQueueBind):
		if _, err := r.short(); err != nil { // reserved: ticket
			return nil, err
		}
		queue, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		exch, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		rk, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(1)
		if err != nil {
			return nil, err
		}
		args, err := r.table()
		if err != nil {
			return nil, err
		}
		return QueueBind{Queue: queue, Exchange: exch, RoutingKey: rk, NoWait: bits[0], Arguments: args}, nil

	case classMethod(ClassBasic, MethodBasicQos):
		size, err := r.long()
		if err != nil {
			return nil, err
		}
		count, err := r.short()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(1)
		if err != nil {
			return nil, err
		}
		return BasicQos{PrefetchSize: size, PrefetchCount: count, Global: bits[0]}, nil

	case classMethod(ClassBasic, MethodBasicConsume):
		if _, err := r.short(); err != nil { // reserved: ticket
			return nil, err
		}
		queue, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		tag, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(4)
		if err != nil {
			return nil, err
		}
		args, err := r.table()
		if err != nil {
			return nil, err
		}
		return BasicConsume{
			Queue: queue, ConsumerTag: tag,
			NoLocal: bits[0], NoAck: bits[1], Exclusive: bits[2], NoWait: bits[3],
			Arguments: args,
		}, nil

	case classMethod(ClassBasic, MethodBasicCancel):
		tag, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(1)
		if err != nil {
			return nil, err
		}
		return BasicCancel{ConsumerTag: tag, NoWait: bits[0]}, nil

	case classMethod(ClassBasic, MethodBasicPublish):
		if _, err := r.short(); err != nil { // reserved: ticket
			return nil, err
		}
		exch, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		rk, err := r.shortstr()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(2)
		if err != nil {
			return nil, err
		}
		return BasicPublish{Exchange: exch, RoutingKey: rk, Mandatory: bits[0], Immediate: bits[1]}, nil

	case classMethod(ClassBasic, MethodBasicAck):
		tag, err := r.longlong()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(1)
		if err != nil {
			return nil, err
		}
		return BasicAck{DeliveryTag: tag, Multiple: bits[0]}, nil

	case classMethod(ClassBasic, MethodBasicNack):
		tag, err := r.longlong()
		if err != nil {
			return nil, err
		}
		bits, err := r.bits(2)
		if err != nil {
			return nil, err
		}
		return BasicNack{DeliveryTag: tag, Multiple: bits[0], Requeue: bits[1]}, nil

	case classMethod(ClassConfirm, MethodConfirmSelect):
		bits, err := r.bits(1)
		if err != nil {
			return nil, err
		}
		return ConfirmSelect{NoWait: bits[0]}, nil

	case classMethod(ClassTx, MethodTxSelect):
		return TxSelect{}, nil
	case classMethod(ClassTx, MethodTxCommit):
		return TxCommit{}, nil
	case classMethod(ClassTx, MethodTxRollback):
		return TxRollback{}, nil

	default:
		return UnknownMethod{Class: class, Method: meth}, nil
	}
}

func encodableOf(m Method) (interface{ encode(w *writer) }, error) {
	e, ok := m.(interface{ encode(w *writer) })
	if !ok {
		return nil, fmt.Errorf("amqpframe: method %T has no server-side encoder", m)
	}
	return e, nil
}

// MarshalMethod encodes a method's class-id, method-id and arguments.
func MarshalMethod(m Method) ([]byte, error) {
	e, err := encodableOf(m)
	if err != nil {
		return nil, err
	}
	var w writer
	w.short(m.ClassID())
	w.short(m.MethodID())
	e.encode(&w)
	return w.buf.Bytes(), nil
}
