package amqpframe

// Class/method IDs for the subset of AMQP 0-9-1 this broker recognizes
// (spec §4.1).
const (
	ClassConnection uint16 = 10
	ClassChannel    uint16 = 20
	ClassExchange   uint16 = 40
	ClassQueue      uint16 = 50
	ClassBasic      uint16 = 60
	ClassConfirm    uint16 = 85
	ClassTx         uint16 = 90

	MethodConnectionStart   uint16 = 10
	MethodConnectionStartOk uint16 = 11
	MethodConnectionTune    uint16 = 30
	MethodConnectionTuneOk  uint16 = 31
	MethodConnectionOpen    uint16 = 40
	MethodConnectionOpenOk  uint16 = 41
	MethodConnectionClose   uint16 = 50
	MethodConnectionCloseOk uint16 = 51

	MethodChannelOpen    uint16 = 10
	MethodChannelOpenOk  uint16 = 11
	MethodChannelClose   uint16 = 40
	MethodChannelCloseOk uint16 = 41

	MethodExchangeDeclare   uint16 = 10
	MethodExchangeDeclareOk uint16 = 11

	MethodQueueDeclare   uint16 = 10
	MethodQueueDeclareOk uint16 = 11
	MethodQueueBind      uint16 = 20
	MethodQueueBindOk    uint16 = 21

	MethodBasicQos       uint16 = 10
	MethodBasicQosOk     uint16 = 11
	MethodBasicConsume   uint16 = 20
	MethodBasicConsumeOk uint16 = 21
	MethodBasicCancel    uint16 = 30
	MethodBasicCancelOk  uint16 = 31
	MethodBasicPublish   uint16 = 40
	MethodBasicDeliver   uint16 = 60
	MethodBasicAck       uint16 = 80
	MethodBasicNack      uint16 = 120

	MethodConfirmSelect   uint16 = 10
	MethodConfirmSelectOk uint16 = 11

	MethodTxSelect     uint16 = 10
	MethodTxSelectOk   uint16 = 11
	MethodTxCommit     uint16 = 20
	MethodTxCommitOk   uint16 = 21
	MethodTxRollback   uint16 = 30
	MethodTxRollbackOk uint16 = 31
)

// Method is any decoded AMQP method-frame payload.
type Method interface {
	ClassID() uint16
	MethodID() uint16
}

func classMethod(class, method uint16) uint32 { return uint32(class)<<16 | uint32(method) }

// --- Connection --------------------------------------------------------

type ConnectionStart struct {
	VersionMajor, VersionMinor byte
	ServerProperties           Table
	Mechanisms, Locales        string
}

func (ConnectionStart) ClassID() uint16  { return ClassConnection }
func (ConnectionStart) MethodID() uint16 { return MethodConnectionStart }
func (m ConnectionStart) encode(w *writer) {
	w.octet(m.VersionMajor)
	w.octet(m.VersionMinor)
	w.rawTable(m.ServerProperties)
	w.longstr(m.Mechanisms)
	w.longstr(m.Locales)
}

type ConnectionStartOk struct {
	ClientProperties   Table
	Mechanism, Locale  string
	Response           string
}

func (ConnectionStartOk) ClassID() uint16  { return ClassConnection }
func (ConnectionStartOk) MethodID() uint16 { return MethodConnectionStartOk }

type ConnectionTune struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (ConnectionTune) ClassID() uint16  { return ClassConnection }
func (ConnectionTune) MethodID() uint16 { return MethodConnectionTune }
func (m ConnectionTune) encode(w *writer) {
	w.short(m.ChannelMax)
	w.long(m.FrameMax)
	w.short(m.Heartbeat)
}

type ConnectionTuneOk struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (ConnectionTuneOk) ClassID() uint16  { return ClassConnection }
func (ConnectionTuneOk) MethodID() uint16 { return MethodConnectionTuneOk }

type ConnectionOpen struct {
	VirtualHost string
}

func (ConnectionOpen) ClassID() uint16  { return ClassConnection }
func (ConnectionOpen) MethodID() uint16 { return MethodConnectionOpen }

type ConnectionOpenOk struct{}

func (ConnectionOpenOk) ClassID() uint16  { return ClassConnection }
func (ConnectionOpenOk) MethodID() uint16 { return MethodConnectionOpenOk }
func (ConnectionOpenOk) encode(w *writer) { w.shortstr("") }

type ConnectionClose struct {
	ReplyCode          uint16
	ReplyText          string
	ClassID0, MethodID0 uint16
}

func (ConnectionClose) ClassID() uint16  { return ClassConnection }
func (ConnectionClose) MethodID() uint16 { return MethodConnectionClose }
func (m ConnectionClose) encode(w *writer) {
	w.short(m.ReplyCode)
	w.shortstr(m.ReplyText)
	w.short(m.ClassID0)
	w.short(m.MethodID0)
}

type ConnectionCloseOk struct{}

func (ConnectionCloseOk) ClassID() uint16  { return ClassConnection }
func (ConnectionCloseOk) MethodID() uint16 { return MethodConnectionCloseOk }
func (ConnectionCloseOk) encode(w *writer) {}

// --- Channel -------------------------------------------------------------

type ChannelOpen struct{}

func (ChannelOpen) ClassID() uint16  { return ClassChannel }
func (ChannelOpen) MethodID() uint16 { return MethodChannelOpen }

type ChannelOpenOk struct{}

func (ChannelOpenOk) ClassID() uint16  { return ClassChannel }
func (ChannelOpenOk) MethodID() uint16 { return MethodChannelOpenOk }
func (ChannelOpenOk) encode(w *writer) { w.longstr("") }

type ChannelClose struct {
	ReplyCode           uint16
	ReplyText           string
	ClassID0, MethodID0 uint16
}

func (ChannelClose) ClassID() uint16  { return ClassChannel }
func (ChannelClose) MethodID() uint16 { return MethodChannelClose }

type ChannelCloseOk struct{}

func (ChannelCloseOk) ClassID() uint16  { return ClassChannel }
func (ChannelCloseOk) MethodID() uint16 { return MethodChannelCloseOk }
func (ChannelCloseOk) encode(w *writer) {}

// --- Exchange --------------------------------------------------------------

type ExchangeDeclare struct {
	Exchange, Type string
	Passive, Durable, AutoDelete, Internal, NoWait bool
	Arguments Table
}

func (ExchangeDeclare) ClassID() uint16  { return ClassExchange }
func (ExchangeDeclare) MethodID() uint16 { return MethodExchangeDeclare }

type ExchangeDeclareOk struct{}

func (ExchangeDeclareOk) ClassID() uint16  { return ClassExchange }
func (ExchangeDeclareOk) MethodID() uint16 { return MethodExchangeDeclareOk }
func (ExchangeDeclareOk) encode(w *writer) {}

// --- Queue -----------------------------------------------------------------

type QueueDeclare struct {
	Queue                                          string
	Passive, Durable, Exclusive, AutoDelete, NoWait bool
	Arguments                                       Table
}

func (QueueDeclare) ClassID() uint16  { return ClassQueue }
func (QueueDeclare) MethodID() uint16 { return MethodQueueDeclare }

type QueueDeclareOk struct {
	Queue                       string
	MessageCount, ConsumerCount uint32
}

func (QueueDeclareOk) ClassID() uint16  { return ClassQueue }
func (QueueDeclareOk) MethodID() uint16 { return MethodQueueDeclareOk }
func (m QueueDeclareOk) encode(w *writer) {
	w.shortstr(m.Queue)
	w.long(m.MessageCount)
	w.long(m.ConsumerCount)
}

type QueueBind struct {
	Queue, Exchange, RoutingKey string
	NoWait                      bool
	Arguments                   Table
}

func (QueueBind) ClassID() uint16  { return ClassQueue }
func (QueueBind) MethodID() uint16 { return MethodQueueBind }

type QueueBindOk struct{}

func (QueueBindOk) ClassID() uint16  { return ClassQueue }
func (QueueBindOk) MethodID() uint16 { return MethodQueueBindOk }
func (QueueBindOk) encode(w *writer) {}

// --- Basic -----------------------------------------------------------------

type BasicQos struct {
	PrefetchSize  uint32
	PrefetchCount uint16
	Global        bool
}

func (BasicQos) ClassID() uint16  { return ClassBasic }
func (BasicQos) MethodID() uint16 { return MethodBasicQos }

type BasicQosOk struct{}

func (BasicQosOk) ClassID() uint16  { return ClassBasic }
func (BasicQosOk) MethodID() uint16 { return MethodBasicQosOk }
func (BasicQosOk) encode(w *writer) {}

type BasicConsume struct {
	Queue, ConsumerTag                      string
	NoLocal, NoAck, Exclusive, NoWait        bool
	Arguments                                Table
}

func (BasicConsume) ClassID() uint16  { return ClassBasic }
func (BasicConsume) MethodID() uint16 { return MethodBasicConsume }

type BasicConsumeOk struct {
	ConsumerTag string
}

func (BasicConsumeOk) ClassID() uint16  { return ClassBasic }
func (BasicConsumeOk) MethodID() uint16 { return MethodBasicConsumeOk }
func (m BasicConsumeOk) encode(w *writer) { w.shortstr(m.ConsumerTag) }

type BasicCancel struct {
	ConsumerTag string
	NoWait      bool
}

func (BasicCancel) ClassID() uint16  { return ClassBasic }
func (BasicCancel) MethodID() uint16 { return MethodBasicCancel }

type BasicCancelOk struct {
	ConsumerTag string
}

func (BasicCancelOk) ClassID() uint16  { return ClassBasic }
func (BasicCancelOk) MethodID() uint16 { return MethodBasicCancelOk }
func (m BasicCancelOk) encode(w *writer) { w.shortstr(m.ConsumerTag) }

type BasicPublish struct {
	Exchange, RoutingKey   string
	Mandatory, Immediate   bool
}

func (BasicPublish) ClassID() uint16  { return ClassBasic }
func (BasicPublish) MethodID() uint16 { return MethodBasicPublish }

type BasicDeliver struct {
	ConsumerTag             string
	DeliveryTag             uint64
	Redelivered             bool
	Exchange, RoutingKey    string
}

func (BasicDeliver) ClassID() uint16  { return ClassBasic }
func (BasicDeliver) MethodID() uint16 { return MethodBasicDeliver }
func (m BasicDeliver) encode(w *writer) {
	w.shortstr(m.ConsumerTag)
	w.longlong(m.DeliveryTag)
	w.bits(m.Redelivered)
	w.shortstr(m.Exchange)
	w.shortstr(m.RoutingKey)
}

type BasicAck struct {
	DeliveryTag uint64
	Multiple    bool
}

func (BasicAck) ClassID() uint16  { return ClassBasic }
func (BasicAck) MethodID() uint16 { return MethodBasicAck }
func (m BasicAck) encode(w *writer) {
	w.longlong(m.DeliveryTag)
	w.bits(m.Multiple)
}

type BasicNack struct {
	DeliveryTag      uint64
	Multiple, Requeue bool
}

func (BasicNack) ClassID() uint16  { return ClassBasic }
func (BasicNack) MethodID() uint16 { return MethodBasicNack }

// --- Confirm -----------------------------------------------------------------

type ConfirmSelect struct{ NoWait bool }

func (ConfirmSelect) ClassID() uint16  { return ClassConfirm }
func (ConfirmSelect) MethodID() uint16 { return MethodConfirmSelect }

type ConfirmSelectOk struct{}

func (ConfirmSelectOk) ClassID() uint16  { return ClassConfirm }
func (ConfirmSelectOk) MethodID() uint16 { return MethodConfirmSelectOk }
func (ConfirmSelectOk) encode(w *writer) {}

// --- Tx ----------------------------------------------------------------------

type TxSelect struct{}

func (TxSelect) ClassID() uint16  { return ClassTx }
func (TxSelect) MethodID() uint16 { return MethodTxSelect }

type TxSelectOk struct{}

func (TxSelectOk) ClassID() uint16  { return ClassTx }
func (TxSelectOk) MethodID() uint16 { return MethodTxSelectOk }
func (TxSelectOk) encode(w *writer) {}

type TxCommit struct{}

func (TxCommit) ClassID() uint16  { return ClassTx }
func (TxCommit) MethodID() uint16 { return MethodTxCommit }

type TxCommitOk struct{}

func (TxCommitOk) ClassID() uint16  { return ClassTx }
func (TxCommitOk) MethodID() uint16 { return MethodTxCommitOk }
func (TxCommitOk) encode(w *writer) {}

type TxRollback struct{}

func (TxRollback) ClassID() uint16  { return ClassTx }
func (TxRollback) MethodID() uint16 { return MethodTxRollback }

type TxRollbackOk struct{}

func (TxRollbackOk) ClassID() uint16  { return ClassTx }
func (TxRollbackOk) MethodID() uint16 { return MethodTxRollbackOk }
func (TxRollbackOk) encode(w *writer) {}
