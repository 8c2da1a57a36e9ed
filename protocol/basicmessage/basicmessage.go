// Package basicmessage implements the basicmessage/2.0 protocol and its
// legacy basicmessage/1.0 version. The messages of the connection are kept
// in the exchange as its history.
package basicmessage

import (
	"context"
	"time"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/std/basicmessage"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Message is one sent or received basic message.
type Message struct {
	ConnectionID string
	ID           string
	Content      string
	SentTime     time.Time
	SentByMe     bool
}

// HistoryKey has the messages of the exchange in the order they were sent
// or received.
var HistoryKey = exchange.NewKey[[]Message]("basicmessage")

// Listener is called for every received message. The default just logs.
var Listener = func(w *wallet.Wallet, conn *pairwise.Connection, m Message) {
	glog.V(1).Infof("wallet %s got basic message from %s: %s",
		w.Name(), conn.TheirLabel(), m.Content)
}

var messageProc = prot.Proc{
	URI: pltype.ProtocolBasicMessageV2,
	Handlers: map[string]prot.HandlerFunc{
		pltype.BasicMessageV2: handleMessage,
	},
}

var legacyProc = prot.Proc{
	URI: pltype.ProtocolBasicMessageV1,
	Handlers: map[string]prot.HandlerFunc{
		pltype.BasicMessageV1: handleLegacyMessage,
	},
}

func init() {
	prot.AddProc(messageProc)
	prot.AddProc(legacyProc)
}

// Send sends the content to the other end of the exchange's connection.
func Send(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	content string,
) (m Message, err error) {
	defer err2.Handle(&err, "basic message")

	conn := try.To1(ex.Connection())
	m = Message{
		ConnectionID: conn.ID(),
		Content:      content,
		SentByMe:     true,
	}
	if conn.Legacy() {
		bm := basicmessage.NewLegacy(pltype.BasicMessageV1, content)
		m.ID, m.SentTime = bm.ID, bm.SentTime.Time
		try.To1(prot.SendLegacy(ctx, out, w, ex, bm.JSON()))
	} else {
		msg := basicmessage.New(pltype.BasicMessageV2, content)
		m.ID, m.SentTime = msg.ID, time.Unix(msg.CreatedTime, 0)
		try.To1(prot.Send(ctx, out, w, ex, msg, didcomm.MediaTypeEncrypted))
	}
	try.To(record(ex, m))
	return m, nil
}

// History returns the messages of the exchange.
func History(ex *exchange.Exchange) []Message {
	h, _ := exchange.Attachment(ex, HistoryKey)
	return h
}

// record appends to the history. Only the exchange's own handlers and Send
// write it, the read-append-write isn't atomic between concurrent senders.
func record(ex *exchange.Exchange, m Message) error {
	h, _ := exchange.Attachment(ex, HistoryKey)
	return exchange.PutAttachment(ex, HistoryKey, append(h, m))
}

func handleMessage(_ context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle basic message")

	msg, _ := p.Message.Message()
	content, sent := try.To2(basicmessage.Of(msg))
	return received(p, Message{ID: msg.ID, Content: content, SentTime: sent})
}

func handleLegacyMessage(_ context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle legacy basic message")

	bm := try.To1(basicmessage.ParseLegacy([]byte(p.Message.BodyJSON())))
	return received(p, Message{ID: bm.ID, Content: bm.Content, SentTime: bm.SentTime.Time})
}

func received(p prot.Packet, m Message) (err error) {
	defer err2.Handle(&err)

	conn := try.To1(p.Exchange.Connection())
	m.ConnectionID = conn.ID()
	if glog.V(3) {
		glog.Info("-- Thread ID: ", p.Message.Thid())
		glog.Info("Sent time:", m.SentTime)
	}
	try.To(record(p.Exchange, m))
	Listener(p.Wallet, conn, m)
	return p.Complete()
}
