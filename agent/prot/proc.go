package prot

import (
	"context"
	"errors"
	"fmt"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/findy-network/findy-didcomm/std/diddoc"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Packet is the inbound message with everything its handler needs. Wallets
// are all the wallets served by the receiver, Wallet is the one the message
// was sent to.
type Packet struct {
	Out      Outbound
	Wallets  *wallet.Registry
	Wallet   *wallet.Wallet
	Exchange *exchange.Exchange
	Message  *didcomm.EndpointMessage
}

// HandlerFunc handles one message type of the protocol.
type HandlerFunc func(ctx context.Context, p Packet) error

// Proc is a protocol declared as its message handlers. Just declare the var
// with the handlers and register it with AddProc.
type Proc struct {
	URI      string
	Handlers map[string]HandlerFunc
}

// AddProc registers the protocol processor with its URI and aliases.
func AddProc(p Proc, aliases ...string) {
	Add(p.URI, p.Bind)
	for _, uri := range aliases {
		Add(uri, p.Bind)
	}
}

func (p Proc) Bind(ex *exchange.Exchange) Handler {
	return &bound{proc: p, ex: ex}
}

type bound struct {
	proc Proc
	ex   *exchange.Exchange
}

func (b *bound) URI() string { return b.proc.URI }

func (b *bound) Invoke(ctx context.Context, p Packet) error {
	glog.V(1).Infoln("PROTOCOL type", p.Message.Type())

	handler, ok := b.proc.Handlers[p.Message.Type()]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrUnsupported, p.Message.Type(), b.proc.URI)
	}
	p.Exchange = b.ex
	return handler(ctx, p)
}

// Send sends the message to the other end of the exchange's connection and
// appends it to the exchange. From and to default to the DIDs of the
// connection.
func Send(
	ctx context.Context,
	out Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	msg *didcomm.Message,
	mediaType string,
) (epm *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "send %s", msg.Type)

	conn := try.To1(ex.Connection())
	if msg.From == "" {
		msg.From = conn.MyDID().URI()
	}
	if len(msg.To) == 0 {
		msg.To = []string{conn.TheirDID().URI()}
	}
	epm = try.To1(didcomm.NewEndpointMessage(msg, map[string]string{
		didcomm.HeaderMediaType:    mediaType,
		didcomm.HeaderDirection:    string(didcomm.DirectionOut),
		didcomm.HeaderSenderDID:    msg.From,
		didcomm.HeaderRecipientDID: conn.TheirDID().URI(),
	}))
	try.To(ex.AddMessage(epm))
	try.To(out.Send(ctx, w, conn, epm))
	return epm, nil
}

// SendLegacy sends the legacy JSON message to the other end of the exchange's
// connection in the RFC0019 envelope and appends it to the exchange.
func SendLegacy(
	ctx context.Context,
	out Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	body []byte,
) (epm *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "send legacy")

	conn := try.To1(ex.Connection())
	epm = try.To1(didcomm.NewEndpointMessage(body, map[string]string{
		didcomm.HeaderMediaType:    didcomm.MediaTypeLegacy,
		didcomm.HeaderDirection:    string(didcomm.DirectionOut),
		didcomm.HeaderSenderDID:    conn.MyDID().URI(),
		didcomm.HeaderRecipientDID: conn.TheirDID().URI(),
	}))
	try.To(ex.AddMessage(epm))
	try.To(out.Send(ctx, w, conn, epm))
	return epm, nil
}

// Reply sends the message back to the sender of the packet's message in an
// encrypted envelope.
func (p Packet) Reply(ctx context.Context, msg *didcomm.Message) (*didcomm.EndpointMessage, error) {
	return Send(ctx, p.Out, p.Wallet, p.Exchange, msg, didcomm.MediaTypeEncrypted)
}

// Complete hands the message to the future of its type if one is placed.
func (p Packet) Complete() error {
	err := p.Exchange.CompleteFuture(p.Message.Type(), p.Message)
	if errors.Is(err, exchange.ErrNoFuture) {
		glog.V(3).Infoln("nobody awaits", p.Message.ShortString())
		return nil
	}
	return err
}

// TheirDID returns the DID of the uri and the service endpoint of its
// document. Self certified DIDs are built locally.
func TheirDID(ctx context.Context, w *wallet.Wallet, uri string) (did method.DID, endpoint string, err error) {
	defer err2.Handle(&err, "their did %s", uri)

	did, err = method.SelfCertified(uri)
	if err != nil {
		did = try.To1(method.FromURI(ctx, uri, w.Resolver()))
	}
	if doc, err := w.Resolver().ResolveDoc(ctx, uri); err == nil {
		endpoint, _ = diddoc.ServiceEndpoint(doc)
	}
	return did, endpoint, nil
}

// Expect places the future of the message type unless it's already placed.
func Expect(ex *exchange.Exchange, msgType string) error {
	err := ex.PlaceFuture(msgType)
	if errors.Is(err, exchange.ErrFutureExists) {
		return nil
	}
	return err
}
