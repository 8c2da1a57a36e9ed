package comm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JekaMas/workerpool"
	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/sec2"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var (
	ErrAmbiguousRoute = errors.New("ambiguous route")
	ErrNoWallet       = errors.New("no wallet")
	ErrContentType    = errors.New("unsupported content type")
)

// Receiver unpacks the inbound messages, finds their wallet, connection and
// exchange, and dispatches them to the protocol handlers on its worker pool.
type Receiver struct {
	wallets   *wallet.Registry
	exchanges exchange.Registry
	out       prot.Outbound
	pool      *workerpool.WorkerPool
}

func NewReceiver(wallets *wallet.Registry, exchanges exchange.Registry, out prot.Outbound) *Receiver {
	return &Receiver{
		wallets:   wallets,
		exchanges: exchanges,
		out:       out,
		pool:      workerpool.New(utils.Settings.WorkerCount()),
	}
}

// Close waits the queued dispatches to finish.
func (r *Receiver) Close() {
	r.pool.StopWait()
}

// Receive handles one inbound message. The returned message is the one added
// to the exchange, its handler is still running when Receive returns. Legacy
// messages to keys we don't have are dropped: nil message and nil error.
func (r *Receiver) Receive(ctx context.Context, contentType string, body []byte) (epm *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "receive %s", contentType)

	switch mediaType(contentType) {
	case didcomm.MediaTypeLegacy:
		return r.receiveLegacy(ctx, body)
	case didcomm.MediaTypePlain, didcomm.MediaTypeSigned, didcomm.MediaTypeEncrypted:
		return r.receiveV2(ctx, body)
	}
	return nil, fmt.Errorf("%w: %s", ErrContentType, contentType)
}

// mediaType drops the parameters of the content type.
func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}

func (r *Receiver) receiveLegacy(ctx context.Context, body []byte) (_ *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "legacy")

	var w *wallet.Wallet
	for _, kid := range try.To1(sec2.LegacyRecipients(body)) {
		if found, ok := r.wallets.FindByKey(kid); ok {
			w = found
			break
		}
	}
	if w == nil {
		glog.V(1).Infoln("legacy message to unknown keys dropped")
		return nil, nil
	}
	res := try.To1(w.Pipe().UnpackLegacy(body))
	if res == nil {
		glog.V(1).Infoln("legacy message dropped by wallet", w.Name())
		return nil, nil
	}

	headers := map[string]string{
		didcomm.HeaderMediaType: didcomm.MediaTypeLegacy,
		didcomm.HeaderDirection: string(didcomm.DirectionIn),
	}
	epm := try.To1(didcomm.NewEndpointMessage(res.Message, headers))
	key, ok := prot.KeyFromType(epm.Type())
	if !ok {
		return nil, fmt.Errorf("%w: %s", prot.ErrUnknownProtocol, epm.Type())
	}

	ex := try.To1(r.legacyExchange(w, res))
	if conn, err := ex.Connection(); err == nil {
		epm = epm.With(map[string]string{
			didcomm.HeaderRecipientDID: conn.MyDID().URI(),
			didcomm.HeaderSenderDID:    conn.TheirDID().URI(),
		})
	}
	epm = epm.With(map[string]string{didcomm.HeaderProtocolURI: key.URI})
	if err := ex.AddMessage(epm); err != nil {
		if _, registered := r.exchanges.Get(ex.ID()); !registered {
			ex.Close()
		}
		return nil, err
	}
	r.dispatch(ctx, key, ex, w, epm)
	return epm, nil
}

// legacyExchange finds the exchange by our verkey, by the connection having
// our verkey, or by the invitation key. Otherwise a new one is returned.
func (r *Receiver) legacyExchange(w *wallet.Wallet, res *sec2.LegacyResult) (*exchange.Exchange, error) {
	if ex, ok := r.exchanges.FindByVerkey(res.RecipientVerkey); ok {
		return ex, nil
	}
	conn, ok := w.FindConnection(func(c *pairwise.Connection) bool {
		return c.MyVerkey() == res.RecipientVerkey
	})
	if ok {
		return exchange.ForConnection(r.exchanges, conn)
	}
	if found := r.exchanges.FindByInvitationKey(res.RecipientVerkey); len(found) > 0 {
		return found[0], nil
	}
	return exchange.New(r.exchanges), nil
}

func (r *Receiver) receiveV2(ctx context.Context, body []byte) (_ *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "v2")

	w, msg, meta := try.To3(r.unpack(ctx, body))
	key, ok := prot.KeyFromType(msg.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", prot.ErrUnknownProtocol, msg.Type)
	}
	recipient := try.To1(recipientDID(w, msg, meta))
	if !meta.Encrypted {
		if w, ok = r.wallets.FindByDID(recipient); !ok {
			return nil, fmt.Errorf("%w: for %s", ErrNoWallet, recipient)
		}
	}
	sender := senderDID(msg, meta)

	epm := try.To1(didcomm.NewEndpointMessage(msg, map[string]string{
		didcomm.HeaderMediaType:    envelopeType(meta),
		didcomm.HeaderDirection:    string(didcomm.DirectionIn),
		didcomm.HeaderProtocolURI:  key.URI,
		didcomm.HeaderRecipientDID: recipient,
		didcomm.HeaderSenderDID:    sender,
	}))
	glog.V(3).Infof("wallet %s received %s from %s", w.Name(), epm.ShortString(), sender)

	if msg.Type == pltype.RoutingForward {
		r.dispatch(ctx, key, nil, w, epm)
		return epm, nil
	}

	conn := try.To1(findConnection(w, msg.Type, recipient, sender))
	ex := try.To1(exchange.ForConnection(r.exchanges, conn))
	try.To(ex.AddMessage(epm))
	r.dispatch(ctx, key, ex, w, epm)
	return epm, nil
}

// unpack opens the envelope with the wallet owning the recipient keys.
// Plaintext and signed messages need no private keys, any wallet opens them.
func (r *Receiver) unpack(ctx context.Context, body []byte) (
	w *wallet.Wallet,
	msg *didcomm.Message,
	meta *sec2.Metadata,
	err error,
) {
	defer err2.Handle(&err, "unpack")

	candidates := make([]*wallet.Wallet, 0, 1)
	for _, kid := range try.To1(sec2.EncryptedRecipients(body)) {
		if found, ok := r.wallets.FindByKey(kid); ok {
			candidates = append(candidates, found)
			break
		}
	}
	if len(candidates) == 0 {
		candidates = r.wallets.All()
	}
	if len(candidates) == 0 {
		return nil, nil, nil, ErrNoWallet
	}
	for _, w = range candidates {
		msg, meta, err = w.Pipe().Unpack(ctx, body)
		if err == nil {
			return w, msg, meta, nil
		}
	}
	return nil, nil, nil, err
}

// recipientDID is the DID of the key the message was encrypted to or the only
// to of the message.
func recipientDID(w *wallet.Wallet, msg *didcomm.Message, meta *sec2.Metadata) (string, error) {
	dids := make(map[string]struct{})
	for _, kid := range meta.EncryptedTo {
		if did, ok := w.FindDID(kid); ok {
			dids[did.URI()] = struct{}{}
		}
	}
	if len(dids) == 0 {
		for _, to := range msg.To {
			dids[to] = struct{}{}
		}
	}
	if len(dids) != 1 {
		return "", fmt.Errorf("%w: %d recipients", ErrAmbiguousRoute, len(dids))
	}
	for did := range dids {
		return did, nil
	}
	return "", nil
}

func senderDID(msg *didcomm.Message, meta *sec2.Metadata) string {
	if msg.From != "" {
		return msg.From
	}
	if i := strings.IndexByte(meta.SignFrom, '#'); i >= 0 {
		return meta.SignFrom[:i]
	}
	return meta.SignFrom
}

func envelopeType(meta *sec2.Metadata) string {
	switch {
	case meta.Encrypted:
		return didcomm.MediaTypeEncrypted
	case meta.NonRepudiation:
		return didcomm.MediaTypeSigned
	}
	return didcomm.MediaTypePlain
}

// findConnection returns the connection between the recipient and the
// sender. The first trust ping of the invitation arrives before the inviter
// knows the sender, and the ping response before the invitee has seen the
// inviter's new DID, they are matched by the connection state.
func findConnection(w *wallet.Wallet, msgType, recipient, sender string) (*pairwise.Connection, error) {
	conn, ok := w.FindConnection(func(c *pairwise.Connection) bool {
		return c.MyDID().URI() == recipient && c.HasTheirDID() && c.TheirDID().URI() == sender
	})
	if ok {
		return conn, nil
	}
	var state pairwise.State
	switch msgType {
	case pltype.TrustPingV2:
		state = pairwise.StateInvitation
	case pltype.TrustPingResponseV2:
		state = pairwise.StateCompleted
	default:
		return nil, fmt.Errorf("%w: %s -> %s", exchange.ErrNoConnection, sender, recipient)
	}
	conn, ok = w.FindConnection(func(c *pairwise.Connection) bool {
		return c.MyDID().URI() == recipient && c.State() == state
	})
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s in %s", exchange.ErrNoConnection, sender, recipient, state)
	}
	return conn, nil
}

// dispatch invokes the protocol handler on the worker pool. The handler
// outlives the request, it gets the values of the ctx but not its
// cancellation. Handler errors and panics are logged.
func (r *Receiver) dispatch(
	ctx context.Context,
	key prot.Key,
	ex *exchange.Exchange,
	w *wallet.Wallet,
	epm *didcomm.EndpointMessage,
) {
	ctx = context.WithoutCancel(ctx)
	r.pool.Submit(ctx, func() (err error) {
		defer err2.Handle(&err, func(err error) error {
			glog.Errorf("dispatch %s: %v", epm.ShortString(), err)
			return err
		}, func(p any) {
			glog.Errorf("dispatch %s: panic: %v", epm.ShortString(), p)
		})

		h := try.To1(prot.Get(key, ex))
		try.To(h.Invoke(ctx, prot.Packet{
			Out:     r.out,
			Wallets: r.wallets,
			Wallet:  w,
			Message: epm,
		}))
		return nil
	}, 0)
}
