package comm

import (
	"context"
	"fmt"
	"strings"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/sec2"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/std/common"
	"github.com/findy-network/findy-didcomm/std/diddoc"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Dispatcher packs the outbound messages with the keys of the connection and
// delivers them to the other end. It implements prot.Outbound.
type Dispatcher struct{}

// route is where the packed message goes: the endpoint and the mediators
// which forward it.
type route struct {
	endpoint    string
	routingKeys []string
}

// Send packs the message into the envelope its media type header tells and
// delivers it to the endpoint of the connection. DIDComm v2 messages are
// wrapped to forward messages if the other end has routing keys.
func (d *Dispatcher) Send(
	ctx context.Context,
	w *wallet.Wallet,
	conn *pairwise.Connection,
	epm *didcomm.EndpointMessage,
) (err error) {
	defer err2.Handle(&err, "send %s to %s", epm.ShortString(), conn.ShortString())

	mediaType := epm.MediaType()
	if mediaType == "" {
		mediaType = didcomm.MediaTypeEncrypted
	}
	r := try.To1(d.route(ctx, w, conn))
	pipe := w.Pipe()

	var packed []byte
	if mediaType == didcomm.MediaTypeLegacy {
		packed = try.To1(pipe.PackLegacy([]byte(epm.BodyJSON()),
			conn.MyVerkey(), conn.TheirVerkey()))
	} else {
		msg, ok := epm.Message()
		if !ok {
			return fmt.Errorf("%w: %s body isn't a message", sec2.ErrEnvelope, mediaType)
		}
		packed = try.To1(pack(ctx, pipe, mediaType, msg, conn))
		for i := len(r.routingKeys) - 1; i >= 0; i-- {
			next := conn.TheirDID().URI()
			if i < len(r.routingKeys)-1 {
				next = r.routingKeys[i+1]
			}
			packed = try.To1(wrapForward(ctx, pipe, next, r.routingKeys[i], packed))
			mediaType = didcomm.MediaTypeEncrypted
		}
	}

	out := try.To1(didcomm.NewEndpointMessage(packed, map[string]string{
		didcomm.HeaderID:        epm.ID(),
		didcomm.HeaderType:      epm.Type(),
		didcomm.HeaderMediaType: mediaType,
		didcomm.HeaderDirection: string(didcomm.DirectionOut),
	}))
	glog.V(3).Infof("wallet %s sends %s to %s", w.Name(), epm.ShortString(), r.endpoint)
	return Deliver(ctx, r.endpoint, out)
}

func pack(
	ctx context.Context,
	pipe *sec2.Pipe,
	mediaType string,
	msg *didcomm.Message,
	conn *pairwise.Connection,
) ([]byte, error) {
	switch mediaType {
	case didcomm.MediaTypePlain:
		return pipe.PackPlaintext(msg), nil
	case didcomm.MediaTypeSigned:
		return pipe.PackSigned(ctx, msg, conn.MyDID().URI())
	case didcomm.MediaTypeEncrypted:
		return pipe.PackEncrypted(ctx, msg, []string{conn.TheirDID().URI()},
			sec2.EncryptOptions{From: conn.MyDID().URI()})
	}
	return nil, fmt.Errorf("%w: media type %s", sec2.ErrEnvelope, mediaType)
}

// wrapForward puts the packed message into a forward message to the next
// hop and anoncrypts it to the mediator.
func wrapForward(ctx context.Context, pipe *sec2.Pipe, next, mediator string, packed []byte) (_ []byte, err error) {
	defer err2.Handle(&err, "forward to %s", mediator)

	fwd := common.NewForward(pltype.RoutingForward, next, mediator, packed)
	return pipe.PackEncrypted(ctx, fwd, []string{mediator}, sec2.EncryptOptions{Anon: true})
}

// route resolves the endpoint of the connection. The connection's own
// endpoint and routing keys are used when set, otherwise they are taken from
// the DIDComm service of their DID document. The endpoint can be a DID of a
// mediator as well.
func (d *Dispatcher) route(ctx context.Context, w *wallet.Wallet, conn *pairwise.Connection) (r route, err error) {
	defer err2.Handle(&err, "route")

	r.endpoint = conn.TheirEndpoint()
	r.routingKeys = conn.TheirRoute()
	if r.endpoint == "" {
		doc := try.To1(w.Resolver().ResolveDoc(ctx, conn.TheirDID().URI()))
		s, ok := diddoc.DIDCommService(doc)
		if !ok {
			return r, fmt.Errorf("%w: %s", ErrNoURL, conn.TheirDID())
		}
		r.endpoint = s.ServiceEndpoint
		if len(r.routingKeys) == 0 {
			r.routingKeys = s.RoutingKeys
		}
	}
	if strings.HasPrefix(r.endpoint, "did:") {
		mediator := r.endpoint
		r.routingKeys = append([]string{mediator}, r.routingKeys...)
		doc := try.To1(w.Resolver().ResolveDoc(ctx, mediator))
		endpoint, ok := diddoc.ServiceEndpoint(doc)
		if !ok {
			return r, fmt.Errorf("%w: mediator %s", ErrNoURL, mediator)
		}
		r.endpoint = endpoint
	} else if len(r.routingKeys) > 0 {
		doc := try.To1(w.Resolver().ResolveDoc(ctx, r.routingKeys[0]))
		endpoint, ok := diddoc.ServiceEndpoint(doc)
		if !ok {
			return r, fmt.Errorf("%w: mediator %s", ErrNoURL, r.routingKeys[0])
		}
		r.endpoint = endpoint
	}
	return r, nil
}

// Redeliver sends the already packed message, e.g. the payload of the
// forward message, to the url.
func Redeliver(ctx context.Context, url string, packed []byte) error {
	epm := didcomm.MustEndpointMessage(packed, map[string]string{
		didcomm.HeaderMediaType: didcomm.MediaTypeEncrypted,
		didcomm.HeaderDirection: string(didcomm.DirectionOut),
	})
	return Deliver(ctx, url, epm)
}
