/*
Package trustping implements the trust ping protocol, DIDComm v2 trust-ping/2.0
and the legacy trust_ping/1.0. The first ping of the invitee completes the
connection of an out-of-band invitation: the inviter learns the DID of the
invitee from it and the ping response tells the invitee the connection is
active.
*/
package trustping

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/findy-network/findy-didcomm/std/decorator"
	"github.com/findy-network/findy-didcomm/std/oob"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

// Legacy is the trust_ping/1.0 ping and ping_response message.
type Legacy struct {
	Type              string             `json:"@type"`
	ID                string             `json:"@id"`
	Thread            *decorator.Thread  `json:"~thread,omitempty"`
	Comment           string             `json:"comment,omitempty"`
	ResponseRequested *bool              `json:"response_requested,omitempty"`
	Service           *decorator.Service `json:"~service,omitempty"`
}

var ErrNoService = errors.New("no ~service in the first ping")

var pingProc = prot.Proc{
	URI: pltype.ProtocolTrustPingV2,
	Handlers: map[string]prot.HandlerFunc{
		pltype.TrustPingV2:         handlePing,
		pltype.TrustPingResponseV2: handleResponse,
	},
}

var legacyProc = prot.Proc{
	URI: pltype.ProtocolTrustPingV1,
	Handlers: map[string]prot.HandlerFunc{
		pltype.TrustPingV1:         handleLegacyPing,
		pltype.TrustPingResponseV1: handleLegacyResponse,
	},
}

func init() {
	prot.AddProc(pingProc)
	prot.AddProc(legacyProc)
}

// Send sends the ping to the other end of the exchange's connection and
// places the future of the response. Legacy connections get trust_ping/1.0.
// The first ping of the invitee belongs to the thread of the invitation.
func Send(ctx context.Context, out prot.Outbound, w *wallet.Wallet, ex *exchange.Exchange) (err error) {
	defer err2.Handle(&err, "trust ping")

	conn := try.To1(ex.Connection())
	if conn.Legacy() {
		try.To(ex.PlaceFuture(pltype.TrustPingResponseV1))
		yes := true
		ping := Legacy{
			Type:              pltype.TrustPingV1,
			ID:                utils.UUID(),
			ResponseRequested: &yes,
		}
		if conn.State() == pairwise.StateInvitation {
			ping.Service = &decorator.Service{
				RecipientKeys:   []string{conn.MyVerkey()},
				ServiceEndpoint: w.Endpoint(),
			}
			if inv := ex.Invitation(); inv != nil {
				ping.Thread = &decorator.Thread{ID: ping.ID, PID: inv.ID}
			}
			conn.SetState(pairwise.StateCompleted)
			try.To(w.SaveConnection(conn))
		}
		_, err = prot.SendLegacy(ctx, out, w, ex, try.To1(json.Marshal(ping)))
		return err
	}

	ping := didcomm.NewMessage(pltype.TrustPingV2)
	ping.Body["response_requested"] = true
	if conn.State() == pairwise.StateInvitation {
		if inv := ex.Invitation(); inv != nil {
			ping.Thid = inv.ID
		}
		conn.SetState(pairwise.StateCompleted)
		try.To(w.SaveConnection(conn))
	}
	try.To(ex.PlaceFuture(pltype.TrustPingResponseV2))
	_, err = prot.Send(ctx, out, w, ex, ping, didcomm.MediaTypeEncrypted)
	return err
}

// Ping sends the ping and waits for the response.
func Ping(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
) (resp *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "ping")

	try.To(Send(ctx, out, w, ex))
	conn := try.To1(ex.Connection())
	if conn.Legacy() {
		return ex.AwaitDefault(ctx, pltype.TrustPingResponseV1)
	}
	return ex.AwaitDefault(ctx, pltype.TrustPingResponseV2)
}

func handlePing(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle ping")

	msg, _ := p.Message.Message()
	conn := try.To1(p.Exchange.Connection())
	if conn.State() == pairwise.StateInvitation {
		their, endpoint := try.To2(prot.TheirDID(ctx, p.Wallet, p.Message.SenderDID()))
		conn.SetTheirDID(their)
		if endpoint != "" {
			conn.SetTheirEndpoint(endpoint)
		}
		try.To(activate(p, conn))
	}

	if requested, ok := msg.Body["response_requested"].(bool); !ok || requested {
		resp := didcomm.NewMessage(pltype.TrustPingResponseV2)
		resp.Thid = msg.ID
		try.To1(p.Reply(ctx, resp))
	}
	return p.Complete()
}

func handleResponse(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle ping response")

	conn := try.To1(p.Exchange.Connection())
	if sender := p.Message.SenderDID(); sender != "" && sender != conn.TheirDID().URI() {
		their, _ := try.To2(prot.TheirDID(ctx, p.Wallet, sender))
		conn.SetTheirDID(their)
	}
	if conn.State() != pairwise.StateActive {
		try.To(activate(p, conn))
	}
	return p.Complete()
}

// activate moves the connection to ACTIVE and the invitation of the
// exchange to done.
func activate(p prot.Packet, conn *pairwise.Connection) (err error) {
	defer err2.Handle(&err, "activate")

	conn.SetState(pairwise.StateActive)
	try.To(p.Wallet.SaveConnection(conn))
	if inv := p.Exchange.Invitation(); inv != nil {
		try.To(inv.SetState(oob.StateReceive))
		try.To(inv.SetState(oob.StateDone))
	}
	glog.V(1).Infoln("connection active:", conn.ShortString())
	return nil
}

func handleLegacyPing(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle legacy ping")

	var ping Legacy
	try.To(json.Unmarshal([]byte(p.Message.BodyJSON()), &ping))
	conn := try.To1(p.Exchange.Connection())
	if conn.State() == pairwise.StateInvitation {
		if ping.Service == nil || len(ping.Service.RecipientKeys) != 1 {
			return ErrNoService
		}
		pk := try.To1(base58.Decode(ping.Service.RecipientKeys[0]))
		their := try.To1(method.SelfCertified(method.DIDKey(method.Ed25519Codec, pk)))
		conn.SetTheirDID(their)
		conn.SetTheirEndpoint(ping.Service.ServiceEndpoint)
		try.To(activate(p, conn))
	}
	if ping.ResponseRequested == nil || *ping.ResponseRequested {
		resp := Legacy{
			Type:   pltype.TrustPingResponseV1,
			ID:     utils.UUID(),
			Thread: &decorator.Thread{ID: ping.ID},
		}
		try.To1(prot.SendLegacy(ctx, p.Out, p.Wallet, p.Exchange, try.To1(json.Marshal(resp))))
	}
	return p.Complete()
}

func handleLegacyResponse(_ context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle legacy ping response")

	glog.V(3).Infoln("legacy ping response, thread", p.Message.Thid())
	conn := try.To1(p.Exchange.Connection())
	if conn.State() != pairwise.StateActive {
		try.To(activate(p, conn))
	}
	return p.Complete()
}
