// Package routing implements the mediator side of the routing/2.0 protocol:
// the forward messages are unwrapped and their payloads delivered to the
// next hop.
package routing

import (
	"context"
	"fmt"

	"github.com/findy-network/findy-didcomm/agent/comm"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/std/common"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var routingProc = prot.Proc{
	URI: pltype.ProtocolRoutingV2,
	Handlers: map[string]prot.HandlerFunc{
		pltype.RoutingForward: handleForward,
	},
}

func init() {
	prot.AddProc(routingProc)
}

// handleForward has no exchange, forwards aren't part of any conversation
// of the mediator.
func handleForward(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "forward")

	msg, ok := p.Message.Message()
	if !ok {
		return fmt.Errorf("%w: not a message", common.ErrForward)
	}
	next, packed := try.To2(common.ForwardOf(msg))
	hop := try.To1(NextHop(p.Wallets, next))
	glog.V(3).Infof("wallet %s forwards %s to %s of wallet %s",
		p.Wallet.Name(), msg.ID, hop.Conn.TheirEndpoint(), hop.Wallet.Name())
	return comm.Redeliver(ctx, hop.Conn.TheirEndpoint(), packed)
}

// NextHop returns the only connection, over all the wallets we serve, whose
// other end is the next. No candidates or several of them are both
// ErrAmbiguousRoute, and the connection must have an endpoint.
func NextHop(wallets *wallet.Registry, next string) (hop wallet.Candidate, err error) {
	defer err2.Handle(&err, "next hop %s", next)

	if wallets == nil {
		return hop, comm.ErrNoWallet
	}
	found := wallets.FindConnections(func(c *pairwise.Connection) bool {
		return c.HasTheirDID() && c.TheirDID().URI() == next
	})
	if len(found) != 1 {
		return hop, fmt.Errorf("%w: %d connections", comm.ErrAmbiguousRoute, len(found))
	}
	hop = found[0]
	if hop.Conn.TheirEndpoint() == "" {
		return hop, fmt.Errorf("%w: connection %s", comm.ErrNoURL, hop.Conn.ID())
	}
	return hop, nil
}
