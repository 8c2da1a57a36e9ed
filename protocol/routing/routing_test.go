package routing

import (
	"context"
	"errors"
	"flag"
	"os"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/comm"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/findy-network/findy-didcomm/protocol/internal/agenttest"
	"github.com/findy-network/findy-didcomm/protocol/trustping"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
)

var (
	network  *agenttest.Network
	alice    *agenttest.Agent
	bob      *agenttest.Agent
	mediator *agenttest.Agent
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("v", "3"))

	network = agenttest.NewNetwork()
	alice = network.MustAdd("routing_alice")
	bob = network.MustAdd("routing_bob")
	mediator = network.MustAdd("routing_mediator")
	code := m.Run()
	network.Close()
	os.Exit(code)
}

// TestForward pings bob through the mediator, bob's endpoint is the DID of
// the mediator.
func TestForward(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	mediatorDID, err := mediator.Wallet.CreateDID(method.Peer)
	assert.NoError(err)
	ab, ba, err := agenttest.Connect(alice, bob)
	assert.NoError(err)
	ab.SetTheirEndpoint(mediatorDID.URI())

	// the mediator knows bob by the DID of his connection to alice
	bobsDID := ba.MyDID()
	assert.NoError(mediator.Wallet.AddConnection(pairwise.New(pairwise.Info{
		ID:            "routing-bob",
		MyDID:         mediatorDID,
		TheirDID:      &bobsDID,
		TheirEndpoint: bob.Endpoint(),
		State:         pairwise.StateActive,
	})))

	ex, err := alice.Exchange(ab)
	assert.NoError(err)
	resp, err := trustping.Ping(context.Background(), alice.Out, alice.Wallet, ex)
	assert.NoError(err)
	assert.Equal(resp.Type(), pltype.TrustPingResponseV2)
	assert.Equal(resp.SenderDID(), ba.MyDID().URI())

	bobEx, ok := bob.Exchanges.FindByConnectionID(ba.ID())
	assert.That(ok)
	assert.Equal(bobEx.Messages()[0].Type(), pltype.TrustPingV2)
	assert.Equal(mediator.Exchanges.Len(), 0)
}

func TestNextHop(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	bobDID, err := bob.Wallet.CreateDID(method.Peer)
	assert.NoError(err)

	// bob's DID document has an endpoint, but without a connection there's
	// no route
	_, err = NextHop(mediator.Wallets, bobDID.URI())
	assert.That(errors.Is(err, comm.ErrAmbiguousRoute))

	myDID, err := mediator.Wallet.CreateDID(method.Peer)
	assert.NoError(err)
	conn := pairwise.New(pairwise.Info{
		ID:       "routing-" + bobDID.ID[:12],
		MyDID:    myDID,
		TheirDID: &bobDID,
		State:    pairwise.StateActive,
	})
	assert.NoError(mediator.Wallet.AddConnection(conn))
	_, err = NextHop(mediator.Wallets, bobDID.URI())
	assert.That(errors.Is(err, comm.ErrNoURL))

	conn.SetTheirEndpoint("http://agenttest/elsewhere")
	hop, err := NextHop(mediator.Wallets, bobDID.URI())
	assert.NoError(err)
	assert.Equal(hop.Conn.TheirEndpoint(), "http://agenttest/elsewhere")
	assert.Equal(hop.Wallet.Name(), mediator.Wallet.Name())

	other := pairwise.New(pairwise.Info{
		ID:            "routing-other-" + bobDID.ID[:12],
		MyDID:         myDID,
		TheirDID:      &bobDID,
		TheirEndpoint: "http://agenttest/other",
		State:         pairwise.StateActive,
	})
	assert.NoError(mediator.Wallet.AddConnection(other))
	_, err = NextHop(mediator.Wallets, bobDID.URI())
	assert.That(errors.Is(err, comm.ErrAmbiguousRoute))

	_, err = NextHop(nil, bobDID.URI())
	assert.That(errors.Is(err, comm.ErrNoWallet))
}
