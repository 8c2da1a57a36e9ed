package outofband

import (
	"context"
	"errors"
	"flag"
	"os"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/findy-network/findy-didcomm/protocol/internal/agenttest"
	"github.com/findy-network/findy-didcomm/protocol/trustping"
	"github.com/findy-network/findy-didcomm/std/oob"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/stretchr/testify/require"
)

var (
	network *agenttest.Network
	alice   *agenttest.Agent
	bob     *agenttest.Agent
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("v", "3"))

	network = agenttest.NewNetwork()
	alice = network.MustAdd("oob_alice")
	bob = network.MustAdd("oob_bob")
	code := m.Run()
	network.Close()
	os.Exit(code)
}

func TestConnect(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	aliceEx, inv, err := CreateInvitation(alice.Wallet, alice.Exchanges, Options{
		GoalCode: "connect",
		Goal:     "test",
	})
	assert.NoError(err)
	assert.That(inv.IsV2())
	assert.NoError(aliceEx.PlaceFuture(pltype.TrustPingV2))

	inviter, err := aliceEx.Connection()
	assert.NoError(err)
	assert.Equal(inviter.State(), pairwise.StateInvitation)
	assert.Equal(inviter.MyRole(), pairwise.RoleInviter)
	assert.Equal(inviter.MyDID().URI(), inv.From)
	assert.That(!inviter.HasTheirDID())

	received, err := Parse([]byte(URL(alice.Endpoint(), inv)))
	assert.NoError(err)
	assert.Equal(received.ID, inv.ID)
	assert.Equal(received.GoalCode, "connect")

	bobEx, err := ReceiveInvitation(ctx, bob.Out, bob.Wallet, bob.Exchanges, received, "Alice")
	assert.NoError(err)
	invitee, err := bobEx.Connection()
	assert.NoError(err)
	assert.Equal(invitee.State(), pairwise.StateInvitation)
	assert.Equal(invitee.MyRole(), pairwise.RoleInvitee)
	assert.Equal(invitee.TheirDID().URI(), inv.From)
	assert.Equal(invitee.TheirEndpoint(), alice.Endpoint())
	assert.Equal(invitee.Alias(), "Alice")
	assert.Equal(bobEx.Invitation().State(), oob.StateReceive)

	resp, err := trustping.Ping(ctx, bob.Out, bob.Wallet, bobEx)
	assert.NoError(err)
	assert.Equal(resp.Type(), pltype.TrustPingResponseV2)

	ping, err := aliceEx.AwaitDefault(ctx, pltype.TrustPingV2)
	assert.NoError(err)
	assert.Equal(ping.Thid(), inv.ID)

	assert.Equal(invitee.State(), pairwise.StateActive)
	assert.Equal(inviter.State(), pairwise.StateActive)
	assert.Equal(inviter.TheirDID().URI(), invitee.MyDID().URI())
	assert.Equal(inviter.TheirEndpoint(), bob.Endpoint())
	assert.Equal(aliceEx.Invitation().State(), oob.StateDone)
	assert.Equal(bobEx.Invitation().State(), oob.StateDone)
}

func TestConnect_Legacy(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	aliceEx, inv, err := CreateLegacyInvitation(alice.Wallet, alice.Exchanges, Options{})
	assert.NoError(err)
	assert.That(!inv.IsV2())
	assert.Equal(inv.Label, alice.Wallet.Name())

	received, err := Parse(inv.JSON())
	assert.NoError(err)
	bobEx, err := ReceiveInvitation(ctx, bob.Out, bob.Wallet, bob.Exchanges, received, "")
	assert.NoError(err)
	invitee, err := bobEx.Connection()
	assert.NoError(err)
	assert.That(invitee.Legacy())
	assert.Equal(invitee.Alias(), alice.Wallet.Name())
	assert.Equal(invitee.TheirVerkey(), inv.Key())

	resp, err := trustping.Ping(ctx, bob.Out, bob.Wallet, bobEx)
	assert.NoError(err)
	assert.Equal(resp.Type(), pltype.TrustPingResponseV1)
	assert.Equal(resp.MediaType(), didcomm.MediaTypeLegacy)

	inviter, err := aliceEx.Connection()
	assert.NoError(err)
	assert.Equal(inviter.State(), pairwise.StateActive)
	assert.Equal(inviter.TheirVerkey(), invitee.MyVerkey())
	assert.Equal(inviter.TheirEndpoint(), bob.Endpoint())
	assert.Equal(invitee.State(), pairwise.StateActive)
}

func TestCreateInvitation_OwnDID(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	did, err := alice.Wallet.CreateDID(method.Peer)
	assert.NoError(err)
	ex, inv, err := CreateInvitation(alice.Wallet, alice.Exchanges, Options{DID: &did})
	assert.NoError(err)
	assert.Equal(inv.From, did.URI())
	_, ok := alice.Exchanges.Get(ex.ID())
	assert.That(ok)

	notOurs, err := bob.Wallet.CreateDID(method.Peer)
	assert.NoError(err)
	_, _, err = CreateInvitation(alice.Wallet, alice.Exchanges, Options{DID: &notOurs})
	assert.That(err != nil)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no _oob", "http://example.org/invite?c_i=abc"},
		{"other type", `{"type":"https://didcomm.org/basicmessage/2.0/message","id":"1"}`},
		{"no type", `{"id":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.True(t, errors.Is(err, ErrNotInvitation))
		})
	}
}

func TestReceiveInvitation_Invalid(t *testing.T) {
	inv := oob.NewV1("label", "http://agenttest/nowhere", "")
	inv.Services[0].RecipientKeys = []string{"a", "b"}

	_, err := ReceiveInvitation(context.Background(), bob.Out, bob.Wallet, bob.Exchanges, inv, "")
	require.True(t, errors.Is(err, oob.ErrKeys))
}
