package reportproblem

import (
	"context"
	"flag"
	"os"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/protocol/internal/agenttest"
	"github.com/findy-network/findy-didcomm/std/common"
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
	alice = network.MustAdd("rp_alice")
	bob = network.MustAdd("rp_bob")
	code := m.Run()
	network.Close()
	os.Exit(code)
}

func TestReport(t *testing.T) {
	tests := []struct {
		name      string
		agentType pairwise.AgentType
		msgType   string
		comment   string
	}{
		{"v2", pairwise.AgentNessus, pltype.ProblemReport, "no {1}"},
		{"legacy", pairwise.AgentAcaPy, pltype.ProblemReportV1, "no endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab, ba, err := agenttest.ConnectAs(alice, bob, tt.agentType)
			require.NoError(t, err)
			ex, err := alice.Exchange(ab)
			require.NoError(t, err)
			bobEx, err := bob.Exchange(ba)
			require.NoError(t, err)
			require.NoError(t, bobEx.PlaceFuture(tt.msgType))

			ctx := context.Background()
			err = Report(ctx, alice.Out, alice.Wallet, ex, "thread-1", common.ProblemReport{
				Code:    "e.p.xfer.cant-use-endpoint",
				Comment: "no {1}",
				Args:    []string{"endpoint"},
			})
			require.NoError(t, err)

			_, err = bobEx.AwaitDefault(ctx, tt.msgType)
			require.NoError(t, err)

			problems := Problems(bobEx)
			require.Len(t, problems, 1)
			require.Equal(t, "e.p.xfer.cant-use-endpoint", problems[0].Code)
			require.Equal(t, "thread-1", problems[0].Thread)
			require.Equal(t, "no endpoint", problems[0].Description())
			require.True(t, problems[0].IsError())
		})
	}
}

func TestProblems_Empty(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ab, _, err := agenttest.Connect(alice, bob)
	assert.NoError(err)
	ex, err := alice.Exchange(ab)
	assert.NoError(err)
	assert.Equal(len(Problems(ex)), 0)
}
