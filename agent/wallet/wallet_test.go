package wallet

import (
	"flag"
	"os"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/agent/storage/mgddb"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/lainio/err2/try"
	"github.com/stretchr/testify/require"
)

var testConfigs = []Config{
	{
		Name:     "alice",
		Endpoint: "http://localhost:9000/alice",
		Storage: api.AgentStorageConfig{
			AgentKey: mgddb.GenerateKey(),
			AgentID:  "wallet_test_alice",
			FilePath: ".",
		},
	},
	{
		Name:      "bob",
		AgentType: pairwise.AgentAcaPy,
		Endpoint:  "http://localhost:9000/bob",
		Storage: api.AgentStorageConfig{
			AgentKey: mgddb.GenerateKey(),
			AgentID:  "wallet_test_bob",
			FilePath: ".",
		},
	},
}

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("v", "3"))
	flag.Parse()
	code := m.Run()
	for _, c := range testConfigs {
		os.RemoveAll(c.Storage.AgentID + ".bolt")
	}
	os.Exit(code)
}

func TestWalletDIDsAndConnections(t *testing.T) {
	w, err := Open(testConfigs[0])
	require.NoError(t, err)
	require.Equal(t, pairwise.AgentNessus, w.AgentType())

	peerDID, err := w.CreateDID(method.Peer)
	require.NoError(t, err)
	keyDID, err := w.CreateDID(method.Key)
	require.NoError(t, err)
	_, err = w.CreateDID(method.Sov)
	require.Error(t, err)

	require.True(t, w.HasKey(peerDID.VerKey))
	got, ok := w.FindDID(peerDID.URI() + "#key-2")
	require.True(t, ok)
	require.True(t, got.Equal(peerDID))
	got, ok = w.FindDID(keyDID.VerKey)
	require.True(t, ok)
	require.True(t, got.Equal(keyDID))
	_, ok = w.FindDID("did:key:unknown")
	require.False(t, ok)

	conn := pairwise.New(pairwise.Info{
		ID:    "c1",
		MyDID: peerDID,
		State: pairwise.StateInvitation,
	})
	require.NoError(t, w.AddConnection(conn))
	conn.SetState(pairwise.StateActive)
	require.NoError(t, w.SaveConnection(conn))
	require.NoError(t, w.Close())

	w, err = Open(testConfigs[0])
	require.NoError(t, err)
	defer func() { require.NoError(t, w.Close()) }()

	restored, ok := w.Connection("c1")
	require.True(t, ok)
	require.Equal(t, pairwise.StateActive, restored.State())
	require.True(t, restored.MyDID().Equal(peerDID))

	found, ok := w.FindConnection(func(c *pairwise.Connection) bool {
		return c.MyVerkey() == peerDID.VerKey
	})
	require.True(t, ok)
	require.Equal(t, "c1", found.ID())
	require.Len(t, w.Connections(), 1)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var dids []method.DID
	for _, c := range testConfigs {
		w, err := Open(c)
		require.NoError(t, err)
		r.Add(w)
		did, err := w.CreateDID(method.Peer)
		require.NoError(t, err)
		dids = append(dids, did)
	}
	defer func() { require.NoError(t, r.CloseAll()) }()

	all := r.All()
	require.Len(t, all, 2)
	require.Equal(t, "alice", all[0].Name())

	w, ok := r.FindByKey(dids[1].VerKey)
	require.True(t, ok)
	require.Equal(t, "bob", w.Name())
	require.Equal(t, pairwise.AgentAcaPy, w.AgentType())

	w, ok = r.FindByDID(dids[0].URI())
	require.True(t, ok)
	require.Equal(t, "alice", w.Name())

	_, ok = r.FindByKey("nope")
	require.False(t, ok)
}
