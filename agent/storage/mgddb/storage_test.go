package mgddb

import (
	"errors"
	"flag"
	"os"
	"sync"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/hyperledger/aries-framework-go/pkg/kms"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/stretchr/testify/require"
)

var (
	testConfig = api.AgentStorageConfig{
		AgentKey: GenerateKey(),
		AgentID:  "mgddb_test",
		FilePath: ".",
	}
	testStorage *Storage
)

func TestMain(m *testing.M) {
	setUp()
	code := m.Run()
	tearDown()
	os.Exit(code)
}

func setUp() {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("stderrthreshold", "WARNING"))
	try.To(flag.Set("v", "10"))
	flag.Parse()

	testStorage = try.To1(New(testConfig))
}

func tearDown() {
	try.To(testStorage.Close())
	os.RemoveAll(testConfig.AgentID + ".bolt")
}

func TestGenerateKey(t *testing.T) {
	k1, k2 := GenerateKey(), GenerateKey()
	require.Len(t, k1, 64)
	require.NotEqual(t, k1, k2)
}

func TestKMSReopen(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	keys := testStorage.KMS()
	kid, pub, err := keys.CreateAndExportPubKeyBytes(kms.ED25519Type)
	assert.NoError(err)
	assert.NotEmpty(kid)

	assert.NoError(testStorage.Close())
	assert.NoError(testStorage.Open())

	got, kt, err := testStorage.KMS().ExportPubKeyBytes(kid)
	assert.NoError(err)
	assert.DeepEqual(pub, got)
	assert.Equal(kt, kms.ED25519Type)
}

func TestConcurrentOpen(t *testing.T) {
	require.NoError(t, testStorage.Close())

	wg := &sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			require.NoError(t, testStorage.Open())
			keyID, keyBytes, err := testStorage.KMS().CreateAndExportPubKeyBytes(kms.ED25519Type)
			require.NoError(t, err)
			require.NotEmpty(t, keyID)
			require.NotEmpty(t, keyBytes)
		}()
	}
	wg.Wait()
}

func TestDIDStorage(t *testing.T) {
	did := api.DID{
		DID:      "did:key:z6MkrmNwty5ajKtFqc1U48oL2MMLjWjartwc5sf2AihZwXDN",
		VerKey:   "DQuCkVNn6Du5nRU2AWsJTfknmM8TtUU8GfCxoS8wTFBk",
		SignKID:  "kid1",
		AgreeKID: "",
	}
	s := testStorage.DIDStorage()

	require.NoError(t, s.SaveDID(did))
	got, err := s.GetDID(did.DID)
	require.NoError(t, err)
	require.Equal(t, did, *got)

	list, err := s.ListDIDs()
	require.NoError(t, err)
	require.Contains(t, list, did)

	_, err = s.GetDID("did:key:unknown")
	require.True(t, errors.Is(err, api.ErrNotFound))
}

func TestConnectionStorage(t *testing.T) {
	conn := api.Connection{
		ID:          "conn-id",
		State:       "COMPLETED",
		MyDID:       "did:peer:2.my",
		TheirDID:    "did:peer:2.their",
		TheirLabel:  "bob",
		TheirRoute:  []string{"did:key:route"},
		MyEndpoint:  "http://localhost:8080",
		TheirVerKey: "verkey",
	}
	s := testStorage.ConnectionStorage()

	require.NoError(t, s.SaveConnection(conn))
	got, err := s.GetConnection(conn.ID)
	require.NoError(t, err)
	require.Equal(t, conn, *got)

	conn.State = "DELETED"
	require.NoError(t, s.SaveConnection(conn))
	list, err := s.ListConnections()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "DELETED", list[0].State)

	_, err = s.GetConnection("nope")
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestDocStorage(t *testing.T) {
	doc := []byte(`{"id":"did:example:alice"}`)
	s := testStorage.DocStorage()

	require.NoError(t, s.SaveDoc("did:example:alice", doc))
	got, err := s.GetDoc("did:example:alice")
	require.NoError(t, err)
	require.JSONEq(t, string(doc), string(got))

	_, err = s.GetDoc("did:example:bob")
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestSaveKeys(t *testing.T) {
	keys, err := method.NewPeer(testStorage.KMS(), "http://localhost:8080")
	require.NoError(t, err)
	require.NoError(t, testStorage.SaveKeys(keys))

	uri := keys.DID.URI()
	ks := testStorage.KeyStorage()
	for kid, want := range map[string]string{
		keys.DID.VerKey:  keys.SignKID,
		uri + "#key-1":   keys.AgreeKID,
		uri + "#key-2":   keys.SignKID,
		keys.AgreeDIDKey: keys.AgreeKID,
		method.DIDKey(method.Ed25519Codec, keys.SignPub): keys.SignKID,
	} {
		got, err := ks.FindKey(kid)
		require.NoError(t, err, kid)
		require.Equal(t, want, got, kid)
	}
	require.False(t, ks.HasKey(uri+"#key-3"))

	did, err := testStorage.GetDID(uri)
	require.NoError(t, err)
	require.Equal(t, keys.AgreeKID, did.AgreeKID)
}
