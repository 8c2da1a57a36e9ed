package sec2

import (
	"context"
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/packager"
	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/agent/storage/mgddb"
	"github.com/findy-network/findy-didcomm/agent/vdr"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/hyperledger/aries-framework-go/pkg/kms"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

type testWallet struct {
	storage *mgddb.Storage
	pipe    *Pipe
	keys    *method.Keys
}

var alice, bob *testWallet

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

	alice = newTestWallet("sec2_alice")
	bob = newTestWallet("sec2_bob")
}

func tearDown() {
	for _, w := range []*testWallet{alice, bob} {
		try.To(w.storage.Close())
	}
	os.RemoveAll("sec2_alice.bolt")
	os.RemoveAll("sec2_bob.bolt")
}

func newTestWallet(name string) *testWallet {
	s := try.To1(mgddb.New(api.AgentStorageConfig{
		AgentKey: mgddb.GenerateKey(),
		AgentID:  name,
		FilePath: ".",
	}))
	v := try.To1(vdr.New(s))
	keys := try.To1(method.NewPeer(s.KMS(), "http://localhost:8080/"+name))
	try.To(s.SaveKeys(keys))
	return &testWallet{
		storage: s,
		keys:    keys,
		pipe: &Pipe{
			Docs:    v,
			Secrets: s.KeyStorage(),
			Pckr:    try.To1(packager.New(s, v.Registry())),
		},
	}
}

func (w *testWallet) did() string {
	return w.keys.DID.URI()
}

func pingMsg(from, to string) *didcomm.Message {
	msg := didcomm.NewMessage("https://didcomm.org/trust-ping/2.0/ping")
	msg.From = from
	msg.To = []string{to}
	msg.Body["response_requested"] = true
	return msg
}

func TestPackPlaintext(t *testing.T) {
	msg := pingMsg(alice.did(), bob.did())
	msg.Typ = ""

	got, meta, err := bob.pipe.Unpack(context.Background(), alice.pipe.PackPlaintext(msg))
	require.NoError(t, err)
	require.Equal(t, didcomm.MediaTypePlain, got.Typ)
	require.Equal(t, msg.ID, got.ID)
	require.Equal(t, Metadata{}, *meta)
}

func TestSignedRoundTrip(t *testing.T) {
	ctx := context.Background()
	msg := pingMsg(alice.did(), bob.did())

	packed, err := alice.pipe.PackSigned(ctx, msg, alice.did())
	require.NoError(t, err)

	got, meta, err := bob.pipe.Unpack(ctx, packed)
	require.NoError(t, err)
	require.Equal(t, msg.ID, got.ID)
	require.Equal(t, msg.Type, got.Type)
	require.True(t, meta.NonRepudiation)
	require.True(t, meta.Authenticated)
	require.False(t, meta.Encrypted)
	require.Equal(t, alice.did()+"#key-2", meta.SignFrom)
}

func TestSignedTampered(t *testing.T) {
	ctx := context.Background()
	packed, err := alice.pipe.PackSigned(ctx, pingMsg(alice.did(), bob.did()), alice.did())
	require.NoError(t, err)

	other, err := alice.pipe.PackSigned(ctx, pingMsg(alice.did(), alice.did()), alice.did())
	require.NoError(t, err)

	// payload of one, signature of the other
	tampered := spliceSignature(t, packed, other)
	_, _, err = bob.pipe.Unpack(ctx, tampered)
	require.ErrorIs(t, err, ErrSignature)
}

func TestEncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts EncryptOptions
	}{
		{"authcrypt", EncryptOptions{From: alice.did()}},
		{"anoncrypt", EncryptOptions{}},
		{"anon flag", EncryptOptions{From: alice.did(), Anon: true}},
		{"sign then encrypt", EncryptOptions{From: alice.did(), SignFrom: alice.did()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := pingMsg(alice.did(), bob.did())
			packed, err := alice.pipe.PackEncrypted(ctx, msg, []string{bob.did()}, tt.opts)
			require.NoError(t, err)
			require.NotContains(t, string(packed), msg.ID)

			got, meta, err := bob.pipe.Unpack(ctx, packed)
			require.NoError(t, err)
			require.Equal(t, msg.ID, got.ID)
			require.True(t, meta.Encrypted)
			require.Equal(t, []string{bob.keys.AgreeDIDKey}, meta.EncryptedTo)

			anon := tt.opts.From == "" || tt.opts.Anon
			require.Equal(t, anon, meta.AnonymousSender)
			if !anon {
				require.Equal(t, alice.keys.AgreeDIDKey, meta.EncryptedFrom)
			}
			require.Equal(t, tt.opts.SignFrom != "", meta.NonRepudiation)
			require.Equal(t, !anon || tt.opts.SignFrom != "", meta.Authenticated)
		})
	}
}

func TestEncryptedSenderMismatch(t *testing.T) {
	ctx := context.Background()
	// authcrypted by alice but claims to be from bob
	msg := pingMsg(bob.did(), bob.did())
	packed, err := alice.pipe.PackEncrypted(ctx, msg, []string{bob.did()},
		EncryptOptions{From: alice.did()})
	require.NoError(t, err)

	_, _, err = bob.pipe.Unpack(ctx, packed)
	require.ErrorIs(t, err, ErrSender)
}

func TestEncryptedNoSenderKey(t *testing.T) {
	ctx := context.Background()
	_, err := alice.pipe.PackEncrypted(ctx, pingMsg(bob.did(), alice.did()),
		[]string{alice.did()}, EncryptOptions{From: bob.did()})
	require.ErrorIs(t, err, ErrNoAgreementKey)
}

func TestEncryptedCompactSerialization(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts EncryptOptions
	}{
		{"authcrypt", EncryptOptions{From: alice.did()}},
		{"anoncrypt", EncryptOptions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := pingMsg(alice.did(), bob.did())
			packed, err := alice.pipe.PackEncrypted(ctx, msg, []string{bob.did()}, tt.opts)
			require.NoError(t, err)
			require.Len(t, strings.Split(string(packed), "."), 5)

			s, err := shapeOf(packed)
			require.NoError(t, err)
			require.Equal(t, shapeEncrypted, s)

			h, ok := compactHeader(packed)
			require.True(t, ok)
			require.Equal(t, tt.opts.From != "", h.SKID != "")

			kids, err := EncryptedRecipients(packed)
			require.NoError(t, err)
			require.Equal(t, []string{bob.keys.AgreeDIDKey}, kids)

			got, meta, err := bob.pipe.Unpack(ctx, packed)
			require.NoError(t, err)
			require.Equal(t, msg.ID, got.ID)
			require.True(t, meta.Encrypted)
		})
	}
}

func TestEncryptedManyRecipients(t *testing.T) {
	ctx := context.Background()
	msg := pingMsg(alice.did(), bob.did())
	packed, err := alice.pipe.PackEncrypted(ctx, msg, []string{bob.did(), alice.did()},
		EncryptOptions{From: alice.did()})
	require.NoError(t, err)
	_, ok := compactHeader(packed)
	require.False(t, ok)

	kids, err := EncryptedRecipients(packed)
	require.NoError(t, err)
	require.Len(t, kids, 2)

	got, _, err := bob.pipe.Unpack(ctx, packed)
	require.NoError(t, err)
	require.Equal(t, msg.ID, got.ID)
}

func TestUnpackMalformed(t *testing.T) {
	ctx := context.Background()
	for _, data := range []string{
		"not an envelope",
		"a.b.c.d.e",
		"",
	} {
		_, _, err := bob.pipe.Unpack(ctx, []byte(data))
		require.ErrorIs(t, err, ErrEnvelope, data)
	}
	kids, err := EncryptedRecipients([]byte(`{"id":"1","type":"x"}`))
	require.NoError(t, err)
	require.Nil(t, kids)
}

func TestLegacyRoundTrip(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	msg := []byte(`{"@id":"1","@type":"https://didcomm.org/trust_ping/1.0/ping"}`)
	packed, err := alice.pipe.PackLegacy(msg, alice.keys.DID.VerKey, bob.keys.DID.VerKey)
	assert.NoError(err)

	kids, err := LegacyRecipients(packed)
	assert.NoError(err)
	assert.DeepEqual(kids, []string{bob.keys.DID.VerKey})

	res, err := bob.pipe.UnpackLegacy(packed)
	assert.NoError(err)
	assert.NotNil(res)
	assert.Equal(string(res.Message), string(msg))
	assert.Equal(res.SenderVerkey, alice.keys.DID.VerKey)
	assert.Equal(res.RecipientVerkey, bob.keys.DID.VerKey)
	assert.Equal(res.RecipientKMSKID, bob.keys.SignKID)
}

func TestLegacyUnknownRecipient(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	// key exists in the KMS but isn't indexed as ours
	_, pub, err := bob.storage.KMS().CreateAndExportPubKeyBytes(kms.ED25519Type)
	assert.NoError(err)

	packed, err := alice.pipe.PackLegacy([]byte(`{}`), alice.keys.DID.VerKey, base58.Encode(pub))
	assert.NoError(err)

	res, err := bob.pipe.UnpackLegacy(packed)
	assert.NoError(err)
	assert.That(res == nil)
}
