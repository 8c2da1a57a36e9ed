package method

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func TestMethodString(t *testing.T) {
	tests := []struct {
		did, method string
	}{
		{did: "did:key:z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso", method: "key"},
		{did: "did:key:z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso#", method: "key"},
		{did: "did:key:z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso:test#", method: "key"},
		{did: "did:sov:z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso", method: "sov"},
		{did: "did:indy:z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso", method: "indy"},
		{did: "z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso", method: ""},
	}

	for i, tt := range tests {
		name := fmt.Sprintf("test_%d", i)
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.method, String(tt.did))
		})
	}
}

func TestNumAlgo(t *testing.T) {
	tests := []struct {
		uri     string
		numalgo int
		err     error
	}{
		{uri: "did:peer:0z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso", numalgo: 0},
		{uri: "did:peer:2.Ez6LSbysY2xFMRpGMhb7tFTLMpeuPRaqaWM1yECx2AtzE3KCc", numalgo: 2},
		{uri: "did:peer:1zQmZMygzYqNwU6Uhmewx5Xepf2VLp5S4HLSwwgf2aiKZuwa", err: ErrNumAlgo},
		{uri: "did:key:z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso", err: ErrNotPeer},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			n, err := NumAlgo(tt.uri)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.numalgo, n)
		})
	}
}

func TestDID_NumAlgo(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	d := DID{Method: Key, ID: "z6Mkj5J66HkkrfSH2Ld63zvBbnEvDSk5E3cfhKRt7213Reso"}
	_, err := d.NumAlgo()
	assert.That(errors.Is(err, ErrNotPeer))

	d = DID{Method: Peer, ID: "2.Ez6LSbysY2xFMRpGMhb7tFTLMpeuPRaqaWM1yECx2AtzE3KCc"}
	n, err := d.NumAlgo()
	assert.NoError(err)
	assert.Equal(n, 2)
}

func TestDID_Equal(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	a := New(Sov, "did:sov:Th7MpTaRZVRYnPiabds81Y", "FYmoFw55GeQH7SRFa37dkx1d2dZ3zUF8ckg7wmL7ofN4")
	b := DID{Method: Sov, ID: "Th7MpTaRZVRYnPiabds81Y", VerKey: "FYmoFw55GeQH7SRFa37dkx1d2dZ3zUF8ckg7wmL7ofN4"}
	c := DID{Method: Sov, ID: "Th7MpTaRZVRYnPiabds81Y", VerKey: "other"}

	assert.That(a.Equal(b))
	assert.That(a == b)
	assert.That(!a.Equal(c))
	assert.Equal(a.URI(), "did:sov:Th7MpTaRZVRYnPiabds81Y")
}

type stubResolver struct {
	dids map[string]DID
}

func (r stubResolver) ResolveDID(_ context.Context, uri string) (*DID, error) {
	d, ok := r.dids[uri]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func TestFromURI(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	ctx := context.Background()
	known := DID{Method: Sov, ID: "Th7MpTaRZVRYnPiabds81Y", VerKey: "FYmoFw55GeQH7SRFa37dkx1d2dZ3zUF8ckg7wmL7ofN4"}
	r := stubResolver{dids: map[string]DID{known.URI(): known}}

	d, err := FromURI(ctx, known.URI(), nil, known.VerKey)
	assert.NoError(err)
	assert.That(d.Equal(known))

	d, err = FromURI(ctx, known.URI(), r)
	assert.NoError(err)
	assert.That(d.Equal(known))

	_, err = FromURI(ctx, "did:sov:unknown", r)
	assert.That(errors.Is(err, ErrNotResolved))

	_, err = FromURI(ctx, "not-a-did", r)
	assert.That(errors.Is(err, ErrMalformed))
}

func TestPeer2RoundTrip(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	authPub, _, err := ed25519.GenerateKey(rand.Reader)
	assert.NoError(err)
	agreePub := make([]byte, 32)
	_, err = rand.Read(agreePub)
	assert.NoError(err)

	uri, err := EncodePeer2(agreePub, authPub, &PeerService{
		Type:     "dm",
		Endpoint: "http://localhost:8080/a2a",
		Accept:   []string{"didcomm/v2"},
	})
	assert.NoError(err)

	p, err := ParsePeer(uri)
	assert.NoError(err)
	assert.Equal(p.NumAlgo, 2)
	assert.SLen(p.Agreement, 1)
	assert.SLen(p.Auth, 1)
	assert.DeepEqual(p.Agreement[0], agreePub)
	assert.DeepEqual([]byte(p.Auth[0]), []byte(authPub))
	assert.SLen(p.Services, 1)
	assert.Equal(p.Services[0].Endpoint, "http://localhost:8080/a2a")
	assert.Equal(p.Services[0].Type, "DIDCommMessaging")

	d, err := SelfCertified(uri)
	assert.NoError(err)
	assert.Equal(d.Method, Peer)
	assert.Equal(d.VerKey, base58.Encode(authPub))
	assert.Equal(d.URI(), uri)
}

func TestPeer0AndKey(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	authPub, _, err := ed25519.GenerateKey(rand.Reader)
	assert.NoError(err)

	p, err := ParsePeer(EncodePeer0(authPub))
	assert.NoError(err)
	assert.Equal(p.NumAlgo, 0)
	assert.DeepEqual(p.Auth[0], []byte(authPub))

	didKey := DIDKey(Ed25519Codec, authPub)
	pk, err := KeyPubKey(didKey)
	assert.NoError(err)
	assert.DeepEqual(pk, []byte(authPub))

	_, err = KeyPubKey(X25519DIDKey(authPub))
	assert.Error(err)

	d, err := SelfCertified(didKey + "#key-1")
	assert.NoError(err)
	assert.Equal(d.Method, Key)
	assert.Equal(d.VerKey, base58.Encode(authPub))
}
