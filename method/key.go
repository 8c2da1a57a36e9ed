package method

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	cryptoapi "github.com/hyperledger/aries-framework-go/pkg/crypto"
	"github.com/hyperledger/aries-framework-go/pkg/doc/util/kmsdidkey"
	"github.com/hyperledger/aries-framework-go/pkg/kms"
	"github.com/hyperledger/aries-framework-go/pkg/vdr/fingerprint"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"
)

// multicodec prefixes for the public keys we handle
const (
	X25519Codec  = 0xec
	Ed25519Codec = 0xed
)

// Keys is the result of DID creation. Besides the DID it has the KMS key IDs
// the caller needs to save for the secret resolver.
type Keys struct {
	DID DID

	SignKID     string // KMS kid of the Ed25519 key
	SignPub     []byte
	AgreeKID    string // KMS kid of the X25519 key, empty for did:key
	AgreePub    []byte
	AgreeDIDKey string // X25519 key as did:key for the aries packers
}

// NewKey creates a new did:key with a fresh Ed25519 key from the KMS.
func NewKey(keys kms.KeyManager) (k *Keys, err error) {
	defer err2.Handle(&err, "new did:key")

	kid, pk := try.To2(keys.CreateAndExportPubKeyBytes(kms.ED25519Type))
	didKey, _ := fingerprint.CreateDIDKey(pk)
	_, id, _ := Parse(didKey)

	return &Keys{
		DID:     DID{Method: Key, ID: id, VerKey: base58.Encode(pk)},
		SignKID: kid,
		SignPub: pk,
	}, nil
}

// NewAgreementKey creates a X25519 key for ECDH key agreement. pub is the raw
// key and didKey is the key as a did:key like the aries packers want it.
func NewAgreementKey(keys kms.KeyManager) (kid string, pub []byte, didKey string, err error) {
	defer err2.Handle(&err, "new agreement key")

	kid, pubJSON := try.To2(keys.CreateAndExportPubKeyBytes(kms.X25519ECDHKWType))
	didKey = try.To1(kmsdidkey.BuildDIDKeyByKeyType(pubJSON, kms.X25519ECDHKWType))

	var pk cryptoapi.PublicKey
	try.To(json.Unmarshal(pubJSON, &pk))
	return kid, pk.X, didKey, nil
}

// DIDKey returns raw public key as did:key with the given multicodec.
func DIDKey(codec uint64, pub []byte) string {
	return "did:key:" + fingerprint.KeyFingerprint(codec, pub)
}

// X25519DIDKey returns X25519 public key as did:key.
func X25519DIDKey(pub []byte) string {
	return DIDKey(X25519Codec, pub)
}

// KeyPubKey returns the raw Ed25519 public key of the did:key.
func KeyPubKey(uri string) (pk []byte, err error) {
	defer err2.Handle(&err, "did:key pubkey")

	_, id, ok := Parse(uri)
	if !ok || String(uri) != Key.String() {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, uri)
	}
	codec, pk := try.To2(DecodeFingerprint(id))
	if codec != Ed25519Codec {
		return nil, fmt.Errorf("%w: did:key codec %#x isn't Ed25519", ErrMalformed, codec)
	}
	return pk, nil
}

// DecodeFingerprint decodes the multibase, multicodec prefixed key, e.g. the
// method specific ID of the did:key.
func DecodeFingerprint(fp string) (codec uint64, pk []byte, err error) {
	defer err2.Handle(&err, "decode fingerprint")

	_, data := try.To2(multibase.Decode(strings.TrimSpace(fp)))
	codec, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, fmt.Errorf("%w: bad multicodec prefix", ErrMalformed)
	}
	return codec, data[n:], nil
}
