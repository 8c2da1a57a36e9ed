// Package sec2 packs and unpacks DIDComm envelopes: plaintext, signed JWS,
// encrypted JWE (authcrypt and anoncrypt) and the legacy RFC0019 envelope.
// Keys are found through the DocResolver for the other party and through the
// SecretResolver for our own private keys.
package sec2

import (
	"context"
	"errors"

	"github.com/findy-network/findy-didcomm/std/diddoc"
	cryptoapi "github.com/hyperledger/aries-framework-go/pkg/crypto"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-framework-go/pkg/kms"
)

var (
	ErrNoAgreementKey = errors.New("no key agreement key")
	ErrNoSigningKey   = errors.New("no signing key")
	ErrSignature      = errors.New("signature verification failed")
	ErrSender         = errors.New("sender key doesn't belong to from")
	ErrEnvelope       = errors.New("malformed envelope")
)

// DocResolver resolves the DID documents and the verification methods.
type DocResolver interface {
	ResolveDoc(ctx context.Context, did string) (diddoc.Doc, error)
	ResolveKey(ctx context.Context, kid string) (did string, vm diddoc.VerificationMethod, err error)
}

// SecretResolver maps the public key IDs to the KMS key IDs of our private
// keys.
type SecretResolver interface {
	FindKey(kid string) (kmsKID string, err error)
	HasKey(kid string) bool
}

// Packager is the aries packager with the KMS it uses.
type Packager interface {
	PackMessage(envelope *transport.Envelope) ([]byte, error)
	UnpackMessage(encMessage []byte) (*transport.Envelope, error)
	KMS() kms.KeyManager
	Crypto() cryptoapi.Crypto
}

// Pipe is the envelope crypto of one wallet.
type Pipe struct {
	Docs    DocResolver
	Secrets SecretResolver
	Pckr    Packager
}

// Metadata tells how the unpacked message was protected. Key IDs are DID URLs
// or did:keys.
type Metadata struct {
	Encrypted       bool
	Authenticated   bool
	NonRepudiation  bool
	AnonymousSender bool

	EncryptedTo   []string
	EncryptedFrom string
	SignFrom      string
}

// EncryptOptions select the sender of PackEncrypted. Without From or with
// Anon set the message is anoncrypted. SignFrom signs the message before
// encryption.
type EncryptOptions struct {
	From     string
	SignFrom string
	Anon     bool
}
