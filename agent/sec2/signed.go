package sec2

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/std/diddoc"
	"github.com/go-jose/go-jose/v3"
	"github.com/golang/glog"
	cryptoapi "github.com/hyperledger/aries-framework-go/pkg/crypto"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// kmsSigner signs with the private Ed25519 key which never leaves the KMS.
type kmsSigner struct {
	crypto cryptoapi.Crypto
	kh     any
	pub    ed25519.PublicKey
	kid    string
}

func (s *kmsSigner) Public() *jose.JSONWebKey {
	return &jose.JSONWebKey{Key: s.pub, KeyID: s.kid, Algorithm: string(jose.EdDSA)}
}

func (s *kmsSigner) Algs() []jose.SignatureAlgorithm {
	return []jose.SignatureAlgorithm{jose.EdDSA}
}

func (s *kmsSigner) SignPayload(payload []byte, _ jose.SignatureAlgorithm) ([]byte, error) {
	return s.crypto.Sign(payload, s.kh)
}

// PackPlaintext returns the message as plaintext JSON.
func (p *Pipe) PackPlaintext(msg *didcomm.Message) []byte {
	msg.Typ = didcomm.MediaTypePlain
	return msg.JSON()
}

// PackSigned signs the plaintext message as flattened JWS. signFrom is a DID
// or a key ID, with a DID its first authentication key is used.
func (p *Pipe) PackSigned(ctx context.Context, msg *didcomm.Message, signFrom string) (_ []byte, err error) {
	defer err2.Handle(&err, "pack signed")
	defer err2.Handle(&err, func(err error) error {
		glog.Errorln("pack signed:", err)
		return err
	})

	signer := try.To1(p.signer(ctx, signFrom))
	opts := (&jose.SignerOptions{}).WithType(didcomm.MediaTypeSigned)
	js := try.To1(jose.NewSigner(jose.SigningKey{Algorithm: jose.EdDSA, Key: signer}, opts))

	jws := try.To1(js.Sign(p.PackPlaintext(msg)))
	return []byte(jws.FullSerialize()), nil
}

func (p *Pipe) signer(ctx context.Context, signFrom string) (_ *kmsSigner, err error) {
	defer err2.Handle(&err, "signer %s", signFrom)

	kid := signFrom
	if !strings.Contains(signFrom, "#") {
		d := try.To1(p.Docs.ResolveDoc(ctx, signFrom))
		auth := d.Authentication()
		if len(auth) == 0 {
			return nil, ErrNoSigningKey
		}
		kid = auth[0].ID
	}
	_, vm := try.To2(p.Docs.ResolveKey(ctx, kid))
	pub := try.To1(vm.Material.RawKey())

	kmsKID, err := p.Secrets.FindKey(vm.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSigningKey, err)
	}
	return &kmsSigner{
		crypto: p.Pckr.Crypto(),
		kh:     try.To1(p.Pckr.KMS().Get(kmsKID)),
		pub:    pub,
		kid:    vm.ID,
	}, nil
}

func (p *Pipe) unpackSigned(ctx context.Context, data []byte, meta *Metadata) (_ []byte, err error) {
	defer err2.Handle(&err, "unpack signed")

	jws := try.To1(jose.ParseSigned(string(data)))
	if len(jws.Signatures) == 0 {
		return nil, ErrEnvelope
	}
	kid := jws.Signatures[0].Header.KeyID
	_, vm := try.To2(p.Docs.ResolveKey(ctx, kid))
	if vm.Type == diddoc.X25519KeyAgreementKey2019 || vm.Type == diddoc.X25519KeyAgreementKey2020 {
		return nil, fmt.Errorf("%w: %s isn't a signing key", ErrSignature, kid)
	}
	pub := ed25519.PublicKey(try.To1(vm.Material.RawKey()))

	_, _, payload, err := jws.VerifyMulti(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	meta.Authenticated = true
	meta.NonRepudiation = true
	meta.SignFrom = kid
	return payload, nil
}
