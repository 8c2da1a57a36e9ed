package sec2

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/golang/glog"
	cryptoapi "github.com/hyperledger/aries-framework-go/pkg/crypto"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/transport"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// PackEncrypted encrypts the message to all key agreement keys of the
// recipient DIDs. With opts.From the sender is authenticated (ECDH-1PU),
// otherwise the message is anoncrypted (ECDH-ES).
func (p *Pipe) PackEncrypted(ctx context.Context, msg *didcomm.Message, to []string, opts EncryptOptions) (_ []byte, err error) {
	defer err2.Handle(&err, "pack encrypted")
	defer err2.Handle(&err, func(err error) error {
		glog.Errorln("pack encrypted:", err)
		return err
	})

	var payload []byte
	if opts.SignFrom != "" {
		payload = try.To1(p.PackSigned(ctx, msg, opts.SignFrom))
	} else {
		payload = p.PackPlaintext(msg)
	}

	toKeys := make([]string, 0, len(to))
	for _, did := range to {
		toKeys = append(toKeys, try.To1(p.agreementKeys(ctx, did))...)
	}

	var fromKey []byte
	if opts.From != "" && !opts.Anon {
		keys := try.To1(p.agreementKeys(ctx, opts.From))
		kmsKID, err := p.Secrets.FindKey(keys[0])
		if err != nil {
			return nil, fmt.Errorf("%w: sender %s: %v", ErrNoAgreementKey, opts.From, err)
		}
		fromKey = []byte(kmsKID + "." + keys[0])
	}

	return p.Pckr.PackMessage(&transport.Envelope{
		MediaTypeProfile: transport.MediaTypeV2EncryptedEnvelope,
		Message:          payload,
		FromKey:          fromKey,
		ToKeys:           toKeys,
	})
}

// agreementKeys returns the X25519 key agreement keys of the DID as did:keys
// which is the form the aries packers want.
func (p *Pipe) agreementKeys(ctx context.Context, did string) (keys []string, err error) {
	defer err2.Handle(&err, "agreement keys of %s", did)

	d := try.To1(p.Docs.ResolveDoc(ctx, did))
	for _, vm := range d.KeyAgreement() {
		pk := try.To1(vm.Material.RawKey())
		keys = append(keys, method.X25519DIDKey(pk))
	}
	if len(keys) == 0 {
		return nil, ErrNoAgreementKey
	}
	return keys, nil
}

func (p *Pipe) unpackEncrypted(data []byte, meta *Metadata) (_ []byte, err error) {
	defer err2.Handle(&err, "unpack encrypted")

	env := try.To1(p.Pckr.UnpackMessage(data))
	meta.Encrypted = true
	meta.EncryptedTo = []string{keyID(env.ToKey)}
	if len(env.FromKey) > 0 {
		meta.Authenticated = true
		meta.EncryptedFrom = keyID(env.FromKey)
	} else {
		meta.AnonymousSender = true
	}
	return env.Message, nil
}

// keyID returns the KID of the marshaled public key the v2 packers give.
func keyID(key []byte) string {
	var pk cryptoapi.PublicKey
	if err := json.Unmarshal(key, &pk); err == nil && pk.KID != "" {
		return pk.KID
	}
	return string(key)
}

// checkSender verifies that the authcrypt sender key is a key agreement key
// of the from DID of the message.
func (p *Pipe) checkSender(ctx context.Context, from string, meta *Metadata) (err error) {
	defer err2.Handle(&err, "check sender")

	if from == "" || meta.EncryptedFrom == "" {
		return nil
	}
	keys := try.To1(p.agreementKeys(ctx, from))
	for _, k := range keys {
		if k == meta.EncryptedFrom {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSender, from)
}

type jweRecipient struct {
	Header struct {
		KID string `json:"kid"`
	} `json:"header"`
}

type jweEnvelope struct {
	Recipients []jweRecipient `json:"recipients"`
	jweRecipient
}

// jweHeader is the protected header of the compact JWE. The single recipient
// is merged into it, and SKID is there only for authcrypt.
type jweHeader struct {
	Enc  string `json:"enc"`
	KID  string `json:"kid"`
	SKID string `json:"skid"`
}

// compactHeader parses the protected header of the compact serialized JWE,
// which the packers produce when there is only one recipient.
func compactHeader(data []byte) (h jweHeader, ok bool) {
	parts := bytes.Split(bytes.TrimSpace(data), []byte("."))
	if len(parts) != 5 {
		return h, false
	}
	protected, err := base64.RawURLEncoding.DecodeString(string(parts[0]))
	if err != nil {
		return h, false
	}
	if err := json.Unmarshal(protected, &h); err != nil || h.Enc == "" {
		return h, false
	}
	return h, true
}

// EncryptedRecipients returns the recipient key IDs of the JWE. The compact,
// the general and the flattened JSON serializations are accepted. Other
// envelopes return nil.
func EncryptedRecipients(packed []byte) (kids []string, err error) {
	defer err2.Handle(&err, "encrypted recipients")

	if try.To1(shapeOf(packed)) != shapeEncrypted {
		return nil, nil
	}
	if h, ok := compactHeader(packed); ok {
		if h.KID == "" {
			return nil, fmt.Errorf("%w: no recipients", ErrEnvelope)
		}
		return []string{h.KID}, nil
	}
	var env jweEnvelope
	try.To(json.Unmarshal(packed, &env))
	for _, r := range env.Recipients {
		kids = append(kids, r.Header.KID)
	}
	if env.Header.KID != "" {
		kids = append(kids, env.Header.KID)
	}
	if len(kids) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrEnvelope)
	}
	return kids, nil
}
