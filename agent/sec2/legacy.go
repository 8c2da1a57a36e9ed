package sec2

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/findy-network/findy-didcomm/method"
	"github.com/golang/glog"
	"github.com/hyperledger/aries-framework-go/pkg/didcomm/transport"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

// LegacyResult is the opened RFC0019 envelope. Verkeys are base58.
type LegacyResult struct {
	Message         []byte
	SenderVerkey    string
	RecipientVerkey string
	RecipientKMSKID string
}

type legacyEnvelope struct {
	Protected string `json:"protected"`
}

type legacyProtected struct {
	Recipients []struct {
		Header struct {
			KID string `json:"kid"`
		} `json:"header"`
	} `json:"recipients"`
}

// PackLegacy encrypts the legacy message with RFC0019 authcrypt.
func (p *Pipe) PackLegacy(msg []byte, fromVerkey, toVerkey string) (_ []byte, err error) {
	defer err2.Handle(&err, "pack legacy")
	defer err2.Handle(&err, func(err error) error {
		glog.Errorln("pack legacy:", err)
		return err
	})

	from := try.To1(base58.Decode(fromVerkey))
	to := try.To1(base58.Decode(toVerkey))
	return p.Pckr.PackMessage(&transport.Envelope{
		MediaTypeProfile: transport.MediaTypeRFC0019EncryptedEnvelope,
		Message:          msg,
		FromKey:          []byte(method.DIDKey(method.Ed25519Codec, from)),
		ToKeys:           []string{method.DIDKey(method.Ed25519Codec, to)},
	})
}

// LegacyRecipients returns the recipient verkeys of the RFC0019 envelope.
func LegacyRecipients(packed []byte) (kids []string, err error) {
	defer err2.Handle(&err, "legacy recipients")

	var env legacyEnvelope
	try.To(json.Unmarshal(packed, &env))
	protected, err := base64.URLEncoding.DecodeString(env.Protected)
	if err != nil {
		protected = try.To1(base64.RawURLEncoding.DecodeString(env.Protected))
	}
	var prot legacyProtected
	try.To(json.Unmarshal(protected, &prot))
	if len(prot.Recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrEnvelope)
	}
	for _, r := range prot.Recipients {
		kids = append(kids, r.Header.KID)
	}
	return kids, nil
}

// UnpackLegacy opens the RFC0019 envelope. It returns nil and nil error when
// none of the recipients is ours, the caller drops such messages.
func (p *Pipe) UnpackLegacy(packed []byte) (res *LegacyResult, err error) {
	defer err2.Handle(&err, "unpack legacy")
	defer err2.Handle(&err, func(err error) error {
		glog.Errorln("unpack legacy:", err)
		return err
	})

	kids := try.To1(LegacyRecipients(packed))
	var recipient, kmsKID string
	for _, kid := range kids {
		if k, err := p.Secrets.FindKey(kid); err == nil {
			recipient, kmsKID = kid, k
			break
		}
	}
	if recipient == "" {
		glog.V(1).Infoln("no legacy recipient key found from:", kids)
		return nil, nil
	}

	env := try.To1(p.Pckr.UnpackMessage(packed))
	return &LegacyResult{
		Message:         env.Message,
		SenderVerkey:    verkey(env.FromKey),
		RecipientVerkey: recipient,
		RecipientKMSKID: kmsKID,
	}, nil
}

// verkey returns the raw Ed25519 key as base58. Anything else is kept as is.
func verkey(key []byte) string {
	if len(key) == 32 {
		return base58.Encode(key)
	}
	return string(key)
}
