package method

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/hyperledger/aries-framework-go/pkg/kms"
	"github.com/hyperledger/aries-framework-go/pkg/vdr/fingerprint"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

// did:peer:2 element purposes
const (
	purposeAgreement = 'E'
	purposeAuth      = 'V'
	purposeService   = 'S'
)

// PeerService is the abbreviated service element of the did:peer:2.
type PeerService struct {
	Type        string   `json:"t"`
	Endpoint    string   `json:"s"`
	RoutingKeys []string `json:"r,omitempty"`
	Accept      []string `json:"a,omitempty"`
}

const peerServiceType = "dm"

// PeerElements are the decoded parts of did:peer:0 and did:peer:2. Keys are
// raw public keys.
type PeerElements struct {
	NumAlgo   int
	Agreement [][]byte
	Auth      [][]byte
	Services  []PeerService
}

// NewPeer creates a did:peer:2 which has an Ed25519 authentication key, a
// X25519 key agreement key and a DIDComm service to the endpoint.
func NewPeer(keys kms.KeyManager, endpoint string) (k *Keys, err error) {
	defer err2.Handle(&err, "new did:peer:2")

	signKID, signPub := try.To2(keys.CreateAndExportPubKeyBytes(kms.ED25519Type))
	agreeKID, agreePub, agreeDIDKey := try.To3(NewAgreementKey(keys))

	uri := try.To1(EncodePeer2(agreePub, signPub, &PeerService{
		Type:     peerServiceType,
		Endpoint: endpoint,
		Accept:   []string{"didcomm/v2"},
	}))
	_, id, _ := Parse(uri)

	return &Keys{
		DID:         DID{Method: Peer, ID: id, VerKey: base58.Encode(signPub)},
		SignKID:     signKID,
		SignPub:     signPub,
		AgreeKID:    agreeKID,
		AgreePub:    agreePub,
		AgreeDIDKey: agreeDIDKey,
	}, nil
}

// EncodePeer0 returns did:peer:0 of the Ed25519 key.
func EncodePeer0(authPub []byte) string {
	return "did:peer:0" + fingerprint.KeyFingerprint(Ed25519Codec, authPub)
}

// EncodePeer2 returns did:peer:2 URI of the keys and the optional service.
func EncodePeer2(agreePub, authPub []byte, s *PeerService) (uri string, err error) {
	defer err2.Handle(&err, "encode did:peer:2")

	var b strings.Builder
	b.WriteString("did:peer:2")
	if agreePub != nil {
		b.WriteString(".E")
		b.WriteString(fingerprint.KeyFingerprint(X25519Codec, agreePub))
	}
	if authPub != nil {
		b.WriteString(".V")
		b.WriteString(fingerprint.KeyFingerprint(Ed25519Codec, authPub))
	}
	if s != nil {
		b.WriteString(".S")
		b.WriteString(utils.EncodeB64(try.To1(json.Marshal(s))))
	}
	return b.String(), nil
}

// ParsePeer decodes did:peer:0 and did:peer:2 URIs.
func ParsePeer(uri string) (p *PeerElements, err error) {
	defer err2.Handle(&err, "parse did:peer %s", uri)

	uri = stripFragment(uri)
	numalgo := try.To1(NumAlgo(uri))
	p = &PeerElements{NumAlgo: numalgo}

	if numalgo == 0 {
		codec, pk := try.To2(DecodeFingerprint(strings.TrimPrefix(uri, "did:peer:0")))
		if codec != Ed25519Codec {
			return nil, fmt.Errorf("%w: did:peer:0 codec %#x", ErrMalformed, codec)
		}
		p.Auth = append(p.Auth, pk)
		return p, nil
	}

	elements := strings.Split(strings.TrimPrefix(uri, "did:peer:2"), ".")
	for _, e := range elements {
		if e == "" {
			continue
		}
		switch e[0] {
		case purposeAgreement, purposeAuth:
			codec, pk := try.To2(DecodeFingerprint(e[1:]))
			if e[0] == purposeAgreement {
				if codec != X25519Codec {
					return nil, fmt.Errorf("%w: agreement codec %#x", ErrMalformed, codec)
				}
				p.Agreement = append(p.Agreement, pk)
			} else {
				if codec != Ed25519Codec {
					return nil, fmt.Errorf("%w: auth codec %#x", ErrMalformed, codec)
				}
				p.Auth = append(p.Auth, pk)
			}
		case purposeService:
			data := try.To1(utils.DecodeB64(e[1:]))
			var s PeerService
			try.To(json.Unmarshal(data, &s))
			if s.Type == peerServiceType {
				s.Type = "DIDCommMessaging"
			}
			p.Services = append(p.Services, s)
		default:
			return nil, fmt.Errorf("%w: unknown did:peer:2 purpose %q", ErrMalformed, e[0])
		}
	}
	return p, nil
}
