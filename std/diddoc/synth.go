package diddoc

import (
	"fmt"
	"strconv"

	"github.com/findy-network/findy-didcomm/method"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

const contextV1 = "https://www.w3.org/ns/did/v1"

// Synthesize builds the document of a self-certifying DID (did:key,
// did:peer:0 and did:peer:2) without resolution.
func Synthesize(uri string) (d *V2, err error) {
	defer err2.Handle(&err, "synthesize did doc")

	m, id, ok := method.Parse(uri)
	if !ok {
		return nil, method.ErrMalformed
	}
	uri = "did:" + m.String() + ":" + id

	switch m {
	case method.Key:
		codec, pk := try.To2(method.DecodeFingerprint(id))
		return keyDoc(uri, id, codec, pk)
	case method.Peer:
		p := try.To1(method.ParsePeer(uri))
		if p.NumAlgo == 0 {
			fp := id[1:]
			return keyDoc(uri, fp, method.Ed25519Codec, p.Auth[0])
		}
		return peer2Doc(uri, p), nil
	}
	return nil, fmt.Errorf("%w: %s isn't self certified", method.ErrNotResolved, uri)
}

func keyDoc(uri, fp string, codec uint64, pk []byte) (*V2, error) {
	d := &V2{Context: []string{contextV1}, ID: uri}
	vmID := uri + "#" + fp
	switch codec {
	case method.Ed25519Codec:
		d.VerificationMethod = []VerificationMethod{{
			ID:         vmID,
			Type:       Ed25519VerificationKey2020,
			Controller: uri,
			Material:   MultibaseMaterial(codec, pk),
		}}
		d.AuthenticationIDs = []string{vmID}
		d.AssertionMethod = []string{vmID}
	case method.X25519Codec:
		d.VerificationMethod = []VerificationMethod{{
			ID:         vmID,
			Type:       X25519KeyAgreementKey2020,
			Controller: uri,
			Material:   MultibaseMaterial(codec, pk),
		}}
		d.KeyAgreementIDs = []string{vmID}
	default:
		return nil, fmt.Errorf("%w: did:key codec %#x", ErrKeyType, codec)
	}
	return d, nil
}

func peer2Doc(uri string, p *method.PeerElements) *V2 {
	d := &V2{Context: []string{contextV1}, ID: uri}
	n := 0
	nextID := func() string {
		n++
		return uri + "#key-" + strconv.Itoa(n)
	}
	for _, pk := range p.Agreement {
		vmID := nextID()
		d.VerificationMethod = append(d.VerificationMethod, VerificationMethod{
			ID:         vmID,
			Type:       X25519KeyAgreementKey2020,
			Controller: uri,
			Material:   MultibaseMaterial(method.X25519Codec, pk),
		})
		d.KeyAgreementIDs = append(d.KeyAgreementIDs, vmID)
	}
	for _, pk := range p.Auth {
		vmID := nextID()
		d.VerificationMethod = append(d.VerificationMethod, VerificationMethod{
			ID:         vmID,
			Type:       Ed25519VerificationKey2020,
			Controller: uri,
			Material:   MultibaseMaterial(method.Ed25519Codec, pk),
		})
		d.AuthenticationIDs = append(d.AuthenticationIDs, vmID)
	}
	for i, s := range p.Services {
		d.Service = append(d.Service, Service{
			ID:              uri + "#didcommmessaging-" + strconv.Itoa(i),
			Type:            s.Type,
			ServiceEndpoint: s.Endpoint,
			RoutingKeys:     s.RoutingKeys,
			Accept:          s.Accept,
		})
	}
	return d
}
