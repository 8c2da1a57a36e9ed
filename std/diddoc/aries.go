package diddoc

import (
	"github.com/hyperledger/aries-framework-go/component/models/did/endpoint"
	"github.com/hyperledger/aries-framework-go/pkg/doc/did"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// ToAries converts the document to the aries model used by the aries VDR
// registry. JWK material is converted to raw key bytes.
func ToAries(d Doc) (ad *did.Doc, err error) {
	defer err2.Handle(&err, "to aries did doc")

	vms := make([]did.VerificationMethod, 0, len(d.VerificationMethods()))
	for _, vm := range d.VerificationMethods() {
		pk := try.To1(vm.Material.RawKey())
		vms = append(vms, *did.NewVerificationMethodFromBytes(
			vm.ID, vm.Type.String(), vm.Controller, pk))
	}
	services := make([]did.Service, 0, len(d.Services()))
	for _, s := range d.Services() {
		as := did.Service{
			ID:            s.ID,
			Type:          s.Type,
			RecipientKeys: s.RecipientKeys,
			RoutingKeys:   s.RoutingKeys,
			Accept:        s.Accept,
		}
		if s.Type == ServiceTypeDIDComm {
			as.ServiceEndpoint = endpoint.NewDIDCommV2Endpoint([]endpoint.DIDCommV2Endpoint{{
				URI:         s.ServiceEndpoint,
				Accept:      s.Accept,
				RoutingKeys: s.RoutingKeys,
			}})
		} else {
			as.ServiceEndpoint = endpoint.NewDIDCommV1Endpoint(s.ServiceEndpoint)
		}
		services = append(services, as)
	}

	ad = did.BuildDoc(
		did.WithVerificationMethod(vms),
		did.WithAuthentication(verifications(d.Authentication(), did.Authentication)),
		did.WithKeyAgreement(verifications(d.KeyAgreement(), did.KeyAgreement)),
		did.WithService(services),
	)
	ad.ID = d.DID()
	return ad, nil
}

func verifications(vms []VerificationMethod, r did.VerificationRelationship) []did.Verification {
	list := make([]did.Verification, 0, len(vms))
	for _, vm := range vms {
		pk, err := vm.Material.RawKey()
		if err != nil {
			continue
		}
		avm := did.NewVerificationMethodFromBytes(vm.ID, vm.Type.String(), vm.Controller, pk)
		list = append(list, *did.NewReferencedVerification(avm, r))
	}
	return list
}

// FromAries converts aries document to ours through its JSON form.
func FromAries(ad *did.Doc) (d Doc, err error) {
	defer err2.Handle(&err, "from aries did doc")

	return Decode(try.To1(ad.JSONBytes()))
}
