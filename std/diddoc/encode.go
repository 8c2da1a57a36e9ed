package diddoc

import (
	"encoding/json"
	"fmt"

	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type serviceJSON struct {
	ID              string   `json:"id"`
	Type            string   `json:"type,omitempty"`
	Priority        int      `json:"priority,omitempty"`
	RecipientKeys   []string `json:"recipientKeys,omitempty"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	Accept          []string `json:"accept,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
}

type v2JSON struct {
	Context              []string         `json:"@context,omitempty"`
	ID                   string           `json:"id"`
	AlsoKnownAs          []string         `json:"alsoKnownAs,omitempty"`
	Controller           []string         `json:"controller,omitempty"`
	VerificationMethod   []map[string]any `json:"verificationMethod,omitempty"`
	Authentication       []string         `json:"authentication,omitempty"`
	KeyAgreement         []string         `json:"keyAgreement,omitempty"`
	AssertionMethod      []string         `json:"assertionMethod,omitempty"`
	CapabilityInvocation []string         `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []string         `json:"capabilityDelegation,omitempty"`
	Service              []serviceJSON    `json:"service,omitempty"`
}

type v1AuthJSON struct {
	Type      string `json:"type,omitempty"`
	PublicKey string `json:"publicKey"`
}

type v1JSON struct {
	Context        string           `json:"@context,omitempty"`
	ID             string           `json:"id"`
	PublicKey      []map[string]any `json:"publicKey"`
	Authentication []v1AuthJSON     `json:"authentication,omitempty"`
	Service        []serviceJSON    `json:"service,omitempty"`
}

// Encode is the inverse of Decode. Empty collections are left out and the
// key material is written to the field it was read from.
func Encode(d Doc) (data []byte, err error) {
	defer err2.Handle(&err, "encode did doc")

	switch doc := d.(type) {
	case *V2:
		return json.Marshal(v2JSON{
			Context:              doc.Context,
			ID:                   doc.ID,
			AlsoKnownAs:          doc.AlsoKnownAs,
			Controller:           doc.Controller,
			VerificationMethod:   try.To1(encodeVMs(doc.VerificationMethod)),
			Authentication:       doc.AuthenticationIDs,
			KeyAgreement:         doc.KeyAgreementIDs,
			AssertionMethod:      doc.AssertionMethod,
			CapabilityInvocation: doc.CapabilityInvocation,
			CapabilityDelegation: doc.CapabilityDelegation,
			Service:              encodeServices(doc.Service),
		})
	case *V1:
		auths := make([]v1AuthJSON, 0, len(doc.Auths))
		for _, a := range doc.Auths {
			auths = append(auths, v1AuthJSON(a))
		}
		if len(auths) == 0 {
			auths = nil
		}
		pks := try.To1(encodeVMs(doc.PublicKey))
		if pks == nil {
			// publicKey tells the generation, it's never left out
			pks = []map[string]any{}
		}
		return json.Marshal(v1JSON{
			Context:        doc.Context,
			ID:             doc.ID,
			PublicKey:      pks,
			Authentication: auths,
			Service:        encodeServices(doc.Service),
		})
	}
	return nil, fmt.Errorf("unknown did doc type %T", d)
}

func encodeVMs(vms []VerificationMethod) (list []map[string]any, err error) {
	for _, vm := range vms {
		field := vm.Material.Format.Field()
		if field == "" {
			return nil, fmt.Errorf("%w: %s has format %s", ErrMaterial, vm.ID, vm.Material.Format)
		}
		if vm.Type == KeyTypeUnknown {
			return nil, fmt.Errorf("%w: %s", ErrKeyType, vm.ID)
		}
		m := map[string]any{
			"id":         vm.ID,
			"type":       vm.Type.String(),
			"controller": vm.Controller,
		}
		if vm.Material.Format == FormatJWK {
			m[field] = json.RawMessage(vm.Material.Value)
		} else {
			m[field] = vm.Material.Value
		}
		list = append(list, m)
	}
	return list, nil
}

func encodeServices(services []Service) []serviceJSON {
	if len(services) == 0 {
		return nil
	}
	list := make([]serviceJSON, 0, len(services))
	for _, s := range services {
		list = append(list, serviceJSON{
			ID:              s.ID,
			Type:            s.Type,
			Priority:        s.Priority,
			RecipientKeys:   s.RecipientKeys,
			RoutingKeys:     s.RoutingKeys,
			Accept:          s.Accept,
			ServiceEndpoint: s.ServiceEndpoint,
		})
	}
	return list
}
