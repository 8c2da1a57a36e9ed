package diddoc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type object map[string]json.RawMessage

// Decode detects the document generation and decodes it. Documents with a
// publicKey array are V1, everything else is V2.
func Decode(data []byte) (d Doc, err error) {
	defer err2.Handle(&err, "decode did doc")

	obj := try.To1(parseObject(data))
	if _, ok := obj["publicKey"]; ok {
		return decodeV1(obj)
	}
	return decodeV2(obj)
}

// DecodeV2 decodes did-core document.
func DecodeV2(data []byte) (d *V2, err error) {
	defer err2.Handle(&err, "decode did doc v2")

	return decodeV2(try.To1(parseObject(data)))
}

// DecodeV1 decodes legacy Aries document.
func DecodeV1(data []byte) (d *V1, err error) {
	defer err2.Handle(&err, "decode did doc v1")

	return decodeV1(try.To1(parseObject(data)))
}

func decodeV2(obj object) (d *V2, err error) {
	defer err2.Handle(&err)

	d = &V2{}
	d.ID = try.To1(obj.str("id", true))
	d.Context = try.To1(obj.strOrList("@context"))
	d.AlsoKnownAs = try.To1(obj.strOrList("alsoKnownAs"))
	d.Controller = try.To1(obj.strOrList("controller"))

	for _, vmObj := range try.To1(obj.objects("verificationMethod")) {
		d.VerificationMethod = append(d.VerificationMethod, try.To1(decodeVM(vmObj)))
	}
	relations := []struct {
		name string
		ids  *[]string
	}{
		{"authentication", &d.AuthenticationIDs},
		{"keyAgreement", &d.KeyAgreementIDs},
		{"assertionMethod", &d.AssertionMethod},
		{"capabilityInvocation", &d.CapabilityInvocation},
		{"capabilityDelegation", &d.CapabilityDelegation},
	}
	for _, r := range relations {
		ids, embedded := try.To2(obj.relationship(r.name))
		*r.ids = ids
		for _, vm := range embedded {
			if _, exists := FindVerificationMethod(d, vm.ID); !exists {
				d.VerificationMethod = append(d.VerificationMethod, vm)
			}
		}
	}
	for _, sObj := range try.To1(obj.objects("service")) {
		d.Service = append(d.Service, try.To1(decodeService(sObj)))
	}
	glog.V(7).Infoln("decoded did doc v2:", d.ID)
	return d, nil
}

func decodeV1(obj object) (d *V1, err error) {
	defer err2.Handle(&err)

	d = &V1{}
	d.ID = try.To1(obj.str("id", true))
	d.Context = try.To1(obj.str("@context", false))
	for _, pkObj := range try.To1(obj.objects("publicKey")) {
		d.PublicKey = append(d.PublicKey, try.To1(decodeVM(pkObj)))
	}
	if raw, ok := obj["authentication"]; ok {
		var items []json.RawMessage
		try.To(json.Unmarshal(raw, &items))
		for _, item := range items {
			var id string
			if json.Unmarshal(item, &id) == nil {
				d.Auths = append(d.Auths, V1Auth{PublicKey: id})
				continue
			}
			a := try.To1(parseObject(item))
			d.Auths = append(d.Auths, V1Auth{
				Type:      try.To1(a.str("type", false)),
				PublicKey: try.To1(a.str("publicKey", true)),
			})
		}
	}
	for _, sObj := range try.To1(obj.objects("service")) {
		d.Service = append(d.Service, try.To1(decodeService(sObj)))
	}
	glog.V(7).Infoln("decoded did doc v1:", d.ID)
	return d, nil
}

func decodeVM(obj object) (vm VerificationMethod, err error) {
	defer err2.Handle(&err, "verification method")

	vm.ID = try.To1(obj.str("id", true))
	vm.Type = try.To1(ParseKeyType(try.To1(obj.str("type", true))))
	vm.Controller = try.To1(obj.str("controller", true))

	found := 0
	for _, f := range []Format{FormatJWK, FormatBase58, FormatMultibase} {
		raw, ok := obj[f.Field()]
		if !ok {
			continue
		}
		found++
		vm.Material.Format = f
		if f == FormatJWK {
			var buf bytes.Buffer
			try.To(json.Compact(&buf, raw))
			vm.Material.Value = buf.String()
		} else {
			try.To(json.Unmarshal(raw, &vm.Material.Value))
		}
	}
	if found != 1 {
		return vm, fmt.Errorf("%w: %s has %d key materials, want exactly one",
			ErrMaterial, vm.ID, found)
	}
	return vm, nil
}

func decodeService(obj object) (s Service, err error) {
	defer err2.Handle(&err, "service")

	s.ID = try.To1(obj.str("id", true))
	s.Type = try.To1(obj.str("type", false))
	s.RecipientKeys = try.To1(obj.strList("recipientKeys"))
	s.RoutingKeys = try.To1(obj.strList("routingKeys"))
	s.Accept = try.To1(obj.strList("accept"))
	if raw, ok := obj["priority"]; ok {
		try.To(json.Unmarshal(raw, &s.Priority))
	}

	raw, ok := obj["serviceEndpoint"]
	if !ok {
		return s, fmt.Errorf("%w: service %s has no serviceEndpoint", ErrDecode, s.ID)
	}
	if json.Unmarshal(raw, &s.ServiceEndpoint) == nil {
		return s, nil
	}

	// DIDComm v2 endpoint object, or an array of them of which the first is
	// used.
	var endpoints []json.RawMessage
	if json.Unmarshal(raw, &endpoints) == nil {
		if len(endpoints) == 0 {
			return s, fmt.Errorf("%w: service %s endpoint list is empty", ErrDecode, s.ID)
		}
		raw = endpoints[0]
	}
	ep := try.To1(parseObject(raw))
	s.ServiceEndpoint = try.To1(ep.str("uri", true))
	if accept := try.To1(ep.strList("accept")); len(accept) > 0 {
		s.Accept = accept
	}
	if routing := try.To1(ep.strList("routingKeys")); len(routing) > 0 {
		s.RoutingKeys = routing
	}
	return s, nil
}

func parseObject(data []byte) (obj object, err error) {
	if err = json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrDecode)
	}
	return obj, nil
}

func (o object) str(name string, required bool) (s string, err error) {
	raw, ok := o[name]
	if !ok {
		if required {
			return "", fmt.Errorf("%w: field %q is missing", ErrDecode, name)
		}
		return "", nil
	}
	if err = json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: field %q: %v", ErrDecode, name, err)
	}
	if required && s == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrDecode, name)
	}
	return s, nil
}

func (o object) strList(name string) (list []string, err error) {
	raw, ok := o[name]
	if !ok {
		return nil, nil
	}
	if err = json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrDecode, name, err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list, nil
}

func (o object) strOrList(name string) ([]string, error) {
	raw, ok := o[name]
	if !ok {
		return nil, nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return []string{s}, nil
	}
	return o.strList(name)
}

func (o object) objects(name string) (list []object, err error) {
	raw, ok := o[name]
	if !ok {
		return nil, nil
	}
	if err = json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrDecode, name, err)
	}
	return list, nil
}

// relationship decodes the verification relationship array which can have
// both method IDs and embedded methods.
func (o object) relationship(name string) (ids []string, embedded []VerificationMethod, err error) {
	defer err2.Handle(&err, "relationship %s", name)

	raw, ok := o[name]
	if !ok {
		return nil, nil, nil
	}
	var items []json.RawMessage
	if err = json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	for _, item := range items {
		var id string
		if json.Unmarshal(item, &id) == nil {
			ids = append(ids, id)
			continue
		}
		vm := try.To1(decodeVM(try.To1(parseObject(item))))
		ids = append(ids, vm.ID)
		embedded = append(embedded, vm)
	}
	return ids, embedded, nil
}
