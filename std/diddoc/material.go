package diddoc

import (
	"encoding/json"
	"fmt"

	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

type okpJWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
}

// RawKey returns the raw public key bytes regardless of the material format.
// Only OKP keys (Ed25519 and X25519) are supported for JWK.
func (m Material) RawKey() (pk []byte, err error) {
	defer err2.Handle(&err, "raw key of %s material", m.Format)

	switch m.Format {
	case FormatBase58:
		return base58.Decode(m.Value)
	case FormatMultibase:
		_, pk = try.To2(method.DecodeFingerprint(m.Value))
		return pk, nil
	case FormatJWK:
		var jwk okpJWK
		try.To(json.Unmarshal([]byte(m.Value), &jwk))
		if jwk.Kty != "OKP" {
			return nil, fmt.Errorf("%w: unsupported JWK kty %q", ErrMaterial, jwk.Kty)
		}
		return utils.DecodeB64(jwk.X)
	}
	return nil, fmt.Errorf("%w: unsupported format", ErrMaterial)
}

// Base58Material returns base58 material of the raw key.
func Base58Material(pk []byte) Material {
	return Material{Format: FormatBase58, Value: base58.Encode(pk)}
}

// MultibaseMaterial returns multibase material with the multicodec prefix.
func MultibaseMaterial(codec uint64, pk []byte) Material {
	return Material{
		Format: FormatMultibase,
		Value:  method.DIDKey(codec, pk)[len("did:key:"):],
	}
}

// JWKMaterial returns OKP JWK material, crv is Ed25519 or X25519.
func JWKMaterial(crv string, pk []byte) Material {
	data, _ := json.Marshal(okpJWK{Kty: "OKP", Crv: crv, X: utils.EncodeB64(pk)})
	return Material{Format: FormatJWK, Value: string(data)}
}
