package utils

import "encoding/base64"

// DecodeB64 decodes URL encoded base64 with or without padding.
func DecodeB64(str string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(str)
	if err != nil {
		data, err = base64.RawURLEncoding.DecodeString(str)
	}
	return data, err
}

// EncodeB64 encodes to URL base64 without padding as DIDComm wants it.
func EncodeB64(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}
