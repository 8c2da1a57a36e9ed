package didcomm

// Transport content types, i.e. media types of the envelopes.
const (
	MediaTypePlain     = "application/didcomm-plain+json"
	MediaTypeSigned    = "application/didcomm-signed+json"
	MediaTypeEncrypted = "application/didcomm-encrypted+json"
	MediaTypeLegacy    = "application/didcomm-envelope-enc"
)

// IsV2 tells if the media type is some of the DIDComm v2 envelopes.
func IsV2(mediaType string) bool {
	switch mediaType {
	case MediaTypePlain, MediaTypeSigned, MediaTypeEncrypted:
		return true
	}
	return false
}
