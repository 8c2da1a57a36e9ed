package sec2

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// spliceSignature returns the flattened JWS a with the signature of b.
func spliceSignature(t *testing.T, a, b []byte) []byte {
	var ja, jb map[string]any
	require.NoError(t, json.Unmarshal(a, &ja))
	require.NoError(t, json.Unmarshal(b, &jb))
	ja["signature"] = jb["signature"]
	data, err := json.Marshal(ja)
	require.NoError(t, err)
	return data
}
