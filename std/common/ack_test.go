package common

import (
	"encoding/json"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/stretchr/testify/assert"
)

var ackJSON = `
  {
    "@type": "did:sov:BzCbsNYhMrjHiqZDTUASHg;spec/issue-credential/1.0/ack",
    "@id": "3eb5fd37-48ac-4767-8cce-07ab5bbe9097",
    "~thread": { "thid": "3dc323d4-17ec-4a4a-9d3a-c903e94d253b" },
    "status": "OK"
  }`

func TestLegacyAck_ReadJSON(t *testing.T) {
	var msg LegacyAck
	assert.NoError(t, json.Unmarshal([]byte(ackJSON), &msg))
	assert.Equal(t, "3eb5fd37-48ac-4767-8cce-07ab5bbe9097", msg.ID)
	assert.Equal(t, "3dc323d4-17ec-4a4a-9d3a-c903e94d253b", msg.Thread.ID)
	assert.NotEmpty(t, msg.Status)

	epm, err := didcomm.NewEndpointMessage(ackJSON, nil)
	assert.NoError(t, err)
	assert.Equal(t, msg.ID, epm.ID())
	assert.Equal(t, msg.Thread.ID, epm.Thid())
}

func TestAck(t *testing.T) {
	msg := NewAck(pltype.IssueCredentialAck, "thread-1", AckPending)
	assert.Equal(t, "thread-1", msg.Thid)

	parsed, err := didcomm.ParseMessage(msg.JSON())
	assert.NoError(t, err)
	a, err := AckOf(parsed)
	assert.NoError(t, err)
	assert.Equal(t, AckPending, a.Status)

	a, err = AckOf(didcomm.NewMessage(pltype.PresentProofAck))
	assert.NoError(t, err)
	assert.Equal(t, AckOK, a.Status)
}
