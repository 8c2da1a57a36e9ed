package oob

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

const faberInvitation = `{
  "type": "https://didcomm.org/out-of-band/2.0/invitation",
  "id": "1234567890",
  "from": "did:example:faber",
  "body": {
    "goal_code": "issue-vc",
    "goal": "To issue a Faber College Graduate credential",
    "accept": ["didcomm/v2", "didcomm/aip2;env=rfc587"]
  },
  "attachments": [{
    "id": "request-0",
    "media_type": "application/json",
    "data": {"json": {"protocol message": "content"}}
  }]
}`

const acapyInvitation = `{
  "@type": "https://didcomm.org/out-of-band/1.1/invitation",
  "@id": "d0f4b4b4-6a1c-4a8a-9d2c-d1c0a3e4b5f6",
  "label": "Aries Cloud Agent",
  "accept": ["didcomm/aip1", "didcomm/aip2;env=rfc19"],
  "handshake_protocols": ["https://didcomm.org/didexchange/1.0"],
  "services": [{
    "id": "#inline",
    "type": "did-communication",
    "recipientKeys": ["did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"],
    "serviceEndpoint": "http://192.168.0.10:8030"
  }]
}`

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateUnset, StateInitial, true},
		{StateUnset, StateReceive, false},
		{StateUnset, StateDone, false},
		{StateInitial, StateReceive, true},
		{StateInitial, StateInitial, true},
		{StateInitial, StateDone, false},
		{StateReceive, StateDone, true},
		{StateReceive, StateInitial, false},
		{StateDone, StateDone, true},
		{StateDone, StateInitial, false},
		{StateDone, StateReceive, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"_"+tt.to.String(), func(t *testing.T) {
			inv := &Invitation{state: tt.from}
			err := inv.SetState(tt.to)
			if tt.ok {
				require.NoError(t, err)
				require.Equal(t, tt.to, inv.State())
			} else {
				require.True(t, errors.Is(err, ErrTransition))
				require.Equal(t, tt.from, inv.State())
			}
		})
	}
}

func TestNewV1FromJSON(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	inv, err := NewV1FromJSON([]byte(acapyInvitation))
	assert.NoError(err)
	assert.Equal(inv.State(), StateInitial)
	assert.Equal(inv.Label, "Aries Cloud Agent")
	assert.ThatNot(inv.IsV2())

	endpoint, err := inv.ServiceEndpoint()
	assert.NoError(err)
	assert.Equal(endpoint, "http://192.168.0.10:8030")

	d, err := inv.RecipientDID(context.Background(), nil)
	assert.NoError(err)
	assert.Equal(d.Method, method.Key)
	assert.Equal(inv.Key(), d.VerKey)

	assert.NoError(inv.SetState(StateReceive))
	assert.NoError(inv.SetState(StateDone))

	again, err := NewV1FromJSON(inv.JSON())
	assert.NoError(err)
	assert.Equal(again.Key(), inv.Key())
}

func TestValidateErrors(t *testing.T) {
	pk, _ := try.To2(ed25519.GenerateKey(rand.Reader))
	key := base58.Encode(pk)

	tests := []struct {
		name     string
		services []Service
		err      error
	}{
		{"no services", nil, ErrNoService},
		{"wrong type", []Service{{Type: "IndyAgent", RecipientKeys: []string{key}}}, ErrNoService},
		{"did only", []Service{{ID: "did:sov:Th7MpTaRZVRYnPiabds81Y"}}, ErrNoService},
		{"two services", []Service{
			{Type: "did-communication", RecipientKeys: []string{key}},
			{Type: "did-communication", RecipientKeys: []string{key}},
		}, ErrNoService},
		{"no keys", []Service{{Type: "did-communication"}}, ErrKeys},
		{"two keys", []Service{{Type: "did-communication", RecipientKeys: []string{key, key}}}, ErrKeys},
		{"ok", []Service{{Type: "did-communication", RecipientKeys: []string{key}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invitation{ID: "inv", Type: "https://didcomm.org/out-of-band/1.1/invitation", Services: tt.services}
			err := inv.Validate()
			if tt.err == nil {
				require.NoError(t, err)
				require.Equal(t, key, inv.Key())
				return
			}
			require.True(t, errors.Is(err, tt.err), "%v", err)
		})
	}
}

func TestV2MessageRoundTrip(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	msg, err := didcomm.ParseMessage([]byte(faberInvitation))
	assert.NoError(err)

	inv, err := FromMessage(msg)
	assert.NoError(err)
	assert.That(inv.IsV2())
	assert.Equal(inv.GoalCode, "issue-vc")
	assert.SLen(inv.Accept, 2)
	assert.SLen(inv.Attachments, 1)
	assert.Equal(inv.State(), StateInitial)

	data, err := json.Marshal(inv.ToMessage())
	assert.NoError(err)
	require.JSONEq(t, faberInvitation, string(data))

	_, err = FromMessage(&didcomm.Message{ID: "1", Type: inv.Type})
	assert.That(errors.Is(err, ErrNoFrom))
}

func TestNewV2(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	authPub, _ := try.To2(ed25519.GenerateKey(rand.Reader))
	agreePub := make([]byte, 32)
	try.To1(rand.Read(agreePub))
	from := try.To1(method.EncodePeer2(agreePub, authPub, &method.PeerService{
		Type:     "dm",
		Endpoint: "http://localhost:9000/didcomm",
	}))

	inv := NewV2(from, "", "")
	assert.NoError(inv.Validate())
	assert.Equal(inv.Key(), base58.Encode(authPub))
	endpoint, err := inv.ServiceEndpoint()
	assert.NoError(err)
	assert.Equal(endpoint, "http://localhost:9000/didcomm")

	msg := inv.ToMessage()
	_, hasGoal := msg.Body["goal"]
	assert.ThatNot(hasGoal)
	assert.DeepEqual(msg.Body["accept"], DefaultAccept)
}
