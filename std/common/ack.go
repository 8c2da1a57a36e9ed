package common

import (
	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/std/decorator"
)

const (
	AckOK      = "OK"
	AckPending = "PENDING"
	AckFail    = "FAIL"
)

// Ack is the body of the v2 ack messages.
type Ack struct {
	Status string `json:"status,omitempty"`
}

// LegacyAck is the Aries acknowledgement.
type LegacyAck struct {
	Type   string            `json:"@type,omitempty"`
	ID     string            `json:"@id,omitempty"`
	Status string            `json:"status,omitempty"`
	Thread *decorator.Thread `json:"~thread,omitempty"`
}

// NewAck returns the ack of the thread.
func NewAck(msgType, thid, status string) *didcomm.Message {
	msg := didcomm.NewMessage(msgType)
	msg.Thid = thid
	msg.Body["status"] = status
	return msg
}

// AckOf returns the ack body of the message. Status defaults to OK.
func AckOf(msg *didcomm.Message) (a Ack, err error) {
	if err = msg.BodyAs(&a); err != nil {
		return a, err
	}
	if a.Status == "" {
		a.Status = AckOK
	}
	return a, nil
}
