package common

import (
	"errors"
	"fmt"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
)

var ErrForward = errors.New("malformed forward")

// Forward is the body of the routing/2.0 forward message. The packed message
// for the next hop is the only attachment.
type Forward struct {
	Next string `json:"next"`
}

// NewForward returns the forward message to the mediator which passes the
// packed message to the next.
func NewForward(msgType, next, mediator string, packed []byte) *didcomm.Message {
	msg := didcomm.NewMessage(msgType)
	msg.To = []string{mediator}
	msg.Body["next"] = next
	msg.Attachments = []didcomm.Attachment{{
		MediaType: didcomm.MediaTypeEncrypted,
		Data:      didcomm.AttachmentData{JSON: packed},
	}}
	return msg
}

// ForwardOf returns the next hop and the packed message of the forward.
func ForwardOf(msg *didcomm.Message) (next string, packed []byte, err error) {
	var f Forward
	if err = msg.BodyAs(&f); err != nil {
		return "", nil, err
	}
	if f.Next == "" {
		return "", nil, fmt.Errorf("%w: no next", ErrForward)
	}
	if len(msg.Attachments) != 1 {
		return "", nil, fmt.Errorf("%w: %d attachments", ErrForward, len(msg.Attachments))
	}
	packed, err = msg.Attachments[0].Bytes()
	if err != nil {
		return "", nil, err
	}
	return f.Next, packed, nil
}
