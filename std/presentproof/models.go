// Package presentproof has the message models of the DIDComm v2
// present-proof/3.0 protocol.
package presentproof

import (
	"errors"
	"fmt"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// FormatW3CVC is the attachment format of the requests and the
// presentations.
const FormatW3CVC = "https://www.w3.org/TR/vc-data-model/"

var ErrNoAttachment = errors.New("no presentation attachment")

// Body is the common body of the protocol messages.
type Body struct {
	GoalCode    string `json:"goal_code,omitempty"`
	Comment     string `json:"comment,omitempty"`
	WillConfirm bool   `json:"will_confirm,omitempty"`

	// PresentationProposal is carried only by the proposal.
	PresentationProposal *Preview `json:"presentation_proposal,omitempty"`
}

// Preview describes what the prover proposes to present.
type Preview struct {
	Type       string      `json:"type,omitempty"`
	Attributes []Attribute `json:"attributes"`
	Predicates []Predicate `json:"predicates"`
}

type Attribute struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type,omitempty"`
	Value     string `json:"value,omitempty"`
	Referent  string `json:"referent,omitempty"`
}

// Predicate is a claim about an attribute without its value.
type Predicate struct {
	Name      string `json:"name"`
	Predicate string `json:"predicate"` // "<", "<=", ">=", ">"
	Threshold string `json:"threshold"`
}

// Ack status values.
const (
	StatusOK   = "OK"
	StatusFail = "FAIL"
)

// New returns the message of the type in the thread with the data as the
// single W3C VC attachment.
func New(msgType, thid string, body Body, data []byte) (msg *didcomm.Message, err error) {
	defer err2.Handle(&err, "new %s", msgType)

	msg = didcomm.NewMessage(msgType)
	msg.Thid = thid
	try.To(msg.SetBody(body))
	if data != nil {
		msg.Attachments = []didcomm.Attachment{didcomm.DataAttachment(FormatW3CVC, data)}
	}
	return msg, nil
}

// NewAck returns the ack of the presentation with the status.
func NewAck(msgType, thid, status string) *didcomm.Message {
	msg := didcomm.NewMessage(msgType)
	msg.Thid = thid
	msg.Body["status"] = status
	return msg
}

// Of returns the body of the message and the data of its attachment, nil if
// it has none.
func Of(msg *didcomm.Message) (body Body, data []byte, err error) {
	defer err2.Handle(&err, "%s", msg.Type)

	try.To(msg.BodyAs(&body))
	data, _ = try.To2(msg.AttachmentOf(FormatW3CVC))
	return body, data, nil
}

// DataOf returns the data of the attachment or ErrNoAttachment.
func DataOf(msg *didcomm.Message) (data []byte, err error) {
	_, data, err = Of(msg)
	if err == nil && data == nil {
		err = fmt.Errorf("%w: %s", ErrNoAttachment, msg.ID)
	}
	return data, err
}
