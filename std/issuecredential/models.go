/*
Package issuecredential has the message models of the DIDComm v2
issue-credential/3.0 protocol. The credential data travels opaque in the
attachments of the messages, its format is the W3C verifiable credential.
*/
package issuecredential

import (
	"errors"
	"fmt"
	"sort"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// FormatW3CVC is the attachment format of the credentials.
const FormatW3CVC = "https://www.w3.org/TR/vc-data-model/"

const previewType = "https://didcomm.org/issue-credential/3.0/credential-credential"

var ErrNoAttachment = errors.New("no credential attachment")

// Body is the common body of the protocol messages. Preview is carried only
// by the proposal and the offer.
type Body struct {
	GoalCode          string   `json:"goal_code,omitempty"`
	Comment           string   `json:"comment,omitempty"`
	ReplacementID     string   `json:"replacement_id,omitempty"`
	CredentialPreview *Preview `json:"credential_preview,omitempty"`
}

// Preview is used to construct a preview of the data for the credential that
// is to be issued.
type Preview struct {
	Type       string      `json:"type,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Attribute describes an attribute of the Preview.
type Attribute struct {
	Name      string `json:"name,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Value     string `json:"value,omitempty"`
}

// NewPreview returns the preview of the name/value pairs.
func NewPreview(attrs map[string]string) *Preview {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	p := &Preview{Type: previewType}
	for _, name := range names {
		p.Attributes = append(p.Attributes, Attribute{Name: name, Value: attrs[name]})
	}
	return p
}

// Values returns the attributes as a map.
func (p *Preview) Values() map[string]string {
	values := make(map[string]string)
	if p == nil {
		return values
	}
	for _, a := range p.Attributes {
		values[a.Name] = a.Value
	}
	return values
}

// New returns the message of the type in the thread. The credential is the
// single attachment in the W3C VC format.
func New(msgType, thid string, body Body, credential []byte) (msg *didcomm.Message, err error) {
	defer err2.Handle(&err, "new %s", msgType)

	msg = didcomm.NewMessage(msgType)
	msg.Thid = thid
	try.To(msg.SetBody(body))
	if credential != nil {
		msg.Attachments = []didcomm.Attachment{didcomm.DataAttachment(FormatW3CVC, credential)}
	}
	return msg, nil
}

// Of returns the body of the message and the data of its credential
// attachment. The credential is nil if the message has none.
func Of(msg *didcomm.Message) (body Body, credential []byte, err error) {
	defer err2.Handle(&err, "%s", msg.Type)

	try.To(msg.BodyAs(&body))
	credential, _ = try.To2(msg.AttachmentOf(FormatW3CVC))
	return body, credential, nil
}

// CredentialOf returns the data of the credential attachment or
// ErrNoAttachment.
func CredentialOf(msg *didcomm.Message) (credential []byte, err error) {
	_, credential, err = Of(msg)
	if err == nil && credential == nil {
		err = fmt.Errorf("%w: %s", ErrNoAttachment, msg.ID)
	}
	return credential, err
}
