/*
Package didcomm is the message model of the agent. Message is the DIDComm v2
plaintext message and EndpointMessage associates a message, or a raw legacy
JSON body, with the metadata headers the agent uses to route it.
*/
package didcomm

import (
	"encoding/json"
	"time"

	"github.com/findy-network/findy-didcomm/agent/utils"
)

// Message is the DIDComm v2 plaintext message.
type Message struct {
	ID          string         `json:"id"`
	Typ         string         `json:"typ,omitempty"`
	Type        string         `json:"type"`
	From        string         `json:"from,omitempty"`
	To          []string       `json:"to,omitempty"`
	Thid        string         `json:"thid,omitempty"`
	Pthid       string         `json:"pthid,omitempty"`
	CreatedTime int64          `json:"created_time,omitempty"`
	ExpiresTime int64          `json:"expires_time,omitempty"`
	FromPrior   string         `json:"from_prior,omitempty"`
	Body        map[string]any `json:"body"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// Attachment is the DIDComm v2 attachment.
type Attachment struct {
	ID          string         `json:"id,omitempty"`
	Description string         `json:"description,omitempty"`
	Filename    string         `json:"filename,omitempty"`
	MediaType   string         `json:"media_type,omitempty"`
	Format      string         `json:"format,omitempty"`
	LastmodTime int64          `json:"lastmod_time,omitempty"`
	ByteCount   int64          `json:"byte_count,omitempty"`
	Data        AttachmentData `json:"data"`
}

// AttachmentData has exactly one of the JSON, Base64 or Links.
type AttachmentData struct {
	JWS    json.RawMessage `json:"jws,omitempty"`
	Hash   string          `json:"hash,omitempty"`
	Links  []string        `json:"links,omitempty"`
	Base64 string          `json:"base64,omitempty"`
	JSON   json.RawMessage `json:"json,omitempty"`
}

// NewMessage returns a message with a new ID and an empty body.
func NewMessage(msgType string) *Message {
	return &Message{
		ID:          utils.UUID(),
		Typ:         MediaTypePlain,
		Type:        msgType,
		CreatedTime: time.Now().Unix(),
		Body:        map[string]any{},
	}
}

// ParseMessage parses plaintext message JSON.
func ParseMessage(data []byte) (m *Message, err error) {
	m = new(Message)
	if err = json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// JSON returns the message as JSON. Marshaling a Message cannot fail.
func (m *Message) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

// BodyString returns the string value of the body field.
func (m *Message) BodyString(name string) string {
	s, _ := m.Body[name].(string)
	return s
}

// EffectiveThid returns the thread ID which defaults to the message ID.
func (m *Message) EffectiveThid() string {
	if m.Thid != "" {
		return m.Thid
	}
	return m.ID
}

// Recipient returns the only recipient of the message. ok is false when
// there are none or many.
func (m *Message) Recipient() (to string, ok bool) {
	if len(m.To) != 1 {
		return "", false
	}
	return m.To[0], true
}

// JSONAttachment returns attachment which carries JSON data.
func JSONAttachment(id string, data any) (a Attachment, err error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return a, err
	}
	return Attachment{
		ID:        id,
		MediaType: "application/json",
		Data:      AttachmentData{JSON: raw},
	}, nil
}

// Bytes returns the data of the attachment, either its JSON or decoded
// base64.
func (a Attachment) Bytes() ([]byte, error) {
	if len(a.Data.JSON) > 0 {
		return a.Data.JSON, nil
	}
	return utils.DecodeB64(a.Data.Base64)
}

// BodyAs decodes the body to the struct v.
func (m *Message) BodyAs(v any) error {
	data, err := json.Marshal(m.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SetBody encodes the struct v as the body.
func (m *Message) SetBody(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	body := map[string]any{}
	if err = json.Unmarshal(data, &body); err != nil {
		return err
	}
	m.Body = body
	return nil
}

// Base64Attachment returns attachment which carries the data base64 encoded.
func Base64Attachment(id, mediaType string, data []byte) Attachment {
	return Attachment{
		ID:        id,
		MediaType: mediaType,
		Data:      AttachmentData{Base64: utils.EncodeB64(data)},
	}
}

// DataAttachment returns the attachment of the format. JSON data is carried
// as JSON, anything else base64 encoded.
func DataAttachment(format string, data []byte) Attachment {
	a := Base64Attachment(utils.UUID(), "application/octet-stream", data)
	if json.Valid(data) {
		a.MediaType = "application/json"
		a.Data = AttachmentData{JSON: data}
	}
	a.Format = format
	return a
}

// AttachmentOf returns the data of the first attachment of the format. An
// attachment without a format matches any. ok is false if there is none.
func (m *Message) AttachmentOf(format string) (data []byte, ok bool, err error) {
	for _, a := range m.Attachments {
		if a.Format == "" || a.Format == format {
			data, err = a.Bytes()
			return data, err == nil, err
		}
	}
	return nil, false, nil
}
