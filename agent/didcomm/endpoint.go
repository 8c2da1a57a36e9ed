package didcomm

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/std/decorator"
)

// Header keys of the EndpointMessage.
const (
	HeaderID           = "MessageId"
	HeaderDirection    = "MessageDirection"
	HeaderEndpointURL  = "MessageEndpointUrl"
	HeaderMediaType    = "MessageMediaType"
	HeaderProtocolURI  = "MessageProtocolUri"
	HeaderSenderDID    = "MessageSenderDid"
	HeaderRecipientDID = "MessageRecipientDid"
	HeaderPthid        = "MessageParentThid"
	HeaderThid         = "MessageThid"
	HeaderType         = "MessageType"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

var ErrNestedMessage = errors.New("nested endpoint message")

// EndpointMessage is one wire level message and its headers. The body is a
// raw string, e.g. legacy JSON or a packed envelope, or a *Message. It's
// immutable, With returns a modified copy.
type EndpointMessage struct {
	body    any
	headers map[string]string
}

// legacyHeader is what we read from the legacy Aries JSON body.
type legacyHeader struct {
	ID     string            `json:"@id"`
	Type   string            `json:"@type"`
	Thread *decorator.Thread `json:"~thread"`
}

// NewEndpointMessage builds the message and derives the headers from the
// body: legacy JSON fields @id, @type and ~thread, or the fields of the
// Message. Given headers are used as defaults, except the media type which
// the typ of the Message can't override: it tells the envelope wanted for
// the outbound message. ID is generated if the message doesn't have one.
func NewEndpointMessage(body any, headers map[string]string) (*EndpointMessage, error) {
	h := make(map[string]string, len(headers)+5)
	for k, v := range headers {
		if v != "" {
			h[k] = v
		}
	}

	switch b := body.(type) {
	case *EndpointMessage:
		return nil, ErrNestedMessage
	case []byte:
		body = string(b)
		readLegacyHeaders(string(b), h)
	case string:
		readLegacyHeaders(b, h)
	case *Message:
		h[HeaderID] = b.ID
		h[HeaderType] = b.Type
		if b.Typ != "" && h[HeaderMediaType] == "" {
			h[HeaderMediaType] = b.Typ
		}
		if b.Thid != "" {
			h[HeaderThid] = b.Thid
		}
		if b.Pthid != "" {
			h[HeaderPthid] = b.Pthid
		}
	default:
		return nil, fmt.Errorf("unsupported endpoint message body %T", body)
	}

	if h[HeaderID] == "" {
		h[HeaderID] = utils.GeneratedID()
	}
	return &EndpointMessage{body: body, headers: h}, nil
}

// MustEndpointMessage is NewEndpointMessage for bodies we know are valid,
// it panics on error.
func MustEndpointMessage(body any, headers map[string]string) *EndpointMessage {
	epm, err := NewEndpointMessage(body, headers)
	if err != nil {
		panic(err)
	}
	return epm
}

func readLegacyHeaders(s string, h map[string]string) {
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return
	}
	var lh legacyHeader
	if json.Unmarshal([]byte(s), &lh) != nil {
		return
	}
	thid, pthid := decorator.ThreadOf(lh.Thread)
	for k, v := range map[string]string{
		HeaderID:    lh.ID,
		HeaderType:  lh.Type,
		HeaderThid:  thid,
		HeaderPthid: pthid,
	} {
		if v != "" {
			h[k] = v
		}
	}
}

// With returns a copy of the message with the headers added.
func (m *EndpointMessage) With(headers map[string]string) *EndpointMessage {
	h := make(map[string]string, len(m.headers)+len(headers))
	for k, v := range m.headers {
		h[k] = v
	}
	for k, v := range headers {
		if v != "" {
			h[k] = v
		}
	}
	return &EndpointMessage{body: m.body, headers: h}
}

func (m *EndpointMessage) Body() any { return m.body }

// Message returns the structured body if the message has one.
func (m *EndpointMessage) Message() (*Message, bool) {
	msg, ok := m.body.(*Message)
	return msg, ok
}

// BodyJSON returns the body as JSON string.
func (m *EndpointMessage) BodyJSON() string {
	if s, ok := m.body.(string); ok {
		return s
	}
	data, _ := json.Marshal(m.body)
	return string(data)
}

func (m *EndpointMessage) Header(key string) string { return m.headers[key] }

// HeaderKeys returns header keys in sorted order.
func (m *EndpointMessage) HeaderKeys() []string {
	keys := make([]string, 0, len(m.headers))
	for k := range m.headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *EndpointMessage) ID() string           { return m.headers[HeaderID] }
func (m *EndpointMessage) Type() string         { return m.headers[HeaderType] }
func (m *EndpointMessage) Pthid() string        { return m.headers[HeaderPthid] }
func (m *EndpointMessage) ProtocolURI() string  { return m.headers[HeaderProtocolURI] }
func (m *EndpointMessage) SenderDID() string    { return m.headers[HeaderSenderDID] }
func (m *EndpointMessage) RecipientDID() string { return m.headers[HeaderRecipientDID] }
func (m *EndpointMessage) MediaType() string    { return m.headers[HeaderMediaType] }
func (m *EndpointMessage) EndpointURL() string  { return m.headers[HeaderEndpointURL] }

func (m *EndpointMessage) Direction() Direction {
	return Direction(m.headers[HeaderDirection])
}

// Thid returns the thread ID which defaults to the message ID.
func (m *EndpointMessage) Thid() string {
	if thid := m.headers[HeaderThid]; thid != "" {
		return thid
	}
	return m.ID()
}

// CheckMessageType returns error if the message isn't the expected type.
func (m *EndpointMessage) CheckMessageType(expected string) error {
	if m.Type() != expected {
		return fmt.Errorf("unexpected message type: %s", m.Type())
	}
	return nil
}

// ShortString is for logging.
func (m *EndpointMessage) ShortString() string {
	return fmt.Sprintf("[id=%s, thid=%s, type=%s]",
		ellipsis(m.ID()), ellipsis(m.Thid()), m.Type())
}

func (m *EndpointMessage) String() string {
	var b strings.Builder
	b.WriteString("EndpointMessage(headers={")
	for i, k := range m.HeaderKeys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k + "=" + m.headers[k])
	}
	b.WriteString("}, body=" + m.BodyJSON() + ")")
	return b.String()
}

func ellipsis(s string) string {
	const maxLen = 12
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
