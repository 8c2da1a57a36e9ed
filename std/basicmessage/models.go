// Package basicmessage has the message models of the basic message protocol:
// the v2 body and the legacy Aries JSON with its ACA-Py time format.
package basicmessage

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/std/decorator"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type AriesTime struct {
	time.Time
}

// use generate errors with ACAPy when sending basic messages
// const ISO8601 = "2006-01-02 15:04:05.999999999Z"
const ISO8601 = "2006-01-02 15:04:05.999999Z"

// Basicmessage is the legacy basicmessage/1.0 message.
type Basicmessage struct {
	Type     string            `json:"@type,omitempty"`
	ID       string            `json:"@id,omitempty"`
	Thread   *decorator.Thread `json:"~thread,omitempty"`
	Content  string            `json:"content"`
	SentTime AriesTime         `json:"sent_time"`
}

// Body is the body of the basicmessage/2.0 message. The sent time is the
// created_time of the message.
type Body struct {
	Content string `json:"content"`
}

// NewLegacy returns the legacy message sent now.
func NewLegacy(msgType, content string) *Basicmessage {
	id := utils.UUID()
	return &Basicmessage{
		Type:     msgType,
		ID:       id,
		Thread:   decorator.CheckThread(nil, id),
		Content:  content,
		SentTime: AriesTime{Time: time.Now().UTC()},
	}
}

func (m *Basicmessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

// ParseLegacy parses the legacy message. Thread defaults to the message ID.
func ParseLegacy(data []byte) (m *Basicmessage, err error) {
	defer err2.Handle(&err, "basicmessage")

	m = new(Basicmessage)
	try.To(json.Unmarshal(data, m))
	m.Thread = decorator.CheckThread(m.Thread, m.ID)
	return m, nil
}

// New returns the v2 message.
func New(msgType, content string) *didcomm.Message {
	msg := didcomm.NewMessage(msgType)
	msg.Body["content"] = content
	return msg
}

// Of returns the content and the sent time of the v2 message.
func Of(msg *didcomm.Message) (content string, sent time.Time, err error) {
	var b Body
	if err = msg.BodyAs(&b); err != nil {
		return "", sent, err
	}
	return b.Content, time.Unix(msg.CreatedTime, 0), nil
}

func validateTimestamp(timeStr string) (t time.Time, err error) {
	acceptedFormats := []string{ISO8601, time.RFC3339}
	for _, fmt := range acceptedFormats {
		if t, err = time.Parse(fmt, timeStr); err == nil {
			break
		}
	}
	return
}

func (at *AriesTime) UnmarshalJSON(b []byte) (err error) {
	defer err2.Handle(&err)

	t := try.To1(validateTimestamp(strings.Trim(string(b), "\"")))

	*at = AriesTime{Time: t}
	return
}

func (at AriesTime) MarshalJSON() ([]byte, error) {
	// below taken from Go standard lib
	t := at.Time
	if y := t.Year(); y < 0 || y >= 10000 {
		// RFC 3339 is clear that years are 4 digits exactly.
		// See golang.org/issue/4556#c15 for more discussion.
		return nil, errors.New("Time.MarshalJSON: year outside of range [0,9999]")
	}

	b := make([]byte, 0, len(ISO8601)+2)
	b = append(b, '"')
	b = t.AppendFormat(b, ISO8601)
	b = append(b, '"')
	return b, nil
}

func (at AriesTime) String() string {
	return at.Time.String()
}
