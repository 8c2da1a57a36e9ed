package common

import (
	"fmt"
	"strings"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/std/decorator"
)

// ProblemReport is the body of the report-problem/2.0 message. The code is
// sorter.scope.descriptors, e.g. e.p.xfer.cant-use-endpoint.
type ProblemReport struct {
	Code       string   `json:"code"`
	Comment    string   `json:"comment,omitempty"`
	Args       []string `json:"args,omitempty"`
	EscalateTo string   `json:"escalate_to,omitempty"`
}

// LegacyProblemReport is the Aries notification/1.0 problem report which
// ACA-Py sends.
type LegacyProblemReport struct {
	Type           string            `json:"@type"`
	ID             string            `json:"@id"`
	Description    Code              `json:"description"`
	ExplainLongTxt string            `json:"explain-ltxt,omitempty"` // ACApy
	Thread         *decorator.Thread `json:"~thread,omitempty"`
}

// Code represents a problem report code
type Code struct {
	Code string `json:"code"`
	En   string `json:"en,omitempty"`
}

// NewProblemReport returns the problem report message. The thread of the
// report is the parent of the problem thread.
func NewProblemReport(msgType, pthid string, pr ProblemReport) (*didcomm.Message, error) {
	msg := didcomm.NewMessage(msgType)
	msg.Pthid = pthid
	if err := msg.SetBody(pr); err != nil {
		return nil, err
	}
	return msg, nil
}

func ProblemReportOf(msg *didcomm.Message) (pr ProblemReport, err error) {
	err = msg.BodyAs(&pr)
	return pr, err
}

// IsError tells if the sorter of the code is e, warnings are w.
func (pr ProblemReport) IsError() bool {
	return strings.HasPrefix(pr.Code, "e.")
}

// Description returns the comment with the {n} placeholders replaced with
// the args.
func (pr ProblemReport) Description() string {
	s := pr.Comment
	for i, arg := range pr.Args {
		s = strings.ReplaceAll(s, fmt.Sprintf("{%d}", i+1), arg)
	}
	return s
}

// Text returns the long text or the english description of the code.
func (pr LegacyProblemReport) Text() string {
	if pr.ExplainLongTxt != "" {
		return pr.ExplainLongTxt
	}
	if pr.Description.En != "" {
		return pr.Description.En
	}
	return pr.Description.Code
}
