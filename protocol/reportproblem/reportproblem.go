// Package reportproblem sends and receives problem reports, the DIDComm v2
// report-problem/2.0 and the legacy notification/1.0 ones.
package reportproblem

import (
	"context"
	"encoding/json"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/std/common"
	"github.com/findy-network/findy-didcomm/std/decorator"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Problem is a received problem report.
type Problem struct {
	ID     string
	Thread string // the thread having the problem
	common.ProblemReport
}

// ProblemsKey has the received problems of the exchange.
var ProblemsKey = exchange.NewKey[[]Problem]("problems")

var reportProc = prot.Proc{
	URI: pltype.ProtocolReportProblemV2,
	Handlers: map[string]prot.HandlerFunc{
		pltype.ProblemReport: handleReport,
	},
}

var legacyProc = prot.Proc{
	URI: pltype.ProtocolNotificationV1,
	Handlers: map[string]prot.HandlerFunc{
		pltype.ProblemReportV1: handleLegacyReport,
	},
}

func init() {
	prot.AddProc(reportProc)
	prot.AddProc(legacyProc)
}

// Report sends the problem of the thread to the other end of the exchange's
// connection.
func Report(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	thid string,
	pr common.ProblemReport,
) (err error) {
	defer err2.Handle(&err, "report problem %s", pr.Code)

	conn := try.To1(ex.Connection())
	if conn.Legacy() {
		legacy := common.LegacyProblemReport{
			Type:           pltype.ProblemReportV1,
			ID:             utils.UUID(),
			Description:    common.Code{Code: pr.Code, En: pr.Description()},
			ExplainLongTxt: pr.Description(),
			Thread:         &decorator.Thread{ID: thid},
		}
		try.To1(prot.SendLegacy(ctx, out, w, ex, try.To1(json.Marshal(legacy))))
		return nil
	}
	msg := try.To1(common.NewProblemReport(pltype.ProblemReport, thid, pr))
	try.To1(prot.Send(ctx, out, w, ex, msg, didcomm.MediaTypeEncrypted))
	return nil
}

// Problems returns the received problems of the exchange.
func Problems(ex *exchange.Exchange) []Problem {
	problems, _ := exchange.Attachment(ex, ProblemsKey)
	return problems
}

func handleReport(_ context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle problem report")

	msg, _ := p.Message.Message()
	pr := try.To1(common.ProblemReportOf(msg))
	return received(p, Problem{ID: msg.ID, Thread: msg.Pthid, ProblemReport: pr})
}

func handleLegacyReport(_ context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle legacy problem report")

	var legacy common.LegacyProblemReport
	try.To(json.Unmarshal([]byte(p.Message.BodyJSON()), &legacy))
	return received(p, Problem{
		ID:     legacy.ID,
		Thread: p.Message.Thid(),
		ProblemReport: common.ProblemReport{
			Code:    legacy.Description.Code,
			Comment: legacy.Text(),
		},
	})
}

func received(p prot.Packet, problem Problem) error {
	if problem.IsError() {
		glog.Errorf("problem %s in thread %s: %s", problem.Code, problem.Thread, problem.Description())
	} else {
		glog.Warningf("problem %s in thread %s: %s", problem.Code, problem.Thread, problem.Description())
	}
	problems, _ := exchange.Attachment(p.Exchange, ProblemsKey)
	if err := exchange.PutAttachment(p.Exchange, ProblemsKey, append(problems, problem)); err != nil {
		return err
	}
	return p.Complete()
}
