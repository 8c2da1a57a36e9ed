/*
Package issuecredential implements the DIDComm v2 issue-credential/3.0
protocol. The holder may start it with a proposal or the issuer with an
offer:

	holder                 issuer
	propose-credential ->
	                   <- offer-credential
	request-credential ->
	                   <- issue-credential
	ack                ->

The credentials are opaque to the agent. The hooks decide what is offered,
requested and issued, and where the holder keeps its credentials.
*/
package issuecredential

import (
	"context"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/protocol/reportproblem"
	"github.com/findy-network/findy-didcomm/std/common"
	"github.com/findy-network/findy-didcomm/std/issuecredential"
	"github.com/golang/glog"
)

// CredentialFunc returns the credential for the incoming one: the offer for
// the proposal, the request for the offer, and the issued credential for
// the request.
type CredentialFunc func(
	ctx context.Context,
	w *wallet.Wallet,
	conn *pairwise.Connection,
	in []byte,
) ([]byte, error)

// StoreFunc stores the issued credential of the holder.
type StoreFunc func(ctx context.Context, w *wallet.Wallet, conn *pairwise.Connection, credential []byte) error

func asIs(_ context.Context, _ *wallet.Wallet, _ *pairwise.Connection, in []byte) ([]byte, error) {
	return in, nil
}

var (
	// OfferFor is called by the issuer for the proposal. By default the
	// proposed credential is offered as such.
	OfferFor CredentialFunc = asIs

	// RequestFor is called by the holder for the offer. By default the
	// offered credential is requested as such.
	RequestFor CredentialFunc = asIs

	// IssueFor is called by the issuer for the request.
	IssueFor CredentialFunc = asIs

	// Store is called by the holder for the issued credential before it's
	// acknowledged.
	Store StoreFunc = func(_ context.Context, w *wallet.Wallet, conn *pairwise.Connection, credential []byte) error {
		glog.V(1).Infof("wallet %s received credential (%d bytes) from %s",
			w.Name(), len(credential), conn.ShortString())
		return nil
	}
)

// Options of the proposal and the offer.
type Options struct {
	GoalCode string
	Comment  string

	// Preview has the attribute values shown to the other end.
	Preview map[string]string
}

func (o Options) body() issuecredential.Body {
	b := issuecredential.Body{GoalCode: o.GoalCode, Comment: o.Comment}
	if len(o.Preview) > 0 {
		b.CredentialPreview = issuecredential.NewPreview(o.Preview)
	}
	return b
}

var issueProc = prot.Proc{
	URI: pltype.ProtocolIssueCredentialV3,
	Handlers: map[string]prot.HandlerFunc{
		pltype.IssueCredentialPropose: handlePropose,
		pltype.IssueCredentialOffer:   handleOffer,
		pltype.IssueCredentialRequest: handleRequest,
		pltype.IssueCredentialIssue:   handleIssue,
		pltype.IssueCredentialAck:     handleAck,
	},
}

func init() {
	prot.AddProc(issueProc)
}

// refuse tells the other end that we didn't accept the message and returns
// the cause.
func refuse(ctx context.Context, p prot.Packet, msg *didcomm.Message, cause error) error {
	glog.Warningf("wallet %s refuses %s: %v", p.Wallet.Name(), msg.Type, cause)
	err := reportproblem.Report(ctx, p.Out, p.Wallet, p.Exchange, msg.EffectiveThid(),
		common.ProblemReport{
			Code:    "e.p.msg.issue-credential.refused",
			Comment: "{1} refused",
			Args:    []string{msg.Type},
		})
	if err != nil {
		glog.Errorln("problem report:", err)
	}
	return cause
}
