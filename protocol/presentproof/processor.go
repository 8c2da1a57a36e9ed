/*
Package presentproof implements the DIDComm v2 present-proof/3.0 protocol.
The prover may start it with a proposal or the verifier with a request:

	prover                  verifier
	propose-presentation ->
	                     <- request-presentation
	presentation         ->
	                     <- ack

The presentations are opaque to the agent, the hooks build and verify them.
*/
package presentproof

import (
	"context"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/protocol/reportproblem"
	"github.com/findy-network/findy-didcomm/std/common"
	"github.com/golang/glog"
)

// DataFunc returns the answer to the incoming data: the request for the
// proposal and the presentation for the request.
type DataFunc func(ctx context.Context, w *wallet.Wallet, conn *pairwise.Connection, in []byte) ([]byte, error)

// VerifyFunc checks the presentation of the prover.
type VerifyFunc func(ctx context.Context, w *wallet.Wallet, conn *pairwise.Connection, presentation []byte) error

func asIs(_ context.Context, _ *wallet.Wallet, _ *pairwise.Connection, in []byte) ([]byte, error) {
	return in, nil
}

var (
	// RequestFor is called by the verifier for the proposal. By default the
	// proposed presentation is requested as such.
	RequestFor DataFunc = asIs

	// PresentationFor is called by the prover for the request.
	PresentationFor DataFunc = asIs

	// Verify is called by the verifier for the presentation. The ack tells
	// the result to the prover.
	Verify VerifyFunc = func(context.Context, *wallet.Wallet, *pairwise.Connection, []byte) error {
		return nil
	}
)

// VerifiedKey tells if the presentation of the exchange passed Verify.
var VerifiedKey = exchange.NewKey[bool]("verified")

// Options of the proposal and the request.
type Options struct {
	GoalCode string
	Comment  string
}

var proofProc = prot.Proc{
	URI: pltype.ProtocolPresentProofV3,
	Handlers: map[string]prot.HandlerFunc{
		pltype.PresentProofPropose:      handlePropose,
		pltype.PresentProofRequest:      handleRequest,
		pltype.PresentProofPresentation: handlePresentation,
		pltype.PresentProofAck:          handleAck,
	},
}

func init() {
	prot.AddProc(proofProc)
}

func refuse(ctx context.Context, p prot.Packet, msg *didcomm.Message, cause error) error {
	glog.Warningf("wallet %s refuses %s: %v", p.Wallet.Name(), msg.Type, cause)
	err := reportproblem.Report(ctx, p.Out, p.Wallet, p.Exchange, msg.EffectiveThid(),
		common.ProblemReport{
			Code:    "e.p.msg.present-proof.refused",
			Comment: "{1} refused",
			Args:    []string{msg.Type},
		})
	if err != nil {
		glog.Errorln("problem report:", err)
	}
	return cause
}
