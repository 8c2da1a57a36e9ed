package presentproof

import (
	"context"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/std/presentproof"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Propose sends the proposed presentation to the verifier and places the
// future of the verifier's ack.
func Propose(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	presentation []byte,
	opts Options,
) (epm *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "propose presentation")

	msg := try.To1(presentproof.New(pltype.PresentProofPropose, "", presentproof.Body{
		GoalCode: opts.GoalCode,
		Comment:  opts.Comment,
	}, presentation))
	try.To(prot.Expect(ex, pltype.PresentProofAck))
	return prot.Send(ctx, out, w, ex, msg, didcomm.MediaTypeEncrypted)
}

// AwaitAck waits for the verifier's ack and returns its status, StatusOK or
// StatusFail.
func AwaitAck(ctx context.Context, ex *exchange.Exchange) (status string, err error) {
	defer err2.Handle(&err, "await presentation ack")

	epm := try.To1(ex.AwaitDefault(ctx, pltype.PresentProofAck))
	msg, _ := epm.Message()
	return msg.BodyString("status"), nil
}

// Expect places the future of the ack for the request the verifier is going
// to send.
func Expect(ex *exchange.Exchange) error {
	return prot.Expect(ex, pltype.PresentProofAck)
}

func handleRequest(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle presentation request")

	msg, _ := p.Message.Message()
	conn := try.To1(p.Exchange.Connection())
	body, requested := try.To2(presentproof.Of(msg))

	presentation, err := PresentationFor(ctx, p.Wallet, conn, requested)
	if err != nil {
		return refuse(ctx, p, msg, err)
	}
	vp := try.To1(presentproof.New(pltype.PresentProofPresentation, msg.EffectiveThid(),
		presentproof.Body{GoalCode: body.GoalCode}, presentation))
	if body.WillConfirm {
		try.To(prot.Expect(p.Exchange, pltype.PresentProofAck))
	}
	try.To1(p.Reply(ctx, vp))
	return p.Complete()
}

func handleAck(_ context.Context, p prot.Packet) error {
	return p.Complete()
}
