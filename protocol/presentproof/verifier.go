package presentproof

import (
	"context"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/std/presentproof"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Request sends the presentation request to the prover and places the
// future of the presentation. The verifier always confirms with an ack.
func Request(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	request []byte,
	opts Options,
) (epm *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "request presentation")

	msg := try.To1(presentproof.New(pltype.PresentProofRequest, "", presentproof.Body{
		GoalCode:    opts.GoalCode,
		Comment:     opts.Comment,
		WillConfirm: true,
	}, request))
	try.To(prot.Expect(ex, pltype.PresentProofPresentation))
	return prot.Send(ctx, out, w, ex, msg, didcomm.MediaTypeEncrypted)
}

// AwaitPresentation waits for the presentation and tells if it passed
// Verify.
func AwaitPresentation(ctx context.Context, ex *exchange.Exchange) (presentation []byte, verified bool, err error) {
	defer err2.Handle(&err, "await presentation")

	try.To1(ex.AwaitDefault(ctx, pltype.PresentProofPresentation))
	presentation, _ = Presentation(ex)
	verified, _ = exchange.Attachment(ex, VerifiedKey)
	return presentation, verified, nil
}

// Presentation returns the presentation the verifier received in the
// exchange.
func Presentation(ex *exchange.Exchange) ([]byte, bool) {
	return exchange.Attachment(ex, exchange.PresentationKey)
}

func handlePropose(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle presentation proposal")

	msg, _ := p.Message.Message()
	conn := try.To1(p.Exchange.Connection())
	body, proposed := try.To2(presentproof.Of(msg))

	requested, err := RequestFor(ctx, p.Wallet, conn, proposed)
	if err != nil {
		return refuse(ctx, p, msg, err)
	}
	req := try.To1(presentproof.New(pltype.PresentProofRequest, msg.EffectiveThid(),
		presentproof.Body{GoalCode: body.GoalCode, WillConfirm: true}, requested))
	try.To(prot.Expect(p.Exchange, pltype.PresentProofPresentation))
	try.To1(p.Reply(ctx, req))
	return p.Complete()
}

// handlePresentation stores the presentation with its verification result
// and acknowledges it before completing the future.
func handlePresentation(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle presentation")

	msg, _ := p.Message.Message()
	conn := try.To1(p.Exchange.Connection())
	presentation := try.To1(presentproof.DataOf(msg))
	try.To(exchange.PutAttachment(p.Exchange, exchange.PresentationKey, presentation))

	status := presentproof.StatusOK
	if err := Verify(ctx, p.Wallet, conn, presentation); err != nil {
		glog.Warningf("wallet %s: presentation from %s failed: %v",
			p.Wallet.Name(), conn.ShortString(), err)
		status = presentproof.StatusFail
	}
	try.To(exchange.PutAttachment(p.Exchange, VerifiedKey, status == presentproof.StatusOK))

	try.To1(p.Reply(ctx, presentproof.NewAck(pltype.PresentProofAck, msg.EffectiveThid(), status)))
	return p.Complete()
}
