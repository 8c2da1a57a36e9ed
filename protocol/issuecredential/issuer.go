package issuecredential

import (
	"context"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/std/issuecredential"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Offer sends the offer of the credential to the holder and places the
// future of the holder's ack.
func Offer(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	credential []byte,
	opts Options,
) (epm *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "offer credential")

	msg := try.To1(issuecredential.New(pltype.IssueCredentialOffer, "", opts.body(), credential))
	try.To(prot.Expect(ex, pltype.IssueCredentialAck))
	return prot.Send(ctx, out, w, ex, msg, didcomm.MediaTypeEncrypted)
}

// Issue offers the credential and waits until the holder has acknowledged
// it.
func Issue(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	credential []byte,
	opts Options,
) (ack *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "issue credential")

	try.To1(Offer(ctx, out, w, ex, credential, opts))
	return ex.AwaitDefault(ctx, pltype.IssueCredentialAck)
}

// AwaitAck waits for the holder's ack of the issued credential.
func AwaitAck(ctx context.Context, ex *exchange.Exchange) (*didcomm.EndpointMessage, error) {
	return ex.AwaitDefault(ctx, pltype.IssueCredentialAck)
}

func handlePropose(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle credential proposal")

	msg, _ := p.Message.Message()
	conn := try.To1(p.Exchange.Connection())
	body, proposed := try.To2(issuecredential.Of(msg))

	offered, err := OfferFor(ctx, p.Wallet, conn, proposed)
	if err != nil {
		return refuse(ctx, p, msg, err)
	}
	offer := try.To1(issuecredential.New(pltype.IssueCredentialOffer, msg.EffectiveThid(),
		issuecredential.Body{
			GoalCode:          body.GoalCode,
			CredentialPreview: body.CredentialPreview,
		}, offered))
	try.To(prot.Expect(p.Exchange, pltype.IssueCredentialAck))
	try.To1(p.Reply(ctx, offer))
	return p.Complete()
}

func handleRequest(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle credential request")

	msg, _ := p.Message.Message()
	conn := try.To1(p.Exchange.Connection())
	body, requested := try.To2(issuecredential.Of(msg))

	issued, err := IssueFor(ctx, p.Wallet, conn, requested)
	if err != nil {
		return refuse(ctx, p, msg, err)
	}
	cred := try.To1(issuecredential.New(pltype.IssueCredentialIssue, msg.EffectiveThid(),
		issuecredential.Body{GoalCode: body.GoalCode}, issued))
	try.To(prot.Expect(p.Exchange, pltype.IssueCredentialAck))
	try.To1(p.Reply(ctx, cred))
	return p.Complete()
}

func handleAck(_ context.Context, p prot.Packet) error {
	return p.Complete()
}
