package issuecredential

import (
	"context"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/std/issuecredential"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// Propose sends the proposal of the credential to the issuer and places the
// future of the issued credential.
func Propose(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	ex *exchange.Exchange,
	credential []byte,
	opts Options,
) (epm *didcomm.EndpointMessage, err error) {
	defer err2.Handle(&err, "propose credential")

	msg := try.To1(issuecredential.New(pltype.IssueCredentialPropose, "", opts.body(), credential))
	try.To(prot.Expect(ex, pltype.IssueCredentialIssue))
	return prot.Send(ctx, out, w, ex, msg, didcomm.MediaTypeEncrypted)
}

// AwaitCredential waits for the issued credential. The future must be
// placed before the credential arrives, either by Propose or by Expect.
func AwaitCredential(ctx context.Context, ex *exchange.Exchange) (credential []byte, err error) {
	defer err2.Handle(&err, "await credential")

	msg := try.To1(ex.AwaitDefault(ctx, pltype.IssueCredentialIssue))
	if credential, ok := Credential(ex); ok {
		return credential, nil
	}
	m, _ := msg.Message()
	return issuecredential.CredentialOf(m)
}

// Expect places the future of the credential the issuer is going to offer.
func Expect(ex *exchange.Exchange) error {
	return prot.Expect(ex, pltype.IssueCredentialIssue)
}

// Credential returns the credential the holder received in the exchange.
func Credential(ex *exchange.Exchange) ([]byte, bool) {
	return exchange.Attachment(ex, exchange.CredentialKey)
}

func handleOffer(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle credential offer")

	msg, _ := p.Message.Message()
	conn := try.To1(p.Exchange.Connection())
	offered := try.To1(issuecredential.CredentialOf(msg))
	body, _ := try.To2(issuecredential.Of(msg))
	if body.CredentialPreview != nil {
		glog.V(1).Infof("wallet %s offered %v", p.Wallet.Name(), body.CredentialPreview.Values())
	}

	requested, err := RequestFor(ctx, p.Wallet, conn, offered)
	if err != nil {
		return refuse(ctx, p, msg, err)
	}
	req := try.To1(issuecredential.New(pltype.IssueCredentialRequest, msg.EffectiveThid(),
		issuecredential.Body{GoalCode: body.GoalCode}, requested))
	try.To(prot.Expect(p.Exchange, pltype.IssueCredentialIssue))
	try.To1(p.Reply(ctx, req))
	return p.Complete()
}

func handleIssue(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle issued credential")

	msg, _ := p.Message.Message()
	conn := try.To1(p.Exchange.Connection())
	credential := try.To1(issuecredential.CredentialOf(msg))
	if err := Store(ctx, p.Wallet, conn, credential); err != nil {
		return refuse(ctx, p, msg, err)
	}
	try.To(exchange.PutAttachment(p.Exchange, exchange.CredentialKey, credential))

	ack := didcomm.NewMessage(pltype.IssueCredentialAck)
	ack.Thid = msg.EffectiveThid()
	ack.Body["status"] = "OK"
	try.To1(p.Reply(ctx, ack))
	return p.Complete()
}
