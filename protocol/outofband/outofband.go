/*
Package outofband creates and receives out-of-band invitations, DIDComm v2
out-of-band/2.0 and the Aries out-of-band/1.1. Both sides get a connection in
the INVITATION state and an exchange which starts from the invitation. The
invitee completes the connection with a trust ping.
*/
package outofband

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/prot"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/findy-network/findy-didcomm/std/oob"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

var ErrNotInvitation = errors.New("not an invitation")

// Options of the invitation we create.
type Options struct {
	GoalCode string
	Goal     string

	// DID is our existing DID the invitation is from. A new one is created
	// when nil.
	DID *method.DID

	// Alias is our name for the connection.
	Alias string
}

// aliasKey carries the alias of the invitee's connection to the handler.
var aliasKey = exchange.NewKey[string]("alias")

var invitationProc = prot.Proc{
	URI: pltype.ProtocolOutOfBandV2,
	Handlers: map[string]prot.HandlerFunc{
		pltype.OutOfBandInvitationV2: handleInvitation,
	},
}

var legacyProc = prot.Proc{
	URI: pltype.ProtocolOutOfBandV1,
	Handlers: map[string]prot.HandlerFunc{
		pltype.OutOfBandInvitationV1: handleInvitation,
	},
}

func init() {
	prot.AddProc(invitationProc)
	prot.AddProc(legacyProc)
}

// CreateInvitation creates the out-of-band/2.0 invitation from a did:peer:2
// of the wallet and registers its exchange with the inviter's connection.
// The returned invitation is the one of the exchange.
func CreateInvitation(
	w *wallet.Wallet,
	reg exchange.Registry,
	opts Options,
) (ex *exchange.Exchange, inv *oob.Invitation, err error) {
	defer err2.Handle(&err, "create invitation")

	did := try.To1(invitationDID(w, method.Peer, opts.DID))
	inv = oob.NewV2(did.URI(), opts.GoalCode, opts.Goal)
	ex = try.To1(start(w, reg, inv, inv.ToMessage(), pairwise.Info{
		AgentType: pairwise.AgentNessus,
		MyDID:     did,
		Alias:     opts.Alias,
	}))
	return ex, ex.Invitation(), nil
}

// CreateLegacyInvitation creates the out-of-band/1.1 invitation from a
// did:key of the wallet. The invitee answers with trust_ping/1.0 in the RFC0019
// envelope.
func CreateLegacyInvitation(
	w *wallet.Wallet,
	reg exchange.Registry,
	opts Options,
) (ex *exchange.Exchange, inv *oob.Invitation, err error) {
	defer err2.Handle(&err, "create legacy invitation")

	did := try.To1(invitationDID(w, method.Key, opts.DID))
	inv = oob.NewV1(w.Name(), w.Endpoint(), did.VerKey)
	ex = try.To1(start(w, reg, inv, inv.JSON(), pairwise.Info{
		AgentType: pairwise.AgentAcaPy,
		MyDID:     did,
		Alias:     opts.Alias,
	}))
	return ex, ex.Invitation(), nil
}

func invitationDID(w *wallet.Wallet, m method.Method, did *method.DID) (method.DID, error) {
	if did == nil {
		return w.CreateDID(m)
	}
	if _, ok := w.FindDID(did.URI()); !ok {
		return method.DID{}, fmt.Errorf("inviter doesn't own %s", did)
	}
	return *did, nil
}

// start adds the outbound invitation to a new exchange and sets the
// inviter's connection to it.
func start(
	w *wallet.Wallet,
	reg exchange.Registry,
	inv *oob.Invitation,
	body any,
	info pairwise.Info,
) (ex *exchange.Exchange, err error) {
	defer err2.Handle(&err)

	ex = exchange.New(reg)
	defer func() {
		if err != nil {
			ex.Close()
		}
	}()

	epm := try.To1(didcomm.NewEndpointMessage(body, map[string]string{
		didcomm.HeaderMediaType:   mediaType(inv),
		didcomm.HeaderDirection:   string(didcomm.DirectionOut),
		didcomm.HeaderProtocolURI: protocolURI(inv),
	}))
	try.To(ex.AddMessage(epm))

	info.ID = utils.UUID()
	info.InvitationKey = inv.Key()
	info.MyRole = pairwise.RoleInviter
	info.MyLabel = w.Name()
	info.MyEndpoint = w.Endpoint()
	info.TheirRole = pairwise.RoleInvitee
	info.State = pairwise.StateInvitation
	conn := pairwise.New(info)
	try.To(ex.SetConnection(conn))
	try.To(w.AddConnection(conn))

	glog.V(1).Infof("wallet %s created invitation %s", w.Name(), inv.ID)
	return ex, nil
}

// ReceiveInvitation starts the invitee's exchange from the invitation and
// runs the invitation handler, which creates the invitee's connection. The
// alias names the connection, it defaults to the label of the invitation.
func ReceiveInvitation(
	ctx context.Context,
	out prot.Outbound,
	w *wallet.Wallet,
	reg exchange.Registry,
	inv *oob.Invitation,
	alias string,
) (ex *exchange.Exchange, err error) {
	defer err2.Handle(&err, "receive invitation %s", inv.ID)

	try.To(inv.Validate())
	var body any = inv.ToMessage()
	if !inv.IsV2() {
		body = inv.JSON()
	}
	epm := try.To1(didcomm.NewEndpointMessage(body, map[string]string{
		didcomm.HeaderMediaType:   mediaType(inv),
		didcomm.HeaderDirection:   string(didcomm.DirectionIn),
		didcomm.HeaderProtocolURI: protocolURI(inv),
	}))

	ex = exchange.New(reg)
	if err := ex.AddMessage(epm); err != nil {
		ex.Close()
		return nil, err
	}
	if alias != "" {
		try.To(exchange.PutAttachment(ex, aliasKey, alias))
	}
	key := try.To1(prot.FindKey(protocolURI(inv)))
	h := try.To1(prot.Get(key, ex))
	try.To(h.Invoke(ctx, prot.Packet{Out: out, Wallet: w, Message: epm}))
	return ex, nil
}

// handleInvitation creates the invitee's DID and connection. The DID has the
// method of the inviter's.
func handleInvitation(ctx context.Context, p prot.Packet) (err error) {
	defer err2.Handle(&err, "handle invitation")

	inv := p.Exchange.Invitation()
	if inv == nil {
		return ErrNotInvitation
	}
	try.To(inv.SetState(oob.StateReceive))

	inviter := try.To1(inv.RecipientDID(ctx, p.Wallet.Resolver()))
	var endpoint string
	if inv.IsV2() {
		_, endpoint = try.To2(prot.TheirDID(ctx, p.Wallet, inv.From))
	} else {
		endpoint = try.To1(inv.ServiceEndpoint())
	}
	if endpoint == "" {
		return fmt.Errorf("%w: from %s", oob.ErrNoService, inviter)
	}

	m := method.Peer
	agentType := pairwise.AgentNessus
	if !inv.IsV2() {
		m = method.Key
		agentType = pairwise.AgentAcaPy
	} else if inviter.Method == method.Key {
		m = method.Key
	}
	my := try.To1(p.Wallet.CreateDID(m))

	alias, ok := exchange.Attachment(p.Exchange, aliasKey)
	if !ok {
		alias = inv.Label
	}
	conn := pairwise.New(pairwise.Info{
		ID:            utils.UUID(),
		AgentType:     agentType,
		InvitationKey: inv.Key(),
		Alias:         alias,
		MyDID:         my,
		MyRole:        pairwise.RoleInvitee,
		MyLabel:       p.Wallet.Name(),
		MyEndpoint:    p.Wallet.Endpoint(),
		TheirDID:      &inviter,
		TheirRole:     pairwise.RoleInviter,
		TheirLabel:    inv.Label,
		TheirEndpoint: endpoint,
		State:         pairwise.StateInvitation,
	})
	try.To(p.Exchange.SetConnection(conn))
	try.To(p.Wallet.AddConnection(conn))
	glog.V(1).Infof("wallet %s received invitation %s: %s",
		p.Wallet.Name(), inv.ID, conn.ShortString())
	return p.Complete()
}

func mediaType(inv *oob.Invitation) string {
	if inv.IsV2() {
		return didcomm.MediaTypePlain
	}
	return didcomm.MediaTypeLegacy
}

func protocolURI(inv *oob.Invitation) string {
	if inv.IsV2() {
		return pltype.ProtocolOutOfBandV2
	}
	return pltype.ProtocolOutOfBandV1
}

// Parse reads the invitation from its JSON, either shape, or from an
// invitation URL with the base64url encoded _oob query parameter.
func Parse(data []byte) (inv *oob.Invitation, err error) {
	defer err2.Handle(&err, "parse invitation")

	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "{") {
		u := try.To1(url.Parse(s))
		encoded := u.Query().Get("_oob")
		if encoded == "" {
			return nil, fmt.Errorf("%w: no _oob in url", ErrNotInvitation)
		}
		data = try.To1(utils.DecodeB64(encoded))
	}

	var probe struct {
		Type       string `json:"type"`
		LegacyType string `json:"@type"`
	}
	try.To(json.Unmarshal(data, &probe))
	switch {
	case probe.Type == pltype.OutOfBandInvitationV2:
		msg := try.To1(didcomm.ParseMessage(data))
		inv = try.To1(oob.FromMessage(msg))
	case probe.LegacyType == pltype.OutOfBandInvitationV1:
		inv = try.To1(oob.NewV1FromJSON(data))
	default:
		return nil, fmt.Errorf("%w: type %s%s", ErrNotInvitation, probe.Type, probe.LegacyType)
	}
	return inv, nil
}

// URL returns the invitation URL of the endpoint with the base64url encoded
// invitation as the _oob query parameter.
func URL(endpoint string, inv *oob.Invitation) string {
	data := inv.JSON()
	if inv.IsV2() {
		data = inv.ToMessage().JSON()
	}
	return endpoint + "?_oob=" + utils.EncodeB64(data)
}
