// Package oob is the out-of-band invitation model for both the Aries RFC 0434
// (out-of-band/1.1) and the DIDComm v2 (out-of-band/2.0) shapes.
package oob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/findy-network/findy-didcomm/std/diddoc"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/mr-tron/base58"
)

var (
	ErrNoService = errors.New("no DIDComm service")
	ErrNoFrom    = errors.New("no from")
	ErrKeys      = errors.New("unexpected number of recipient keys")
)

// DefaultAccept is what we put to the invitations we create.
var DefaultAccept = []string{"didcomm/v2"}

// Service is the inline service block of the v1 invitation. A service can be
// only a DID as well, then ID has it and the rest is empty.
type Service struct {
	ID              string   `json:"id,omitempty"`
	Type            string   `json:"type,omitempty"`
	RecipientKeys   []string `json:"recipientKeys,omitempty"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint,omitempty"`
}

func (s *Service) UnmarshalJSON(data []byte) error {
	var did string
	if json.Unmarshal(data, &did) == nil {
		*s = Service{ID: did}
		return nil
	}
	type plain Service
	return json.Unmarshal(data, (*plain)(s))
}

func (s Service) isDIDComm() bool {
	return s.Type == diddoc.ServiceTypeDIDCommV1 || s.Type == diddoc.ServiceTypeDIDComm
}

// Invitation is the out-of-band invitation. V1 invitations have label and
// services, V2 invitations have from, goal and attachments.
type Invitation struct {
	ID                 string
	Type               string
	Label              string
	From               string
	GoalCode           string
	Goal               string
	Accept             []string
	HandshakeProtocols []string
	Services           []Service
	Attachments        []didcomm.Attachment

	mu    sync.Mutex
	state State
}

type invitationV1JSON struct {
	ID                 string    `json:"@id"`
	Type               string    `json:"@type"`
	Label              string    `json:"label,omitempty"`
	Accept             []string  `json:"accept,omitempty"`
	HandshakeProtocols []string  `json:"handshake_protocols,omitempty"`
	Services           []Service `json:"services"`
}

// NewV1 creates a new out-of-band/1.1 invitation to the endpoint.
func NewV1(label, endpoint, recipientKey string) *Invitation {
	inv := &Invitation{
		ID:                 utils.UUID(),
		Type:               pltype.OutOfBandInvitationV1,
		Label:              label,
		Accept:             []string{"didcomm/aip1", "didcomm/aip2;env=rfc19"},
		HandshakeProtocols: []string{pltype.ProtocolTrustPingV1},
		Services: []Service{{
			ID:              "#inline",
			Type:            diddoc.ServiceTypeDIDCommV1,
			RecipientKeys:   []string{recipientKey},
			ServiceEndpoint: endpoint,
		}},
		state: StateInitial,
	}
	return inv
}

// NewV2 creates a new out-of-band/2.0 invitation from the DID.
func NewV2(from, goalCode, goal string) *Invitation {
	return &Invitation{
		ID:       utils.UUID(),
		Type:     pltype.OutOfBandInvitationV2,
		From:     from,
		GoalCode: goalCode,
		Goal:     goal,
		Accept:   DefaultAccept,
		state:    StateInitial,
	}
}

// NewV1FromJSON parses and validates the out-of-band/1.1 invitation.
func NewV1FromJSON(data []byte) (inv *Invitation, err error) {
	defer err2.Handle(&err, "invitation v1")

	var v1 invitationV1JSON
	try.To(json.Unmarshal(data, &v1))
	inv = &Invitation{
		ID:                 v1.ID,
		Type:               v1.Type,
		Label:              v1.Label,
		Accept:             v1.Accept,
		HandshakeProtocols: v1.HandshakeProtocols,
		Services:           v1.Services,
	}
	try.To(inv.Validate())
	return inv, nil
}

// FromMessage builds the out-of-band/2.0 invitation from the message.
func FromMessage(msg *didcomm.Message) (inv *Invitation, err error) {
	defer err2.Handle(&err, "invitation v2")

	if msg.From == "" {
		return nil, ErrNoFrom
	}
	inv = &Invitation{
		ID:          msg.ID,
		Type:        msg.Type,
		From:        msg.From,
		GoalCode:    msg.BodyString("goal_code"),
		Goal:        msg.BodyString("goal"),
		Attachments: msg.Attachments,
		state:       StateInitial,
	}
	if accept, ok := msg.Body["accept"].([]any); ok {
		for _, a := range accept {
			if s, ok := a.(string); ok {
				inv.Accept = append(inv.Accept, s)
			}
		}
	}
	return inv, nil
}

// IsV2 tells if this is out-of-band/2.0 invitation.
func (inv *Invitation) IsV2() bool {
	return inv.Type == pltype.OutOfBandInvitationV2
}

// ToMessage returns the out-of-band/2.0 message of the invitation. Only the
// set body fields are written.
func (inv *Invitation) ToMessage() *didcomm.Message {
	body := map[string]any{}
	if inv.GoalCode != "" {
		body["goal_code"] = inv.GoalCode
	}
	if inv.Goal != "" {
		body["goal"] = inv.Goal
	}
	if len(inv.Accept) > 0 {
		body["accept"] = inv.Accept
	}
	return &didcomm.Message{
		ID:          inv.ID,
		Type:        inv.Type,
		From:        inv.From,
		Body:        body,
		Attachments: inv.Attachments,
	}
}

// JSON returns the out-of-band/1.1 JSON of the invitation.
func (inv *Invitation) JSON() []byte {
	data, _ := json.Marshal(invitationV1JSON{
		ID:                 inv.ID,
		Type:               inv.Type,
		Label:              inv.Label,
		Accept:             inv.Accept,
		HandshakeProtocols: inv.HandshakeProtocols,
		Services:           inv.Services,
	})
	return data
}

func (inv *Invitation) State() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// SetState moves the invitation to the next state if the transition is
// allowed.
func (inv *Invitation) SetState(next State) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if !inv.state.CanMove(next) {
		return transitionError(inv.state, next)
	}
	glog.V(3).Infof("invitation %s state %s => %s", inv.ID, inv.state, next)
	inv.state = next
	return nil
}

// Validate checks that the invitation has exactly one DIDComm service with
// exactly one recipient key. The v2 shape only needs the from. Unset state is
// moved to initial.
func (inv *Invitation) Validate() (err error) {
	defer err2.Handle(&err, "validate invitation %s", inv.ID)

	if inv.State() == StateUnset {
		try.To(inv.SetState(StateInitial))
	}
	if inv.IsV2() {
		if inv.From == "" {
			return ErrNoFrom
		}
		return nil
	}
	s := try.To1(inv.service())
	if len(s.RecipientKeys) != 1 {
		return fmt.Errorf("%w: %d", ErrKeys, len(s.RecipientKeys))
	}
	return nil
}

func (inv *Invitation) service() (s Service, err error) {
	count := 0
	for _, srv := range inv.Services {
		if srv.isDIDComm() {
			if count == 0 {
				s = srv
			}
			count++
		}
	}
	if count != 1 {
		return s, fmt.Errorf("%w: found %d services", ErrNoService, count)
	}
	return s, nil
}

// RecipientDID returns the DID the invitation is from: the recipient key of
// the v1 service or the from of the v2 invitation. Only self certified DIDs
// are resolved locally, others go to the resolver.
func (inv *Invitation) RecipientDID(ctx context.Context, r method.Resolver) (d method.DID, err error) {
	defer err2.Handle(&err, "invitation recipient did")

	if inv.IsV2() {
		if sc, scErr := method.SelfCertified(inv.From); scErr == nil {
			return sc, nil
		}
		return method.FromURI(ctx, inv.From, r)
	}
	s := try.To1(inv.service())
	if len(s.RecipientKeys) != 1 {
		return d, fmt.Errorf("%w: %d", ErrKeys, len(s.RecipientKeys))
	}
	key := s.RecipientKeys[0]
	if _, _, ok := method.Parse(key); ok {
		return method.SelfCertified(key)
	}
	pk := try.To1(base58.Decode(key))
	return method.SelfCertified(method.DIDKey(method.Ed25519Codec, pk))
}

// Key returns the invitation key, i.e. the verkey of the recipient DID. It's
// empty if the DID cannot be resolved locally.
func (inv *Invitation) Key() string {
	d, err := inv.RecipientDID(context.Background(), nil)
	if err != nil {
		glog.V(5).Infoln("no invitation key:", err)
		return ""
	}
	return d.VerKey
}

// ServiceEndpoint returns where the invitation responses go: the v1 service
// endpoint or the DIDComm service of the v2 sender's DID document.
func (inv *Invitation) ServiceEndpoint() (endpoint string, err error) {
	defer err2.Handle(&err, "invitation service endpoint")

	if !inv.IsV2() {
		return try.To1(inv.service()).ServiceEndpoint, nil
	}
	doc := try.To1(diddoc.Synthesize(inv.From))
	endpoint, ok := diddoc.ServiceEndpoint(doc)
	if !ok {
		return "", ErrNoService
	}
	return endpoint, nil
}

func (inv *Invitation) ShortString() string {
	endpoint, _ := inv.ServiceEndpoint()
	return fmt.Sprintf("[key=%s, url=%s]", inv.Key(), endpoint)
}
