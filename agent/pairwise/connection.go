// Package pairwise is the connection between two DIDs, ours and theirs.
package pairwise

import (
	"fmt"
	"sync"

	"github.com/findy-network/findy-didcomm/agent/storage/api"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/golang/glog"
)

type State string

const (
	StateInvitation State = "INVITATION"
	StateRequest    State = "REQUEST"
	StateResponse   State = "RESPONSE"
	StateCompleted  State = "COMPLETED"
	StateActive     State = "ACTIVE"
)

type Role string

const (
	RoleInviter   Role = "INVITER"
	RoleInvitee   Role = "INVITEE"
	RoleResponder Role = "RESPONDER"
	RoleRequester Role = "REQUESTER"
)

// AgentType is the implementation family of the agent on the other end.
type AgentType string

const (
	AgentNessus AgentType = "NESSUS"
	AgentAcaPy  AgentType = "ACAPY"
)

// rotated logs the DID rotations.
var rotated = func(format string, args ...any) {
	glog.V(1).Infof(format, args...)
}

// UnsetDID is their DID until the other end has told us theirs.
var UnsetDID = method.New(method.Sov, "1111111111111111", "11111111111111111111111111111111")

// Connection is safe for concurrent use. Every accessor locks separately,
// there is no atomic update of many fields.
type Connection struct {
	id            string
	agentType     AgentType
	invitationKey string
	alias         string

	l sync.RWMutex

	myDID      method.DID
	myRole     Role
	myLabel    string
	myEndpoint string

	theirDID      method.DID
	theirRole     Role
	theirLabel    string
	theirEndpoint string
	theirRoute    []string

	state State
}

// Info has the initial values of the connection.
type Info struct {
	ID            string
	AgentType     AgentType
	InvitationKey string
	Alias         string

	MyDID      method.DID
	MyRole     Role
	MyLabel    string
	MyEndpoint string

	TheirDID      *method.DID // nil is UnsetDID
	TheirRole     Role
	TheirLabel    string
	TheirEndpoint string

	State State
}

func New(info Info) *Connection {
	theirDID := UnsetDID
	if info.TheirDID != nil {
		theirDID = *info.TheirDID
	}
	return &Connection{
		id:            info.ID,
		agentType:     info.AgentType,
		invitationKey: info.InvitationKey,
		alias:         info.Alias,
		myDID:         info.MyDID,
		myRole:        info.MyRole,
		myLabel:       info.MyLabel,
		myEndpoint:    info.MyEndpoint,
		theirDID:      theirDID,
		theirRole:     info.TheirRole,
		theirLabel:    info.TheirLabel,
		theirEndpoint: info.TheirEndpoint,
		state:         info.State,
	}
}

func (c *Connection) ID() string            { return c.id }
func (c *Connection) AgentType() AgentType  { return c.agentType }
func (c *Connection) InvitationKey() string { return c.invitationKey }
func (c *Connection) Alias() string         { return c.alias }

// Legacy tells if the other end speaks only the Aries RFC0019 envelopes.
func (c *Connection) Legacy() bool { return c.agentType == AgentAcaPy }

func (c *Connection) MyDID() method.DID {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.myDID
}

// SetMyDID rotates our DID.
func (c *Connection) SetMyDID(did method.DID) {
	c.l.Lock()
	defer c.l.Unlock()
	rotated("Rotate myDid: %s => %s", c.myDID.URI(), did.URI())
	c.myDID = did
}

func (c *Connection) TheirDID() method.DID {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.theirDID
}

// SetTheirDID rotates their DID. Replacing UnsetDID isn't a rotation.
func (c *Connection) SetTheirDID(did method.DID) {
	c.l.Lock()
	defer c.l.Unlock()
	if !c.theirDID.Equal(UnsetDID) {
		rotated("Rotate theirDid: %s => %s", c.theirDID.URI(), did.URI())
	}
	c.theirDID = did
}

// HasTheirDID tells if the other end has told us its DID.
func (c *Connection) HasTheirDID() bool {
	return !c.TheirDID().Equal(UnsetDID)
}

func (c *Connection) MyVerkey() string {
	return c.MyDID().VerKey
}

func (c *Connection) TheirVerkey() string {
	return c.TheirDID().VerKey
}

func (c *Connection) MyRole() Role {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.myRole
}

func (c *Connection) SetMyRole(r Role) {
	c.l.Lock()
	defer c.l.Unlock()
	c.myRole = r
}

func (c *Connection) TheirRole() Role {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.theirRole
}

func (c *Connection) SetTheirRole(r Role) {
	c.l.Lock()
	defer c.l.Unlock()
	c.theirRole = r
}

func (c *Connection) MyLabel() string {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.myLabel
}

func (c *Connection) SetMyLabel(label string) {
	c.l.Lock()
	defer c.l.Unlock()
	c.myLabel = label
}

func (c *Connection) TheirLabel() string {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.theirLabel
}

func (c *Connection) SetTheirLabel(label string) {
	c.l.Lock()
	defer c.l.Unlock()
	c.theirLabel = label
}

func (c *Connection) MyEndpoint() string {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.myEndpoint
}

func (c *Connection) SetMyEndpoint(url string) {
	c.l.Lock()
	defer c.l.Unlock()
	c.myEndpoint = url
}

func (c *Connection) TheirEndpoint() string {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.theirEndpoint
}

func (c *Connection) SetTheirEndpoint(url string) {
	c.l.Lock()
	defer c.l.Unlock()
	c.theirEndpoint = url
}

// TheirRoute returns the routing keys of the other end, outermost last.
func (c *Connection) TheirRoute() []string {
	c.l.RLock()
	defer c.l.RUnlock()
	return append([]string(nil), c.theirRoute...)
}

func (c *Connection) SetTheirRoute(keys []string) {
	c.l.Lock()
	defer c.l.Unlock()
	c.theirRoute = append([]string(nil), keys...)
}

func (c *Connection) State() State {
	c.l.RLock()
	defer c.l.RUnlock()
	return c.state
}

func (c *Connection) SetState(s State) {
	c.l.Lock()
	defer c.l.Unlock()
	glog.V(3).Infof("connection %s: %s -> %s", c.id, c.state, s)
	c.state = s
}

// Record returns the persistent snapshot of the connection.
func (c *Connection) Record() api.Connection {
	c.l.RLock()
	defer c.l.RUnlock()
	return api.Connection{
		ID:            c.id,
		AgentType:     string(c.agentType),
		InvitationKey: c.invitationKey,
		Alias:         c.alias,
		State:         string(c.state),
		MyDID:         c.myDID.URI(),
		MyVerKey:      c.myDID.VerKey,
		MyRole:        string(c.myRole),
		MyLabel:       c.myLabel,
		MyEndpoint:    c.myEndpoint,
		TheirDID:      c.theirDID.URI(),
		TheirVerKey:   c.theirDID.VerKey,
		TheirRole:     string(c.theirRole),
		TheirLabel:    c.theirLabel,
		TheirEndpoint: c.theirEndpoint,
		TheirRoute:    append([]string(nil), c.theirRoute...),
	}
}

// FromRecord restores the connection from its snapshot.
func FromRecord(r api.Connection) *Connection {
	c := New(Info{
		ID:            r.ID,
		AgentType:     AgentType(r.AgentType),
		InvitationKey: r.InvitationKey,
		Alias:         r.Alias,
		MyDID:         didOf(r.MyDID, r.MyVerKey),
		MyRole:        Role(r.MyRole),
		MyLabel:       r.MyLabel,
		MyEndpoint:    r.MyEndpoint,
		TheirRole:     Role(r.TheirRole),
		TheirLabel:    r.TheirLabel,
		TheirEndpoint: r.TheirEndpoint,
		State:         State(r.State),
	})
	if theirs := didOf(r.TheirDID, r.TheirVerKey); !theirs.Equal(UnsetDID) {
		c.theirDID = theirs
	}
	c.theirRoute = r.TheirRoute
	return c
}

func didOf(uri, verkey string) method.DID {
	return method.New(method.MethodFromString(method.String(uri)), uri, verkey)
}

func (c *Connection) ShortString() string {
	return fmt.Sprintf("%s [id=%s, myDid=%s, theirDid=%s, state=%s]",
		c.alias, c.id, c.MyDID().URI(), c.TheirDID().URI(), c.State())
}

func (c *Connection) String() string {
	return c.ShortString()
}
