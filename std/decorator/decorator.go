// Package decorator has the legacy Aries message decorators we read from
// JSON bodies: ~thread and ~service.
package decorator

// Thread is the ~thread decorator.
type Thread struct {
	ID             string         `json:"thid,omitempty"`
	PID            string         `json:"pthid,omitempty"`
	SenderOrder    int            `json:"sender_order,omitempty"`
	ReceivedOrders map[string]int `json:"received_orders,omitempty"`
}

// Service is the ~service decorator. The sender tells with it where the
// replies go before there is a connection.
type Service struct {
	RecipientKeys   []string `json:"recipientKeys"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
}

// NewThread returns thread with parent ID only if it differs from the thread
// ID.
func NewThread(ID, PID string) *Thread {
	realPID := ""
	if ID != PID {
		realPID = PID
	}
	return &Thread{ID: ID, PID: realPID}
}

// CheckThread returns the thread whose ID defaults to the given ID.
func CheckThread(thread *Thread, ID string) *Thread {
	if thread == nil {
		return &Thread{ID: ID}
	}
	if thread.ID == "" {
		thread.ID = ID
	}
	return thread
}

// ThreadOf returns thread and parent thread IDs of the possibly nil thread.
func ThreadOf(thread *Thread) (thid, pthid string) {
	if thread == nil {
		return "", ""
	}
	return thread.ID, thread.PID
}
