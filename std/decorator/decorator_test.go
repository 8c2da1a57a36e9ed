package decorator

import (
	"encoding/json"
	"testing"

	"github.com/lainio/err2/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThread(t *testing.T) {
	tests := []struct {
		name    string
		ID, PID string
		want    *Thread
	}{
		{"PID empty", "12345", "", &Thread{ID: "12345"}},
		{"PID same", "12345", "12345", &Thread{ID: "12345"}},
		{"PID different", "12345", "123456", &Thread{ID: "12345", PID: "123456"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewThread(tt.ID, tt.PID))
		})
	}
}

func TestCheckThread(t *testing.T) {
	orgID := "ORG_ID_VALUE"
	id := "ID_VALUE"
	pid := "PID_VALUE"

	tests := []struct {
		name   string
		thread *Thread
		want   *Thread
	}{
		{"was nil", nil, &Thread{ID: id}},
		{"was empty", &Thread{}, &Thread{ID: id}},
		{"was pid", &Thread{PID: pid}, &Thread{ID: id, PID: pid}},
		{"was org", &Thread{ID: orgID}, &Thread{ID: orgID}},
		{"was org and pid", &Thread{ID: orgID, PID: pid}, &Thread{ID: orgID, PID: pid}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CheckThread(tt.thread, id))
		})
	}
}

func TestThreadJSON(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	var th Thread
	assert.NoError(json.Unmarshal([]byte(`{"thid":"t1","pthid":"p1"}`), &th))
	thid, pthid := ThreadOf(&th)
	assert.Equal(thid, "t1")
	assert.Equal(pthid, "p1")

	thid, pthid = ThreadOf(nil)
	assert.Equal(thid, "")
	assert.Equal(pthid, "")
}
