package server

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/lainio/err2/assert"
	"github.com/lainio/err2/try"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	try.To(flag.Set("logtostderr", "true"))
	try.To(flag.Set("v", "3"))
	os.Exit(m.Run())
}

type receiver struct {
	contentType string
	body        []byte
	epm         *didcomm.EndpointMessage
	err         error
}

func (r *receiver) Receive(_ context.Context, contentType string, body []byte) (*didcomm.EndpointMessage, error) {
	r.contentType = contentType
	r.body = body
	return r.epm, r.err
}

func TestTransport(t *testing.T) {
	accepted := didcomm.MustEndpointMessage(didcomm.NewMessage("https://didcomm.org/trust-ping/2.0/ping"), nil)
	tests := []struct {
		name   string
		path   string
		epm    *didcomm.EndpointMessage
		err    error
		status int
	}{
		{"accepted", "/a2a", accepted, nil, http.StatusAccepted},
		{"wallet path", "/a2a/alice", accepted, nil, http.StatusAccepted},
		{"dropped", "/a2a", nil, nil, http.StatusNoContent},
		{"error", "/a2a", nil, errors.New("cannot unpack"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rcvr := &receiver{epm: tt.epm, err: tt.err}
			srv := httptest.NewServer(Handler("a2a", rcvr, nil))
			defer srv.Close()

			resp, err := http.Post(srv.URL+tt.path, didcomm.MediaTypeEncrypted, bytes.NewBufferString(`{"protected":"x"}`))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.status, resp.StatusCode)
			require.Equal(t, didcomm.MediaTypeEncrypted, rcvr.contentType)
			require.Equal(t, `{"protected":"x"}`, string(rcvr.body))
			if tt.err != nil {
				data, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				require.Equal(t, "500 - Error", string(data))
			}
		})
	}
}

func TestTransport_UnknownWallet(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	rcvr := &receiver{}
	srv := httptest.NewServer(Handler("a2a", rcvr, wallet.NewRegistry()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/a2a/nobody", didcomm.MediaTypeLegacy, bytes.NewBufferString("{}"))
	assert.NoError(err)
	defer resp.Body.Close()
	assert.Equal(resp.StatusCode, http.StatusNotFound)
	assert.Equal(rcvr.contentType, "")
}

func TestVersion(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	srv := httptest.NewServer(Handler("a2a", &receiver{}, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/version")
	assert.NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	assert.NoError(err)
	assert.Equal(string(data), utils.Version)

	resp2, err := http.Get(srv.URL + "/a2a")
	assert.NoError(err)
	defer resp2.Body.Close()
	assert.Equal(resp2.StatusCode, http.StatusMethodNotAllowed)
}

func TestBuildHostAddr(t *testing.T) {
	prev := utils.Settings.HostAddr()
	defer utils.Settings.SetHostAddr(prev)

	tests := []struct {
		scheme string
		port   uint
		want   string
	}{
		{"http", 80, "http://agent.example"},
		{"https", 443, "https://agent.example"},
		{"http", 8080, "http://agent.example:8080"},
	}
	for _, tt := range tests {
		utils.Settings.SetHostAddr("agent.example")
		BuildHostAddr(tt.scheme, tt.port)
		require.Equal(t, tt.want, utils.Settings.HostAddr())
	}
}
