package comm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/pairwise"
	"github.com/findy-network/findy-didcomm/agent/pltype"
	"github.com/findy-network/findy-didcomm/method"
	"github.com/lainio/err2/try"
	"github.com/stretchr/testify/require"
)

type capture struct {
	contentType string
	body        []byte
}

func newCaptureServer(t *testing.T) (*httptest.Server, chan capture) {
	got := make(chan capture, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- capture{contentType: r.Header.Get("Content-Type"), body: body}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func encrypted(msg *didcomm.Message) *didcomm.EndpointMessage {
	return didcomm.MustEndpointMessage(msg, map[string]string{
		didcomm.HeaderMediaType: didcomm.MediaTypeEncrypted,
	})
}

func TestDispatcherSend(t *testing.T) {
	srv, got := newCaptureServer(t)
	ctx := context.Background()
	d := &Dispatcher{}

	conn := pairwise.New(pairwise.Info{
		ID:            "send",
		MyDID:         aliceDID,
		TheirDID:      &bobDID,
		TheirEndpoint: srv.URL,
		State:         pairwise.StateActive,
	})
	tests := []struct {
		name      string
		mediaType string
		want      string
		signed    bool
	}{
		{"default", "", didcomm.MediaTypeEncrypted, false},
		{"encrypted", didcomm.MediaTypeEncrypted, didcomm.MediaTypeEncrypted, false},
		{"signed", didcomm.MediaTypeSigned, didcomm.MediaTypeSigned, true},
		{"plain", didcomm.MediaTypePlain, didcomm.MediaTypePlain, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := helloFrom(aliceDID, bobDID)
			if tt.mediaType == "" {
				msg.Typ = ""
			}
			epm := didcomm.MustEndpointMessage(msg, map[string]string{
				didcomm.HeaderMediaType: tt.mediaType,
			})
			require.NoError(t, d.Send(ctx, alice, conn, epm))

			c := <-got
			require.Equal(t, tt.want, c.contentType)
			unpacked, meta, err := bob.Pipe().Unpack(ctx, c.body)
			require.NoError(t, err)
			require.Equal(t, msg.ID, unpacked.ID)
			require.Equal(t, tt.want == didcomm.MediaTypeEncrypted, meta.Encrypted)
			require.Equal(t, tt.signed, meta.NonRepudiation)
		})
	}
}

func TestDispatcherSend_Legacy(t *testing.T) {
	srv, got := newCaptureServer(t)
	conn := pairwise.New(pairwise.Info{
		ID:            "legacy",
		MyDID:         aliceDID,
		TheirDID:      &bobDID,
		TheirEndpoint: srv.URL,
		State:         pairwise.StateActive,
	})
	body := `{"@id":"legacy-out","@type":"` + pltype.TrustPingV1 + `"}`
	epm := didcomm.MustEndpointMessage(body, map[string]string{
		didcomm.HeaderMediaType: didcomm.MediaTypeLegacy,
	})
	require.NoError(t, (&Dispatcher{}).Send(context.Background(), alice, conn, epm))

	c := <-got
	require.Equal(t, didcomm.MediaTypeLegacy, c.contentType)
	res, err := bob.Pipe().UnpackLegacy(c.body)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.JSONEq(t, body, string(res.Message))
	require.Equal(t, aliceDID.VerKey, res.SenderVerkey)
}

func TestDispatcherSend_ResolvedEndpoint(t *testing.T) {
	srv, got := newCaptureServer(t)
	ctx := context.Background()

	dave := openWallet("dave", srv.URL)
	defer dave.Close()
	daveDID := try.To1(dave.CreateDID(method.Peer))

	conn := pairwise.New(pairwise.Info{
		ID:       "resolved",
		MyDID:    aliceDID,
		TheirDID: &daveDID,
		State:    pairwise.StateActive,
	})
	msg := helloFrom(aliceDID, daveDID)
	require.NoError(t, (&Dispatcher{}).Send(ctx, alice, conn, encrypted(msg)))

	c := <-got
	unpacked, _, err := dave.Pipe().Unpack(ctx, c.body)
	require.NoError(t, err)
	require.Equal(t, msg.ID, unpacked.ID)
}

func TestDispatcherSend_Forward(t *testing.T) {
	srv, got := newCaptureServer(t)
	ctx := context.Background()

	mediator := openWallet("mediator", srv.URL)
	defer mediator.Close()
	mediatorDID := try.To1(mediator.CreateDID(method.Peer))

	conn := pairwise.New(pairwise.Info{
		ID:            "routed",
		MyDID:         aliceDID,
		TheirDID:      &bobDID,
		TheirEndpoint: mediatorDID.URI(),
		State:         pairwise.StateActive,
	})
	msg := helloFrom(aliceDID, bobDID)
	require.NoError(t, (&Dispatcher{}).Send(ctx, alice, conn, encrypted(msg)))

	c := <-got
	require.Equal(t, didcomm.MediaTypeEncrypted, c.contentType)
	fwd, meta, err := mediator.Pipe().Unpack(ctx, c.body)
	require.NoError(t, err)
	require.True(t, meta.AnonymousSender)
	require.Equal(t, pltype.RoutingForward, fwd.Type)
	require.Equal(t, bobDID.URI(), fwd.BodyString("next"))
	require.Len(t, fwd.Attachments, 1)

	payload, err := fwd.Attachments[0].Bytes()
	require.NoError(t, err)
	unpacked, _, err := bob.Pipe().Unpack(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, msg.ID, unpacked.ID)
}

func TestDispatcherSend_NoEndpoint(t *testing.T) {
	keyDID := try.To1(carol.CreateDID(method.Key))
	conn := pairwise.New(pairwise.Info{
		ID:       "no-endpoint",
		MyDID:    aliceDID,
		TheirDID: &keyDID,
		State:    pairwise.StateActive,
	})
	msg := helloFrom(aliceDID, keyDID)
	err := (&Dispatcher{}).Send(context.Background(), alice, conn, encrypted(msg))
	require.ErrorIs(t, err, ErrNoURL)
}
