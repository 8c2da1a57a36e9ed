package prot

import (
	"context"
	"errors"
	"testing"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/exchange"
	"github.com/lainio/err2/assert"
	"github.com/stretchr/testify/require"
)

const (
	testURI      = "https://example.org/test/1.0"
	testAliasURI = "https://example.org/test/0.9"
	testType     = testURI + "/hello"
)

var handled []string

var testProc = Proc{
	URI: testURI,
	Handlers: map[string]HandlerFunc{
		testType: func(_ context.Context, p Packet) error {
			handled = append(handled, p.Message.ID())
			return nil
		},
	},
}

func init() {
	AddProc(testProc, testAliasURI)
}

func TestFindKey(t *testing.T) {
	assert.PushTester(t)
	defer assert.PopTester()

	key, err := FindKey(testURI)
	assert.NoError(err)
	assert.Equal(key.URI, testURI)

	_, err = FindKey(testURI + "/hello")
	assert.That(errors.Is(err, ErrUnknownProtocol))

	_, err = FindKey("https://example.org/test")
	assert.That(errors.Is(err, ErrUnknownProtocol))
}

func TestKeyFromType(t *testing.T) {
	tests := []struct {
		msgType string
		uri     string
		ok      bool
	}{
		{testType, testURI, true},
		{testAliasURI + "/hello", testAliasURI, true},
		{testURI + "1/hello", "", false},
		{"https://example.org/other/1.0/hello", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.msgType, func(t *testing.T) {
			key, ok := KeyFromType(tt.msgType)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.uri, key.URI)
		})
	}
}

func TestGetAndInvoke(t *testing.T) {
	ex := exchange.New(nil)
	defer ex.Close()

	h, err := Get(Key{URI: testURI}, ex)
	require.NoError(t, err)
	require.Equal(t, testURI, h.URI())

	_, err = Get(Key{URI: "https://example.org/none/1.0"}, ex)
	require.True(t, errors.Is(err, ErrUnknownProtocol))

	msg := didcomm.MustEndpointMessage(didcomm.NewMessage(testType), nil)
	require.NoError(t, h.Invoke(context.Background(), Packet{Message: msg}))
	require.Equal(t, []string{msg.ID()}, handled)

	other := didcomm.MustEndpointMessage(didcomm.NewMessage(testURI+"/bye"), nil)
	err = h.Invoke(context.Background(), Packet{Message: other})
	require.True(t, errors.Is(err, ErrUnsupported))
}

func TestAddReplaces(t *testing.T) {
	count := len(Keys())
	AddProc(testProc)
	require.Len(t, Keys(), count)
}
