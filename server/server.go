/*
Package server is the HTTP transport of the agent. Peers POST their DIDComm
envelopes to the service endpoint, the Content-Type tells the envelope type.
The receiver unpacks and dispatches them asynchronously, so the response only
tells if the message was accepted.
*/
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/findy-network/findy-didcomm/agent/wallet"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
	"github.com/rs/cors"
)

// MaxBodySize is the largest envelope we read.
const MaxBodySize = 4 << 20

// Receiver handles the inbound envelopes. A nil message with a nil error is
// the silent drop.
type Receiver interface {
	Receive(ctx context.Context, contentType string, body []byte) (*didcomm.EndpointMessage, error)
}

// Handler returns the router of the agent: the inbound endpoints
// POST /{service} and POST /{service}/{wallet}, and GET /version. The wallet
// of the path must be in the registry when it's given.
func Handler(serviceName string, rcvr Receiver, wallets *wallet.Registry) http.Handler {
	router := mux.NewRouter()
	t := &transport{rcvr: rcvr, wallets: wallets}

	router.HandleFunc("/version", version).Methods(http.MethodGet)
	router.HandleFunc("/"+serviceName, t.serve).Methods(http.MethodPost)
	router.HandleFunc("/"+serviceName+"/{wallet}", t.serve).Methods(http.MethodPost)

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With"},
	}).Handler(router)
}

// StartHTTPServer starts the http server. The function blocks when it success.
// The server port is the port to listen, the host address in utils.Settings
// is the one the world sees.
func StartHTTPServer(ctx context.Context, serviceName string, serverPort uint, rcvr Receiver, wallets *wallet.Registry) (err error) {
	defer err2.Handle(&err, "http server")

	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", serverPort),
		Handler:           Handler(serviceName, rcvr, wallets),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		glog.V(1).Infoln("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			glog.Errorln("shutdown:", err)
		}
	}()

	glog.V(1).Info(utils.Settings.VersionInfo())
	glog.V(1).Infof("HTTP Server on port: %v with service \"/%s\"", serverPort, serviceName)
	if err = server.ListenAndServe(); err == http.ErrServerClosed {
		return nil
	}
	return err
}

// BuildHostAddr builds the public address of the agent to utils.Settings
// from its host name. The default port of the scheme is left out.
func BuildHostAddr(scheme string, hostPort uint) {
	hostAddr := fmt.Sprintf("%s://%s", scheme, utils.Settings.HostAddr())
	if !(scheme == "http" && hostPort == 80) && !(scheme == "https" && hostPort == 443) {
		hostAddr = fmt.Sprintf("%s:%v", hostAddr, hostPort)
	}
	utils.Settings.SetHostAddr(hostAddr)
}

func version(w http.ResponseWriter, _ *http.Request) {
	glog.V(5).Info("/version requested")
	_, _ = w.Write([]byte(utils.Version))
}

type transport struct {
	rcvr    Receiver
	wallets *wallet.Registry
}

func (t *transport) serve(w http.ResponseWriter, r *http.Request) {
	defer err2.Catch(func(err error) error {
		glog.Errorln("transport:", err)
		errorResponse(w)
		return nil
	})

	if name, ok := mux.Vars(r)["wallet"]; ok && t.wallets != nil {
		if _, found := t.wallets.Get(name); !found {
			glog.V(1).Infoln("no wallet:", name)
			http.NotFound(w, r)
			return
		}
	}
	glog.V(3).Infof("===== %s %s (%s)", r.Method, r.URL.Path, r.Header.Get("Content-Type"))

	data := try.To1(io.ReadAll(io.LimitReader(r.Body, MaxBodySize)))
	epm := try.To1(t.rcvr.Receive(r.Context(), r.Header.Get("Content-Type"), data))
	if epm == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	glog.V(3).Infoln("accepted", epm.ShortString())
	w.WriteHeader(http.StatusAccepted)
}

func errorResponse(w http.ResponseWriter) {
	glog.V(2).Info("Returning 500")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("500 - Error"))
}
