package comm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/findy-network/findy-didcomm/agent/utils"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

// errorMessageMaxLength is the maximum length of the response body we will
// include into the generated error message
const errorMessageMaxLength = 80

var (
	ErrStatus = errors.New("http status")
	ErrNoURL  = errors.New("no endpoint url")
)

// StatusError is the non-2xx response of the other end. It isn't retried.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status
}

func (e *StatusError) Unwrap() error { return ErrStatus }

var (
	// SendAndWaitReq is proxy function to route actual call to http or pseudo
	// http in tests.
	SendAndWaitReq = sendAndWaitHTTPRequest

	c = &http.Client{}
)

// NewBackOff returns the retry policy of the delivery: exponential back off
// for the delivery timeout.
var NewBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = utils.Settings.Timeout()
	return b
}

// Deliver posts the message body to the url with the media type header of
// the message as the content type. Transport errors are retried, non-2xx
// statuses are returned at once as *StatusError.
func Deliver(ctx context.Context, urlStr string, epm *didcomm.EndpointMessage) (err error) {
	defer err2.Handle(&err, "deliver %s", epm.ShortString())

	if urlStr == "" {
		return ErrNoURL
	}
	mediaType := epm.MediaType()
	if mediaType == "" {
		mediaType = didcomm.MediaTypeEncrypted
	}
	body := []byte(epm.BodyJSON())

	if glog.V(3) {
		glog.Infof("===== Outgoing TRANSPORT %s =====", mediaType)
		glog.Info(urlStr)
		glog.Info("=====")
	}

	try.To(backoff.RetryNotify(func() error {
		_, err := SendAndWaitReq(ctx, urlStr, mediaType, bytes.NewReader(body))
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(NewBackOff(), ctx), func(err error, d time.Duration) {
		glog.Warningf("delivery to %s failed, retry in %v: %v", urlStr, d, err)
	}))
	return nil
}

func sendAndWaitHTTPRequest(
	ctx context.Context,
	urlStr, contentType string,
	msg io.Reader,
) (data []byte, err error) {
	defer err2.Handle(&err, "call http")

	URL := try.To1(url.Parse(urlStr))

	ctx, cancel := context.WithTimeout(ctx, utils.Settings.Timeout())
	defer cancel()

	request := try.To1(http.NewRequestWithContext(ctx, http.MethodPost, URL.String(), msg))
	request.Close = true // deferred response.Body.Close isn't always enough
	request.Header.Set("Content-Type", contentType)

	response := try.To1(c.Do(request))

	defer func() {
		closeErr := response.Body.Close()
		if closeErr != nil {
			glog.Warningln("body.Close: ", closeErr)
		}
	}()

	data = try.To1(io.ReadAll(response.Body))

	return checkHTTPStatus(response, data)
}

// checkHTTPStatus checks the status code and gets the server message
func checkHTTPStatus(response *http.Response, data []byte) ([]byte, error) {
	if response.StatusCode < 200 || response.StatusCode > 299 {
		glog.Warning("http code:", response.Status)
		statusErr := &StatusError{Code: response.StatusCode, Status: response.Status}
		contentType := response.Header.Get("Content-type")
		// from our server: text/plain; charset=utf-8
		if strings.HasPrefix(contentType, "text/plain") {
			statusErr.Message = string(data[0:min(errorMessageMaxLength, len(data))])
		}
		return nil, statusErr
	}
	return data, nil
}
