package sec2

import (
	"context"
	"encoding/json"

	"github.com/findy-network/findy-didcomm/agent/didcomm"
	"github.com/golang/glog"
	"github.com/lainio/err2"
	"github.com/lainio/err2/try"
)

type shape int

const (
	shapePlain shape = iota
	shapeSigned
	shapeEncrypted
)

// maxDepth limits the nesting of the envelopes, sign-then-encrypt is two.
const maxDepth = 3

func shapeOf(data []byte) (shape, error) {
	if _, ok := compactHeader(data); ok {
		return shapeEncrypted, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return shapePlain, ErrEnvelope
	}
	if _, ok := obj["ciphertext"]; ok {
		return shapeEncrypted, nil
	}
	_, hasPayload := obj["payload"]
	_, hasSignature := obj["signature"]
	_, hasSignatures := obj["signatures"]
	if hasPayload && (hasSignature || hasSignatures) {
		return shapeSigned, nil
	}
	return shapePlain, nil
}

// Unpack opens any DIDComm v2 envelope. Nested envelopes are opened until the
// plaintext is found and the metadata tells what protections were on the way.
func (p *Pipe) Unpack(ctx context.Context, packed []byte) (msg *didcomm.Message, meta *Metadata, err error) {
	defer err2.Handle(&err, "unpack")
	defer err2.Handle(&err, func(err error) error {
		glog.Errorln("unpack:", err)
		return err
	})

	meta = new(Metadata)
	data := packed
	depth := 0
loop:
	for ; ; depth++ {
		if depth == maxDepth {
			return nil, nil, ErrEnvelope
		}
		switch try.To1(shapeOf(data)) {
		case shapeEncrypted:
			data = try.To1(p.unpackEncrypted(data, meta))
		case shapeSigned:
			data = try.To1(p.unpackSigned(ctx, data, meta))
		default:
			break loop
		}
	}

	msg = try.To1(didcomm.ParseMessage(data))
	try.To(p.checkSender(ctx, msg.From, meta))
	glog.V(5).Infof("unpacked %s: %+v", msg.Type, *meta)
	return msg, meta, nil
}
