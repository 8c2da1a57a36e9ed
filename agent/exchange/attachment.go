package exchange

import "fmt"

// AttachmentKey names a typed value in the attachment bag of the exchange.
type AttachmentKey[T any] struct {
	name string
}

func NewKey[T any](name string) AttachmentKey[T] {
	return AttachmentKey[T]{name: name}
}

func (k AttachmentKey[T]) String() string {
	var zero T
	return fmt.Sprintf("%s(%T)", k.name, zero)
}

// Keys used by the protocols.
var (
	PresentationKey = NewKey[[]byte]("presentation")
	CredentialKey   = NewKey[[]byte]("credential")
)

// Attachment returns the value of the key. ok is false if the value isn't set
// or the exchange is closed.
func Attachment[T any](ex *Exchange, key AttachmentKey[T]) (v T, ok bool) {
	_ = ex.do(func() {
		var a any
		if a, ok = ex.attachments[key.name]; ok {
			v, ok = a.(T)
		}
	})
	return v, ok
}

func PutAttachment[T any](ex *Exchange, key AttachmentKey[T], v T) error {
	return ex.do(func() {
		ex.attachments[key.name] = v
	})
}

func RemoveAttachment[T any](ex *Exchange, key AttachmentKey[T]) error {
	return ex.do(func() {
		delete(ex.attachments, key.name)
	})
}
