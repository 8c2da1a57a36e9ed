// Package cmds has the command implementations of the CLI. A command is
// validated before it's executed, and it writes its output to the given
// writer, which can be nil.
package cmds

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lainio/err2/try"
)

const storageKeyLength = 64

var ErrInvalid = errors.New("invalid command, check arguments")

type Result interface {
	JSON() ([]byte, error)
}

type Command interface {
	Validate() error
	Exec(w io.Writer) (r Result, err error)
}

// ValidateKey checks that the storage key is 32 bytes as hex.
func ValidateKey(k string) error {
	if k == "" {
		return errors.New("storage key cannot be empty")
	}
	if len(k) != storageKeyLength {
		return errors.New("storage key is not valid")
	}
	if _, err := hex.DecodeString(k); err != nil {
		return fmt.Errorf("storage key is not hex: %w", err)
	}
	return nil
}

// ValidateTime checks the time of day of the scheduled jobs, hh:mm or
// hh:mm:ss.
func ValidateTime(s string) error {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: time of day %q", ErrInvalid, s)
}

// Fprintln is fmt.Fprintln but it allows writer to be nil. Note! it throws an
// error.
func Fprintln(w io.Writer, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintln(w, a...))
	}
}

// Fprintf is fmt.Fprintf but it allows writer to be nil. Note! it throws an
// error.
func Fprintf(w io.Writer, format string, a ...any) {
	if w != nil {
		try.To1(fmt.Fprintf(w, format, a...))
	}
}
