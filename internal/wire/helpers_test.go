package wire

import (
	"fmt"
	"unicode/utf8"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

// lower encodes v into a fresh buffer, the way a value crosses the
// boundary inside a RustBuffer.
func lower(c Codec, v any) ([]byte, error) {
	w := NewWriter()
	if err := c.Write(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// lift decodes a whole buffer. Trailing bytes are an error since the
// native side never sends padding.
func lift(c Codec, data []byte) (any, error) {
	v, n, err := readValue(c, data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, errs.New(errs.PhaseDecode, errs.KindInvalidInput).
			Detail("%s: %d trailing bytes after value", c.Name(), len(data)-n).Build()
	}
	return v, nil
}

func readValue(c Codec, data []byte) (any, int, error) {
	r := NewReader(data)
	v, err := c.Read(r)
	if err != nil {
		return nil, 0, err
	}
	return v, r.Position(), nil
}

// Top-level string arguments travel as raw UTF-8 with no length prefix.
func lowerString(s string) []byte {
	return []byte(s)
}

func liftString(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errs.New(errs.PhaseDecode, errs.KindInvalidInput).Detail("string payload is not valid UTF-8").Build()
	}
	return string(data), nil
}

// Call status codes written by the native library into the out-parameter
// of every fallible call. checkCallStatus below follows the checkCallStatus
// routine of the generated bindings.
const (
	callSuccess       int8 = 0
	callErrorCode     int8 = 1
	callUnexpectedErr int8 = 2
)

type callStatus struct {
	Code     int8
	ErrorBuf []byte
}

type panicError struct {
	Message string
}

func (e *panicError) Error() string {
	return "native panic: " + e.Message
}

type callError struct {
	Type  string
	Value any
}

func (e *callError) Error() string {
	if v, ok := e.Value.(Variant); ok {
		return fmt.Sprintf("%s: variant %d %v", e.Type, v.Index, v.Fields)
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Value)
}

func checkCallStatus(status callStatus, errorCodec Codec) error {
	switch status.Code {
	case callSuccess:
		return nil
	case callErrorCode:
		if errorCodec == nil {
			return errs.New(errs.PhaseDecode, errs.KindInvalidInput).
				Detail("error status from a call that declares no error type").Build()
		}
		v, err := lift(errorCodec, status.ErrorBuf)
		if err != nil {
			return errs.Wrap(errs.PhaseDecode, errs.KindInvalidInput, err, "lifting error payload")
		}
		return &callError{Type: errorCodec.Name(), Value: v}
	case callUnexpectedErr:
		if len(status.ErrorBuf) == 0 {
			return &panicError{Message: "unknown panic"}
		}
		msg, err := liftString(status.ErrorBuf)
		if err != nil {
			return &panicError{Message: fmt.Sprintf("unreadable panic payload (%v)", err)}
		}
		return &panicError{Message: msg}
	default:
		return errs.New(errs.PhaseDecode, errs.KindInvalidInput).
			Detail("unknown call status code %d", status.Code).Build()
	}
}
