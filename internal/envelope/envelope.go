// Package envelope implements the wire schema for tunnel frames.
//
// A frame is a JSON object, produced and consumed via [structpb.Struct], with
// the shape:
//
//	{"tunnel": "...", "call": 1, "kind": "call", "method": "...", "args": [...]}
//	{"tunnel": "...", "call": 1, "kind": "response", "result": ...}
//	{"tunnel": "...", "call": 1, "kind": "error", "error": {"message": "...", "kind": "..."}}
//
// Arguments and results are [structpb.Value] instances, which bounds the
// supported value domain to null, bool, number, string, and plain lists and
// maps thereof. Numbers round-trip as float64.
package envelope

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Kind identifies one of the three frame kinds.
type Kind string

const (
	// KindCall is a method invocation frame.
	KindCall Kind = `call`
	// KindResponse is a successful reply frame.
	KindResponse Kind = `response`
	// KindError is a failed reply frame.
	KindError Kind = `error`
)

// ErrMalformed indicates a frame failed schema validation on receipt.
// Matched via [errors.Is].
var ErrMalformed = errors.New(`envelope: malformed frame`)

type (
	// Envelope is one call, response, or error frame.
	Envelope struct {
		// Result is set for KindResponse only, and may be nil (a null result).
		Result *structpb.Value
		// Err is set for KindError only.
		Err *RemoteError
		// TunnelID routes the frame to a handler (calls) or identifies the
		// originating tunnel (replies).
		TunnelID string
		// Method is set for KindCall only.
		Method string
		// Args is set for KindCall only.
		Args []*structpb.Value
		// CallID correlates a call with its reply. Unique per gate while the
		// call is outstanding.
		CallID uint64
		// Kind is the frame kind.
		Kind Kind
	}

	// RemoteError is the error payload of a KindError frame.
	RemoteError struct {
		Message string
		Kind    string
	}
)

// EncodeValue converts an arbitrary (supported) Go value to a wire value.
func EncodeValue(v any) (*structpb.Value, error) {
	return structpb.NewValue(v)
}

// EncodeArgs converts an argument list to wire values, failing on the first
// unsupported value.
func EncodeArgs(args []any) ([]*structpb.Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]*structpb.Value, len(args))
	for i, v := range args {
		val, err := structpb.NewValue(v)
		if err != nil {
			return nil, fmt.Errorf(`envelope: argument %d: %w`, i, err)
		}
		out[i] = val
	}
	return out, nil
}

// DecodeArgs converts wire values back to their Go representations.
func DecodeArgs(vals []*structpb.Value) []any {
	if len(vals) == 0 {
		return nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v.AsInterface()
	}
	return out
}

// Marshal serializes the envelope. The envelope must be structurally valid
// (a zero Kind or empty TunnelID is a programming error surfaced as an error).
func (e *Envelope) Marshal() ([]byte, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	fields := map[string]*structpb.Value{
		`tunnel`: structpb.NewStringValue(e.TunnelID),
		`call`:   structpb.NewNumberValue(float64(e.CallID)),
		`kind`:   structpb.NewStringValue(string(e.Kind)),
	}
	switch e.Kind {
	case KindCall:
		fields[`method`] = structpb.NewStringValue(e.Method)
		fields[`args`] = structpb.NewListValue(&structpb.ListValue{Values: e.Args})
	case KindResponse:
		if e.Result != nil {
			fields[`result`] = e.Result
		} else {
			fields[`result`] = structpb.NewNullValue()
		}
	case KindError:
		fields[`error`] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			`message`: structpb.NewStringValue(e.Err.Message),
			`kind`:    structpb.NewStringValue(e.Err.Kind),
		}})
	}
	return protojson.Marshal(&structpb.Struct{Fields: fields})
}

func (e *Envelope) check() error {
	if e.TunnelID == `` {
		return fmt.Errorf(`%w: missing tunnel id`, ErrMalformed)
	}
	switch e.Kind {
	case KindCall:
		if e.Method == `` {
			return fmt.Errorf(`%w: call without method`, ErrMalformed)
		}
	case KindResponse:
	case KindError:
		if e.Err == nil {
			return fmt.Errorf(`%w: error frame without error`, ErrMalformed)
		}
	default:
		return fmt.Errorf(`%w: unknown kind %q`, ErrMalformed, e.Kind)
	}
	return nil
}

// Unmarshal parses and validates a received frame. All failures match
// [ErrMalformed] via [errors.Is].
func Unmarshal(b []byte) (*Envelope, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf(`%w: %v`, ErrMalformed, err)
	}
	fields := s.GetFields()

	e := Envelope{
		TunnelID: fields[`tunnel`].GetStringValue(),
		Kind:     Kind(fields[`kind`].GetStringValue()),
	}

	call, ok := fields[`call`]
	if !ok {
		return nil, fmt.Errorf(`%w: missing call id`, ErrMalformed)
	}
	n := call.GetNumberValue()
	if n < 0 || n != math.Trunc(n) {
		return nil, fmt.Errorf(`%w: invalid call id %v`, ErrMalformed, n)
	}
	e.CallID = uint64(n)

	switch e.Kind {
	case KindCall:
		e.Method = fields[`method`].GetStringValue()
		e.Args = fields[`args`].GetListValue().GetValues()
	case KindResponse:
		e.Result = fields[`result`]
	case KindError:
		obj := fields[`error`].GetStructValue().GetFields()
		if obj == nil {
			return nil, fmt.Errorf(`%w: error frame without error`, ErrMalformed)
		}
		e.Err = &RemoteError{
			Message: obj[`message`].GetStringValue(),
			Kind:    obj[`kind`].GetStringValue(),
		}
	}

	if err := e.check(); err != nil {
		return nil, err
	}
	return &e, nil
}
