package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidEncoding indicates a datagram too short or too mangled to carry
// an envelope at all.
var ErrInvalidEncoding = errors.New("invalid message encoding")

// UnknownMsgCodeErr indicates a datagram with an envelope code outside the
// known range. Dropped as malformed.
type UnknownMsgCodeErr struct {
	Code uint8
}

func NewUnknownMsgCodeErr(code uint8) UnknownMsgCodeErr {
	return UnknownMsgCodeErr{Code: code}
}

func (e UnknownMsgCodeErr) Error() string {
	return fmt.Sprintf("unknown message code: %d", e.Code)
}

// IsErrUnknownMsgCode returns whether err is an UnknownMsgCodeErr.
func IsErrUnknownMsgCode(err error) bool {
	var target UnknownMsgCodeErr
	return errors.As(err, &target)
}

// UnknownMsgTypeErr indicates an attempt to encode a type that is not a
// wire message. This is a programming error on the send path, not
// adversarial input.
type UnknownMsgTypeErr struct {
	MsgType interface{}
}

func NewUnknownMsgTypeErr(msgType interface{}) UnknownMsgTypeErr {
	return UnknownMsgTypeErr{MsgType: msgType}
}

func (e UnknownMsgTypeErr) Error() string {
	return fmt.Sprintf("unknown message type: %T", e.MsgType)
}

// IsErrUnknownMsgType returns whether err is an UnknownMsgTypeErr.
func IsErrUnknownMsgType(err error) bool {
	var target UnknownMsgTypeErr
	return errors.As(err, &target)
}

// MsgUnmarshalErr indicates a datagram with a valid envelope whose payload
// failed to decode into the coded type. Dropped as malformed.
type MsgUnmarshalErr struct {
	Code    uint8
	MsgType string
	Err     error
}

func NewMsgUnmarshalErr(code uint8, msgType string, err error) MsgUnmarshalErr {
	return MsgUnmarshalErr{Code: code, MsgType: msgType, Err: err}
}

func (e MsgUnmarshalErr) Error() string {
	return fmt.Sprintf("could not unmarshal message of type %s and code %d: %s", e.MsgType, e.Code, e.Err.Error())
}

func (e MsgUnmarshalErr) Unwrap() error {
	return e.Err
}

// IsErrMsgUnmarshal returns whether err is a MsgUnmarshalErr.
func IsErrMsgUnmarshal(err error) bool {
	var target MsgUnmarshalErr
	return errors.As(err, &target)
}
