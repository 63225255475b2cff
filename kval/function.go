package kval

import "github.com/kxipc/kxipc/kerr"

type fnData struct {
	prelude []byte // 3 or 4 opaque bytes, §3.3/§4.1.2
	body    []byte // ASCII body
}

// KFunc constructs an opaque function value: prelude must be 3 or 4
// bytes (§4.1.2: prelude byte 0 at offset 0 selects a 3-byte prelude,
// otherwise 4).
func KFunc(prelude, body []byte) (Value, error) {
	if len(prelude) != 3 && len(prelude) != 4 {
		return Value{}, kerr.Newf(kerr.OutOfRange, "KFunc: prelude must be 3 or 4 bytes, got %d", len(prelude))
	}
	p := make([]byte, len(prelude))
	copy(p, prelude)
	b := make([]byte, len(body))
	copy(b, body)
	return Value{tag: FN, v: &fnData{prelude: p, body: b}}, nil
}

// FuncPrelude and FuncBody return a function value's raw parts.
func (v Value) FuncPrelude() ([]byte, error) {
	f, err := v.asFunc()
	if err != nil {
		return nil, err
	}
	return f.prelude, nil
}

func (v Value) FuncBody() ([]byte, error) {
	f, err := v.asFunc()
	if err != nil {
		return nil, err
	}
	return f.body, nil
}

func (v Value) asFunc() (*fnData, error) {
	if v.isAtom || v.tag != FN {
		return nil, kerr.Newf(kerr.WrongType, "expected function, got tag=%d", v.tag)
	}
	return v.v.(*fnData), nil
}

// KNil constructs the singleton nil value (tag 101).
func KNil() Value { return Value{tag: Nil} }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return !v.isAtom && v.tag == Nil }

// KOp constructs an operator value carrying a single opcode byte.
func KOp(opcode byte) Value { return Value{tag: OP, v: opcode} }

// Opcode returns the opcode byte of an operator value.
func (v Value) Opcode() (byte, error) {
	if v.isAtom || v.tag != OP {
		return 0, kerr.Newf(kerr.WrongType, "expected operator, got tag=%d", v.tag)
	}
	return v.v.(byte), nil
}

// KError constructs a remote-error value (tag -128) carrying msg.
func KError(msg string) Value { return Value{tag: ErrT, v: msg} }

// IsError reports whether v is a remote-error value.
func (v Value) IsError() bool { return v.tag == ErrT }

// ErrorMsg returns the message of a remote-error value.
func (v Value) ErrorMsg() (string, error) {
	if v.tag != ErrT {
		return "", kerr.Newf(kerr.WrongType, "expected remote error, got tag=%d", v.tag)
	}
	return v.v.(string), nil
}

// AsError converts a remote-error value into a Go error of kind
// kerr.RemoteError, for callers who opt in to raising on receipt (§6.5).
func (v Value) AsError() error {
	if !v.IsError() {
		return nil
	}
	msg, _ := v.ErrorMsg()
	return kerr.New(kerr.RemoteError, msg)
}
