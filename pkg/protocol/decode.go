package protocol

import "fmt"

// Value is a decoded reply.
// Exactly one of Bool or Uint is meaningful, selected by Kind.
type Value struct {
	Kind ResponseKind
	Bool bool
	Uint uint32
}

// DecodeBool interprets the first reply byte; nonzero is true.
func DecodeBool(data []byte) (bool, error) {
	if len(data) < 1 {
		return false, fmt.Errorf("%w: empty boolean reply", ErrProtocol)
	}
	return data[0] != 0, nil
}

// DecodeUint interprets data as a big-endian unsigned integer of 1 to 4 bytes.
func DecodeUint(data []byte) (uint32, error) {
	if len(data) < 1 || len(data) > 4 {
		return 0, fmt.Errorf("%w: integer reply width %d (must be 1..4)", ErrProtocol, len(data))
	}
	var v uint32
	for _, b := range data {
		v = v<<8 | uint32(b)
	}
	return v, nil
}

// Decode interprets a reply according to the command's ResponseSpec.
// data must hold at least Response.Length bytes; extra bytes are ignored.
func (c Command) Decode(data []byte) (Value, error) {
	if c.Response == nil {
		return Value{}, fmt.Errorf("%w: %s has no reply", ErrProtocol, c.Name)
	}
	if len(data) < c.Response.Length {
		return Value{}, fmt.Errorf("%w: %s reply has %d bytes, want %d", ErrProtocol, c.Name, len(data), c.Response.Length)
	}
	data = data[:c.Response.Length]

	switch c.Response.Kind {
	case KindBool:
		b, err := DecodeBool(data)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBool, Bool: b}, nil
	case KindUint:
		u, err := DecodeUint(data)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindUint, Uint: u}, nil
	default:
		return Value{}, fmt.Errorf("%w: %s has unknown reply kind %d", ErrProtocol, c.Name, c.Response.Kind)
	}
}

// Decode looks up a command by name and decodes its reply.
func Decode(name string, data []byte) (Value, error) {
	c, err := Lookup(name)
	if err != nil {
		return Value{}, err
	}
	return c.Decode(data)
}
