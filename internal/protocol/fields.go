package protocol

import (
	"encoding/binary"
	"errors"
)

var errInvalidBool = errors.New("protocol: invalid bool value")

// NewFieldInt creates a signed 64-bit TLV field. Every Go int fits, so values
// cross the wire unchanged.
func NewFieldInt(id uint16, v int) Field {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(v)))
	return Field{ID: id, Type: FieldInt64, Value: buf}
}

// NewFieldBool creates a bool TLV field.
func NewFieldBool(id uint16, v bool) Field {
	b := byte(0)
	if v {
		b = 1
	}
	return Field{ID: id, Type: FieldBool, Value: []byte{b}}
}

// NewFieldString creates a string TLV field.
func NewFieldString(id uint16, v string) Field {
	return Field{ID: id, Type: FieldString, Value: []byte(v)}
}

// NewFieldBytes creates a bytes TLV field.
func NewFieldBytes(id uint16, v []byte) Field {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Field{ID: id, Type: FieldBytes, Value: buf}
}

// NewFieldGroup creates a field whose value is the nested TLV encoding of fields.
func NewFieldGroup(id uint16, fields ...Field) Field {
	return Field{ID: id, Type: FieldGroup, Value: EncodeFields(fields)}
}

// Int64 returns the field value as a signed 64-bit integer.
func (f Field) Int64() (int64, error) {
	if f.Type != FieldInt64 {
		return 0, ErrFieldTypeMismatch
	}
	if len(f.Value) != 8 {
		return 0, ErrInvalidLength
	}
	return int64(binary.BigEndian.Uint64(f.Value)), nil
}

// Int returns the field value as int.
func (f Field) Int() (int, error) {
	v, err := f.Int64()
	return int(v), err
}

// Bool returns the field value as bool.
func (f Field) Bool() (bool, error) {
	if f.Type != FieldBool {
		return false, ErrFieldTypeMismatch
	}
	if len(f.Value) != 1 {
		return false, ErrInvalidLength
	}
	switch f.Value[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errInvalidBool
	}
}

// String returns the field value as string.
func (f Field) String() (string, error) {
	if f.Type != FieldString {
		return "", ErrFieldTypeMismatch
	}
	return string(f.Value), nil
}

// Bytes returns the field value as bytes.
func (f Field) Bytes() ([]byte, error) {
	if f.Type != FieldBytes {
		return nil, ErrFieldTypeMismatch
	}
	buf := make([]byte, len(f.Value))
	copy(buf, f.Value)
	return buf, nil
}

// Group returns the nested fields of a group field.
func (f Field) Group() ([]Field, error) {
	if f.Type != FieldGroup {
		return nil, ErrFieldTypeMismatch
	}
	return DecodeFields(f.Value)
}
