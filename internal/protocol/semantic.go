package protocol

import "fmt"

// FieldSpec declares a known field within a message type.
type FieldSpec struct {
	ID       uint16
	Type     FieldType
	Required bool
	// Repeated fields may appear any number of times; order is kept.
	Repeated bool
}

// Schema defines required and known fields for a message type.
type Schema struct {
	MessageType MessageType
	Fields      []FieldSpec
}

// Value is a decoded field value.
type Value struct {
	Type   FieldType
	Int64  int64
	Bool   bool
	String string
	Bytes  []byte
	Group  []Field
}

// SemanticMessage is a message with typed field values validated by a schema.
type SemanticMessage struct {
	Header      Header
	MessageType MessageType
	Fields      map[uint16]Value
	Repeated    map[uint16][]Value
	Unknown     []Field
}

// ParseSemantic validates msg against schema and returns typed field values.
// Unknown fields are kept aside, never rejected.
func ParseSemantic(msg *Message, schema Schema) (*SemanticMessage, error) {
	if msg == nil {
		return nil, ErrInvalidLength
	}
	if msg.Header.MessageType != schema.MessageType {
		return nil, ErrMessageTypeMismatch
	}
	semantic, err := ParseGroup(msg.Fields, schema.Fields)
	if err != nil {
		return nil, err
	}
	semantic.Header = msg.Header
	semantic.MessageType = msg.Header.MessageType
	return semantic, nil
}

// ParseGroup validates the nested fields of a group value against specs.
func ParseGroup(fields []Field, specs []FieldSpec) (*SemanticMessage, error) {
	known := make(map[uint16]FieldSpec, len(specs))
	required := make(map[uint16]struct{})
	for _, spec := range specs {
		known[spec.ID] = spec
		if spec.Required {
			required[spec.ID] = struct{}{}
		}
	}

	semantic := &SemanticMessage{
		Fields:   make(map[uint16]Value),
		Repeated: make(map[uint16][]Value),
	}

	for _, field := range fields {
		spec, ok := known[field.ID]
		if !ok {
			semantic.Unknown = append(semantic.Unknown, field)
			continue
		}
		value, err := decodeValue(field, spec.Type)
		if err != nil {
			return nil, FieldError{FieldID: field.ID, Err: err}
		}
		if spec.Repeated {
			semantic.Repeated[field.ID] = append(semantic.Repeated[field.ID], value)
		} else {
			semantic.Fields[field.ID] = value
		}
		delete(required, field.ID)
	}

	for id := range required {
		return nil, MissingFieldError{FieldID: id}
	}

	return semantic, nil
}

// Int returns a decoded integer field, or 0 when absent.
func (m *SemanticMessage) Int(id uint16) int {
	return int(m.Fields[id].Int64)
}

// Str returns a decoded string field, or "" when absent.
func (m *SemanticMessage) Str(id uint16) string {
	return m.Fields[id].String
}

// All returns every value of a repeated field in wire order.
func (m *SemanticMessage) All(id uint16) []Value {
	return m.Repeated[id]
}

// MissingFieldError indicates a required field was not present.
type MissingFieldError struct {
	FieldID uint16
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("protocol: missing required field %d", e.FieldID)
}

// FieldError wraps a decode failure of one known field.
type FieldError struct {
	FieldID uint16
	Err     error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("protocol: field %d: %v", e.FieldID, e.Err)
}

func (e FieldError) Unwrap() error {
	return e.Err
}

func decodeValue(field Field, expected FieldType) (Value, error) {
	if field.Type != expected {
		return Value{}, ErrFieldTypeMismatch
	}
	value := Value{Type: field.Type}
	switch field.Type {
	case FieldInt64:
		v, err := field.Int64()
		if err != nil {
			return Value{}, err
		}
		value.Int64 = v
	case FieldBool:
		v, err := field.Bool()
		if err != nil {
			return Value{}, err
		}
		value.Bool = v
	case FieldString:
		v, err := field.String()
		if err != nil {
			return Value{}, err
		}
		value.String = v
	case FieldBytes:
		v, err := field.Bytes()
		if err != nil {
			return Value{}, err
		}
		value.Bytes = v
	case FieldGroup:
		v, err := field.Group()
		if err != nil {
			return Value{}, err
		}
		value.Group = v
	default:
		return Value{}, ErrFieldTypeMismatch
	}
	return value, nil
}
