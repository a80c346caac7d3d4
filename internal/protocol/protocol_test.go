package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
)

const testMessage MessageType = 0x0F01

func TestRoundTripEncodeDecode(t *testing.T) {
	msg := &Message{
		Header: Header{
			MessageID:   42,
			MessageType: testMessage,
			Flags:       FlagIsReply,
		},
		Fields: []Field{
			NewFieldBool(1, true),
			NewFieldString(2, "hello"),
			NewFieldBytes(99, []byte{0x01, 0x02}),
			NewFieldInt(3, -1),
			NewFieldGroup(4, NewFieldInt(1, 7), NewFieldString(2, "nested")),
		},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, msg); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.IsReply() {
		t.Fatalf("expected reply flag to survive round trip")
	}

	var buf2 bytes.Buffer
	if err := Encode(&buf2, decoded); err != nil {
		t.Fatalf("re-encode: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
		t.Fatalf("round-trip mismatch")
	}
}

func TestIntFieldKeepsFullRange(t *testing.T) {
	values := []int{0, 1, -1, math.MinInt32, math.MaxInt32, 1 << 31, -(1 << 31) - 1, 1<<32 + 5, math.MinInt64, math.MaxInt64}
	for _, v := range values {
		got, err := NewFieldInt(1, v).Int()
		if err != nil {
			t.Fatalf("int %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("int round trip got=%d want=%d", got, v)
		}
	}
}

func TestGroupFieldPreservesOrder(t *testing.T) {
	group := NewFieldGroup(9, NewFieldInt(1, 3), NewFieldInt(1, 1), NewFieldInt(1, 2))
	fields, err := group.Group()
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	want := []int{3, 1, 2}
	if len(fields) != len(want) {
		t.Fatalf("unexpected field count: %d", len(fields))
	}
	for i, f := range fields {
		v, err := f.Int()
		if err != nil {
			t.Fatalf("field %d: %v", i, err)
		}
		if v != want[i] {
			t.Fatalf("field %d got=%d want=%d", i, v, want[i])
		}
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	payload := buildFieldPayload(NewFieldInt(1, 7))
	head := headerBytes(uint64(len(payload)), 0)
	head[0] = 0
	head[1] = 0
	head[2] = 0
	head[3] = 0

	buf := append(head, payload...)
	_, err := Decode(bytes.NewReader(buf))
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	msg := &Message{
		Header: Header{MessageID: 1, MessageType: testMessage},
		Fields: []Field{NewFieldString(1, "abc")},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, msg); err != nil {
		t.Fatalf("encode: %v", err)
	}

	b := buf.Bytes()
	b = b[:len(b)-2]
	_, err := Decode(bytes.NewReader(b))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeCleanEOF(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestDecodeInvalidFieldLength(t *testing.T) {
	payload := make([]byte, fieldHeaderSize+1)
	binary.BigEndian.PutUint16(payload[0:2], 1)
	payload[2] = byte(FieldBytes)
	binary.BigEndian.PutUint32(payload[3:7], 5)
	payload[7] = 0xff

	head := headerBytes(uint64(len(payload)), 0)
	buf := append(head, payload...)
	_, err := Decode(bytes.NewReader(buf))
	if !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestDecodeLimitedRejectsLargePayload(t *testing.T) {
	head := headerBytes(1024, 0)
	_, err := DecodeLimited(bytes.NewReader(head), 16)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestSemanticUnknownFieldsIgnored(t *testing.T) {
	msg := &Message{
		Header: Header{MessageID: 1, MessageType: testMessage},
		Fields: []Field{
			NewFieldString(1, "team"),
			NewFieldInt(99, 123),
		},
	}

	schema := Schema{
		MessageType: testMessage,
		Fields: []FieldSpec{
			{ID: 1, Type: FieldString, Required: true},
		},
	}

	parsed, err := ParseSemantic(msg, schema)
	if err != nil {
		t.Fatalf("parse semantic: %v", err)
	}
	if parsed.Str(1) != "team" {
		t.Fatalf("expected known field, got %q", parsed.Str(1))
	}
	if len(parsed.Unknown) != 1 {
		t.Fatalf("expected 1 unknown field, got %d", len(parsed.Unknown))
	}
}

func TestSemanticRepeatedFieldsKeepOrder(t *testing.T) {
	msg := &Message{
		Header: Header{MessageID: 1, MessageType: testMessage},
		Fields: []Field{
			NewFieldInt(5, 10),
			NewFieldInt(5, 20),
			NewFieldInt(5, 30),
		},
	}
	schema := Schema{
		MessageType: testMessage,
		Fields:      []FieldSpec{{ID: 5, Type: FieldInt64, Repeated: true}},
	}
	parsed, err := ParseSemantic(msg, schema)
	if err != nil {
		t.Fatalf("parse semantic: %v", err)
	}
	values := parsed.All(5)
	if len(values) != 3 || values[0].Int64 != 10 || values[1].Int64 != 20 || values[2].Int64 != 30 {
		t.Fatalf("unexpected repeated values: %+v", values)
	}
}

func TestSemanticMissingField(t *testing.T) {
	msg := &Message{
		Header: Header{MessageID: 1, MessageType: testMessage},
		Fields: []Field{},
	}
	schema := Schema{
		MessageType: testMessage,
		Fields: []FieldSpec{
			{ID: 1, Type: FieldString, Required: true},
		},
	}

	_, err := ParseSemantic(msg, schema)
	if err == nil {
		t.Fatalf("expected error")
	}
	var missing MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
}

func TestSemanticTypeMismatch(t *testing.T) {
	msg := &Message{
		Header: Header{MessageID: 1, MessageType: testMessage},
		Fields: []Field{NewFieldString(1, "not a number")},
	}
	schema := Schema{
		MessageType: testMessage,
		Fields:      []FieldSpec{{ID: 1, Type: FieldInt64, Required: true}},
	}
	_, err := ParseSemantic(msg, schema)
	if !errors.Is(err, ErrFieldTypeMismatch) {
		t.Fatalf("expected ErrFieldTypeMismatch, got %v", err)
	}
}

func headerBytes(payloadLen uint64, flags uint32) []byte {
	head := Header{
		Magic:       Magic,
		Version:     Version,
		HeaderLen:   HeaderSize,
		MessageID:   1,
		MessageType: testMessage,
		Flags:       flags,
		PayloadLen:  payloadLen,
	}
	return encodeHeader(head)
}

func buildFieldPayload(field Field) []byte {
	buf := make([]byte, 0, fieldHeaderSize+len(field.Value))
	header := make([]byte, fieldHeaderSize)
	binary.BigEndian.PutUint16(header[0:2], field.ID)
	header[2] = byte(field.Type)
	binary.BigEndian.PutUint32(header[3:7], uint32(len(field.Value)))
	buf = append(buf, header...)
	buf = append(buf, field.Value...)
	return buf
}
