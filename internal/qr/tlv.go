// Package qr builds the buyer-facing QR payload: five tag-length-value fields,
// base64-encoded.
//
// Each field is one tag byte, one length byte and the UTF-8 value bytes. Since the
// length is a single byte, every value must be at most 255 bytes long; longer values
// fail with *model.EncodingPreconditionError instead of producing a corrupt stream.
package qr

import (
	"encoding/base64"
	"fmt"

	"github.com/shopspring/decimal"

	moneydec "github.com/rezonia/zatca-middleware/internal/decimal"
	"github.com/rezonia/zatca-middleware/internal/model"
)

// Tag numbers, in payload order
const (
	TagSellerName = 1
	TagVATNumber  = 2
	TagTimestamp  = 3
	TagTotal      = 4
	TagVATAmount  = 5
)

var tagNames = map[int]string{
	TagSellerName: "sellerName",
	TagVATNumber:  "vatNumber",
	TagTimestamp:  "timestamp",
	TagTotal:      "totalAmount",
	TagVATAmount:  "vatAmount",
}

// TagName returns the field name of a tag
func TagName(tag int) string {
	if name, ok := tagNames[tag]; ok {
		return name
	}
	return fmt.Sprintf("tag%d", tag)
}

// Field is a single TLV triple
type Field struct {
	Tag   int    `json:"tag"`
	Value string `json:"value"`
}

// Length returns the UTF-8 byte length of the value
func (f Field) Length() int {
	return len(f.Value)
}

// Display holds the five fields shown to the buyer
type Display struct {
	SellerName string
	VATNumber  string
	Timestamp  string
	Total      decimal.Decimal
	VATAmount  decimal.Decimal
}

// Fields returns the display values as TLV fields in tag order.
// Amounts use their shortest decimal string form; no rounding happens here.
func (d Display) Fields() []Field {
	return []Field{
		{Tag: TagSellerName, Value: d.SellerName},
		{Tag: TagVATNumber, Value: d.VATNumber},
		{Tag: TagTimestamp, Value: d.Timestamp},
		{Tag: TagTotal, Value: moneydec.Format(d.Total)},
		{Tag: TagVATAmount, Value: moneydec.Format(d.VATAmount)},
	}
}

// Marshal packs fields into the raw TLV byte sequence
func Marshal(fields []Field) ([]byte, error) {
	size := 0
	for _, f := range fields {
		if f.Tag < 0 || f.Tag > 255 {
			return nil, fmt.Errorf("tlv tag %d out of range", f.Tag)
		}
		if f.Length() > model.MaxTLVValueLength {
			return nil, model.NewEncodingPreconditionError(f.Tag, TagName(f.Tag), f.Length())
		}
		size += 2 + f.Length()
	}

	buf := make([]byte, 0, size)
	for _, f := range fields {
		buf = append(buf, byte(f.Tag), byte(f.Length()))
		buf = append(buf, f.Value...)
	}
	return buf, nil
}

// Unmarshal parses a raw TLV byte sequence
func Unmarshal(data []byte) ([]Field, error) {
	var fields []Field
	for i := 0; i < len(data); {
		if i+2 > len(data) {
			return nil, model.NewParseError("qr", fmt.Sprintf("truncated header at offset %d", i), nil)
		}
		tag := int(data[i])
		length := int(data[i+1])
		start := i + 2
		end := start + length
		if end > len(data) {
			return nil, model.NewParseError("qr", fmt.Sprintf("tag %d declares %d bytes, %d available", tag, length, len(data)-start), nil)
		}
		fields = append(fields, Field{Tag: tag, Value: string(data[start:end])})
		i = end
	}
	return fields, nil
}

// Encode packs the fields and base64-encodes the result
func Encode(fields []Field) (string, error) {
	raw, err := Marshal(fields)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// EncodeDisplay encodes the five display fields in tag order
func EncodeDisplay(d Display) (string, error) {
	return Encode(d.Fields())
}

// Decode base64-decodes and parses a QR payload
func Decode(payload string) ([]Field, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, model.NewParseError("qr", "invalid base64 payload", err)
	}
	return Unmarshal(raw)
}

// Decoded is a QR payload mapped back to named fields
type Decoded struct {
	SellerName string `json:"sellerName"`
	VATNumber  string `json:"vatNumber"`
	Timestamp  string `json:"timestamp"`
	Total      string `json:"totalAmount"`
	VATAmount  string `json:"vatAmount"`
}

// DecodeDisplay decodes a payload that must contain exactly tags 1..5 in order
func DecodeDisplay(payload string) (*Decoded, error) {
	fields, err := Decode(payload)
	if err != nil {
		return nil, err
	}
	if len(fields) != 5 {
		return nil, model.NewParseError("qr", fmt.Sprintf("expected 5 fields, got %d", len(fields)), nil)
	}
	for i, f := range fields {
		if f.Tag != i+1 {
			return nil, model.NewParseError("qr", fmt.Sprintf("field %d has tag %d, expected %d", i, f.Tag, i+1), nil)
		}
	}

	return &Decoded{
		SellerName: fields[0].Value,
		VATNumber:  fields[1].Value,
		Timestamp:  fields[2].Value,
		Total:      fields[3].Value,
		VATAmount:  fields[4].Value,
	}, nil
}
