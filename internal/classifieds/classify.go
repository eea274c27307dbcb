package classifieds

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind tells why a payload was rejected.
type ErrorKind int

const (
	// MalformedEncoding means the payload is not valid JSON.
	MalformedEncoding ErrorKind = iota + 1
	// SchemaViolation means a required field is missing or has the wrong type.
	SchemaViolation
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedEncoding:
		return "malformed_encoding"
	case SchemaViolation:
		return "schema_violation"
	default:
		return "unknown"
	}
}

// ParseError is returned by Classify for every rejected payload.
type ParseError struct {
	Kind  ErrorKind
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KindOf returns the ParseError kind carried by err, or 0.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

var (
	errMissing = errors.New("missing")
	errNull    = errors.New("null")
)

// Classify decodes raw into a Free or Priced ad.
func Classify(raw []byte) (Classified, error) {
	if !json.Valid(raw) {
		var v any
		err := json.Unmarshal(raw, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, &ParseError{Kind: MalformedEncoding, Err: err}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Kind: SchemaViolation, Err: fmt.Errorf("document is not an object: %w", err)}
	}

	d := decoder{doc: doc}
	ad := Ad{
		ID:         d.key("id"),
		CustomerID: d.key("customer_id"),
		CreatedAt:  d.str("created_at"),
		Text:       d.str("text"),
		AdType:     d.str("ad_type"),
	}
	if d.err != nil {
		return nil, d.err
	}
	ad.CreatedAt = truncateCreatedAt(ad.CreatedAt)

	if ad.AdType == FreeAdType {
		return Free{Ad: ad}, nil
	}

	p := Priced{
		Ad:          ad,
		Price:       d.num("price"),
		Currency:    d.str("currency"),
		PaymentType: d.str("payment_type"),
		PaymentCost: d.num("payment_cost"),
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

// decoder keeps the first field error so lookups can be chained.
type decoder struct {
	doc map[string]json.RawMessage
	err *ParseError
}

func (d *decoder) field(name string, dst any) {
	if d.err != nil {
		return
	}
	raw, ok := d.doc[name]
	if !ok {
		d.err = &ParseError{Kind: SchemaViolation, Field: name, Err: errMissing}
		return
	}
	if string(raw) == "null" {
		d.err = &ParseError{Kind: SchemaViolation, Field: name, Err: errNull}
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.err = &ParseError{Kind: SchemaViolation, Field: name, Err: err}
	}
}

func (d *decoder) str(name string) string {
	var s string
	d.field(name, &s)
	return s
}

// key accepts a string or a number, keeping the number's literal text.
func (d *decoder) key(name string) string {
	if d.err != nil {
		return ""
	}
	if raw := d.doc[name]; len(raw) > 0 && raw[0] != '"' && raw[0] != 'n' {
		var n json.Number
		d.field(name, &n)
		return n.String()
	}
	return d.str(name)
}

func (d *decoder) num(name string) float64 {
	var f float64
	d.field(name, &f)
	return f
}
