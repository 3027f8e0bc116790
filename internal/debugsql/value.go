package debugsql

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind enumerates the cell types the store can produce.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInteger
	KindFloat
	KindBool
	KindTimestamp
)

// Value is one result cell. Exactly one field is meaningful, selected by
// Kind.
type Value struct {
	Kind      Kind
	Text      string
	Integer   int64
	Float     float64
	Bool      bool
	Timestamp time.Time
}

// valueOf classifies a driver-native value into a Value.
func valueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{Kind: KindNull}, nil
	case string:
		return Value{Kind: KindText, Text: x}, nil
	case []byte:
		return Value{Kind: KindText, Text: string(x)}, nil
	case int64:
		return Value{Kind: KindInteger, Integer: x}, nil
	case float64:
		return Value{Kind: KindFloat, Float: x}, nil
	case bool:
		return Value{Kind: KindBool, Bool: x}, nil
	case time.Time:
		return Value{Kind: KindTimestamp, Timestamp: x}, nil
	default:
		return Value{}, fmt.Errorf("unsupported column value type %T", v)
	}
}

// MarshalJSON renders the cell as its native JSON value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindText:
		return json.Marshal(v.Text)
	case KindInteger:
		return json.Marshal(v.Integer)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindTimestamp:
		return json.Marshal(v.Timestamp.UTC().Format(time.RFC3339Nano))
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}
