package tracekit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType identifies which member of the Value union is set.
type ValueType int

const (
	// ValueInvalid is the zero Value; it carries no data.
	ValueInvalid ValueType = iota
	ValueString
	ValueInt64
	ValueFloat64
	ValueBool
	ValueStringSlice
	ValueInt64Slice
	ValueFloat64Slice
	ValueBoolSlice
)

// Value is a closed union of the attribute types spans accept: strings,
// 64-bit integers, 64-bit floats, booleans, and homogeneous slices of each.
// Unsupported types cannot be represented; construct values through the
// typed constructors.
type Value struct {
	vtype ValueType
	num   int64
	str   string
	slice any
}

// StringValue returns a string Value.
func StringValue(v string) Value {
	return Value{vtype: ValueString, str: v}
}

// Int64Value returns an int64 Value.
func Int64Value(v int64) Value {
	return Value{vtype: ValueInt64, num: v}
}

// Float64Value returns a float64 Value.
func Float64Value(v float64) Value {
	return Value{vtype: ValueFloat64, num: int64(math.Float64bits(v))}
}

// BoolValue returns a bool Value.
func BoolValue(v bool) Value {
	var n int64
	if v {
		n = 1
	}
	return Value{vtype: ValueBool, num: n}
}

// StringSliceValue returns a Value holding a copy of the given strings.
func StringSliceValue(v []string) Value {
	cp := make([]string, len(v))
	copy(cp, v)
	return Value{vtype: ValueStringSlice, slice: cp}
}

// Int64SliceValue returns a Value holding a copy of the given ints.
func Int64SliceValue(v []int64) Value {
	cp := make([]int64, len(v))
	copy(cp, v)
	return Value{vtype: ValueInt64Slice, slice: cp}
}

// Float64SliceValue returns a Value holding a copy of the given floats.
func Float64SliceValue(v []float64) Value {
	cp := make([]float64, len(v))
	copy(cp, v)
	return Value{vtype: ValueFloat64Slice, slice: cp}
}

// BoolSliceValue returns a Value holding a copy of the given bools.
func BoolSliceValue(v []bool) Value {
	cp := make([]bool, len(v))
	copy(cp, v)
	return Value{vtype: ValueBoolSlice, slice: cp}
}

// Type returns which member of the union is set.
func (v Value) Type() ValueType {
	return v.vtype
}

// AsString returns the string member, or "" for other types.
func (v Value) AsString() string {
	if v.vtype != ValueString {
		return ""
	}
	return v.str
}

// AsInt64 returns the int64 member, or 0 for other types.
func (v Value) AsInt64() int64 {
	if v.vtype != ValueInt64 {
		return 0
	}
	return v.num
}

// AsFloat64 returns the float64 member, or 0 for other types.
func (v Value) AsFloat64() float64 {
	if v.vtype != ValueFloat64 {
		return 0
	}
	return math.Float64frombits(uint64(v.num))
}

// AsBool returns the bool member, or false for other types.
func (v Value) AsBool() bool {
	return v.vtype == ValueBool && v.num == 1
}

// AsInterface returns the held value as a plain Go value for serialization.
// Slice members are returned as copies.
func (v Value) AsInterface() any {
	switch v.vtype {
	case ValueString:
		return v.str
	case ValueInt64:
		return v.num
	case ValueFloat64:
		return v.AsFloat64()
	case ValueBool:
		return v.num == 1
	case ValueStringSlice:
		s := v.slice.([]string)
		cp := make([]string, len(s))
		copy(cp, s)
		return cp
	case ValueInt64Slice:
		s := v.slice.([]int64)
		cp := make([]int64, len(s))
		copy(cp, s)
		return cp
	case ValueFloat64Slice:
		s := v.slice.([]float64)
		cp := make([]float64, len(s))
		copy(cp, s)
		return cp
	case ValueBoolSlice:
		s := v.slice.([]bool)
		cp := make([]bool, len(s))
		copy(cp, s)
		return cp
	default:
		return nil
	}
}

// String renders the value for debugging.
func (v Value) String() string {
	switch v.vtype {
	case ValueString:
		return v.str
	case ValueInt64:
		return strconv.FormatInt(v.num, 10)
	case ValueFloat64:
		return strconv.FormatFloat(v.AsFloat64(), 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.num == 1)
	case ValueStringSlice:
		return "[" + strings.Join(v.slice.([]string), " ") + "]"
	case ValueInt64Slice, ValueFloat64Slice, ValueBoolSlice:
		return fmt.Sprintf("%v", v.slice)
	default:
		return "<invalid>"
	}
}

// Attribute is a key/value pair attached to spans, events, and links.
type Attribute struct {
	Key   string
	Value Value
}

// String returns a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: StringValue(value)}
}

// Int returns an int64 attribute from an int.
func Int(key string, value int) Attribute {
	return Int64(key, int64(value))
}

// Int64 returns an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: Int64Value(value)}
}

// Float64 returns a float64 attribute.
func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: Float64Value(value)}
}

// Bool returns a bool attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: BoolValue(value)}
}

// StringSlice returns a string slice attribute.
func StringSlice(key string, value []string) Attribute {
	return Attribute{Key: key, Value: StringSliceValue(value)}
}

// Int64Slice returns an int64 slice attribute.
func Int64Slice(key string, value []int64) Attribute {
	return Attribute{Key: key, Value: Int64SliceValue(value)}
}

// Float64Slice returns a float64 slice attribute.
func Float64Slice(key string, value []float64) Attribute {
	return Attribute{Key: key, Value: Float64SliceValue(value)}
}

// BoolSlice returns a bool slice attribute.
func BoolSlice(key string, value []bool) Attribute {
	return Attribute{Key: key, Value: BoolSliceValue(value)}
}
