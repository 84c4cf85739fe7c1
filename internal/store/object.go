// Copyright 2024 The Godis Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"fmt"
	"strconv"

	"github.com/nyxkv/nyxdb/internal/objmeta"
)

// ObjType represents the object type. Only strings are stored; the value-type
// zoo (lists, hashes, sets, ...) lives outside the eviction core's scope.
type ObjType byte

const (
	ObjTypeString ObjType = iota
)

// ObjEncoding represents the object encoding.
type ObjEncoding byte

const (
	ObjEncodingRaw ObjEncoding = iota
	ObjEncodingInt
	ObjEncodingEmbstr
)

// String returns the string representation of the object type
func (t ObjType) String() string {
	switch t {
	case ObjTypeString:
		return "string"
	default:
		return "unknown"
	}
}

// String returns the string representation of the encoding
func (e ObjEncoding) String() string {
	switch e {
	case ObjEncodingRaw:
		return "raw"
	case ObjEncodingInt:
		return "int"
	case ObjEncodingEmbstr:
		return "embstr"
	default:
		return "unknown"
	}
}

// ObjTypeFromString parses a string to ObjType
func ObjTypeFromString(s string) (ObjType, error) {
	switch s {
	case "string":
		return ObjTypeString, nil
	default:
		return ObjTypeString, fmt.Errorf("unknown object type: %s", s)
	}
}

// Object is a stored value plus the access metadata the eviction core reads
// on every sampling pass. Meta holds either an LRU clock reading or a packed
// LFU (last-decay-time, counter) pair, depending on the active policy; its
// bits are never touched directly, only through objmeta's encode/decode
// pairs.
type Object struct {
	Type     ObjType
	Encoding ObjEncoding
	Ptr      interface{}
	Meta     objmeta.Word
}

// NewObject creates a new object, LRU-stamped at the given clock tick.
func NewObject(objType ObjType, encoding ObjEncoding, ptr interface{}, clockTick uint32) *Object {
	return &Object{
		Type:     objType,
		Encoding: encoding,
		Ptr:      ptr,
		Meta:     objmeta.EncodeLRU(clockTick),
	}
}

// NewStringObject creates a string object with optimal encoding
func NewStringObject(s string, clockTick uint32) *Object {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewObject(ObjTypeString, ObjEncodingInt, i, clockTick)
	}
	if len(s) <= 44 {
		return NewObject(ObjTypeString, ObjEncodingEmbstr, s, clockTick)
	}
	return NewObject(ObjTypeString, ObjEncodingRaw, s, clockTick)
}

// NewIntObject creates an integer string object
func NewIntObject(i int64, clockTick uint32) *Object {
	return NewObject(ObjTypeString, ObjEncodingInt, i, clockTick)
}

// NewBulkStringObject creates a string object from bytes
func NewBulkStringObject(b []byte, clockTick uint32) *Object {
	if b == nil {
		return NewObject(ObjTypeString, ObjEncodingEmbstr, nil, clockTick)
	}
	return NewStringObject(string(b), clockTick)
}

// String returns the string value
func (o *Object) String() string {
	if o == nil {
		return ""
	}

	switch v := o.Ptr.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Bytes returns the value as bytes
func (o *Object) Bytes() []byte {
	if o == nil {
		return nil
	}

	switch v := o.Ptr.(type) {
	case int64:
		return []byte(strconv.FormatInt(v, 10))
	case int:
		return []byte(strconv.Itoa(v))
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		return nil
	}
}

// Int returns the value as int64
func (o *Object) Int() (int64, bool) {
	if o == nil {
		return 0, false
	}

	switch v := o.Ptr.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// TouchLRU restamps the object's metadata with the given LRU clock tick.
// Called on every read/write access while the server runs an LRU-family
// policy.
func (o *Object) TouchLRU(clockTick uint32) {
	o.Meta = objmeta.EncodeLRU(clockTick)
}

// LRUTick returns the object's stored LRU clock reading.
func (o *Object) LRUTick() uint32 {
	return o.Meta.DecodeLRU()
}

// TouchLFU applies the probabilistic logarithmic counter increment used on
// every access while the server runs an LFU-family policy, decaying the
// counter first if enough time has passed since the last decay.
func (o *Object) TouchLFU(nowMinutes uint32, logFactor, decayTimeMinutes int, rand01 func() float64) {
	ldt, counter := o.Meta.DecodeLFU()
	counter = objmeta.Decay(ldt, counter, nowMinutes, decayTimeMinutes)
	counter = objmeta.LogIncrement(counter, logFactor, rand01)
	o.Meta = objmeta.EncodeLFU(nowMinutes, counter)
}

// LFUState returns the object's stored (last-decay-time, counter) pair.
func (o *Object) LFUState() (ldtMinutes uint32, counter uint8) {
	return o.Meta.DecodeLFU()
}

// InitLFU stamps a freshly created object with the LFU initial counter.
func (o *Object) InitLFU(nowMinutes uint32) {
	o.Meta = objmeta.EncodeLFU(nowMinutes, objmeta.LFUInitVal)
}

// Size returns the approximate size of the object's value in bytes, the
// figure DB.MemoryUsage sums.
func (o *Object) Size() int64 {
	if o == nil {
		return 0
	}

	const baseObjectSize = 16

	switch v := o.Ptr.(type) {
	case int64:
		return 8
	case int:
		return 4
	case string:
		return int64(len(v))
	case []byte:
		return int64(len(v))
	default:
		return baseObjectSize
	}
}
