// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"math/big"
	"time"

	"codello.dev/asn1tree"
)

// TypeMismatchError is returned when a value is accessed as a type it does
// not have. It matches [asn1tree.ErrTypeMismatch].
type TypeMismatchError struct {
	Want Kind // zero if not known
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	if e.Want == 0 {
		return "ber: unexpected value of kind " + e.Got.String()
	}
	return "ber: expected " + e.Want.String() + " but got " + e.Got.String()
}

func (e *TypeMismatchError) Unwrap() error { return asn1tree.ErrTypeMismatch }

// As returns v as a value of type T. If v is not of type T, a
// [*TypeMismatchError] is returned.
func As[T Value](v Value) (T, error) {
	t, ok := v.(T)
	if ok {
		return t, nil
	}
	var want Kind
	if zero := any(t); zero != nil {
		want = t.Kind()
	}
	got := Kind(0)
	if v != nil {
		got = v.Kind()
	}
	return t, &TypeMismatchError{Want: want, Got: got}
}

// AsBool returns the value of a [Boolean].
func AsBool(v Value) (bool, error) {
	b, err := As[Boolean](v)
	return b.Bool(), err
}

// AsInteger returns the value of an [Integer] or [Enumerated].
func AsInteger(v Value) (*big.Int, error) {
	switch v := v.(type) {
	case Integer:
		return v.Big(), nil
	case Enumerated:
		return v.Big(), nil
	}
	i, err := As[Integer](v)
	return i.Big(), err
}

// AsBytes returns the octets of an [OctetString].
func AsBytes(v Value) ([]byte, error) {
	s, err := As[OctetString](v)
	if err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// AsOID returns v as an [ObjectIdentifier].
func AsOID(v Value) (ObjectIdentifier, error) {
	return As[ObjectIdentifier](v)
}

// AsString returns the value of any character string type.
func AsString(v Value) (string, error) {
	if s, ok := v.(String); ok && isStringKind(s.Kind()) {
		return s.String(), nil
	}
	got := Kind(0)
	if v != nil {
		got = v.Kind()
	}
	return "", &TypeMismatchError{Got: got}
}

// AsTime returns the value of a [UTCTime] or [GeneralizedTime].
func AsTime(v Value) (time.Time, error) {
	switch v := v.(type) {
	case UTCTime:
		return v.Time(), nil
	case GeneralizedTime:
		return v.Time(), nil
	}
	t, err := As[GeneralizedTime](v)
	return t.Time(), err
}

// AsSequence returns the elements of a [Sequence].
func AsSequence(v Value) ([]Value, error) {
	s, err := As[*Sequence](v)
	if err != nil {
		return nil, err
	}
	return s.Elements(), nil
}

// AsSet returns the elements of a [Set].
func AsSet(v Value) ([]Value, error) {
	s, err := As[*Set](v)
	if err != nil {
		return nil, err
	}
	return s.Elements(), nil
}
