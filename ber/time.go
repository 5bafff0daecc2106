// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ber

import (
	"errors"
	"strings"
	"time"

	"codello.dev/asn1tree"
)

var (
	errInvalidUTCTime         = errors.New("invalid UTCTime")
	errInvalidGeneralizedTime = errors.New("invalid GeneralizedTime")
)

// UTCTime is the ASN.1 UTCTime type. A UTCTime keeps its textual
// representation YYMMDDhhmm[ss](Z|+hhmm|-hhmm). Only years between 1950 and
// 2049 can be represented.
type UTCTime struct {
	s string
}

// NewUTCTime returns the [UTCTime] representing t in UTC with a precision of
// one second.
func NewUTCTime(t time.Time) (UTCTime, error) {
	t = t.UTC()
	if t.Year() < 1950 || t.Year() >= 2050 {
		return UTCTime{}, errors.New("cannot represent time as UTCTime")
	}
	return UTCTime{t.Format("060102150405Z")}, nil
}

// ParseUTCTime validates s and returns the corresponding [UTCTime].
func ParseUTCTime(s string) (UTCTime, error) {
	if _, err := parseUTCTime(s); err != nil {
		return UTCTime{}, err
	}
	return UTCTime{s}, nil
}

func utcTimeFromContents(c []byte, _ *config) (Value, error) {
	t, err := ParseUTCTime(string(c))
	if err != nil {
		return nil, contentError(asn1tree.TagUTCTime, "%s", err)
	}
	return t, nil
}

func parseUTCTime(s string) (time.Time, error) {
	if len(s) < 11 || len(s) > 17 {
		return time.Time{}, errInvalidUTCTime
	}
	year := atoiN[int](s, 2)
	month := atoiN[time.Month](s[2:], 2)
	day := atoiN[int](s[4:], 2)
	hour := atoiN[int](s[6:], 2)
	minute := atoiN[int](s[8:], 2)
	s = s[10:]
	second := atoiN[int](s, 2)
	if second >= 0 {
		s = s[2:]
	} else {
		second = 0
	}
	loc := parseLocation(s)
	if loc == nil || year < 0 || hour < 0 || minute < 0 {
		return time.Time{}, errInvalidUTCTime
	}

	// UTCTime only encodes times prior to 2050. See https://tools.ietf.org/html/rfc5280#section-4.1.2.5.1
	if year <= 49 {
		year += 2000
	} else {
		year += 1900
	}
	ret := time.Date(year, month, day, hour, minute, second, 0, loc)
	if ret.Year() != year || ret.Month() != month || ret.Day() != day || ret.Hour() != hour || ret.Minute() != minute || ret.Second() != second {
		return time.Time{}, errInvalidUTCTime
	}
	return ret, nil
}

// Time returns the time represented by t.
func (t UTCTime) Time() time.Time {
	ret, _ := parseUTCTime(t.s)
	return ret
}

func (UTCTime) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagUTCTime) }
func (UTCTime) Kind() Kind        { return KindUTCTime }

func (t UTCTime) Bytes() []byte    { return []byte(t.s) }
func (t UTCTime) contents() []byte { return []byte(t.s) }

func (t UTCTime) Encoding(rules Rules) Encoding { return t.EncodingImplicit(rules, t.Tag()) }
func (t UTCTime) EncodingImplicit(_ Rules, tag asn1tree.Tag) Encoding {
	return NewPrimitiveEncoding(tag, []byte(t.s))
}

// String returns the textual representation of t.
func (t UTCTime) String() string { return t.s }

// GeneralizedTime is the ASN.1 GeneralizedTime type. A GeneralizedTime keeps
// its textual representation YYYYMMDDhh[mm[ss[(.|,)f...]]](Z|+hhmm|-hhmm).
// When encoded using [DER] the representation is normalized: missing minutes
// and seconds are filled in and trailing zeros of the fraction are removed.
type GeneralizedTime struct {
	s string
}

// NewGeneralizedTime returns the [GeneralizedTime] representing t in UTC.
// Fractional seconds are included as far as necessary.
func NewGeneralizedTime(t time.Time) (GeneralizedTime, error) {
	t = t.UTC()
	if t.Year() < 0 || t.Year() > 9999 {
		return GeneralizedTime{}, errors.New("cannot represent time as GeneralizedTime")
	}
	return GeneralizedTime{t.Format("20060102150405.999999999Z")}, nil
}

// ParseGeneralizedTime validates s and returns the corresponding
// [GeneralizedTime].
func ParseGeneralizedTime(s string) (GeneralizedTime, error) {
	if _, err := parseGeneralizedTime(s); err != nil {
		return GeneralizedTime{}, err
	}
	return GeneralizedTime{s}, nil
}

func generalizedTimeFromContents(c []byte, _ *config) (Value, error) {
	t, err := ParseGeneralizedTime(string(c))
	if err != nil {
		return nil, contentError(asn1tree.TagGeneralizedTime, "%s", err)
	}
	return t, nil
}

func parseGeneralizedTime(s string) (time.Time, error) {
	if len(s) < 11 {
		return time.Time{}, errInvalidGeneralizedTime
	}
	year := atoiN[int](s, 4)
	month := atoiN[time.Month](s[4:], 2)
	day := atoiN[int](s[6:], 2)
	hour := atoiN[time.Duration](s[8:], 2)
	if year < 0 || hour < 0 || 23 < hour {
		return time.Time{}, errInvalidGeneralizedTime
	}
	s = s[10:]
	dur := hour * time.Hour
	unit := time.Hour // unit for fractional time
	if len(s) >= 2 && '0' <= s[0] && s[0] <= '9' {
		minute := atoiN[time.Duration](s, 2)
		if minute < 0 || 59 < minute {
			return time.Time{}, errInvalidGeneralizedTime
		}
		dur += minute * time.Minute
		unit = time.Minute
		s = s[2:]
	}
	if unit == time.Minute && len(s) >= 2 && '0' <= s[0] && s[0] <= '9' {
		second := atoiN[time.Duration](s, 2)
		if second < 0 || 59 < second {
			return time.Time{}, errInvalidGeneralizedTime
		}
		unit = time.Second
		dur += second * time.Second
		s = s[2:]
	}
	if len(s) > 0 && (s[0] == '.' || s[0] == ',') {
		i := 1
		for ; i < len(s); i++ {
			if s[i] < '0' || '9' < s[i] {
				break
			}
			unit /= 10
			dur += time.Duration(s[i]-'0') * unit
		}
		if i == 1 {
			return time.Time{}, errInvalidGeneralizedTime
		}
		s = s[i:]
	}
	loc := parseLocation(s)
	if loc == nil {
		return time.Time{}, errInvalidGeneralizedTime
	}
	ret := time.Date(year, month, day, 0, 0, 0, 0, loc)
	ret = ret.Add(dur)
	if ret.Year() != year || ret.Month() != month || ret.Day() != day {
		return time.Time{}, errInvalidGeneralizedTime
	}
	return ret, nil
}

// derGeneralizedTime normalizes the UTC representation s: minutes and seconds
// are always present and the fraction has no trailing zeros.
func derGeneralizedTime(s string) string {
	if !strings.HasSuffix(s, "Z") {
		return s
	}
	body := strings.Replace(s[:len(s)-1], ",", ".", 1)
	if i := strings.IndexByte(body, '.'); i >= 0 {
		if i != 14 {
			// fraction of an hour or minute
			t, _ := parseGeneralizedTime(s)
			return t.Format("20060102150405.999999999Z")
		}
		body = strings.TrimSuffix(strings.TrimRight(body, "0"), ".")
	} else if len(body) < 14 {
		body += strings.Repeat("0", 14-len(body))
	}
	return body + "Z"
}

// Time returns the time represented by t.
func (t GeneralizedTime) Time() time.Time {
	ret, _ := parseGeneralizedTime(t.s)
	return ret
}

func (GeneralizedTime) Tag() asn1tree.Tag { return asn1tree.Universal(asn1tree.TagGeneralizedTime) }
func (GeneralizedTime) Kind() Kind        { return KindGeneralizedTime }

func (t GeneralizedTime) Bytes() []byte    { return []byte(t.s) }
func (t GeneralizedTime) contents() []byte { return []byte(t.s) }

func (t GeneralizedTime) Encoding(rules Rules) Encoding { return t.EncodingImplicit(rules, t.Tag()) }
func (t GeneralizedTime) EncodingImplicit(rules Rules, tag asn1tree.Tag) Encoding {
	s := t.s
	if rules == DER {
		s = derGeneralizedTime(s)
	}
	return NewPrimitiveEncoding(tag, []byte(s))
}

// String returns the textual representation of t.
func (t GeneralizedTime) String() string { return t.s }

// parseLocation parses a time zone designator "Z", "+hhmm" or "-hhmm".
func parseLocation(s string) *time.Location {
	if len(s) == 1 && s[0] == 'Z' {
		return time.UTC
	}
	if len(s) != 5 {
		return nil
	}
	if s[0] != '+' && s[0] != '-' {
		return nil
	}
	mul := 44 - int(s[0]) // '+' is 43, '-' is 45
	locHour := atoiN[int](s[1:], 2)
	locMinute := atoiN[int](s[3:], 2)
	if locHour < 0 || locHour > 23 || locMinute < 0 || locMinute > 59 {
		return nil
	}
	return time.FixedZone("", mul*(locHour*3600+locMinute*60))
}

// atoiN parses exactly n decimal digits from the start of s. It returns -1 if
// s does not start with n digits.
func atoiN[T ~int | ~int64](s string, n int) (i T) {
	if len(s) < n {
		return -1
	}
	for j := 0; j < n; j++ {
		if s[j] < '0' || '9' < s[j] {
			return -1
		}
		i = i*10 + T(s[j]-'0')
	}
	return i
}
