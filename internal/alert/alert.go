// Package alert models a structured security alert submitted for triage.
//
// An Alert is an arbitrary JSON object. Well-known paths are read with
// dotted lookups:
//
//	ruleName, type, severity
//	entities.srcIp, entities.username, entities.hostId, entities.hostname
//	context.assetCriticality, context.privileged, context.environment
//
// Absent paths read as absent, never as errors.
package alert

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Alert is a decoded alert document. Numbers decode as json.Number.
type Alert map[string]any

// Parse decodes a JSON object into an Alert. A JSON null yields an empty alert.
func Parse(data []byte) (Alert, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var a Alert
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	if a == nil {
		a = Alert{}
	}
	return a, nil
}

// UnmarshalJSON decodes with json.Number so integral values survive.
func (a *Alert) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*a = m
	return nil
}

// Lookup returns the value at a dotted path.
func (a Alert) Lookup(path string) (any, bool) {
	var cur any = map[string]any(a)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the scalar at path as text. Empty strings, null, and
// non-scalar values read as absent.
func (a Alert) String(path string) (string, bool) {
	v, ok := a.Lookup(path)
	if !ok {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return "", false
	}
	return s, s != ""
}

// Number returns the numeric value at path.
func (a Alert) Number(path string) (float64, bool) {
	v, ok := a.Lookup(path)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Integer returns the value at path when it is an integral number, 5.0
// and 1e3 included. Values beyond the int32 range saturate.
func (a Alert) Integer(path string) (int, bool) {
	f, ok := a.Number(path)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return saturate(f), true
}

// Int returns the value at path truncated to an int and saturated to the
// int32 range. Numeric strings are accepted; anything else yields def.
func (a Alert) Int(path string, def int) int {
	v, ok := a.Lookup(path)
	if !ok {
		return def
	}
	if s, isStr := v.(string); isStr {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(n) {
			return def
		}
		return saturate(n)
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return saturate(f)
}

// saturate truncates f toward zero and clamps it to the int32 range so
// the conversion is defined and later arithmetic cannot overflow.
func saturate(f float64) int {
	return int(math.Trunc(math.Max(math.MinInt32, math.Min(math.MaxInt32, f))))
}

// Bool reports whether the value at path is true. Strings are parsed with
// strconv.ParseBool and numbers are true when nonzero.
func (a Alert) Bool(path string) bool {
	v, ok := a.Lookup(path)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	}
	f, ok := toFloat(v)
	return ok && f != 0
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return f, !math.IsNaN(f)
	case float64:
		return t, !math.IsNaN(t)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// Canonical returns the key-sorted JSON encoding of the alert. Equal
// documents produce equal encodings regardless of key order.
func (a Alert) Canonical() (string, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(a))
	if err != nil {
		return "", fmt.Errorf("canonical alert: %w", err)
	}
	return string(b), nil
}

// Fingerprint returns the hex SHA-256 digest of the canonical encoding.
func (a Alert) Fingerprint() (string, error) {
	c, err := a.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(c))
	return hex.EncodeToString(sum[:]), nil
}
