package session

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// normalizeJSON re-encodes valid JSON text compactly the way a JavaScript
// JSON.parse then JSON.stringify round trip would: numbers take their
// shortest form, a repeated key keeps its first position and its last
// value, and integer-like keys come first in ascending order.
func normalizeJSON(text string) []byte {
	return appendValue(nil, gjson.Parse(text))
}

func appendValue(b []byte, v gjson.Result) []byte {
	switch {
	case v.IsObject():
		return appendObject(b, v)
	case v.IsArray():
		b = append(b, '[')
		for i, item := range v.Array() {
			if i > 0 {
				b = append(b, ',')
			}
			b = appendValue(b, item)
		}
		return append(b, ']')
	}

	switch v.Type {
	case gjson.String:
		return appendString(b, v.String())
	case gjson.Number:
		return append(b, formatNumber(v.Float())...)
	case gjson.True:
		return append(b, "true"...)
	case gjson.False:
		return append(b, "false"...)
	default:
		return append(b, "null"...)
	}
}

func appendObject(b []byte, v gjson.Result) []byte {
	var keys []string
	values := make(map[string]gjson.Result)
	v.ForEach(func(k, val gjson.Result) bool {
		key := k.String()
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = val
		return true
	})

	var indexKeys, nameKeys []string
	for _, k := range keys {
		if isIndexKey(k) {
			indexKeys = append(indexKeys, k)
		} else {
			nameKeys = append(nameKeys, k)
		}
	}
	sort.Slice(indexKeys, func(i, j int) bool {
		a, _ := strconv.ParseUint(indexKeys[i], 10, 32)
		c, _ := strconv.ParseUint(indexKeys[j], 10, 32)
		return a < c
	})

	b = append(b, '{')
	for i, k := range append(indexKeys, nameKeys...) {
		if i > 0 {
			b = append(b, ',')
		}
		b = appendString(b, k)
		b = append(b, ':')
		b = appendValue(b, values[k])
	}
	return append(b, '}')
}

// isIndexKey reports whether k is a canonical array index, which
// JavaScript objects enumerate before other keys.
func isIndexKey(k string) bool {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return false
	}
	n, err := strconv.ParseUint(k, 10, 32)
	return err == nil && n < math.MaxUint32
}

func appendString(b []byte, s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return append(b, bytes.TrimSuffix(buf.Bytes(), []byte("\n"))...)
}

// formatNumber prints f like JavaScript's Number.prototype.toString.
// Overflowing literals become null, as JSON.stringify prints Infinity.
func formatNumber(f float64) string {
	if math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + exp
}
