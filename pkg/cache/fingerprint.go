// Package cache implements the Smart Cache: a fingerprint-keyed,
// TTL-bounded, single-flight result cache over a pluggable Store.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeString trims and collapses internal whitespace in a string
// value; any other value is returned unchanged (nil is mapped to the
// empty string by normalize and normalizeSlice before this is called).
// Grounded on the teacher's slack.normalizeText.
func normalizeString(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return s
}

// normalize walks a request map, normalizing every string value and
// replacing nil with "". Nested maps/slices are normalized recursively
// so fingerprint stability holds regardless of nesting depth.
func normalize(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case map[string]interface{}:
			out[k] = normalize(val)
		case []interface{}:
			out[k] = normalizeSlice(val)
		default:
			out[k] = normalizeString(val)
		}
	}
	return out
}

func normalizeSlice(items []interface{}) []interface{} {
	out := make([]interface{}, len(items))
	for i, v := range items {
		switch val := v.(type) {
		case nil:
			out[i] = ""
		case map[string]interface{}:
			out[i] = normalize(val)
		case []interface{}:
			out[i] = normalizeSlice(val)
		default:
			out[i] = normalizeString(val)
		}
	}
	return out
}

// BuildFingerprintKey implements the §4.1 contract: normalize every
// string value, sort keys (via sortedJSON), MD5-hex the canonical JSON,
// and prepend prefix. Stable under key reordering and under any
// whitespace/nil variation the normalizer accounts for — invariant 1 in
// §8.
func BuildFingerprintKey(prefix string, requestData map[string]interface{}) string {
	normalized := normalize(requestData)
	canonical := sortedJSON(normalized)
	sum := md5.Sum(canonical)
	return prefix + hex.EncodeToString(sum[:])
}

// sortedJSON serializes v with map keys in sorted order, at every
// nesting level, so the fingerprint does not depend on iteration order
// (Go's encoding/json already sorts map[string]X keys, but nested
// []interface{}/map combinations are walked explicitly to keep the
// contract explicit and tested).
func sortedJSON(v interface{}) []byte {
	b, err := json.Marshal(sortValue(v))
	if err != nil {
		// json.Marshal only fails on unsupported types (channels,
		// funcs); a normalized request map never contains those.
		return []byte("null")
	}
	return b
}

func sortValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, kv{k, sortValue(val[k])})
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sortValue(item)
		}
		return out
	default:
		return val
	}
}

type kv struct {
	Key   string
	Value interface{}
}

// orderedMap marshals as a JSON object preserving insertion order,
// which sortValue has already sorted by key.
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, pair := range m {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}
