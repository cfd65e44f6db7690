package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rebano/rebano-go/internal/listcache"
)

// ErrUnrecognizedEnvelope is returned for list responses of none of the
// accepted shapes.
var ErrUnrecognizedEnvelope = errors.New("unrecognized list envelope")

// DecodeList extracts the records of a list response. The accepted shapes
// are checked in order: a bare array, {"data": [...]}, {"<domain>": [...]}
// and {"data": {"<domain>": [...]}}.
func DecodeList(raw json.RawMessage, domain string) ([]listcache.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnrecognizedEnvelope)
	}

	switch raw[0] {
	case '[':
		return decodeArray(raw)
	case '{':
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedEnvelope, preview(raw))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedEnvelope, err)
	}

	if data, ok := obj["data"]; ok && isArray(data) {
		return decodeArray(data)
	}
	if list, ok := obj[domain]; ok && isArray(list) {
		return decodeArray(list)
	}
	if data, ok := obj["data"]; ok {
		var nested map[string]json.RawMessage
		if json.Unmarshal(data, &nested) == nil {
			if list, ok := nested[domain]; ok && isArray(list) {
				return decodeArray(list)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnrecognizedEnvelope, preview(raw))
}

func decodeArray(raw json.RawMessage) ([]listcache.Record, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedEnvelope, err)
	}
	out := make([]listcache.Record, 0, len(elems))
	for i, e := range elems {
		r, err := listcache.FromJSON(e)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrUnrecognizedEnvelope, i)
		}
		out = append(out, r)
	}
	return out, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func preview(raw []byte) string {
	const n = 64
	if len(raw) > n {
		cut := n
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		return string(raw[:cut]) + "..."
	}
	return string(raw)
}
