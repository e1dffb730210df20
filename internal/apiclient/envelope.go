package apiclient

import (
	"bytes"
	"encoding/json"
)

// Meta is the pagination block of a paginated list, when the API sends one.
type Meta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

func (m Meta) Empty() bool {
	return m == Meta{}
}

// unwrap strips the {"data": ...} envelope and the nested paginator
// {"data": {"data": [...], "total": n}} shape, returning the payload and any
// pagination meta found on the way.
func unwrap(body []byte) (json.RawMessage, Meta) {
	body = bytes.TrimSpace(body)
	var meta Meta
	if len(body) == 0 || body[0] != '{' {
		return body, meta
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return body, meta
	}
	data, ok := outer["data"]
	if !ok {
		return body, meta
	}
	if raw, ok := outer["meta"]; ok {
		_ = json.Unmarshal(raw, &meta)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		if meta.Empty() {
			_ = json.Unmarshal(body, &meta)
		}
		return data, meta
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal(data, &inner); err != nil {
		return data, meta
	}
	nested, ok := inner["data"]
	if !ok || !isPaginator(inner) {
		return data, meta
	}
	_ = json.Unmarshal(data, &meta)
	return nested, meta
}

func isPaginator(obj map[string]json.RawMessage) bool {
	for _, key := range []string{"current_page", "per_page", "total", "last_page"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}
