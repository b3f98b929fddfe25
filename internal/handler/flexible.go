package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// queryField accepts a search query as either a JSON string or an object
// {"query": "..."}. Clients have sent both.
type queryField string

func (q *queryField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = queryField(s)
		return nil
	}

	var obj struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.New(`searchQuery must be a string or {"query": string}`)
	}
	*q = queryField(obj.Query)
	return nil
}

// countField accepts a JSON number or a numeric string. Form inputs post
// numbers as strings.
type countField int

func (c *countField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}

	var n json.Number
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n = json.Number(strings.TrimSpace(s))
	} else {
		n = json.Number(data)
	}

	if n == "" {
		*c = 0
		return nil
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return errors.New("numberOfArticles must be an integer")
	}
	*c = countField(v)
	return nil
}
