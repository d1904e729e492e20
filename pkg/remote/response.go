package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"campus-desk-be/pkg/deskerr"
)

// Shape names the response layout an answer was found in.
type Shape string

const (
	ShapeResponse   Shape = "response"
	ShapeCandidates Shape = "candidates"
	ShapeString     Shape = "string"
	ShapeError      Shape = "error"
	ShapeMessage    Shape = "message"
)

const diagnosticLimit = 500

// matcher extracts answer text from one known layout. ok is false when the
// payload does not use that layout.
type matcher struct {
	shape Shape
	match func(payload interface{}) (text string, ok bool)
}

// matchers are tried in order; the first hit wins.
var matchers = []matcher{
	{shape: ShapeResponse, match: stringField("response")},
	{shape: ShapeCandidates, match: candidateText},
	{shape: ShapeString, match: bareString},
	{shape: ShapeError, match: errorField},
	{shape: ShapeMessage, match: stringField("message")},
}

// ParseAnswer decodes a /chat payload. An {error} payload or an explicit
// "success": false comes back as a remote_failure error; payloads that are not JSON or match no layout come
// back as unparseable_response with the raw payload embedded.
func ParseAnswer(status int, raw []byte) (string, Shape, error) {
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		msg := fmt.Sprintf("Backend response received (HTTP %d) but could not be parsed as JSON. Raw: %s", status, string(raw))
		return "", "", deskerr.Wrap(deskerr.CodeUnparseableResponse, truncate(msg, diagnosticLimit), err)
	}

	if reportsFailure(payload) {
		text, ok := errorField(payload)
		if !ok {
			text = "Failed to process query."
		}
		return "", ShapeError, deskerr.New(deskerr.CodeRemoteFailure, "Backend error: "+text)
	}

	for _, m := range matchers {
		text, ok := m.match(payload)
		if !ok {
			continue
		}
		if m.shape == ShapeError {
			return "", ShapeError, deskerr.New(deskerr.CodeRemoteFailure, "Backend error: "+text)
		}
		return text, m.shape, nil
	}

	msg := fmt.Sprintf("Backend responded with HTTP %d but no readable content found. Raw: %s", status, string(raw))
	return "", "", deskerr.New(deskerr.CodeUnparseableResponse, truncate(msg, diagnosticLimit))
}

// reportsFailure is true only for an explicit "success": false. Payloads
// without the flag are judged by their layout.
func reportsFailure(payload interface{}) bool {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return false
	}
	success, ok := obj["success"].(bool)
	return ok && !success
}

func stringField(name string) func(interface{}) (string, bool) {
	return func(payload interface{}) (string, bool) {
		obj, ok := payload.(map[string]interface{})
		if !ok {
			return "", false
		}
		s, ok := obj[name].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return "", false
		}
		return s, true
	}
}

// candidateText reads {candidates:[{content:{parts:[{text}]}}]}, taking the
// first part that has text.
func candidateText(payload interface{}) (string, bool) {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	candidates, ok := obj["candidates"].([]interface{})
	if !ok || len(candidates) == 0 {
		return "", false
	}
	first, ok := candidates[0].(map[string]interface{})
	if !ok {
		return "", false
	}
	content, ok := first["content"].(map[string]interface{})
	if !ok {
		return "", false
	}
	parts, ok := content["parts"].([]interface{})
	if !ok {
		return "", false
	}
	for _, p := range parts {
		part, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok && text != "" {
			return text, true
		}
	}
	return "", false
}

func bareString(payload interface{}) (string, bool) {
	s, ok := payload.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func errorField(payload interface{}) (string, bool) {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	switch v := obj["error"].(type) {
	case nil:
		return "", false
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case bool:
		return "", false
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
