package backend

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/bytedance/sonic"
)

// envelopeKeys are the keys a wrapper object may carry next to data.
var envelopeKeys = map[string]bool{
	"data":    true,
	"success": true,
	"message": true,
	"status":  true,
	"count":   true,
}

// unwrap is the single place that knows about response envelopes. The API
// answers with bare values, {"data": X}, {"success": true, "data": X} or
// paginated {"count": n, "results": X}; unwrap returns X in every case.
// A {"success": false} wrapper is turned into an APIError.
func unwrap(status int, body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}

	var obj map[string]json.RawMessage
	if err := sonic.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}

	if raw, ok := obj["success"]; ok {
		var success bool
		if err := sonic.Unmarshal(raw, &success); err == nil && !success {
			if status < http.StatusBadRequest {
				status = http.StatusUnprocessableEntity
			}
			return nil, newAPIError(status, trimmed)
		}
	}

	if results, ok := obj["results"]; ok && isArray(results) {
		return results, nil
	}

	if data, ok := obj["data"]; ok {
		for key := range obj {
			if !envelopeKeys[key] {
				return trimmed, nil
			}
		}
		return bytes.TrimSpace(data), nil
	}
	return trimmed, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// decode unwraps body and decodes the payload into out. A null or empty
// payload leaves out untouched.
func decode(status int, body []byte, out any) error {
	payload, err := unwrap(status, body)
	if err != nil {
		return err
	}
	if out == nil || len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil
	}
	return sonic.Unmarshal(payload, out)
}
