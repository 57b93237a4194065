package capability

import (
	"encoding/json"
	"fmt"
	"io"

	"cogni/internal/value"
)

// httpGetBuiltin fetches a URL and returns {"status": num, "body": str}.
// The body is capped at 4 MiB; status is returned even for non-2xx
// responses so programs can branch on it.
func (s *Set) httpGetBuiltin(args []value.Value) (value.Value, error) {
	url, err := wantStr("http_get", args[0], "url")
	if err != nil {
		return value.Nil, err
	}
	resp, err := s.http.Get(url)
	if err != nil {
		return value.Nil, fmt.Errorf("http_get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPBody))
	if err != nil {
		return value.Nil, fmt.Errorf("http_get: reading body: %w", err)
	}
	s.log.Debug("http_get", "url", url, "status", resp.StatusCode, "bytes", len(body))
	return value.Map(map[string]value.Value{
		"status": value.Num(float64(resp.StatusCode)),
		"body":   value.Str(string(body)),
	}), nil
}

func jsonParseBuiltin(args []value.Value) (value.Value, error) {
	s, err := wantStr("json_parse", args[0], "input")
	if err != nil {
		return value.Nil, err
	}
	v, err := value.FromJSON([]byte(s))
	if err != nil {
		return value.Nil, fmt.Errorf("json_parse: %w", err)
	}
	return v, nil
}

func jsonStringifyBuiltin(args []value.Value) (value.Value, error) {
	raw, err := json.Marshal(args[0])
	if err != nil {
		return value.Nil, fmt.Errorf("json_stringify: %w", err)
	}
	return value.Str(string(raw)), nil
}
