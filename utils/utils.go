package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

func Parse(data io.Reader, container interface{}) error {
	decoder := json.NewDecoder(data)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(container); err != nil {
		return err
	}
	return nil
}

func ParseString(vars map[string]string, name string) (string, error) {
	value, ok := vars[name]
	if !ok {
		return "", fmt.Errorf("missing parameter for %s", name)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty parameter %s", name)
	}
	return value, nil
}

// ParseLimit reads a positive integer query parameter, falling back to def
// when absent and clamping to max.
func ParseLimit(values url.Values, name string, def, max int) (int, error) {
	valueS := strings.TrimSpace(values.Get(name))
	if valueS == "" {
		return def, nil
	}
	value, err := strconv.ParseInt(valueS, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %s as int", valueS)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	if int(value) > max {
		return max, nil
	}
	return int(value), nil
}
