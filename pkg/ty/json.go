package ty

import (
	"encoding/json"
)

// ToJSONString converts data to a JSON string.
func ToJSONString(data any) (string, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ToJSONStringIndent converts data to an indented JSON string, for tool
// output meant to be read by a human or an LLM.
func ToJSONStringIndent(data any) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
