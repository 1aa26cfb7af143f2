// Package ty provides small utility types shared across the gateway.
package ty

import (
	"fmt"
)

// MI is a shorthand for map[string]interface{}
type MI map[string]interface{}

// MS is a shorthand for map[string]string
type MS map[string]string

// Merge merges another MI into this one.
func (mi *MI) Merge(mi2 MI) {
	for k, v := range mi2 {
		(*mi)[k] = v
	}
}

// Merge merges another MS into this one.
func (ms *MS) Merge(ms2 MS) {
	for k, v := range ms2 {
		(*ms)[k] = v
	}
}

// GetOr returns the value for the key if it exists, otherwise the default value.
func (mi MI) GetOr(key string, def interface{}) interface{} {
	if v, b := mi[key]; b {
		return v
	}
	return def
}

// GetString returns the value as a string if it exists, otherwise empty string.
func (mi MI) GetString(key string) string {
	if v, b := mi[key]; b {
		return fmt.Sprint(v)
	}
	return ""
}

// GetStringOk returns the value as a string along with whether the key exists.
func (mi MI) GetStringOk(key string) (string, bool) {
	if v, b := mi[key]; b {
		return fmt.Sprint(v), true
	}
	return "", false
}

// GetInt returns the value as an int, or def when the key is absent or not
// a numeric type.
func (mi MI) GetInt(key string, def int) int {
	v, b := mi[key]
	if !b {
		return def
	}
	switch vv := v.(type) {
	case int:
		return vv
	case int64:
		return int(vv)
	case float64:
		return int(vv)
	}
	return def
}

// GetMS returns the value as a MS, converting map[string]interface{} values
// through fmt.Sprint.
func (mi MI) GetMS(key string) MS {
	v, b := mi[key]
	if !b {
		return MS{}
	}
	switch vv := v.(type) {
	case MS:
		return vv
	case map[string]string:
		return MS(vv)
	case MI:
		res := MS{}
		for k, val := range vv {
			res[k] = fmt.Sprint(val)
		}
		return res
	case map[string]interface{}:
		res := MS{}
		for k, val := range vv {
			res[k] = fmt.Sprint(val)
		}
		return res
	default:
		return MS{}
	}
}
