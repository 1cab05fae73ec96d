package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
)

// ContainsScriptTag reports whether s carries a script tag, in any case
func ContainsScriptTag(s string) bool {
	return strings.Contains(strings.ToLower(s), "<script")
}

// FormatValue turns a decoded JSON value into display text
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(raw)
	}
}

// SanitizeVal formats v for display and rejects values carrying a script
// tag with a *errors.ValidationError instead of displaying them.
func SanitizeVal(field string, v interface{}) (string, error) {
	s := FormatValue(v)
	if ContainsScriptTag(s) {
		return "", errors.Markup(field, s)
	}
	return s, nil
}
