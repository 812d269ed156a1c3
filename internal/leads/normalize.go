package leads

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxPhoneDigits = 15

// phoneExtension matches a trailing extension such as "x9" or "ext. 204".
var phoneExtension = regexp.MustCompile(`(?i)\s*(?:x|ext\.?|extension)\s*\d+\s*$`)

// Normalize builds a Lead from raw submitted fields, stamped with the current time.
func Normalize(raw map[string]any) *Lead {
	return NormalizeAt(raw, time.Now())
}

// NormalizeAt builds a Lead from raw submitted fields. Values are trimmed and
// coerced to strings; phone keeps digits only and VIN is uppercased.
// Required fields are not checked here; callers use Validate.
func NormalizeAt(raw map[string]any, now time.Time) *Lead {
	get := func(key string) string {
		return Coerce(raw[key])
	}

	lead := &Lead{
		Name:          get(KeyName),
		Email:         get(KeyEmail),
		Phone:         NormalizePhone(get(KeyPhone)),
		VIN:           strings.ToUpper(get(KeyVIN)),
		Year:          get(KeyYear),
		Make:          get(KeyMake),
		Model:         get(KeyModel),
		Trim:          get(KeyTrim),
		Mileage:       get(KeyMileage),
		ExteriorColor: get(KeyExteriorColor),
		InteriorColor: get(KeyInteriorColor),
		Condition:     collect(raw, ConditionKeys),
		Attribution:   collect(raw, AttributionKeys),
		SubmittedAt:   now.UTC().Truncate(time.Millisecond),
	}
	return lead
}

func collect(raw map[string]any, keys []string) map[string]string {
	out := make(map[string]string)
	for _, key := range keys {
		if value := Coerce(raw[key]); value != "" {
			out[key] = value
		}
	}
	return out
}

// NormalizePhone drops any trailing extension, keeps only digits and caps
// the result at 15 characters.
func NormalizePhone(phone string) string {
	phone = phoneExtension.ReplaceAllString(phone, "")
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == maxPhoneDigits {
				break
			}
		}
	}
	return b.String()
}

// Coerce renders a decoded form value as a trimmed string. Lists are joined
// with ", " and blank elements are skipped.
func Coerce(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return joinNonBlank(len(v), func(i int) string { return strings.TrimSpace(v[i]) })
	case []any:
		return joinNonBlank(len(v), func(i int) string { return Coerce(v[i]) })
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func joinNonBlank(n int, at func(int) string) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if s := at(i); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
