package writing

import "strings"

func metaInt(meta map[string]any, key string) *int {
	switch v := meta[key].(type) {
	case int:
		return &v
	case int64:
		n := int(v)
		return &n
	case float64:
		n := int(v)
		return &n
	default:
		return nil
	}
}

func metaString(meta map[string]any, key string) *string {
	s, ok := meta[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func firstInt(values ...*int) *int {
	for _, v := range values {
		if v != nil && *v > 0 {
			return v
		}
	}
	return nil
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return trimmedPtr(v)
		}
	}
	return nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// setOptional 仅在请求显式给出时写入 metadata
func setOptional[T any](meta map[string]any, key string, v *T) {
	if v != nil {
		meta[key] = *v
	}
}
