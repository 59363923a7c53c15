package ptr

import "time"

func Int(i int) *int {
	return &i
}

func String(s string) *string {
	return &s
}

// StringOrNil returns nil for the empty string so optional JSON fields are omitted.
func StringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// TimeOrNil returns nil for the zero time.
func TimeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
