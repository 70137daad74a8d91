package storage

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Interpolate renders a statement with each ? placeholder replaced by a
// safely escaped SQL literal. The result is used as the cache key and shown
// in the debug console; execution always binds parameters through the
// driver instead.
func Interpolate(query string, args ...any) (string, error) {
	var b strings.Builder
	b.Grow(len(query) + 16*len(args))

	argIdx := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			if argIdx >= len(args) {
				return "", fmt.Errorf("not enough arguments for placeholders (have %d)", len(args))
			}
			lit, err := literal(args[argIdx])
			if err != nil {
				return "", fmt.Errorf("argument %d: %w", argIdx, err)
			}
			b.WriteString(lit)
			argIdx++
		default:
			b.WriteByte(c)
		}
	}

	if argIdx != len(args) {
		return "", fmt.Errorf("too many arguments: %d placeholders, %d arguments", argIdx, len(args))
	}

	return b.String(), nil
}

// literal renders a single bind value as a SQLite literal
func literal(arg any) (string, error) {
	switch v := arg.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(v), nil
	case *string:
		if v == nil {
			return "NULL", nil
		}
		return quoteString(*v), nil
	case []byte:
		if v == nil {
			return "NULL", nil
		}
		return "X'" + hex.EncodeToString(v) + "'", nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case *int64:
		if v == nil {
			return "NULL", nil
		}
		return strconv.FormatInt(*v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case time.Time:
		return quoteString(v.UTC().Format(time.RFC3339)), nil
	case *time.Time:
		if v == nil {
			return "NULL", nil
		}
		return quoteString(v.UTC().Format(time.RFC3339)), nil
	default:
		return "", fmt.Errorf("unsupported bind value type %T", arg)
	}
}

// quoteString escapes a string as a single-quoted SQL literal.
// SQLite escapes embedded quotes by doubling them.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
