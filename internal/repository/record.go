package repository

// record.go converts store-native map values into Go types.  The MySQL
// driver hands back int64 for integer columns, []byte-normalized strings for
// text, and 0/1 for TINYINT booleans; older deployments stored some of these
// as strings, so the converters accept both.

import (
	"strconv"

	"github.com/ascendedtech/techlab-server/internal/store"
)

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asUint64(v any) uint64 {
	switch t := v.(type) {
	case int64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case uint64:
		return t
	case int:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case string:
		n, _ := strconv.ParseUint(t, 10, 64)
		return n
	default:
		return 0
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int64:
		return int(t)
	case int:
		return t
	case uint64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t == "1" || t == "true"
	default:
		return false
	}
}

func first(recs []store.Record) (store.Record, bool) {
	if len(recs) == 0 {
		return nil, false
	}
	return recs[0], true
}
