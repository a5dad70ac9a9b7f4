package params

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Pair is one flat key/value for a query string or header set.
type Pair struct {
	Key   string
	Value string
}

// FormFlatQuery renders the set values of a non-body location in property order.
// Collections produce one pair per element.
func FormFlatQuery(set *ParameterSet, values map[string]any) []Pair {
	var out []Pair
	for _, p := range set.Properties {
		v, ok := values[p.Name]
		if !ok || v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := range rv.Len() {
				out = append(out, Pair{Key: p.Name, Value: FormatValue(rv.Index(i).Interface())})
			}
			continue
		}
		out = append(out, Pair{Key: p.Name, Value: FormatValue(v)})
	}
	return out
}

func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
