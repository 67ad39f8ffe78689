package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/forgo/shepherd/api/internal/database"
)

var errUnexpectedShape = errors.New("unexpected result shape")

// normalize rewrites driver types in place (record ids, datetimes) into
// strings and time.Time so a row can round-trip through encoding/json
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case models.RecordID, *models.RecordID:
		return recordIDString(t)
	case models.CustomDateTime, *models.CustomDateTime:
		return parseTime(t)
	case map[string]interface{}:
		for k := range t {
			t[k] = normalize(t[k])
		}
	case []interface{}:
		for i := range t {
			t[i] = normalize(t[i])
		}
	}
	return v
}

func parseTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t != nil {
			return t.Time
		}
	case string:
		// RFC3339 parsing also accepts fractional seconds
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// recordIDString renders a record id as "table:key". It accepts the
// driver's RecordID as well as the map form older servers return.
func recordIDString(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case models.RecordID:
		return fmt.Sprintf("%s:%v", v.Table, v.ID)
	case *models.RecordID:
		if v != nil {
			return fmt.Sprintf("%s:%v", v.Table, v.ID)
		}
	case map[string]interface{}:
		table := firstString(v, "tb", "Table")
		key := ""
		if raw, ok := v["id"]; ok {
			key = keyString(raw)
		} else if raw, ok := v["ID"]; ok {
			key = keyString(raw)
		}
		switch {
		case table != "" && key != "":
			return table + ":" + key
		case key != "":
			return key
		}
	}
	return fmt.Sprint(id)
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s
		}
	}
	return ""
}

// keyString unwraps {"String": "abc"} style keys
func keyString(raw interface{}) string {
	if m, ok := raw.(map[string]interface{}); ok {
		if s, ok := m["String"].(string); ok {
			return s
		}
	}
	return fmt.Sprint(raw)
}

// unwrapRecord reduces a statement envelope or a row slice to its first
// record
func unwrapRecord(result interface{}) (map[string]interface{}, error) {
	if env, ok := result.(map[string]interface{}); ok && env["status"] == "OK" {
		record, err := database.FirstRecord([]interface{}{env})
		if err != nil {
			return nil, err
		}
		result = record
	}
	if rows, ok := result.([]interface{}); ok {
		if len(rows) == 0 {
			return nil, database.ErrNotFound
		}
		result = rows[0]
	}
	if result == nil {
		return nil, database.ErrNotFound
	}

	record, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %T", errUnexpectedShape, result)
	}
	return record, nil
}

// decodeRecord converts one row into T through its JSON tags
func decodeRecord[T any](result interface{}) (*T, error) {
	record, err := unwrapRecord(result)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(normalize(record))
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRows[T any](rows []interface{}) ([]*T, error) {
	out := make([]*T, len(rows))
	for i, row := range rows {
		item, err := decodeRecord[T](row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = item
	}
	return out, nil
}

// statementRows returns the rows statement i produced. A scalar result is
// returned as a single row.
func statementRows(results []interface{}, i int) []interface{} {
	if i < 0 || i >= len(results) {
		return nil
	}
	env, ok := results[i].(map[string]interface{})
	if !ok {
		return nil
	}
	switch r := env["result"].(type) {
	case nil:
		return nil
	case []interface{}:
		return r
	default:
		return []interface{}{r}
	}
}

func firstRow(results []interface{}) interface{} {
	if rows := statementRows(results, 0); len(rows) > 0 {
		return rows[0]
	}
	return nil
}

// asInt64 reads any numeric the driver hands back
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	}
	return 0
}

// countOf reads a `SELECT count() ... GROUP ALL` result, or a bare number
func countOf(rows []interface{}) int {
	if len(rows) == 0 {
		return 0
	}
	if row, ok := rows[0].(map[string]interface{}); ok {
		return int(asInt64(row["count"]))
	}
	return int(asInt64(rows[0]))
}

// sumOf reads key from the first row of a GROUP ALL aggregate
func sumOf(rows []interface{}, key string) int64 {
	if len(rows) == 0 {
		return 0
	}
	row, _ := rows[0].(map[string]interface{})
	return asInt64(row[key])
}
