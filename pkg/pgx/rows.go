package pgx

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RowsToMaps drains rows into one map per row, keyed by column name. The
// result marshals directly into the response envelope's data field.
func RowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = string(fd.Name)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		rowMap := make(map[string]any, len(columns))
		for i, name := range columns {
			rowMap[name] = jsonValue(values[i])
		}
		result = append(result, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// jsonValue rewrites scanned values that would not marshal readably. Native
// uuid columns scan as [16]byte, which encoding/json renders as a number
// array.
func jsonValue(v any) any {
	if b, ok := v.([16]byte); ok {
		return uuid.UUID(b).String()
	}
	return v
}
