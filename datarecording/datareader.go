package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// QueryParams narrows down a Query.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, such as "Kind = ?".
	Where string

	// Args fill the placeholders in Where.
	Args []any

	// OrderBy is a sort order without the ORDER BY keywords, such as
	// "Time DESC".
	OrderBy string

	// Limit caps the number of rows returned. 0 means no cap.
	Limit int
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells which struct the rows of a table are scanned into. A
	// table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// Query returns pointers to structs of the mapped type and the number of
	// rows matching Where, regardless of Limit.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// CountBy counts the rows of a mapped table per value of one of its
	// columns.
	CountBy(ctx context.Context, tableName, column string) (map[string]int, error)

	Close() error
}

type sqliteReader struct {
	db      *sql.DB
	typeMap map[string]reflect.Type
}

// Open opens a recording for reading. The file must exist.
func Open(dbFilename string) (DataReader, error) {
	if _, err := os.Stat(dbFilename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, err
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB reads from an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) mappedType(tableName string) (reflect.Type, error) {
	t, ok := r.typeMap[tableName]
	if !ok {
		return nil, fmt.Errorf("table %s is not mapped", tableName)
	}

	return t, nil
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, err := r.mappedType(tableName)
	if err != nil {
		return nil, 0, err
	}

	where := ""
	if params.Where != "" {
		where = " WHERE " + params.Where
	}

	var total int

	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+tableName+where, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	var q strings.Builder

	q.WriteString("SELECT * FROM " + tableName + where)

	if params.OrderBy != "" {
		q.WriteString(" ORDER BY " + params.OrderBy)
	}

	if params.Limit > 0 {
		fmt.Fprintf(&q, " LIMIT %d", params.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q.String(), params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanRows(rows, structType)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *sqliteReader) CountBy(
	ctx context.Context,
	tableName, column string,
) (map[string]int, error) {
	structType, err := r.mappedType(tableName)
	if err != nil {
		return nil, err
	}

	if _, ok := structType.FieldByName(column); !ok {
		return nil, fmt.Errorf("table %s has no column %s", tableName, column)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s, COUNT(*) FROM %s GROUP BY %s", column, tableName, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			value string
			n     int
		)

		if err := rows.Scan(&value, &n); err != nil {
			return nil, err
		}

		counts[value] = n
	}

	return counts, rows.Err()
}

// scanRows fills one struct per row, matching columns to fields by name.
// Columns without a field are skipped.
func scanRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		entry := reflect.New(structType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			field := entry.Elem().FieldByName(col)
			if field.IsValid() {
				targets[i] = field.Addr().Interface()
			} else {
				targets[i] = new(any)
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
