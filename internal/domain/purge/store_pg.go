package purge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements DataStore against Postgres. Statements are assembled
// only from identifiers registered in the data source catalogue, sanitized
// through pgx; all values travel as bind parameters. Anonymization tokens are
// computed in the database with pgcrypto's hmac so that the token for a given
// value is stable across runs.
type PgStore struct {
	DB *pgxpool.Pool

	// StatementTimeout bounds every statement issued by the store. Zero
	// disables the bound.
	StatementTimeout time.Duration
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{DB: db, StatementTimeout: 30 * time.Second}
}

func (s *PgStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.StatementTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.StatementTimeout)
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// whereClause renders the filter as a WHERE body plus bind args, starting at
// placeholder $1.
func whereClause(filter RowFilter) (string, []any) {
	var parts []string
	var args []any
	if filter.hasAge() {
		args = append(args, filter.Cutoff)
		parts = append(parts, fmt.Sprintf("%s < $%d", ident(filter.AgeColumn), len(args)))
	}
	if filter.hasTenant() {
		args = append(args, filter.TenantID)
		parts = append(parts, fmt.Sprintf("%s = $%d", ident(filter.TenantColumn), len(args)))
	}
	if filter.hasSubject() {
		args = append(args, filter.SubjectID)
		parts = append(parts, fmt.Sprintf("%s = $%d", ident(filter.SubjectColumn), len(args)))
	}
	if len(parts) == 0 {
		return "true", nil
	}
	return strings.Join(parts, " AND "), args
}

func (s *PgStore) Count(ctx context.Context, collection string, filter RowFilter) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	where, args := whereClause(filter)
	var count int64
	err := s.DB.QueryRow(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", ident(collection), where),
		args...,
	).Scan(&count)
	return count, err
}

func (s *PgStore) UpdateBatch(ctx context.Context, collection string, set SetClause, filter RowFilter, unsetColumn string, limit int) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	where, args := whereClause(filter)
	if unsetColumn != "" {
		where = fmt.Sprintf("%s AND %s IS NULL", where, ident(unsetColumn))
	}

	var assigns []string
	switch c := set.(type) {
	case MarkDeleted:
		args = append(args, c.At)
		assigns = append(assigns, fmt.Sprintf("%s = $%d", ident(c.Column), len(args)))
	case MarkAnonymized:
		args = append(args, c.Key)
		keyArg := len(args)
		for _, col := range c.PIIColumns {
			assigns = append(assigns, fmt.Sprintf(
				"%s = encode(hmac(convert_to(%s::text, 'UTF8'), $%d, 'sha256'), 'hex')",
				ident(col), ident(col), keyArg))
		}
		args = append(args, c.At)
		assigns = append(assigns, fmt.Sprintf("%s = $%d", ident(c.MarkerColumn), len(args)))
	case EraseValues:
		args = append(args, c.Marker)
		markerArg := len(args)
		var dirty []string
		for _, col := range c.PIIColumns {
			assigns = append(assigns, fmt.Sprintf("%s = $%d", ident(col), markerArg))
			dirty = append(dirty, fmt.Sprintf("%s IS DISTINCT FROM $%d", ident(col), markerArg))
		}
		// Rows already fully struck fall out of the batch, so repeated
		// limited batches always make progress.
		where = fmt.Sprintf("%s AND (%s)", where, strings.Join(dirty, " OR "))
	default:
		return 0, fmt.Errorf("unsupported set clause %T", set)
	}

	table := ident(collection)
	query := fmt.Sprintf(`
    UPDATE %s SET %s
    WHERE ctid IN (SELECT ctid FROM %s WHERE %s LIMIT %d)
  `, table, strings.Join(assigns, ", "), table, where, limit)

	tag, err := s.DB.Exec(ctx, query, args...)
	return tag.RowsAffected(), err
}

func (s *PgStore) DeleteBatch(ctx context.Context, collection string, filter RowFilter, limit int) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	where, args := whereClause(filter)
	table := ident(collection)
	query := fmt.Sprintf(`
    DELETE FROM %s
    WHERE ctid IN (SELECT ctid FROM %s WHERE %s%s LIMIT %d)
  `, table, table, where, orderByAge(filter), limit)

	tag, err := s.DB.Exec(ctx, query, args...)
	return tag.RowsAffected(), err
}

// UpsertAggregate deletes up to limit eligible detail rows and folds them
// into daily count buckets in a single statement, so a crash can never
// double-count a row into the aggregate.
func (s *PgStore) UpsertAggregate(ctx context.Context, target, collection string, filter RowFilter, limit int) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	where, args := whereClause(filter)
	table := ident(collection)
	targetTable := ident(target)
	age := ident(filter.AgeColumn)

	var query string
	if filter.TenantColumn != "" {
		tenant := ident(filter.TenantColumn)
		query = fmt.Sprintf(`
      WITH del AS (
        DELETE FROM %s
        WHERE ctid IN (SELECT ctid FROM %s WHERE %s LIMIT %d)
        RETURNING %s AS tenant_id, date_trunc('day', %s)::date AS bucket_date
      ), ins AS (
        INSERT INTO %s (tenant_id, bucket_date, record_count)
        SELECT tenant_id, bucket_date, count(*) FROM del GROUP BY tenant_id, bucket_date
        ON CONFLICT (tenant_id, bucket_date) DO UPDATE
        SET record_count = %s.record_count + EXCLUDED.record_count
      )
      SELECT count(*) FROM del
    `, table, table, where, limit, tenant, age, targetTable, targetTable)
	} else {
		query = fmt.Sprintf(`
      WITH del AS (
        DELETE FROM %s
        WHERE ctid IN (SELECT ctid FROM %s WHERE %s LIMIT %d)
        RETURNING date_trunc('day', %s)::date AS bucket_date
      ), ins AS (
        INSERT INTO %s (bucket_date, record_count)
        SELECT bucket_date, count(*) FROM del GROUP BY bucket_date
        ON CONFLICT (bucket_date) DO UPDATE
        SET record_count = %s.record_count + EXCLUDED.record_count
      )
      SELECT count(*) FROM del
    `, table, table, where, limit, age, targetTable, targetTable)
	}

	var consumed int64
	err := s.DB.QueryRow(ctx, query, args...).Scan(&consumed)
	return consumed, err
}

// ArchiveRows deletes up to limit eligible rows and inserts them into the
// archive in a single statement, so a crash can never leave a row in both
// the primary and archive collections.
func (s *PgStore) ArchiveRows(ctx context.Context, target, collection string, filter RowFilter, limit int) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	where, args := whereClause(filter)
	table := ident(collection)
	query := fmt.Sprintf(`
    WITH del AS (
      DELETE FROM %s
      WHERE ctid IN (SELECT ctid FROM %s WHERE %s%s LIMIT %d)
      RETURNING *
    ), ins AS (
      INSERT INTO %s SELECT * FROM del
    )
    SELECT count(*) FROM del
  `, table, table, where, orderByAge(filter), limit, ident(target))

	var moved int64
	err := s.DB.QueryRow(ctx, query, args...).Scan(&moved)
	return moved, err
}

// orderByAge makes batched deletes and archives consume the oldest rows
// first, so partial progress under cancellation is always a clean age prefix.
func orderByAge(filter RowFilter) string {
	if filter.AgeColumn == "" {
		return ""
	}
	return fmt.Sprintf(" ORDER BY %s ASC", ident(filter.AgeColumn))
}
