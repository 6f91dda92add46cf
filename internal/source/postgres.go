package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/ppiankov/claimwatch/internal/model"
)

// claimTable maps a claim type to its billing table
type claimTable struct {
	Type  model.ClaimType
	Query string
}

// Each query returns one JSON document per row so table-specific columns
// reach the normalizer untouched. Invoice line items live in their own table
// and are folded in as service_codes.
var claimTables = []claimTable{
	{
		Type:  model.ClaimTypeRAMQ,
		Query: `SELECT row_to_json(t)::text FROM ramq_claims t WHERE t.user_id = $1 ORDER BY t.service_date DESC, t.id`,
	},
	{
		Type:  model.ClaimTypeFederal,
		Query: `SELECT row_to_json(t)::text FROM federal_claims t WHERE t.user_id = $1 ORDER BY t.service_date DESC, t.id`,
	},
	{
		Type:  model.ClaimTypeOutProvince,
		Query: `SELECT row_to_json(t)::text FROM out_of_province_claims t WHERE t.user_id = $1 ORDER BY t.service_date DESC, t.id`,
	},
	{
		Type:  model.ClaimTypeDiplomatic,
		Query: `SELECT row_to_json(t)::text FROM diplomatic_claims t WHERE t.user_id = $1 ORDER BY t.service_date DESC, t.id`,
	},
	{
		Type: model.ClaimTypeInvoice,
		Query: `SELECT (to_jsonb(i) || jsonb_build_object('service_codes', COALESCE((
			SELECT jsonb_agg(jsonb_build_object('code', li.procedure_code, 'fee', li.quantity * li.unit_price) ORDER BY li.id)
			FROM invoice_line_items li WHERE li.invoice_id = i.id), '[]'::jsonb)))::text
		FROM invoices i WHERE i.user_id = $1 ORDER BY i.invoice_date DESC, i.id`,
	},
}

// PostgresSource reads every claim table of one practice owner
type PostgresSource struct {
	db     *sql.DB
	userID string
}

// OpenPostgres opens a lib/pq connection pool and verifies it
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is not configured")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresSource creates a source for the claims owned by userID
func NewPostgresSource(db *sql.DB, userID string) *PostgresSource {
	return &PostgresSource{db: db, userID: userID}
}

// Name returns the postgres URI of the snapshot
func (s *PostgresSource) Name() string {
	return "postgres://" + s.userID
}

// Key rate-limits all tenants against the same database together
func (s *PostgresSource) Key() string {
	return "postgres"
}

// Load queries each claim table in type order
func (s *PostgresSource) Load(ctx context.Context) ([]model.TaggedRow, error) {
	var out []model.TaggedRow
	for _, table := range claimTables {
		rows, err := s.loadTable(ctx, table)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (s *PostgresSource) loadTable(ctx context.Context, table claimTable) (result []model.TaggedRow, err error) {
	rows, err := s.db.QueryContext(ctx, table.Query, s.userID)
	if err != nil {
		return nil, fmt.Errorf("query %s claims: %w", table.Type, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s rows: %w", table.Type, closeErr)
		}
	}()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s claim: %w", table.Type, err)
		}
		var raw model.RawClaim
		if err := json.Unmarshal([]byte(doc), &raw); err != nil {
			return nil, fmt.Errorf("decode %s claim: %w", table.Type, err)
		}
		result = append(result, model.TaggedRow{Type: table.Type, Row: raw})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s claims: %w", table.Type, err)
	}
	return result, nil
}
