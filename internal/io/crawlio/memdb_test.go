package crawlio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memDB is an in-memory stand-in for the connection pool, honoring the
// statements the crawler issues. A transaction works on a copy of the
// tables and swaps it in on commit, so a rollback discards its writes.
type memDB struct {
	tables memTables

	// failExec makes the first in-transaction statement containing the
	// substring fail.
	failExec string
	failed   bool
}

type memTables struct {
	crawlLogs []crawlLogRow
	terms     map[string]termRow
	canvases  map[string]canvasRow
	curations map[string]curationRow
	canAssocs map[assocKey]assocRow
	curAssocs map[assocKey]assocRow
}

type crawlLogRow struct {
	datetime    string
	newCanvases int
}

type termRow struct {
	qualifier string
	term      string
}

type canvasRow struct {
	uri  string
	json string
}

type curationRow struct {
	url    string
	term   string
	mdType string
	json   string
}

type assocRow struct {
	mdType string
	actor  string
}

func newMemDB() *memDB {
	return &memDB{tables: memTables{
		terms:     make(map[string]termRow),
		canvases:  make(map[string]canvasRow),
		curations: make(map[string]curationRow),
		canAssocs: make(map[assocKey]assocRow),
		curAssocs: make(map[assocKey]assocRow),
	}}
}

func (t memTables) clone() memTables {
	return memTables{
		crawlLogs: append([]crawlLogRow(nil), t.crawlLogs...),
		terms:     maps.Clone(t.terms),
		canvases:  maps.Clone(t.canvases),
		curations: maps.Clone(t.curations),
		canAssocs: maps.Clone(t.canAssocs),
		curAssocs: maps.Clone(t.curAssocs),
	}
}

func (t *memTables) exec(sql string, args []any) error {
	switch {
	case strings.HasPrefix(sql, "INSERT INTO crawl_logs"):
		t.crawlLogs = append(t.crawlLogs, crawlLogRow{
			datetime:    args[0].(string),
			newCanvases: args[1].(int),
		})
	case strings.HasPrefix(sql, "INSERT INTO terms"):
		id := args[0].(string)
		if _, ok := t.terms[id]; ok {
			return errors.New("duplicate term id")
		}
		t.terms[id] = termRow{qualifier: args[2].(string), term: args[1].(string)}
	case strings.HasPrefix(sql, "INSERT INTO canvases"):
		id := args[0].(string)
		if _, ok := t.canvases[id]; ok {
			return errors.New("duplicate canvas id")
		}
		t.canvases[id] = canvasRow{uri: args[1].(string), json: args[2].(string)}
	case strings.HasPrefix(sql, "INSERT INTO curations"):
		id := args[0].(string)
		if _, ok := t.curations[id]; ok {
			return errors.New("duplicate curation id")
		}
		t.curations[id] = curationRow{
			url:    args[1].(string),
			term:   args[2].(string),
			mdType: args[3].(string),
			json:   args[4].(string),
		}
	case strings.HasPrefix(sql, "INSERT INTO term_canvas_assocs"):
		key := assocKey{termID: args[0].(string), docID: args[1].(string)}
		t.canAssocs[key] = assocRow{mdType: args[2].(string), actor: args[3].(string)}
	case strings.HasPrefix(sql, "INSERT INTO term_curation_assocs"):
		key := assocKey{termID: args[0].(string), docID: args[1].(string)}
		t.curAssocs[key] = assocRow{mdType: args[2].(string), actor: args[3].(string)}
	case strings.HasPrefix(sql, "UPDATE canvases SET json_string"):
		row := t.canvases[args[1].(string)]
		row.json = args[0].(string)
		t.canvases[args[1].(string)] = row
	case strings.HasPrefix(sql, "UPDATE curations SET json_string"):
		row := t.curations[args[1].(string)]
		row.json = args[0].(string)
		t.curations[args[1].(string)] = row
	case strings.HasPrefix(sql, "DELETE FROM term_curation_assocs"):
		for k := range t.curAssocs {
			if k.docID == args[0].(string) {
				delete(t.curAssocs, k)
			}
		}
	case strings.HasPrefix(sql, "DELETE FROM term_canvas_assocs"):
		for k := range t.canAssocs {
			if k.docID == args[0].(string) {
				delete(t.canAssocs, k)
			}
		}
	case strings.HasPrefix(sql, "DELETE FROM curations"):
		delete(t.curations, args[0].(string))
	case strings.HasPrefix(sql, "DELETE FROM canvases"):
		delete(t.canvases, args[0].(string))
	default:
		return fmt.Errorf("unexpected statement: %s", sql)
	}
	return nil
}

func (t *memTables) query(sql string, args []any) pgx.Rows {
	var rows [][]any
	switch {
	case strings.HasPrefix(sql, "SELECT id, qualifier, term FROM terms"):
		for id, row := range t.terms {
			rows = append(rows, []any{id, row.qualifier, row.term})
		}
	case strings.HasPrefix(sql, "SELECT id, canvas_uri FROM canvases"):
		for id, row := range t.canvases {
			rows = append(rows, []any{id, row.uri})
		}
	case strings.HasPrefix(sql,
		"SELECT id, curation_url, term, metadata_type FROM curations"):
		for id, row := range t.curations {
			rows = append(rows, []any{id, row.url, row.term, row.mdType})
		}
	case strings.HasPrefix(sql, "SELECT term_id, canvas_id FROM term_canvas_assocs"):
		for k := range t.canAssocs {
			rows = append(rows, []any{k.termID, k.docID})
		}
	case strings.HasPrefix(sql,
		"SELECT term_id, curation_id FROM term_curation_assocs"):
		for k := range t.curAssocs {
			rows = append(rows, []any{k.termID, k.docID})
		}
	case strings.HasPrefix(sql, "SELECT id FROM curations WHERE curation_url"):
		for id, row := range t.curations {
			if row.url == args[0].(string) {
				rows = append(rows, []any{id})
			}
		}
	default:
		return &memRows{err: fmt.Errorf("unexpected query: %s", sql)}
	}
	return &memRows{rows: rows}
}

func (t *memTables) queryRow(sql string, args []any) pgx.Row {
	switch {
	case strings.HasPrefix(sql, "SELECT datetime FROM crawl_logs"):
		if len(t.crawlLogs) == 0 {
			return memRow{err: pgx.ErrNoRows}
		}
		return memRow{vals: []any{t.crawlLogs[len(t.crawlLogs)-1].datetime}}
	case strings.HasPrefix(sql, "SELECT json_string FROM canvases WHERE id"):
		if row, ok := t.canvases[args[0].(string)]; ok {
			return memRow{vals: []any{row.json}}
		}
		return memRow{err: pgx.ErrNoRows}
	case strings.HasPrefix(sql, "SELECT id FROM canvases WHERE canvas_uri"):
		for id, row := range t.canvases {
			if row.uri == args[0].(string) {
				return memRow{vals: []any{id}}
			}
		}
		return memRow{err: pgx.ErrNoRows}
	}
	return memRow{err: fmt.Errorf("unexpected query: %s", sql)}
}

func (d *memDB) Begin(_ context.Context) (pgx.Tx, error) {
	return &memTx{db: d, tables: d.tables.clone()}, nil
}

func (d *memDB) Exec(
	_ context.Context, sql string, args ...any,
) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, d.tables.exec(sql, args)
}

func (d *memDB) Query(
	_ context.Context, sql string, args ...any,
) (pgx.Rows, error) {
	return d.tables.query(sql, args), nil
}

func (d *memDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return d.tables.queryRow(sql, args)
}

func (d *memDB) Close() {}

type memTx struct {
	db     *memDB
	tables memTables
}

func (t *memTx) Exec(
	_ context.Context, sql string, args ...any,
) (pgconn.CommandTag, error) {
	if t.db.failExec != "" && !t.db.failed &&
		strings.Contains(sql, t.db.failExec) {
		t.db.failed = true
		return pgconn.CommandTag{}, errors.New("statement refused")
	}
	return pgconn.CommandTag{}, t.tables.exec(sql, args)
}

func (t *memTx) Query(
	_ context.Context, sql string, args ...any,
) (pgx.Rows, error) {
	return t.tables.query(sql, args), nil
}

func (t *memTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return t.tables.queryRow(sql, args)
}

func (t *memTx) Commit(_ context.Context) error {
	t.db.tables = t.tables
	return nil
}

func (t *memTx) Rollback(_ context.Context) error { return nil }

func (t *memTx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }

func (t *memTx) CopyFrom(
	_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource,
) (int64, error) {
	return 0, nil
}

func (t *memTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults {
	return nil
}

func (t *memTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *memTx) Prepare(
	_ context.Context, _, _ string,
) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *memTx) Conn() *pgx.Conn { return nil }

type memRows struct {
	rows [][]any
	i    int
	err  error
}

func (r *memRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.i++
	return r.i <= len(r.rows)
}

func (r *memRows) Scan(dest ...any) error {
	return scanVals(r.rows[r.i-1], dest)
}

func (r *memRows) Close()                        {}
func (r *memRows) Err() error                    { return r.err }
func (r *memRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *memRows) FieldDescriptions() []pgconn.FieldDescription {
	return nil
}
func (r *memRows) Values() ([]any, error) { return r.rows[r.i-1], nil }
func (r *memRows) RawValues() [][]byte    { return nil }
func (r *memRows) Conn() *pgx.Conn        { return nil }

type memRow struct {
	vals []any
	err  error
}

func (r memRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanVals(r.vals, dest)
}

func scanVals(vals []any, dest []any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = vals[i].(string)
		case *int:
			*p = vals[i].(int)
		default:
			return fmt.Errorf("unexpected scan target %T", d)
		}
	}
	return nil
}

// memStore is an in-memory key-value store.
type memStore struct {
	blobs map[string][]byte
}

func (s *memStore) Open() error  { return nil }
func (s *memStore) Close() error { return nil }

func (s *memStore) GetValue(key []byte) ([]byte, error) {
	return s.blobs[string(key)], nil
}

func (s *memStore) SetValue(key, val []byte) error {
	s.blobs[string(key)] = val
	return nil
}

// stubFetcher serves canned JSON documents by URL.
type stubFetcher struct {
	docs map[string]string
}

func (s *stubFetcher) GetJSON(_ context.Context, url string, dst any) error {
	blob, ok := s.docs[url]
	if !ok {
		return fmt.Errorf("no document at %s", url)
	}
	return json.Unmarshal([]byte(blob), dst)
}

func (s *stubFetcher) PostJSON(_ context.Context, url string, _, _ any) error {
	return fmt.Errorf("no document at %s", url)
}

// stubFacets counts facet summary rebuilds.
type stubFacets struct {
	calls int
	err   error
}

func (s *stubFacets) Build(_ context.Context) error {
	s.calls++
	return s.err
}
