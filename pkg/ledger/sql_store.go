package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/google/uuid"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// placeholder renders the nth positional bind placeholder for the dialect.
func placeholder(d dialect, n int) string {
	if d == dialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// sqlStore implements Store over a *sql.DB, portable between the
// sqlite and postgres dialects used by NewSQLite and NewPostgres.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*sqlStore, error) {
	if err := runMigrations(ctx, db, d); err != nil {
		return nil, &ferr.StoreError{Op: "migrate", Cause: err}
	}
	return &sqlStore{db: db, dialect: d}, nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

// q rewrites a query written with `?` placeholders into the store's
// dialect (postgres needs $1, $2, ...).
func (s *sqlStore) q(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, []byte("$"+strconv.Itoa(n))...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// --- Proposals ---

func (s *sqlStore) InsertProposal(ctx context.Context, p *Proposal) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	secrets, err := json.Marshal(p.RequiredSecrets)
	if err != nil {
		return &ferr.StoreError{Op: "marshal required_secrets", Cause: err}
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO proposals
		(id, name, description, io_schema, effect_class, required_secrets, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.Name, p.Description, p.IOSchema, p.EffectClass, string(secrets), p.Status, p.CreatedAt.UTC())
	if err != nil {
		return &ferr.StoreError{Op: "insert proposal", Cause: err}
	}
	return nil
}

func (s *sqlStore) GetProposal(ctx context.Context, id string) (*Proposal, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, name, description, io_schema, effect_class,
		required_secrets, status, created_at FROM proposals WHERE id = ?`), id)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, &ferr.NotFound{Kind: "proposal", ID: id}
	}
	if err != nil {
		return nil, &ferr.StoreError{Op: "get proposal", Cause: err}
	}
	return p, nil
}

func (s *sqlStore) ListProposals(ctx context.Context, f ProposalFilter) ([]*Proposal, error) {
	query := `SELECT id, name, description, io_schema, effect_class, required_secrets, status, created_at FROM proposals WHERE 1=1`
	var args []any
	if f.Name != "" {
		query += ` AND name = ?`
		args = append(args, f.Name)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, &ferr.StoreError{Op: "list proposals", Cause: err}
	}
	defer func() { _ = rows.Close() }()

	var out []*Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, &ferr.StoreError{Op: "scan proposal", Cause: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateProposalStatus(ctx context.Context, id string, status ProposalStatus) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE proposals SET status = ? WHERE id = ?`), status, id)
	if err != nil {
		return &ferr.StoreError{Op: "update proposal status", Cause: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &ferr.NotFound{Kind: "proposal", ID: id}
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProposal(row scannable) (*Proposal, error) {
	var p Proposal
	var secrets string
	var createdAt time.Time
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.IOSchema, &p.EffectClass, &secrets, &p.Status, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt
	_ = json.Unmarshal([]byte(secrets), &p.RequiredSecrets)
	return &p, nil
}

// --- Builds ---

func (s *sqlStore) InsertBuild(ctx context.Context, b *Build) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO builds
		(id, proposal_id, branch_name, started_at, finished_at, status, summary, attempt_number, parent_build_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		b.ID, b.ProposalID, b.BranchName, b.StartedAt.UTC(), nullTime(b.FinishedAt), b.Status, b.Summary, b.AttemptNumber, nullString(b.ParentBuildID))
	if err != nil {
		return &ferr.StoreError{Op: "insert build", Cause: err}
	}
	return nil
}

func (s *sqlStore) GetBuild(ctx context.Context, id string) (*Build, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, proposal_id, branch_name, started_at, finished_at,
		status, summary, attempt_number, parent_build_id FROM builds WHERE id = ?`), id)
	b, err := scanBuild(row)
	if err == sql.ErrNoRows {
		return nil, &ferr.NotFound{Kind: "build", ID: id}
	}
	if err != nil {
		return nil, &ferr.StoreError{Op: "get build", Cause: err}
	}
	return b, nil
}

func (s *sqlStore) ListBuilds(ctx context.Context, f BuildFilter) ([]*Build, error) {
	query := `SELECT id, proposal_id, branch_name, started_at, finished_at, status, summary, attempt_number, parent_build_id FROM builds WHERE 1=1`
	var args []any
	if f.ProposalID != "" {
		query += ` AND proposal_id = ?`
		args = append(args, f.ProposalID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY started_at ASC`
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, &ferr.StoreError{Op: "list builds", Cause: err}
	}
	defer func() { _ = rows.Close() }()
	var out []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, &ferr.StoreError{Op: "scan build", Cause: err}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateBuildResult(ctx context.Context, id string, status BuildStatus, summary string, finishedAt interface{}) error {
	var ft *time.Time
	switch v := finishedAt.(type) {
	case time.Time:
		ft = &v
	case *time.Time:
		ft = v
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE builds SET status = ?, summary = ?, finished_at = ? WHERE id = ?`),
		status, summary, nullTime(ft), id)
	if err != nil {
		return &ferr.StoreError{Op: "update build result", Cause: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &ferr.NotFound{Kind: "build", ID: id}
	}
	return nil
}

func scanBuild(row scannable) (*Build, error) {
	var b Build
	var startedAt time.Time
	var finishedAt sql.NullTime
	var parentBuildID sql.NullString
	if err := row.Scan(&b.ID, &b.ProposalID, &b.BranchName, &startedAt, &finishedAt,
		&b.Status, &b.Summary, &b.AttemptNumber, &parentBuildID); err != nil {
		return nil, err
	}
	b.StartedAt = startedAt
	if finishedAt.Valid {
		t := finishedAt.Time
		b.FinishedAt = &t
	}
	if parentBuildID.Valid {
		v := parentBuildID.String
		b.ParentBuildID = &v
	}
	return &b, nil
}

// --- Verifications ---

func (s *sqlStore) InsertVerification(ctx context.Context, v *Verification) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO verifications
		(id, proposal_id, status, ruff_ok, mypy_ok, tests_ok, policy_ok, invariant_ok, report_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		v.ID, v.ProposalID, v.Status, v.RuffOK, v.MypyOK, v.TestsOK, v.PolicyOK, v.InvariantOK, v.ReportPath, v.CreatedAt.UTC())
	if err != nil {
		return &ferr.StoreError{Op: "insert verification", Cause: err}
	}
	return nil
}

func (s *sqlStore) GetLatestVerification(ctx context.Context, proposalID string) (*Verification, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, proposal_id, status, ruff_ok, mypy_ok, tests_ok,
		policy_ok, invariant_ok, report_path, created_at FROM verifications
		WHERE proposal_id = ? ORDER BY created_at DESC LIMIT 1`), proposalID)
	v, err := scanVerification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ferr.StoreError{Op: "get latest verification", Cause: err}
	}
	return v, nil
}

func (s *sqlStore) ListVerifications(ctx context.Context, proposalID string) ([]*Verification, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, proposal_id, status, ruff_ok, mypy_ok, tests_ok,
		policy_ok, invariant_ok, report_path, created_at FROM verifications
		WHERE proposal_id = ? ORDER BY created_at ASC`), proposalID)
	if err != nil {
		return nil, &ferr.StoreError{Op: "list verifications", Cause: err}
	}
	defer func() { _ = rows.Close() }()
	var out []*Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, &ferr.StoreError{Op: "scan verification", Cause: err}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVerification(row scannable) (*Verification, error) {
	var v Verification
	var createdAt time.Time
	if err := row.Scan(&v.ID, &v.ProposalID, &v.Status, &v.RuffOK, &v.MypyOK, &v.TestsOK,
		&v.PolicyOK, &v.InvariantOK, &v.ReportPath, &createdAt); err != nil {
		return nil, err
	}
	v.CreatedAt = createdAt
	return &v, nil
}

// --- Promotions ---

func (s *sqlStore) InsertPromotion(ctx context.Context, p *Promotion) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO promotions
		(id, proposal_id, from_status, to_status, approved_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		p.ID, p.ProposalID, p.FromStatus, p.ToStatus, p.ApprovedBy, p.CreatedAt.UTC())
	if err != nil {
		return &ferr.StoreError{Op: "insert promotion", Cause: err}
	}
	return nil
}

func (s *sqlStore) ListPromotions(ctx context.Context, proposalID string) ([]*Promotion, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, proposal_id, from_status, to_status, approved_by, created_at
		FROM promotions WHERE proposal_id = ? ORDER BY created_at ASC`), proposalID)
	if err != nil {
		return nil, &ferr.StoreError{Op: "list promotions", Cause: err}
	}
	defer func() { _ = rows.Close() }()
	var out []*Promotion
	for rows.Next() {
		var p Promotion
		var createdAt time.Time
		if err := rows.Scan(&p.ID, &p.ProposalID, &p.FromStatus, &p.ToStatus, &p.ApprovedBy, &createdAt); err != nil {
			return nil, &ferr.StoreError{Op: "scan promotion", Cause: err}
		}
		p.CreatedAt = createdAt
		out = append(out, &p)
	}
	return out, rows.Err()
}

// --- Artifacts ---

func (s *sqlStore) InsertArtifact(ctx context.Context, a *Artifact) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO artifacts
		(id, kind, path, sha256, related_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		a.ID, a.Kind, a.Path, a.SHA256, a.RelatedID, a.CreatedAt.UTC())
	if err != nil {
		return &ferr.StoreError{Op: "insert artifact", Cause: err}
	}
	return nil
}

func (s *sqlStore) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, kind, path, sha256, related_id, created_at
		FROM artifacts WHERE id = ?`), id)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, &ferr.NotFound{Kind: "artifact", ID: id}
	}
	if err != nil {
		return nil, &ferr.StoreError{Op: "get artifact", Cause: err}
	}
	return a, nil
}

func (s *sqlStore) ListArtifacts(ctx context.Context, relatedID string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, kind, path, sha256, related_id, created_at
		FROM artifacts WHERE related_id = ? ORDER BY created_at ASC`), relatedID)
	if err != nil {
		return nil, &ferr.StoreError{Op: "list artifacts", Cause: err}
	}
	defer func() { _ = rows.Close() }()
	var out []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, &ferr.StoreError{Op: "scan artifact", Cause: err}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanArtifact(row scannable) (*Artifact, error) {
	var a Artifact
	var createdAt time.Time
	if err := row.Scan(&a.ID, &a.Kind, &a.Path, &a.SHA256, &a.RelatedID, &createdAt); err != nil {
		return nil, err
	}
	a.CreatedAt = createdAt
	return &a, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
