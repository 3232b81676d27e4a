package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"chanceme-backend/services/admissions/records"

	"github.com/mazen160/go-random"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store exposes the persistence operations the pipeline consumes. It
// assumes a single pipeline instance; the only concurrency discipline
// is the dedup unique index enforced by sqlite itself.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type School struct {
	Id             int64
	Name           string
	LocalName      string
	Country        string
	State          string
	City           string
	Rank           sql.NullInt64
	AcceptanceRate sql.NullFloat64
}

type Record struct {
	Id         int64
	SchoolId   int64
	AuthorId   int64
	Year       int
	Round      records.Round
	Outcome    records.Outcome
	Gpa        string
	Sat        string
	Act        string
	Toefl      string
	Tags       []string
	Source     string
	Anonymous  bool
	Verified   bool
	VerifiedAt int64
	CreatedAt  int64
}

// PipelineActorName is the system actor that owns every record this
// pipeline writes.
const PipelineActorName = "pipeline"

func (s Store) EnsurePipelineActor(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id FROM actors WHERE name = ?`,
		PipelineActorName,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	token, err := random.String(16)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO actors (name, token) VALUES (?, ?)`,
		PipelineActorName, token,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation distinguishes the expected duplicate-insert outcome
// from real persistence failures, only the former may be swallowed.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateRecord inserts an unverified record, reporting created=false
// when the dedup index already holds an equivalent row.
func (s Store) CreateRecord(ctx context.Context, rec Record) (bool, error) {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	encodedTags, err := json.Marshal(tags)
	if err != nil {
		return false, err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO admission_records
			(school_id, author_id, year, round, outcome, gpa, sat, act, toefl,
			 tags, source, anonymous, verified, verified_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)`,
		rec.SchoolId, rec.AuthorId, rec.Year, string(rec.Round), string(rec.Outcome),
		nullable(rec.Gpa), nullable(rec.Sat), nullable(rec.Act), nullable(rec.Toefl),
		string(encodedTags), rec.Source, rec.Anonymous, rec.CreatedAt,
	)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s Store) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM admission_records`).Scan(&count)
	return count, err
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var round, outcome string
	var gpa, sat, act, toefl sql.NullString
	var tags string
	var verifiedAt sql.NullInt64

	err := rows.Scan(
		&rec.Id, &rec.SchoolId, &rec.AuthorId, &rec.Year, &round, &outcome,
		&gpa, &sat, &act, &toefl, &tags, &rec.Source, &rec.Anonymous,
		&rec.Verified, &verifiedAt, &rec.CreatedAt,
	)
	if err != nil {
		return rec, err
	}

	rec.Round = records.Round(round)
	rec.Outcome = records.Outcome(outcome)
	rec.Gpa = gpa.String
	rec.Sat = sat.String
	rec.Act = act.String
	rec.Toefl = toefl.String
	rec.VerifiedAt = verifiedAt.Int64
	err = json.Unmarshal([]byte(tags), &rec.Tags)
	if err != nil {
		return rec, err
	}
	return rec, nil
}

const recordColumns = `id, school_id, author_id, year, round, outcome,
	gpa, sat, act, toefl, tags, source, anonymous, verified, verified_at, created_at`

func (s Store) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM admission_records ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s Store) UnverifiedRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM admission_records WHERE verified = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateScores rewrites the normalized score fields of a record, used
// by the verifier's cleanup pass.
func (s Store) UpdateScores(ctx context.Context, id int64, gpa, sat string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE admission_records SET gpa = ?, sat = ? WHERE id = ?`,
		nullable(gpa), nullable(sat), id,
	)
	return err
}

func (s Store) MarkVerified(ctx context.Context, id int64, at int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE admission_records SET verified = 1, verified_at = ? WHERE id = ?`,
		at, id,
	)
	return err
}

func (s Store) DeleteRecord(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admission_records WHERE id = ?`, id)
	return err
}

const schoolColumns = `id, name, ifnull(local_name, ''), country,
	ifnull(state, ''), ifnull(city, ''), sel_rank, acceptance_rate`

func scanSchool(row interface{ Scan(...any) error }) (School, error) {
	var school School
	err := row.Scan(
		&school.Id, &school.Name, &school.LocalName, &school.Country,
		&school.State, &school.City, &school.Rank, &school.AcceptanceRate,
	)
	return school, err
}

func (s Store) SchoolById(ctx context.Context, id int64) (School, error) {
	return scanSchool(s.db.QueryRowContext(
		ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE id = ?`,
		id,
	))
}

func (s Store) SchoolByName(ctx context.Context, name string) (School, bool, error) {
	school, err := scanSchool(s.db.QueryRowContext(
		ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE name = ? COLLATE NOCASE`,
		name,
	))
	if err == sql.ErrNoRows {
		return School{}, false, nil
	}
	if err != nil {
		return School{}, false, err
	}
	return school, true, nil
}

func (s Store) SchoolContaining(ctx context.Context, fragment string) (School, bool, error) {
	school, err := scanSchool(s.db.QueryRowContext(
		ctx,
		`SELECT `+schoolColumns+` FROM schools
		 WHERE name LIKE '%' || ? || '%' ORDER BY length(name) LIMIT 1`,
		fragment,
	))
	if err == sql.ErrNoRows {
		return School{}, false, nil
	}
	if err != nil {
		return School{}, false, err
	}
	return school, true, nil
}

func (s Store) CreateSchool(ctx context.Context, name, country string) (School, error) {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO schools (name, country) VALUES (?, ?)`,
		name, country,
	)
	if err != nil && !isUniqueViolation(err) {
		return School{}, err
	}
	school, _, err := s.SchoolByName(ctx, name)
	return school, err
}

// SetSchoolRank records the selectivity rank of a school; rank data
// arrives out of band, not from scraped text.
func (s Store) SetSchoolRank(ctx context.Context, id int64, rank int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE schools SET sel_rank = ? WHERE id = ?`,
		rank, id,
	)
	return err
}

// RankedSchools lists schools whose selectivity rank is known and at
// most maxRank, the synthesizer's candidate pool.
func (s Store) RankedSchools(ctx context.Context, maxRank int64) ([]School, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+schoolColumns+` FROM schools
		 WHERE sel_rank IS NOT NULL AND sel_rank <= ? ORDER BY sel_rank`,
		maxRank,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []School
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, school)
	}
	return out, rows.Err()
}
