// Package oracletest provides a scriptable in-memory target for tests.
//
// Target understands exactly the condition shapes the dialect package
// builds: "(expr) > n", "CODE(SUBSTR((expr), i, 1)) = n",
// "SUBSTR((expr), i, 1) = 'c'" and literal fingerprints. Expressions are
// looked up verbatim, so tests register ground truth with the same dialect
// builders the engine uses.
package oracletest

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/koustreak/blindsight/internal/dialect"
	"github.com/koustreak/blindsight/internal/oracle"
)

var (
	greaterRe   = regexp.MustCompile(`^\((.*)\) > (-?\d+)$`)
	codeEqRe    = regexp.MustCompile(`^(.*) = (\d+)$`)
	literalEqRe = regexp.MustCompile(`^(?:SUBSTRING|SUBSTR)\(\((.*)\), (\d+), 1\) = '(.*)'$`)
	lengthRe    = regexp.MustCompile(`^(LENGTH|LEN)\(\((.*)\)\)$`)
	sentinelRe  = regexp.MustCompile(`^LEN\(\((.*)\)\+'x'\)-1$`)
	codeRe      = regexp.MustCompile(`^(?:ASCII|UNICODE)\((?:SUBSTRING|SUBSTR)\(\((.*)\), (\d+), 1\)\)$`)
)

// Target is a fake oracle. It is safe for concurrent use.
type Target struct {
	mu      sync.Mutex
	numbers map[string]int
	texts   map[string]string
	truths  map[string]bool
	fail    func(p oracle.Probe) error
	probes  []oracle.Probe
}

// New returns a target that only knows the preflight tautology.
func New() *Target {
	return &Target{
		numbers: make(map[string]int),
		texts:   make(map[string]string),
		truths:  map[string]bool{oracle.Tautology: true},
	}
}

// Number registers the value of a numeric expression.
func (t *Target) Number(expr string, v int) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.numbers[expr] = v
	return t
}

// Text registers the value of a string expression.
func (t *Target) Text(expr, s string) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.texts[expr] = s
	return t
}

// True makes a literal condition evaluate to true.
func (t *Target) True(cond string) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.truths[cond] = true
	return t
}

// FailWith installs a hook; a non-nil error from it fails the probe.
func (t *Target) FailWith(fn func(p oracle.Probe) error) *Target {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail = fn
	return t
}

// Probe implements oracle.Oracle.
func (t *Target) Probe(_ context.Context, p oracle.Probe) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.probes = append(t.probes, p)
	if t.fail != nil {
		if err := t.fail(p); err != nil {
			return false, err
		}
	}
	return t.evaluate(p.Condition), nil
}

// Probes returns a copy of every probe received so far.
func (t *Target) Probes() []oracle.Probe {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]oracle.Probe(nil), t.probes...)
}

// Count is the number of probes received so far.
func (t *Target) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.probes)
}

// CountContaining counts probes whose condition contains substr.
func (t *Target) CountContaining(substr string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, p := range t.probes {
		if strings.Contains(p.Condition, substr) {
			n++
		}
	}
	return n
}

// Reset forgets recorded probes.
func (t *Target) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probes = nil
}

func (t *Target) evaluate(cond string) bool {
	if t.truths[cond] {
		return true
	}
	if m := greaterRe.FindStringSubmatch(cond); m != nil {
		n, _ := strconv.Atoi(m[2])
		v, ok := t.numeric(m[1])
		return ok && v > n
	}
	if m := literalEqRe.FindStringSubmatch(cond); m != nil {
		pos, _ := strconv.Atoi(m[2])
		c, ok := t.charAt(m[1], pos)
		return ok && string(c) == strings.ReplaceAll(m[3], "''", "'")
	}
	if m := codeEqRe.FindStringSubmatch(cond); m != nil {
		n, _ := strconv.Atoi(m[2])
		v, ok := t.numeric(m[1])
		return ok && v == n
	}
	return false
}

// numeric evaluates expr; ok is false where SQL would yield NULL or an error.
func (t *Target) numeric(expr string) (int, bool) {
	if v, ok := t.numbers[expr]; ok {
		return v, true
	}
	if m := lengthRe.FindStringSubmatch(expr); m != nil {
		s, ok := t.texts[m[2]]
		if m[1] == "LEN" {
			s = strings.TrimRight(s, " ")
		}
		return len([]rune(s)), ok
	}
	if m := sentinelRe.FindStringSubmatch(expr); m != nil {
		s, ok := t.texts[m[1]]
		return len([]rune(s)), ok
	}
	if m := codeRe.FindStringSubmatch(expr); m != nil {
		pos, _ := strconv.Atoi(m[2])
		c, ok := t.charAt(m[1], pos)
		return int(c), ok
	}
	return 0, false
}

func (t *Target) charAt(expr string, pos int) (rune, bool) {
	s, ok := t.texts[expr]
	if !ok {
		return 0, false
	}
	r := []rune(s)
	if pos < 1 || pos > len(r) {
		return 0, false
	}
	return r[pos-1], true
}

// --- database model ---

// Table is the ground truth for one table. Rows are listed in the order the
// engine will page them: sorted by every column, in column name order.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Install registers a whole database on t as profile p would query it:
// fingerprint, table listing, column listings, row counts and every cell.
// Table and column names are sorted as the engine's ORDER BY would.
func Install(t *Target, p *dialect.Profile, tables []Table) *Target {
	t.True(p.Fingerprint)

	sorted := append([]Table(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	t.Number(p.TableCount(), len(sorted))
	for i, tbl := range sorted {
		t.Text(p.TableAt(i), tbl.Name)

		cols := append([]string(nil), tbl.Columns...)
		sort.Strings(cols)
		t.Number(p.ColumnCount(tbl.Name), len(cols))
		for j, c := range cols {
			t.Text(p.ColumnAt(tbl.Name, j), c)
		}

		t.Number(p.RowCount(tbl.Name), len(tbl.Rows))
		for r, row := range tbl.Rows {
			for j, c := range tbl.Columns {
				if j < len(row) {
					t.Text(p.CellAt(tbl.Name, c, cols, r), row[j])
				}
			}
		}
	}
	return t
}
