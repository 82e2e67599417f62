package resolve

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/blindsight/internal/dialect"
	"github.com/koustreak/blindsight/internal/oracle"
	"github.com/koustreak/blindsight/internal/oracle/oracletest"
	"github.com/koustreak/blindsight/internal/progress"
)

const dbName = "SELECT database()"

func session(t *oracletest.Target) oracle.Asker {
	return oracle.NewSession(t, oracle.DefaultEnvelope())
}

func TestResolver_Number(t *testing.T) {
	const upper = 50
	for v := 0; v <= upper; v++ {
		target := oracletest.New().Number("SELECT 1", v)
		r := New(session(target), dialect.MySQL, Options{}, nil)

		got, err := r.Number(context.Background(), "SELECT 1", upper)
		require.NoError(t, err)
		assert.Equal(t, Resolution{Value: v}, got, "value %d", v)
		assert.LessOrEqual(t, target.Count(), int(math.Ceil(math.Log2(upper+2))))
	}
}

func TestResolver_Number_Saturates(t *testing.T) {
	target := oracletest.New().Number("SELECT 1", 75)
	r := New(session(target), dialect.MySQL, Options{}, nil)

	got, err := r.Number(context.Background(), "SELECT 1", 50)
	require.NoError(t, err)
	assert.True(t, got.Saturated)
	assert.Equal(t, 51, got.Value)

	got, err = r.NumberFrom(context.Background(), "SELECT 1", 51, 101)
	require.NoError(t, err)
	assert.Equal(t, Resolution{Value: 75}, got)
}

func TestResolver_Number_UnknownExpression(t *testing.T) {
	// every probe false, as a NULL comparison would be
	r := New(session(oracletest.New()), dialect.MySQL, Options{}, nil)
	got, err := r.Number(context.Background(), "SELECT nothing", 50)
	require.NoError(t, err)
	assert.Equal(t, Resolution{Value: 0}, got)
}

func randomString(rng *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(Charset[rng.Intn(len(Charset))])
	}
	return b.String()
}

func TestResolver_String_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	profiles := []*dialect.Profile{dialect.MySQL, dialect.PostgreSQL, dialect.SQLite}
	strategies := []Strategy{CharsetScan, Bisect}

	for _, p := range profiles {
		for _, st := range strategies {
			t.Run(p.Name+"/"+string(st), func(t *testing.T) {
				for i := 0; i < 20; i++ {
					want := randomString(rng, rng.Intn(21))
					target := oracletest.New().Text(dbName, want)
					r := New(session(target), p, Options{Strategy: st}, nil)

					got, err := r.String(context.Background(), dbName, 20)
					require.NoError(t, err)
					assert.Equal(t, want, got.Value)
					assert.True(t, got.Complete())
				}
			})
		}
	}
}

func TestResolver_String_ProbeBound(t *testing.T) {
	target := oracletest.New().Text(dbName, "users")
	r := New(session(target), dialect.MySQL, Options{}, nil)

	got, err := r.String(context.Background(), dbName, 50)
	require.NoError(t, err)
	assert.Equal(t, "users", got.Value)

	bound := int(math.Ceil(math.Log2(50))) + 5*len(Charset)
	assert.LessOrEqual(t, target.Count(), bound)
}

func TestResolver_String_BisectUsesFewerProbes(t *testing.T) {
	scan := oracletest.New().Text(dbName, "zzzzz")
	_, err := New(session(scan), dialect.MySQL, Options{Strategy: CharsetScan}, nil).String(context.Background(), dbName, 50)
	require.NoError(t, err)

	bisect := oracletest.New().Text(dbName, "zzzzz")
	got, err := New(session(bisect), dialect.MySQL, Options{Strategy: Bisect}, nil).String(context.Background(), dbName, 50)
	require.NoError(t, err)
	assert.Equal(t, "zzzzz", got.Value)
	assert.Less(t, bisect.Count(), scan.Count())
}

func TestResolver_String_UnresolvableCharacter(t *testing.T) {
	for _, st := range []Strategy{CharsetScan, Bisect} {
		t.Run(string(st), func(t *testing.T) {
			target := oracletest.New().Text(dbName, "ab~de")
			r := New(session(target), dialect.MySQL, Options{Strategy: st}, nil)

			got, err := r.String(context.Background(), dbName, 50)
			require.NoError(t, err)
			assert.Equal(t, "ab", got.Value)
			assert.Equal(t, 3, got.FailedAt)
			assert.Equal(t, 5, got.Length.Value)
			assert.False(t, got.Complete())
		})
	}
}

func TestResolver_String_SaturatedLength(t *testing.T) {
	target := oracletest.New().Text(dbName, "abcdefghij")
	r := New(session(target), dialect.MySQL, Options{}, nil)

	got, err := r.String(context.Background(), dbName, 4)
	require.NoError(t, err)
	assert.Equal(t, "abcd", got.Value)
	assert.True(t, got.Length.Saturated)
	assert.False(t, got.Complete())
}

func TestResolver_String_Empty(t *testing.T) {
	target := oracletest.New().Text(dbName, "")
	r := New(session(target), dialect.MySQL, Options{}, nil)

	got, err := r.String(context.Background(), dbName, 50)
	require.NoError(t, err)
	assert.Empty(t, got.Value)
	assert.True(t, got.Complete())
}

func TestResolver_String_Parallel(t *testing.T) {
	want := "wiener:peter"
	seq := oracletest.New().Text(dbName, want)
	par := oracletest.New().Text(dbName, want)
	rec := &progress.Recorder{}

	a, err := New(session(seq), dialect.MySQL, Options{}, nil).String(context.Background(), dbName, 50)
	require.NoError(t, err)
	b, err := New(session(par), dialect.MySQL, Options{Workers: 4}, rec).String(context.Background(), dbName, 50)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, seq.Count(), par.Count())

	events := rec.Events(progress.UnitCharacter)
	require.Len(t, events, len(want))
	assert.Equal(t, want, events[len(events)-1].Value)
}

func TestResolver_String_ParallelKeepsPrefix(t *testing.T) {
	target := oracletest.New().Text(dbName, "ab~de")
	r := New(session(target), dialect.MySQL, Options{Workers: 3}, nil)

	got, err := r.String(context.Background(), dbName, 50)
	require.NoError(t, err)
	assert.Equal(t, "ab", got.Value)
	assert.Equal(t, 3, got.FailedAt)
}

func TestResolver_String_ParallelStopsAfterFailedBatch(t *testing.T) {
	const value = "ab~defghij"
	seq := oracletest.New().Text(dbName, value)
	par := oracletest.New().Text(dbName, value)

	a, err := New(session(seq), dialect.MySQL, Options{}, nil).String(context.Background(), dbName, 50)
	require.NoError(t, err)
	b, err := New(session(par), dialect.MySQL, Options{Workers: 4}, nil).String(context.Background(), dbName, 50)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 3, b.FailedAt)
	// only position 4 ("d", four charset members) shares the failing batch
	assert.Equal(t, seq.Count()+4, par.Count())
	assert.Zero(t, par.CountContaining(", 5, 1)"))
}

func TestResolver_String_TrailingSpaces(t *testing.T) {
	for _, p := range []*dialect.Profile{dialect.MSSQL, dialect.MySQL} {
		t.Run(p.Name, func(t *testing.T) {
			target := oracletest.New().Text(dbName, "ab  ")
			r := New(session(target), p, Options{}, nil)

			got, err := r.String(context.Background(), dbName, 20)
			require.NoError(t, err)
			assert.Equal(t, "ab  ", got.Value)
			assert.True(t, got.Complete())
		})
	}
}

func TestResolver_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	target := oracletest.New().Text(dbName, "users").FailWith(func(p oracle.Probe) error {
		if strings.Contains(p.Condition, ", 2, 1)") {
			return boom
		}
		return nil
	})
	r := New(session(target), dialect.MySQL, Options{}, nil)

	_, err := r.String(context.Background(), dbName, 50)
	assert.ErrorIs(t, err, boom)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "", want: CharsetScan},
		{in: "scan", want: CharsetScan},
		{in: " Bisect", want: Bisect},
		{in: "linear", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
