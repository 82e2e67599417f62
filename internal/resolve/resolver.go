// Package resolve reconstructs unknown values from boolean verdicts.
//
// Number binary-searches an integer; String measures a text expression with
// Number and then recovers it one position at a time.
package resolve

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/blindsight/internal/dialect"
	"github.com/koustreak/blindsight/internal/errs"
	"github.com/koustreak/blindsight/internal/logger"
	"github.com/koustreak/blindsight/internal/oracle"
	"github.com/koustreak/blindsight/internal/progress"
)

// Charset is the character-coverage contract of String: a character outside
// it cannot be recovered.
const Charset = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	` _-:@./\{}[]()!#$%^&*+=?<>|,;`

// maxCodePoint bounds the bisect strategy's search.
const maxCodePoint = 127

// Strategy selects how a single character is recovered.
type Strategy string

const (
	// CharsetScan tests each charset member for equality, in order.
	CharsetScan Strategy = "scan"
	// Bisect binary-searches the code point and checks it against the charset.
	Bisect Strategy = "bisect"
)

// ParseStrategy maps a configured name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CharsetScan:
		return CharsetScan, nil
	case Bisect:
		return Bisect, nil
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "unknown character strategy %q", s)
	}
}

// Options tunes a Resolver.
type Options struct {
	Strategy Strategy
	// Workers resolves that many positions of one string concurrently.
	// Values below 2 keep the sequential behaviour.
	Workers int
}

// Resolution is a resolved integer. Saturated reports that the true value
// exceeds the search ceiling; Value is then ceiling+1.
type Resolution struct {
	Value     int
	Saturated bool
}

// Text is a resolved string.
type Text struct {
	Value string
	// Length is the resolved length; Value is shorter when a position failed
	// or when Length saturated.
	Length Resolution
	// FailedAt is the 1-based position that matched no charset member, or 0.
	FailedAt int
}

// Complete reports whether every position was recovered.
func (t Text) Complete() bool {
	return t.FailedAt == 0 && !t.Length.Saturated
}

// Resolver turns expressions into values through an Asker, using a dialect
// profile to spell the conditions.
type Resolver struct {
	asker    oracle.Asker
	profile  *dialect.Profile
	opts     Options
	reporter progress.Reporter
	charset  []rune
}

// New builds a Resolver. reporter may be nil.
func New(asker oracle.Asker, profile *dialect.Profile, opts Options, reporter progress.Reporter) *Resolver {
	if opts.Strategy == "" {
		opts.Strategy = CharsetScan
	}
	if reporter == nil {
		reporter = progress.Discard
	}
	return &Resolver{
		asker:    asker,
		profile:  profile,
		opts:     opts,
		reporter: reporter,
		charset:  []rune(Charset),
	}
}

// Profile returns the dialect the resolver spells conditions for.
func (r *Resolver) Profile() *dialect.Profile {
	return r.profile
}

// Number resolves expr within [0, upper].
func (r *Resolver) Number(ctx context.Context, expr string, upper int) (Resolution, error) {
	return r.NumberFrom(ctx, expr, 0, upper)
}

// NumberFrom resolves expr within [low, upper], assuming it is at least low.
// Each step asks "(expr) > mid": true moves low to mid+1, false moves upper
// to mid-1. The loop ends with low equal to the value, or upper+1 when the
// value lies above the range.
func (r *Resolver) NumberFrom(ctx context.Context, expr string, low, upper int) (Resolution, error) {
	ceiling := upper
	high := upper
	for low <= high {
		mid := low + (high-low)/2
		ok, err := r.asker.Ask(ctx, r.profile.Greater(expr, mid))
		if err != nil {
			return Resolution{}, err
		}
		if ok {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return Resolution{Value: low, Saturated: low > ceiling}, nil
}

// String resolves expr, reading at most maxLength characters.
func (r *Resolver) String(ctx context.Context, expr string, maxLength int) (Text, error) {
	log := logger.FromContext(ctx)

	length, err := r.Number(ctx, r.profile.Length(expr), maxLength)
	if err != nil {
		return Text{}, err
	}
	n := length.Value
	if length.Saturated {
		n = maxLength
	}
	log.Debugf("extracting string (length: %d)", n)

	var chars []rune
	failedAt := 0
	if r.opts.Workers > 1 && n > 1 {
		chars, failedAt, err = r.parallelChars(ctx, expr, n)
	} else {
		chars, failedAt, err = r.sequentialChars(ctx, expr, n)
	}
	if err != nil {
		return Text{}, err
	}

	text := Text{Value: string(chars), Length: length, FailedAt: failedAt}
	if failedAt > 0 {
		log.WarnWith("could not extract character", map[string]interface{}{
			"position": failedAt,
			"partial":  text.Value,
		})
	}
	return text, nil
}

func (r *Resolver) sequentialChars(ctx context.Context, expr string, n int) ([]rune, int, error) {
	chars := make([]rune, 0, n)
	for pos := 1; pos <= n; pos++ {
		c, ok, err := r.Char(ctx, expr, pos)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return chars, pos, nil
		}
		chars = append(chars, c)
		r.reporter.Report(progress.Event{Unit: progress.UnitCharacter, Index: pos, Total: n, Value: string(chars)})
	}
	return chars, 0, nil
}

// parallelChars resolves positions concurrently, Workers at a time. A batch
// containing a failed position is the last one asked, so at most Workers-1
// positions past the failure are asked about. The result matches the sequential
// one.
func (r *Resolver) parallelChars(ctx context.Context, expr string, n int) ([]rune, int, error) {
	found := make([]rune, n)
	ok := make([]bool, n)
	chars := make([]rune, 0, n)

	for first := 1; first <= n; first += r.opts.Workers {
		last := min(first+r.opts.Workers-1, n)

		g, gctx := errgroup.WithContext(ctx)
		for pos := first; pos <= last; pos++ {
			g.Go(func() error {
				c, hit, err := r.Char(gctx, expr, pos)
				if err != nil {
					return err
				}
				found[pos-1], ok[pos-1] = c, hit
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}

		for i := first - 1; i < last; i++ {
			if !ok[i] {
				return chars, i + 1, nil
			}
			chars = append(chars, found[i])
			r.reporter.Report(progress.Event{Unit: progress.UnitCharacter, Index: i + 1, Total: n, Value: string(chars)})
		}
	}
	return chars, 0, nil
}

// Char resolves the 1-based position pos of expr. ok is false when the
// character is outside the charset or the position does not exist.
func (r *Resolver) Char(ctx context.Context, expr string, pos int) (rune, bool, error) {
	if r.opts.Strategy == Bisect {
		return r.bisectChar(ctx, expr, pos)
	}
	return r.scanChar(ctx, expr, pos)
}

func (r *Resolver) scanChar(ctx context.Context, expr string, pos int) (rune, bool, error) {
	for _, c := range r.charset {
		ok, err := r.asker.Ask(ctx, r.profile.CharEquals(expr, pos, c))
		if err != nil {
			return 0, false, err
		}
		if ok {
			return c, true, nil
		}
	}
	return 0, false, nil
}

func (r *Resolver) bisectChar(ctx context.Context, expr string, pos int) (rune, bool, error) {
	code, err := r.Number(ctx, r.profile.CodePoint(r.profile.CharAt(expr, pos)), maxCodePoint)
	if err != nil {
		return 0, false, err
	}
	if code.Saturated || code.Value == 0 {
		return 0, false, nil
	}
	c := rune(code.Value)
	if !strings.ContainsRune(Charset, c) {
		return 0, false, nil
	}
	return c, true, nil
}
