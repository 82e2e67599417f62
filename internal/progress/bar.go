package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Bar draws one terminal progress bar per table while its rows are
// extracted. Other events are ignored; pair it with Log via Multi.
type Bar struct {
	out  io.Writer
	mu   sync.Mutex
	bars map[string]*progressbar.ProgressBar
}

func NewBar(out io.Writer) *Bar {
	return &Bar{out: out, bars: make(map[string]*progressbar.ProgressBar)}
}

func (b *Bar) Report(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e.Unit {
	case UnitRowCount:
		if e.Total <= 0 {
			return
		}
		b.bars[e.Table] = progressbar.NewOptions(e.Total,
			progressbar.OptionSetWriter(b.out),
			progressbar.OptionSetDescription(fmt.Sprintf("rows of %s", e.Table)),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("rows"),
			progressbar.OptionClearOnFinish(),
		)
	case UnitRow:
		bar, ok := b.bars[e.Table]
		if !ok {
			return
		}
		_ = bar.Add(1)
		if e.Index >= e.Total {
			_ = bar.Finish()
			delete(b.bars, e.Table)
		}
	}
}
