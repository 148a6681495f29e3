package main

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/olegiv/ocms-migrate/modules/migrator/types"
)

// progressBar renders media progress. The bar is created on the first
// event, once the attachment count is known. A nil bar is a no-op.
type progressBar struct {
	mu  sync.Mutex
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{p: mpb.New(mpb.WithWidth(64), mpb.WithOutput(w))}
}

func (b *progressBar) observe(e types.MediaEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		b.bar = b.p.AddBar(int64(e.Total),
			mpb.PrependDecorators(
				decor.Name("media:", decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d/%d) "),
				decor.NewPercentage("%d"),
			),
		)
	}
	b.bar.Increment()
}

// finish releases the renderer, aborting a bar the run did not complete.
func (b *progressBar) finish() {
	if b == nil {
		return
	}
	b.mu.Lock()
	if b.bar != nil && !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.mu.Unlock()
	b.p.Wait()
}
