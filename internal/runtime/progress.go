package runtime

// ProgressListener observes a scan. Update is called with the number of
// pixels done so far, at most once every UpdateInterval pixels.
type ProgressListener interface {
	SetTaskSize(n int64)
	Start()
	Update(done int64)
	Finish()
	UpdateInterval() int64
}

// NullProgressListener ignores every event.
type NullProgressListener struct{}

func (NullProgressListener) SetTaskSize(int64)     {}
func (NullProgressListener) Start()                {}
func (NullProgressListener) Update(int64)          {}
func (NullProgressListener) Finish()               {}
func (NullProgressListener) UpdateInterval() int64 { return 1 << 62 }

// ProgressFunc adapts a function to a listener that reports every
// Interval pixels and once more at the end. A nil Fn reports nothing.
type ProgressFunc struct {
	Interval int64
	Fn       func(done, total int64)

	total int64
}

func (p *ProgressFunc) SetTaskSize(n int64)   { p.total = n }
func (p *ProgressFunc) Start()                { p.report(0) }
func (p *ProgressFunc) Update(done int64)     { p.report(done) }
func (p *ProgressFunc) Finish()               { p.report(p.total) }
func (p *ProgressFunc) UpdateInterval() int64 { return p.Interval }

func (p *ProgressFunc) report(done int64) {
	if p.Fn != nil {
		p.Fn(done, p.total)
	}
}
