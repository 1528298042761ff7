package log

// noop is a Logger that discards everything.
type noop struct{}

var _ Logger = (*noop)(nil)

// Noop is the zero-cost default a caller injects when it has no
// structured logger to supply. There is no global/static logger in
// this package; every caller that wants logging wires its own Logger
// in explicitly.
var Noop Logger = &noop{}

func (n *noop) Level(lvl Level) Logger            { return n }
func (n *noop) Field(k string, v any) Logger      { return n }
func (n *noop) Fields(data map[string]any) Logger { return n }
func (n *noop) Error(err error) Logger            { return n }
func (n *noop) Message(_ string)                  {}
func (n *noop) Messagef(_ string, _ ...any)       {}
