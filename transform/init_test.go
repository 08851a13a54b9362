package transform

import "github.com/cozy/blocknote/test/builder"

var (
	doc    = builder.Doc
	p      = builder.P
	h1     = builder.H1
	h2     = builder.H2
	ul     = builder.Ul
	li     = builder.Li
	br     = builder.Br
	em     = builder.Em
	strong = builder.Strong
)
