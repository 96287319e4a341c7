package graphfixture

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bxf12315/depgraph/relationship"
)

func TestParse(t *testing.T) {
	g, err := Parse([]byte(`
-- graph --
# a depends on b, b is managed up to c
com.example:app:1.0 -[DEPENDENCY]-> com.example:lib:2.0 scope=compile idx=0
com.example:lib:2.0 -[DEPENDENCY]-> com.example:util:3.0 scope=runtime managed=true idx=1
com.example:app:1.0 -[PARENT]-> com.example:parent:1.0
`))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(g.Relationships), 3))

	first := g.Relationships[0]
	qt.Assert(t, qt.Equals(first.Kind(), relationship.Dependency))
	qt.Assert(t, qt.Equals(first.Scope(), "compile"))
	qt.Assert(t, qt.Equals(first.Index(), 0))

	second := g.Relationships[1]
	qt.Assert(t, qt.IsTrue(second.Managed()))
	qt.Assert(t, qt.Equals(second.Index(), 1))

	third := g.Relationships[2]
	qt.Assert(t, qt.Equals(third.Kind(), relationship.Parent))
}

func TestParseRejectsMalformedLine(t *testing.T) {
	_, err := Parse([]byte(`
-- graph --
com.example:app:1.0 com.example:lib:2.0
`))
	qt.Assert(t, qt.IsNotNil(err))
}

func TestParseRejectsUnknownKind(t *testing.T) {
	_, err := Parse([]byte(`
-- graph --
com.example:app:1.0 -[WAT]-> com.example:lib:2.0
`))
	qt.Assert(t, qt.IsNotNil(err))
}
