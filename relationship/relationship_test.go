package relationship

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bxf12315/depgraph/coordinate"
)

func TestNewRequiresNonEmptySources(t *testing.T) {
	p := coordinate.MustNew("com.example", "p", "1.0", "", "")
	q := coordinate.MustNew("com.example", "q", "1.0", "", "")
	_, err := New(Dependency, p, q, false, true, nil, "pom.xml", 0)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestBomIsAlwaysConcrete(t *testing.T) {
	p := coordinate.MustNew("com.example", "p", "1.0", "", "")
	q := coordinate.MustNew("com.example", "q", "1.0", "", "")
	r, err := New(Bom, p, q, false, false, []string{"file:///pom.xml"}, "file:///pom.xml", 0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(r.Concrete()))
	qt.Assert(t, qt.IsFalse(r.Managed()))
}

func TestTargetAsPOMArtifact(t *testing.T) {
	p := coordinate.MustNew("com.example", "p", "1.0", "", "")
	q := coordinate.MustNew("com.example", "q", "1.0", "", "")
	r, err := New(Bom, p, q, false, true, []string{"file:///pom.xml"}, "file:///pom.xml", 0)
	qt.Assert(t, qt.IsNil(err))
	pomArtifact := r.TargetAsPOMArtifact()
	qt.Assert(t, qt.Equals(pomArtifact.Extension(), "pom"))
	qt.Assert(t, qt.Equals(pomArtifact.GA(), q.GA()))
}

func TestSelectDeclaringPreservesAttributes(t *testing.T) {
	p := coordinate.MustNew("com.example", "p", "1.0", "", "")
	p2 := coordinate.MustNew("com.example", "p2", "1.0", "", "")
	q := coordinate.MustNew("com.example", "q", "1.0", "", "")
	r, err := New(Dependency, p, q, true, false, []string{"file:///a.xml"}, "file:///a.xml", 3)
	qt.Assert(t, qt.IsNil(err))

	r2 := r.SelectDeclaring(p2)
	qt.Assert(t, qt.Equals(r2.Declaring(), p2))
	qt.Assert(t, qt.Equals(r2.Target(), q))
	qt.Assert(t, qt.Equals(r2.Index(), r.Index()))
	qt.Assert(t, qt.DeepEquals(r2.Sources(), r.Sources()))
	qt.Assert(t, qt.Equals(r2.RID(), r.RID()))
}

func TestAddSourceUnions(t *testing.T) {
	p := coordinate.MustNew("com.example", "p", "1.0", "", "")
	q := coordinate.MustNew("com.example", "q", "1.0", "", "")
	r, err := New(Dependency, p, q, false, true, []string{"file:///a.xml"}, "file:///a.xml", 0)
	qt.Assert(t, qt.IsNil(err))
	r2 := r.AddSource("file:///b.xml")
	qt.Assert(t, qt.DeepEquals(r2.Sources(), []string{"file:///a.xml", "file:///b.xml"}))
	// original is untouched
	qt.Assert(t, qt.DeepEquals(r.Sources(), []string{"file:///a.xml"}))
}

func TestIsTerminus(t *testing.T) {
	p := coordinate.MustNew("com.example", "p", "1.0", "", "")
	r, err := New(Parent, p, p, false, true, []string{"file:///a.xml"}, "file:///a.xml", 0)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(r.IsTerminus()))
}
