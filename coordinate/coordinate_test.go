package coordinate

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestNewRejectsEmptyFields(t *testing.T) {
	cases := []struct {
		group, artifact, version string
	}{
		{"", "a", "1.0"},
		{"g", "", "1.0"},
		{"g", "a", ""},
		{"g:bad", "a", "1.0"},
	}
	for _, c := range cases {
		_, err := New(c.group, c.artifact, c.version, "", "")
		qt.Assert(t, qt.IsNotNil(err))
	}
}

func TestStringCanonicalForm(t *testing.T) {
	qt.Assert(t, qt.Equals(
		MustNew("com.example", "widget", "1.2.3", "", "").String(),
		"com.example:widget:1.2.3",
	))
	qt.Assert(t, qt.Equals(
		MustNew("com.example", "widget", "1.2.3", "sources", "jar").String(),
		"com.example:widget:jar:sources:1.2.3",
	))
}

func TestGAProjection(t *testing.T) {
	c := MustNew("com.example", "widget", "1.2.3", "", "")
	qt.Assert(t, qt.Equals(c.GA(), GA{Group: "com.example", Artifact: "widget"}))
}

var variableTests = []struct {
	version string
	want    bool
}{
	{"1.0.0", false},
	{"1.0-SNAPSHOT", false},
	{"[1.0,2.0)", true},
	{"(,1.0]", true},
	{"[1.0,)", true},
	{"${revision}", true},
	{"1.0.+", true},
	{"LATEST", true},
	{"RELEASE", true},
}

func TestIsVariableVersion(t *testing.T) {
	for _, tt := range variableTests {
		qt.Assert(t, qt.Equals(IsVariableVersion(tt.version), tt.want), qt.Commentf("version %q", tt.version))
	}
}

func TestCompareOrdersNumerically(t *testing.T) {
	qt.Assert(t, qt.Equals(Compare("1.2.0", "1.10.0") < 0, true))
	qt.Assert(t, qt.Equals(Compare("1.0", "1.0.0") == 0, true))
	qt.Assert(t, qt.Equals(Compare("1.0-SNAPSHOT", "1.0") < 0, true))
	qt.Assert(t, qt.Equals(Compare("2.0", "1.9.9") > 0, true))
}

func TestCompareHandlesOverflowingNumericSegments(t *testing.T) {
	// Date-stamped build numbers exceed int64 range for some ecosystems;
	// both normalize to valid semver, whose arbitrary-length numeric
	// comparison must still order these correctly.
	big1 := "99999999999999999999999999.0"
	big2 := "100000000000000000000000000.0"
	qt.Assert(t, qt.Equals(Compare(big1, big2) < 0, true))
}

func TestSortOrdersByGAThenVersion(t *testing.T) {
	list := []Coordinate{
		MustNew("b.com", "y", "1.0", "", ""),
		MustNew("a.com", "x", "2.0", "", ""),
		MustNew("a.com", "x", "1.0", "", ""),
	}
	Sort(list)
	qt.Assert(t, qt.DeepEquals(list, []Coordinate{
		MustNew("a.com", "x", "1.0", "", ""),
		MustNew("a.com", "x", "2.0", "", ""),
		MustNew("b.com", "y", "1.0", "", ""),
	}))
}

func TestUniqueDeduplicates(t *testing.T) {
	list := []Coordinate{
		MustNew("a.com", "x", "1.0", "", ""),
		MustNew("a.com", "x", "1.0", "", ""),
		MustNew("a.com", "x", "2.0", "", ""),
	}
	got := Unique(list)
	qt.Assert(t, qt.DeepEquals(got, []Coordinate{
		MustNew("a.com", "x", "1.0", "", ""),
		MustNew("a.com", "x", "2.0", "", ""),
	}))
}
