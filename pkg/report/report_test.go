package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"snarl_anchors/pkg/anchor"
	"snarl_anchors/pkg/extend"
)

func testAnchor(t *testing.T, path string, lengths []int, pos int, refs []string, reads ...anchor.ReadMatch) *anchor.Anchor {
	t.Helper()
	nodes, err := anchor.ParsePath(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := range nodes {
		nodes[i].Length = lengths[i]
	}
	a := anchor.New(nodes, "1")
	a.GenomicPosition = pos
	for _, r := range refs {
		a.AddReferencePath(r)
	}
	a.SetReads(reads)
	return a
}

func read(id string, rel bool, start, end int) anchor.ReadMatch {
	return anchor.ReadMatch{ReadID: id, RelativeStrand: rel, Start: start, End: end, ReadLength: 1000}
}

func testDict(t *testing.T) *anchor.Dictionary {
	a := testAnchor(t, ">1>2>4", []int{20, 1, 20}, 300, []string{"CHM13", "HG002"},
		read("r1", true, 10, 31), read("r2", false, 5, 26))
	b := testAnchor(t, ">1>3>4", []int{20, 1, 20}, 300, []string{"HG003"},
		read("r3", true, 0, 21))
	c := testAnchor(t, ">7<8>9", []int{10, 5, 10}, 100, []string{"CHM13"},
		read("r1", true, 100, 115), read("r2", false, 200, 215), read("r4", true, 0, 15))
	return anchor.FromAnchors([]*anchor.Anchor{a, b, c})
}

func TestWriteSizes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSizes(&buf, testDict(t)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		sizesHeader,
		"2\t1\t21\t300\t>1>2>4\t1,2,4\tCHM13,HG002",
		"3\t1\t21\t300\t>1>3>4\t1,3,4\tHG003",
		"8\t1\t15\t100\t>7<8>9\t7,8,9\tCHM13",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestWriteBandage(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBandage(&buf, testDict(t)); err != nil {
		t.Fatal(err)
	}
	want := "Node,color\n1,#FF0000\n2,#FF0000\n3,#FF0000\n4,#FF0000\n7,#FF0000\n8,#FF0000\n9,#FF0000\n"
	if buf.String() != want {
		t.Errorf("got\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteValidAnchors(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteValidAnchors(&buf, testDict(t), 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("wrote %d anchors, want 2", n)
	}
	var got [][][]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 2 {
		t.Fatalf("got %v", got)
	}
	// Second read of the first anchor is on the other strand.
	if id, strand := got[0][1][0], got[0][1][1]; id != "r2" || strand != float64(1) {
		t.Errorf("entry = %v, want [r2 1 ...]", got[0][1])
	}
}

func TestExportSortedByPosition(t *testing.T) {
	recs := Export(testDict(t))
	var paths []string
	for _, r := range recs {
		paths = append(paths, r.Path)
	}
	want := []string{">7<8>9", ">1>2>4", ">1>3>4"}
	if strings.Join(paths, " ") != strings.Join(want, " ") {
		t.Errorf("order = %v, want %v", paths, want)
	}

	var buf bytes.Buffer
	if err := WriteExport(&buf, recs[:1]); err != nil {
		t.Fatal(err)
	}
	wantLine := `[">7<8>9",[["r1",0,100,115],["r2",1,200,215],["r4",0,0,15]]]` + "\n"
	if buf.String() != wantLine {
		t.Errorf("got %s, want %s", buf.String(), wantLine)
	}
}

func TestWriteCounts(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCounts(&buf, testDict(t)); err != nil {
		t.Fatal(err)
	}
	var got map[string][][]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if c := got["8"]; len(c) != 1 || c[0][0] != ">7<8>9" || c[0][2] != float64(3) {
		t.Errorf(`counts["8"] = %v`, c)
	}
}

func TestWriteAudit(t *testing.T) {
	audit := extend.NewAudit()
	audit.InitialCoverage[">1>2>4"] = 3
	audit.DroppedReads[">1>2>4"] = []string{"r9"}
	var buf bytes.Buffer
	if err := WriteAudit(&buf, audit); err != nil {
		t.Fatal(err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"initial_coverage", "final_coverage", "anchor_reads", "dropped_reads"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestDiff(t *testing.T) {
	before := "a\nb\nc\n"
	after := "a\nB\nc\nd\n"
	d, err := Diff(before, after, "before.tsv", "after.tsv")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(d, "--- before.tsv") || !strings.Contains(d, "+++ after.tsv") {
		t.Errorf("missing headers:\n%s", d)
	}
	if added, removed := DiffStat(d); added != 2 || removed != 1 {
		t.Errorf("DiffStat = +%d -%d, want +2 -1", added, removed)
	}
	if d, _ := Diff(before, before, "x", "y"); d != "" {
		t.Errorf("identical inputs gave %q", d)
	}
}

func TestLink(t *testing.T) {
	groups := Link(testDict(t), 1)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	var paths []string
	for _, a := range groups[0] {
		paths = append(paths, a.String())
	}
	if strings.Join(paths, " ") != ">1>2>4 >7<8>9" {
		t.Errorf("group = %v", paths)
	}
	if groups := Link(testDict(t), 2); len(groups) != 0 {
		t.Errorf("minShared 2 gave %d groups, want 0", len(groups))
	}

	var buf bytes.Buffer
	if err := WriteLinkage(&buf, Link(testDict(t), 1)); err != nil {
		t.Fatal(err)
	}
	if want := "group\tanchors\tpaths\n0\t2\t>1>2>4,>7<8>9\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
