package validate

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var page = []string{
	"= Guide",
	":toc:",
	":description: A guide",
	"",
	"== Install",
	"",
	"See xref:setup.adoc[setup] and <<usage>>.",
	"",
	"image::diagram.png[Diagram]",
	"",
	"[source,shell]",
	"----",
	"make install",
	"make test",
	"----",
	"",
	"include::partials/footer.adoc[]",
}

func translated() []string {
	out := append([]string(nil), page...)
	out[0] = "= ガイド"
	out[2] = ":description: ガイド"
	out[4] = "== インストール"
	out[6] = "xref:setup.adoc[セットアップ]と<<usage>>を参照。"
	return out
}

func TestCompare_SelfIsEmpty(t *testing.T) {
	r := Compare(page, page)
	assert.True(t, r.Empty())
	assert.Zero(t, r.Problems())
	assert.Equal(t, "no structural differences", r.String())
}

func TestCompare_FaithfulTranslationPasses(t *testing.T) {
	r := Compare(page, translated())
	assert.True(t, r.Empty(), r.String())
}

func TestCompare_HeadingDepth(t *testing.T) {
	sec := translated()
	sec[4] = "=== インストール"
	sec[7] = "== 追加"

	r := Compare(page, sec)

	want := []HeadingMismatch{
		{Line: 5, Primary: 2, Secondary: 3},
		{Line: 8, Primary: 0, Secondary: 2},
	}
	if diff := cmp.Diff(want, r.Headings); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_DroppedBlock(t *testing.T) {
	sec := append(translated()[:10:10], "", "include::partials/footer.adoc[]")

	r := Compare(page, sec)

	require.NotNil(t, r.BlockCount)
	assert.Equal(t, CountMismatch{Primary: 1, Secondary: 0}, *r.BlockCount)
	assert.Empty(t, r.Blocks)
	assert.False(t, r.Empty())
}

func TestCompare_DeletedLineInBlock(t *testing.T) {
	primary := []string{"----", "one", "three", "----"}
	secondary := []string{"----", "one", "two", "three", "----"}

	r := Compare(primary, secondary)

	assert.Nil(t, r.BlockCount)
	require.NotEmpty(t, r.Blocks)
	assert.Equal(t, BlockMismatch{Block: 1, Problem: BlockLength, Primary: "4", Secondary: "5"}, r.Blocks[0])
}

func TestCompare_ChangedCodeLine(t *testing.T) {
	sec := translated()
	sec[12] = "make install # インストール"

	r := Compare(page, sec)

	want := []BlockMismatch{{
		Block: 1, Problem: BlockLine, Line: 2,
		Primary: "make install", Secondary: "make install # インストール",
	}}
	if diff := cmp.Diff(want, r.Blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_BlockKind(t *testing.T) {
	primary := []string{"----", "x", "----"}
	secondary := []string{"....", "x", "...."}

	r := Compare(primary, secondary)

	require.Len(t, r.Blocks, 3)
	assert.Equal(t, BlockKind, r.Blocks[0].Problem)
	assert.Equal(t, "source", r.Blocks[0].Primary)
	assert.Equal(t, "literal", r.Blocks[0].Secondary)
}

func TestCompare_MacroCounts(t *testing.T) {
	sec := translated()
	sec[6] = "セットアップを参照。"
	sec[8] = "image::diagram.png[図] image:icon.png[]"

	r := Compare(page, sec)

	want := []MacroMismatch{
		{Family: FamilyXref, Primary: 2, Secondary: 0},
		{Family: FamilyEmbed, Primary: 1, Secondary: 2},
	}
	if diff := cmp.Diff(want, r.Macros); diff != "" {
		t.Errorf("macros mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_AttributeNames(t *testing.T) {
	sec := translated()
	sec[1] = ":toclevels: 2"

	r := Compare(page, sec)

	want := []AttributeMismatch{
		{Name: "toc", Missing: SideSecondary},
		{Name: "toclevels", Missing: SidePrimary},
	}
	if diff := cmp.Diff(want, r.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_AttributeValuesIgnored(t *testing.T) {
	sec := translated()
	sec[2] = ":description: 別の説明"

	assert.Empty(t, Compare(page, sec).Attributes)
}

func TestCompare_ReportsEveryViolation(t *testing.T) {
	sec := translated()
	sec[4] = "=== インストール"
	sec[13] = "make check"
	sec[16] = ""
	sec[1] = ":toc-title:"

	r := Compare(page, sec)

	assert.Len(t, r.Headings, 1)
	assert.Len(t, r.Blocks, 1)
	assert.Len(t, r.Macros, 1)
	assert.Len(t, r.Attributes, 2)
	assert.Equal(t, 5, r.Problems())

	text := r.String()
	assert.Equal(t, 5, strings.Count(text, "\n")+1)
	assert.Contains(t, text, "line 5: heading depth 2 in primary, 3 in secondary")
	assert.Contains(t, text, "include macros: 1 in primary, 0 in secondary")
	assert.Contains(t, text, "attribute :toc: missing from secondary")
}

func TestMacroCounts(t *testing.T) {
	got := MacroCounts([]string{
		"xref:a.adoc[] and xref:b.adoc#x[B]",
		"<<anchor>> <<other,Other>>",
		"include::a.adoc[]",
		"video::intro.mp4[] audio::a.mp3[]",
	})
	assert.Equal(t, map[string]int{FamilyXref: 4, FamilyInclude: 1, FamilyEmbed: 2}, got)
}
