package service

import (
	"reflect"
	"testing"

	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
)

func TestSelectPlans_MarkerMatch(t *testing.T) {
	plans := []model.PlanRef{
		{URL: "https://img.example/mensa.png", Title: "Mensaplan KW36"},
		{URL: "https://img.example/kw36.png", Title: "MTA Stundenplan KW36"},
		{URL: "https://img.example/kw37.png", Title: "MTA Stundenplan KW37"},
	}

	selected := SelectPlans(plans)
	if len(selected) != 2 {
		t.Fatalf("期望 2 条候选, 实际 %d", len(selected))
	}
	// 主选 = 列表顺序中首个匹配项
	if selected[0].URL != "https://img.example/kw36.png" {
		t.Errorf("主选不符: %+v", selected[0])
	}
}

func TestSelectPlans_MarkerCaseSensitive(t *testing.T) {
	plans := []model.PlanRef{
		{URL: "https://img.example/a.png", Title: "mta Stundenplan"},
		{URL: "https://img.example/b.png", Title: "Mta Stundenplan"},
	}
	if selected := SelectPlans(plans); len(selected) != 0 {
		t.Errorf("标记匹配必须区分大小写, 实际选中 %d 条", len(selected))
	}
}

func TestSelectPlans_UntitledAccepted(t *testing.T) {
	plans := []model.PlanRef{
		{URL: "https://img.example/mensa.png", Title: "Mensaplan"},
		{URL: "https://img.example/unbenannt.png", Title: ""},
	}

	selected := SelectPlans(plans)
	if len(selected) != 1 || selected[0].URL != "https://img.example/unbenannt.png" {
		t.Fatalf("无标题文档应视为候选: %+v", selected)
	}
}

func TestSelectPlans_EmptyURLSkipped(t *testing.T) {
	plans := []model.PlanRef{
		{URL: "", Title: "MTA Stundenplan"},
	}
	if selected := SelectPlans(plans); len(selected) != 0 {
		t.Errorf("无 URL 的条目不应入选: %+v", selected)
	}
}

func TestExtractClassNames_Normalization(t *testing.T) {
	// 归一化只做空白压缩与去首尾：字面变换，不引入统一格式
	cases := []struct {
		in   string
		want []string
	}{
		{"Stundenplan MTL  07", []string{"MTL 07"}},
		{"Stundenplan MTL07", []string{"MTL07"}},
		{"mtl 3 und MTL 12", []string{"mtl 3", "MTL 12"}},
		{"kein Treffer", nil},
	}

	for _, c := range cases {
		got := ExtractClassNames(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ExtractClassNames(%q) = %v, 期望 %v", c.in, got, c.want)
		}
	}
}

func TestExtractClassNames_Idempotent(t *testing.T) {
	in := "MTA Plan MTL 01 / MTL  02 / MTL 01"

	first := ExtractClassNames(in)
	second := ExtractClassNames(in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("重复提取结果应一致: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(first, []string{"MTL 01", "MTL 02"}) {
		t.Errorf("去重后应保留首次出现顺序: %v", first)
	}
}

func TestMergeClassNames(t *testing.T) {
	got := MergeClassNames(
		[]string{"MTL 01", "MTL 02"},
		[]string{"MTL 02", "MTL 03"},
		nil,
	)
	want := []string{"MTL 01", "MTL 02", "MTL 03"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("合并结果 %v, 期望 %v", got, want)
	}
}
