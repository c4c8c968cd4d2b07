package service

import (
	"regexp"
	"strings"

	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
)

// ── 候选文档筛选 ──────────────────────────────────────────
//
// 门户列表里混杂着食堂菜单、公告等文档，课表文档的标题带有
// "MTA" 标记。无标题的文档同样视为候选（门户偶尔漏填标题）。
// 班级标识形如 "MTL 01" / "MTL02"，从标题与 OCR 文本中挖掘。
// ─────────────────────────────────────────────────────────────

// timetableMarker 课表文档的标题标记（区分大小写）
const timetableMarker = "MTA"

var (
	classPattern      = regexp.MustCompile(`(?i)MTL\s*\d+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SelectPlans 从候选文档中筛选课表条目
// 规则：URL 非空，且标题含 "MTA" 或标题为空；保持列表顺序，首条为主选
func SelectPlans(plans []model.PlanRef) []model.PlanRef {
	var selected []model.PlanRef
	for _, p := range plans {
		if p.URL == "" {
			continue
		}
		if strings.Contains(p.Title, timetableMarker) || p.Title == "" {
			selected = append(selected, p)
		}
	}
	return selected
}

// ExtractClassNames 从文本中挖掘班级标识
// 匹配 "MTL" + 可选空白 + 数字（不区分大小写）；
// 归一化仅做内部空白压缩为单个空格并去除首尾空白
// （"MTL  07" → "MTL 07"，"MTL07" 保持 "MTL07"）；
// 按首次出现顺序去重
func ExtractClassNames(texts ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, match := range classPattern.FindAllString(text, -1) {
			normalized := strings.TrimSpace(whitespacePattern.ReplaceAllString(match, " "))
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			out = append(out, normalized)
		}
	}
	return out
}

// MergeClassNames 合并多个班级集合，按首次出现顺序去重
func MergeClassNames(sets ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, set := range sets {
		for _, name := range set {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
