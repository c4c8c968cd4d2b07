package model

// TimestampLayout 缓存记录时间戳格式（与前端约定的字面字符串，不做时区换算）
const TimestampLayout = "2006-01-02 15:04:05"

// PlanRef 门户候选文档引用
// 由 DSBmobile 列表接口产出，仅在单次流水线运行内存在，不可变
type PlanRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// TimetableEntry 课表单元格条目
type TimetableEntry struct {
	Day     string `json:"day"`     // Weekdays 之一
	Period  string `json:"period"`  // Periods 之一
	Subject string `json:"subject"` // 科目（学习领域编号）
	Room    string `json:"room"`    // 教室
	Text    string `json:"text"`    // 原始单元格文本
}

// Timetable 结构化周课表
// IsPlaceholder 为 true 当且仅当记录由回退路径产出
type Timetable struct {
	Days          []string         `json:"days"`
	Periods       []string         `json:"periods"`
	Entries       []TimetableEntry `json:"entries"`
	ClassNames    []string         `json:"class_names"`
	IsPlaceholder bool             `json:"is_placeholder"`
}

// Clone 深拷贝课表
func (t *Timetable) Clone() *Timetable {
	if t == nil {
		return nil
	}
	out := *t
	out.Days = append([]string(nil), t.Days...)
	out.Periods = append([]string(nil), t.Periods...)
	out.Entries = append([]TimetableEntry(nil), t.Entries...)
	out.ClassNames = append([]string(nil), t.ClassNames...)
	return &out
}

// Weekdays 固定 5 天网格（MTL 课表为周一至周五）
func Weekdays() []string {
	return []string{"Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag"}
}

// Periods 固定 5 节课次标签
func Periods() []string {
	return []string{"I", "II", "III", "IV", "bb - V"}
}

// DefaultClassNames OCR 未识别出班级时的兜底班级集合
func DefaultClassNames() []string {
	return []string{"MTL 01", "MTL 02"}
}

// PlaceholderTimetable 构造固定的占位课表
// 结构化 OCR 解析不可用（或按当前行为从不启用）时的兜底输出
func PlaceholderTimetable() *Timetable {
	return &Timetable{
		Days:    Weekdays(),
		Periods: Periods(),
		Entries: []TimetableEntry{
			// Montag
			{Day: "Montag", Period: "I", Subject: "LF 04.6", Room: "423", Text: "LF 04.6 (Mich) Raum 423"},
			{Day: "Montag", Period: "II", Subject: "LF 04.6", Room: "423", Text: "LF 04.6 (Mich) Raum 423"},
			// Dienstag
			{Day: "Dienstag", Period: "I", Subject: "LF 02.2", Room: "Labor", Text: "LF 02.2 (Kant) Labor"},
			{Day: "Dienstag", Period: "II", Subject: "LF 02.2", Room: "Labor", Text: "LF 02.2 (Kant) Labor"},
			{Day: "Dienstag", Period: "III", Subject: "LF 04.6.1", Room: "Labor", Text: "LF 04.6.1 (Mich) Labor"},
			{Day: "Dienstag", Period: "IV", Subject: "LF 04.6.1", Room: "Labor", Text: "LF 04.6.1 (Mich) Labor"},
			// Mittwoch
			{Day: "Mittwoch", Period: "I", Subject: "LF 02.2", Room: "Labor", Text: "LF 02.2 (Kant) Labor"},
			{Day: "Mittwoch", Period: "II", Subject: "LF 02.2", Room: "Labor", Text: "LF 02.2 (Kant) Labor"},
			// Donnerstag
			{Day: "Donnerstag", Period: "I", Subject: "LF 08.1.1", Room: "423", Text: "LF 08.1.1 (Mich) Raum 423"},
			{Day: "Donnerstag", Period: "II", Subject: "LF 08.1.1", Room: "423", Text: "LF 08.1.1 (Mich) Raum 423"},
		},
		ClassNames:    DefaultClassNames(),
		IsPlaceholder: true,
	}
}
