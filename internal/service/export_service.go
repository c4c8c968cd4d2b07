package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
	"github.com/ttvtimotheus/dsbbutbetter/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoTimetable  = errors.New("该用户暂无缓存课表可导出")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出基于缓存记录（不触发门户采集），缓存缺失即报错
//   - Excel 格式：单 Sheet，行=课次，列=星期，单元格=原始条目文本
//   - ICS 格式：本周（周一起算）每个条目一个 VEVENT，
//     课次时间按 MTL 固定节次表换算
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportExcel 导出缓存课表为 Excel
	ExportExcel(ctx context.Context, owner string) (*bytes.Buffer, string, error)
	// ExportICS 导出缓存课表为 iCalendar
	ExportICS(ctx context.Context, owner string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

// periodTimes MTL 节次起止时间
var periodTimes = map[string][2]string{
	"I":      {"08:00", "09:30"},
	"II":     {"09:50", "11:20"},
	"III":    {"11:40", "13:10"},
	"IV":     {"13:40", "15:10"},
	"bb - V": {"15:20", "16:50"},
}

// ════════════════════════════════════════════════════════════
// ExportExcel — 缓存课表 → Excel 网格
// ════════════════════════════════════════════════════════════

func (s *exportService) ExportExcel(ctx context.Context, owner string) (*bytes.Buffer, string, error) {
	record, err := s.loadRecord(ctx, owner)
	if err != nil {
		return nil, "", err
	}
	tt := record.Timetable

	// 单元格索引: "day:period" → 条目文本（同格多条目换行拼接）
	cellIndex := make(map[string]string)
	for _, e := range tt.Entries {
		key := e.Day + ":" + e.Period
		if prev, ok := cellIndex[key]; ok {
			cellIndex[key] = prev + "\n" + e.Text
		} else {
			cellIndex[key] = e.Text
		}
	}

	f := excelize.NewFile()
	const sheetName = "Stundenplan"
	f.SetSheetName(f.GetSheetName(0), sheetName)

	// 列宽：课次列窄，星期列宽
	f.SetColWidth(sheetName, "A", "A", 10)
	lastCol, _ := excelize.ColumnNumberToName(1 + len(tt.Days))
	f.SetColWidth(sheetName, "B", lastCol, 26)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	title := fmt.Sprintf("Stundenplan %s — %s", strings.Join(tt.ClassNames, ", "), record.Timestamp)
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", fmt.Sprintf("%s1", lastCol))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头：A2 = Stunde，B2.. = 星期
	f.SetCellValue(sheetName, "A2", "Stunde")
	for i, day := range tt.Days {
		col, _ := excelize.ColumnNumberToName(2 + i)
		f.SetCellValue(sheetName, col+"2", day)
		f.SetCellStyle(sheetName, col+"2", col+"2", headerStyle)
	}

	// 数据行：每课次一行
	for r, period := range tt.Periods {
		row := 3 + r
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), period)
		for c, day := range tt.Days {
			col, _ := excelize.ColumnNumberToName(2 + c)
			text, ok := cellIndex[day+":"+period]
			if !ok {
				text = "-"
			}
			f.SetCellValue(sheetName, fmt.Sprintf("%s%d", col, row), text)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("stundenplan_%s.xlsx", owner)
	return buf, filename, nil
}

// ════════════════════════════════════════════════════════════
// ExportICS — 缓存课表 → iCalendar
// ════════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context, owner string) (*bytes.Buffer, string, error) {
	record, err := s.loadRecord(ctx, owner)
	if err != nil {
		return nil, "", err
	}
	tt := record.Timetable

	dayOffsets := make(map[string]int, len(tt.Days))
	for i, day := range tt.Days {
		dayOffsets[day] = i
	}

	monday := weekStart(s.now())

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//DSB But Better//Stundenplan//DE")

	for i, e := range tt.Entries {
		offset, ok := dayOffsets[e.Day]
		if !ok {
			continue
		}
		times, ok := periodTimes[e.Period]
		if !ok {
			continue
		}

		date := monday.AddDate(0, 0, offset)
		start := atClock(date, times[0])
		end := atClock(date, times[1])

		event := cal.AddEvent(fmt.Sprintf("%s-%d@dsbbutbetter", owner, i))
		event.SetCreatedTime(s.now())
		event.SetDtStampTime(s.now())
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(e.Subject)
		event.SetLocation(e.Room)
		event.SetDescription(e.Text)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("stundenplan_%s.ics", owner)
	return buf, filename, nil
}

// ── 辅助函数 ──

func (s *exportService) loadRecord(ctx context.Context, owner string) (*model.CacheRecord, error) {
	record, err := s.repo.Cache.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrExportNoTimetable
		}
		s.logger.Error("读取缓存记录失败", zap.Error(err))
		return nil, err
	}
	if record.Timetable == nil {
		return nil, ErrExportNoTimetable
	}
	return record, nil
}

// weekStart 所在周的周一（零点）
func weekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // 周日按 7 计
	}
	monday := t.AddDate(0, 0, 1-weekday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

// atClock 在给定日期上套用 "HH:MM" 时刻
func atClock(date time.Time, clock string) time.Time {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, date.Location())
}
