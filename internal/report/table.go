package report

import (
	"thongke/internal/core"
)

// Placeholder fills cells that have no value for a category.
const Placeholder = "-"

// Header is the first row of every exported table.
var Header = []string{"PHÂN HỆ", "TỔNG SỐ HỒ SƠ", "TRẠNG THÁI/CHI TIẾT", "KINH PHÍ/DIỆN TÍCH"}

// Row is one category line of the summary table.
type Row struct {
	Category core.Category
	Label    string
	Count    int
	Detail   string
	Total    string
}

// Table is the exported summary: one row per category.
type Table struct {
	Rows []Row
}

// BuildTable lays out s as the exported summary table.
func BuildTable(s core.Stats, f Formatter) Table {
	return Table{Rows: []Row{
		{core.CategoryHouse, "Số nhà", s.House.Total, f.Int(s.House.Active) + " đang dùng", Placeholder},
		{core.CategoryLand, "Đất công", s.Land.Total, Placeholder, f.Area(s.Land.Area) + " m2"},
		{core.CategoryGeneral, "Tướng lĩnh", s.General.Total, f.Int(s.General.Central) + " diện TW", Placeholder},
		{core.CategoryMerit, "Người có công", s.Merit.Total, Placeholder, f.Money(s.Merit.Budget) + " VNĐ"},
		{core.CategoryMedal, "Huân chương KC", s.Medal.Total, Placeholder, f.Money(s.Medal.Budget) + " VNĐ"},
		{core.CategoryPolicy, "Đối tượng chính sách", s.Policy.Total, Placeholder, f.Money(s.Policy.Budget) + " VNĐ"},
		{core.CategorySocial, "Bảo trợ xã hội", s.Social.Total, Placeholder, f.Money(s.Social.Budget) + " VNĐ"},
	}}
}

// Records returns the header followed by every row as string cells.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, Header)
	for _, r := range t.Rows {
		out = append(out, []string{r.Label, itoa(r.Count), r.Detail, r.Total})
	}
	return out
}
