package http

import (
	"time"

	"thongke/internal/core"
	"thongke/internal/report"
	"thongke/internal/services"
)

// Card is one summary tile of the dashboard.
type Card struct {
	Category core.Category
	Icon     string
	Label    string
	Value    string
	Sub      string
	Color    string
}

// DetailRow is one line of the per-category detail table.
type DetailRow struct {
	Category core.Category
	Icon     string
	Label    string
	Count    string
	Detail   string
	Meta     string
	Color    string
}

// StatsView is the template data of the stats partial.
type StatsView struct {
	Cards         []Card
	BenefitsTotal string
	UpdatedOn     string
	Rows          []DetailRow
	Params        FilterParams
	ExportURL     string
}

// PageView is the template data of the dashboard page.
type PageView struct {
	Title    string
	Params   FilterParams
	Statuses []StatusOption
	Stats    StatsView
	Error    string
}

// StatusOption is one entry of the status select.
type StatusOption struct {
	Value    string
	Label    string
	Selected bool
}

// StatusOptions lists the status selector entries in display order,
// marking the one matching selected.
func StatusOptions(selected string) []StatusOption {
	if selected == "" {
		selected = string(core.StatusAll)
	}
	opts := []StatusOption{
		{Value: string(core.StatusAll), Label: "Tất cả hồ sơ"},
		{Value: string(core.StatusActive), Label: "Đang hoạt động"},
		{Value: string(core.StatusInactive), Label: "Đã ngưng sử dụng"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == selected
	}
	return opts
}

const exportPath = "/reports/export.csv"

// BuildStatsView lays out a snapshot as dashboard cards and detail rows.
func BuildStatsView(snap services.Snapshot, f report.Formatter, loc *time.Location, p FilterParams) StatsView {
	s := snap.Stats
	if loc == nil {
		loc = time.Local
	}
	v := StatsView{
		BenefitsTotal: f.Money(s.BenefitsTotal()),
		UpdatedOn:     snap.GeneratedAt.In(loc).Format("02/01/2006"),
		Params:        p,
		ExportURL:     exportPath,
	}
	if q := p.Encode(); q != "" {
		v.ExportURL += "?" + q
	}

	v.Cards = []Card{
		{core.CategoryHouse, "home", "Tổng số nhà", f.Int(s.House.Total), f.Int(s.House.Active) + " hồ sơ có tác động", "blue"},
		{core.CategoryLand, "landmark", "Thửa đất công", f.Int(s.Land.Total), f.Area(s.Land.Area) + " m2 tổng diện tích", "amber"},
		{core.CategoryGeneral, "shield-alert", "Tướng lĩnh", f.Int(s.General.Total), f.Int(s.General.Central) + " diện TW được ghi nhận", "indigo"},
		{core.CategoryMerit, "heart", "Người có công", f.Int(s.Merit.Total), f.Money(s.Merit.Budget) + " VNĐ trợ cấp", "rose"},
		{core.CategoryMedal, "award", "Huân chương KC", f.Int(s.Medal.Total), f.Money(s.Medal.Budget) + " VNĐ kinh phí", "orange"},
		{core.CategoryPolicy, "shield-check", "Đối tượng chính sách", f.Int(s.Policy.Total), f.Money(s.Policy.Budget) + " VNĐ chi trả", "blue"},
		{core.CategorySocial, "hand-heart", "Bảo trợ xã hội", f.Int(s.Social.Total), f.Money(s.Social.Budget) + " VNĐ định kỳ", "emerald"},
	}

	v.Rows = []DetailRow{
		{core.CategoryHouse, "home", "Quản lý Số nhà", f.Int(s.House.Total), f.Int(s.House.Active) + " hồ sơ có biến động", report.Placeholder, "blue"},
		{core.CategoryLand, "landmark", "Thửa đất công", f.Int(s.Land.Total), "Đất trống & Đang khai thác", f.Area(s.Land.Area) + " m2", "amber"},
		{core.CategoryGeneral, "shield-alert", "Diện Tướng lĩnh", f.Int(s.General.Total), f.Int(s.General.Central) + " hồ sơ diện Trung ương", report.Placeholder, "indigo"},
		{core.CategoryMerit, "heart", "Người có công", f.Int(s.Merit.Total), "Ưu đãi & Trợ cấp hàng tháng", f.Money(s.Merit.Budget) + " đ", "rose"},
		{core.CategoryMedal, "award", "Huân chương kháng chiến", f.Int(s.Medal.Total), "Đối tượng khen thưởng", f.Money(s.Medal.Budget) + " đ", "orange"},
		{core.CategoryPolicy, "shield-check", "Đối tượng chính sách", f.Int(s.Policy.Total), "Thương bệnh binh, nhiễm chất độc", f.Money(s.Policy.Budget) + " đ", "blue"},
		{core.CategorySocial, "hand-heart", "Bảo trợ xã hội", f.Int(s.Social.Total), "NKT, NCT, Đơn thân nghèo", f.Money(s.Social.Budget) + " đ", "emerald"},
	}
	return v
}

// statsResponse is the body of GET /api/stats.
type statsResponse struct {
	Filter        filterResponse `json:"filter"`
	Stats         core.Stats     `json:"stats"`
	Records       int            `json:"records"`
	BenefitsTotal core.Money     `json:"benefitsTotal"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

type filterResponse struct {
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Status string `json:"status"`
}

func newStatsResponse(snap services.Snapshot) statsResponse {
	f := filterResponse{Status: string(snap.Filter.Status)}
	if f.Status == "" {
		f.Status = string(core.StatusAll)
	}
	if !snap.Filter.Start.IsZero() {
		f.Start = snap.Filter.Start.Format("2006-01-02")
	}
	if !snap.Filter.End.IsZero() {
		f.End = snap.Filter.End.Format("2006-01-02")
	}
	return statsResponse{
		Filter:        f,
		Stats:         snap.Stats,
		Records:       snap.Stats.Records(),
		BenefitsTotal: snap.Stats.BenefitsTotal(),
		GeneratedAt:   snap.GeneratedAt.UTC(),
	}
}
