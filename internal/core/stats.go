package core

// Category names one of the seven managed registers.
type Category string

const (
	CategoryHouse   Category = "house"
	CategoryLand    Category = "land"
	CategoryGeneral Category = "general"
	CategoryMerit   Category = "merit"
	CategoryMedal   Category = "medal"
	CategoryPolicy  Category = "policy"
	CategorySocial  Category = "social"
)

// Categories lists every register in display order.
var Categories = []Category{
	CategoryHouse, CategoryLand, CategoryGeneral,
	CategoryMerit, CategoryMedal, CategoryPolicy, CategorySocial,
}

type (
	HouseStats struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	}

	LandStats struct {
		Total int          `json:"total"`
		Area  SquareMeters `json:"area"`
	}

	GeneralStats struct {
		Total   int `json:"total"`
		Central int `json:"dienTW"`
	}

	// BudgetStats is used by the four benefit registers.
	BudgetStats struct {
		Total  int   `json:"total"`
		Budget Money `json:"budget"`
	}

	// Stats holds the per-category aggregates of a filtered dataset.
	Stats struct {
		House   HouseStats   `json:"house"`
		Land    LandStats    `json:"land"`
		General GeneralStats `json:"general"`
		Merit   BudgetStats  `json:"merit"`
		Medal   BudgetStats  `json:"medal"`
		Policy  BudgetStats  `json:"policy"`
		Social  BudgetStats  `json:"social"`
	}
)

// Aggregate filters each collection of ds with f and computes the totals.
func Aggregate(ds Dataset, f Filter) Stats {
	var s Stats

	houses := Apply(ds.Houses, f)
	s.House.Total = len(houses)
	for _, h := range houses {
		if h.Status.IsActive() {
			s.House.Active++
		}
	}

	lands := Apply(ds.Lands, f)
	s.Land.Total = len(lands)
	for _, l := range lands {
		s.Land.Area += l.Area
	}

	generals := Apply(ds.Generals, f)
	s.General.Total = len(generals)
	for _, g := range generals {
		if g.Tier == TierCentral {
			s.General.Central++
		}
	}

	s.Merit = budget(Apply(ds.Merits, f), func(r MeritRecord) Money { return r.Amount })
	s.Medal = budget(Apply(ds.Medals, f), func(r MedalRecord) Money { return r.Amount })
	s.Policy = budget(Apply(ds.Policies, f), func(r PolicyRecord) Money { return r.Amount })
	s.Social = budget(Apply(ds.Socials, f), func(r SocialRecord) Money { return r.Amount })

	return s
}

func budget[T any](items []T, amount func(T) Money) BudgetStats {
	b := BudgetStats{Total: len(items)}
	for _, it := range items {
		b.Budget = b.Budget.Add(amount(it))
	}
	return b
}

// BenefitsTotal is the combined budget of the merit, medal, policy and
// social-protection registers.
func (s Stats) BenefitsTotal() Money {
	return s.Merit.Budget.Add(s.Medal.Budget).Add(s.Policy.Budget).Add(s.Social.Budget)
}

// Count returns the filtered record count of c.
func (s Stats) Count(c Category) int {
	switch c {
	case CategoryHouse:
		return s.House.Total
	case CategoryLand:
		return s.Land.Total
	case CategoryGeneral:
		return s.General.Total
	case CategoryMerit:
		return s.Merit.Total
	case CategoryMedal:
		return s.Medal.Total
	case CategoryPolicy:
		return s.Policy.Total
	case CategorySocial:
		return s.Social.Total
	default:
		return 0
	}
}

// Records returns the filtered record count across every register.
func (s Stats) Records() int {
	n := 0
	for _, c := range Categories {
		n += s.Count(c)
	}
	return n
}
