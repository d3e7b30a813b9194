package core

import (
	"testing"
	"time"
)

func sampleDataset() Dataset {
	jan := day(2024, 1, 15)
	mar := day(2024, 3, 15)
	return Dataset{
		Houses: []HouseRecord{
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}},
			{Meta: Meta{Status: StatusInactive, CreatedAt: jan}},
			{Meta: Meta{Status: StatusActive, CreatedAt: mar}},
		},
		Lands: []LandRecord{
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}, Area: 120.5},
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}},
			{Meta: Meta{Status: StatusInactive, CreatedAt: mar}, Area: 1000},
		},
		Generals: []GeneralRecord{
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}, Tier: TierCentral},
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}, Tier: "QK"},
		},
		Merits: []MeritRecord{
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}, Amount: Money{Dong: 2_500_000}},
			{Meta: Meta{Status: StatusActive, CreatedAt: mar}, Amount: Money{Dong: 1_000_000}},
		},
		Medals: []MedalRecord{
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}, Amount: Money{Dong: 300_000}},
		},
		Policies: []PolicyRecord{
			{Meta: Meta{Status: StatusInactive, CreatedAt: jan}, Amount: Money{Dong: 700_000}},
		},
		Socials: []SocialRecord{
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}, Amount: Money{Dong: 450_000}},
			{Meta: Meta{Status: StatusActive, CreatedAt: jan}},
		},
	}
}

func TestAggregateUnfiltered(t *testing.T) {
	s := Aggregate(sampleDataset(), Filter{})

	if s.House.Total != 3 || s.House.Active != 2 {
		t.Errorf("house = %+v", s.House)
	}
	if s.Land.Total != 3 || s.Land.Area != 1120.5 {
		t.Errorf("land = %+v", s.Land)
	}
	if s.General.Total != 2 || s.General.Central != 1 {
		t.Errorf("general = %+v", s.General)
	}
	if s.Merit.Total != 2 || s.Merit.Budget.Dong != 3_500_000 {
		t.Errorf("merit = %+v", s.Merit)
	}
	if s.Social.Total != 2 || s.Social.Budget.Dong != 450_000 {
		t.Errorf("social = %+v", s.Social)
	}
	if s.Records() != 14 {
		t.Errorf("records = %d, want 14", s.Records())
	}
}

func TestAggregateFiltered(t *testing.T) {
	f, _ := NewFilter("2024-01-01", "2024-01-31", "Active", time.UTC)
	s := Aggregate(sampleDataset(), f)

	if s.House.Total != 1 || s.House.Active != 1 {
		t.Errorf("house = %+v", s.House)
	}
	if s.Land.Total != 2 || s.Land.Area != 120.5 {
		t.Errorf("land = %+v", s.Land)
	}
	if s.Merit.Budget.Dong != 2_500_000 {
		t.Errorf("merit budget = %d", s.Merit.Budget.Dong)
	}
	if s.Policy.Total != 0 || s.Policy.Budget.Dong != 0 {
		t.Errorf("inactive policy record should be excluded, got %+v", s.Policy)
	}
}

func TestBenefitsTotalIsSumOfBudgets(t *testing.T) {
	for _, f := range []Filter{{}, {Status: StatusFilter(StatusActive)}, {Status: StatusFilter(StatusInactive)}} {
		s := Aggregate(sampleDataset(), f)
		want := s.Merit.Budget.Dong + s.Medal.Budget.Dong + s.Policy.Budget.Dong + s.Social.Budget.Dong
		if got := s.BenefitsTotal().Dong; got != want {
			t.Errorf("filter %q: BenefitsTotal = %d, want %d", f.Key(), got, want)
		}
	}
	if got := Aggregate(sampleDataset(), Filter{}).BenefitsTotal().Dong; got != 4_950_000 {
		t.Errorf("BenefitsTotal = %d, want 4950000", got)
	}
}

func TestAggregateEmptyDataset(t *testing.T) {
	s := Aggregate(Dataset{}, Filter{})
	if s != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", s)
	}
}
