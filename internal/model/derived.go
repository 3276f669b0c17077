package model

import "math"

// kg CO2 avoided per kWh of PV production (German grid mix)
const CO2KgPerKWh = 0.474

// kg CO2 a tree absorbs per year
const CO2KgPerTree = 21.0

// ProgressPercent is the share of done milestones, rounded to whole percent.
func ProgressPercent(milestones []Milestone) int {
	done := 0
	for _, m := range milestones {
		if m.Status == MilestoneDone {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(max(len(milestones), 1)) * 100))
}

// ActiveMilestone returns the first active milestone, or nil.
func ActiveMilestone(milestones []Milestone) *Milestone {
	for i := range milestones {
		if milestones[i].Status == MilestoneActive {
			return &milestones[i]
		}
	}
	return nil
}

func CO2ForKWh(kwh float64) float64 {
	return kwh * CO2KgPerKWh
}

func TreesForCO2(kg float64) int {
	return int(math.Round(kg / CO2KgPerTree))
}

type ReferralSummary struct {
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	Converted   int     `json:"converted"`
	Paid        int     `json:"paid"`
	BonusEarned float64 `json:"bonus_earned"`
	BonusPaid   float64 `json:"bonus_paid"`
}

// SummarizeReferrals counts referrals by status. A converted referral has
// earned its bonus; a paid one has also been paid out.
func SummarizeReferrals(referrals []Referral) ReferralSummary {
	s := ReferralSummary{Total: len(referrals)}
	for _, r := range referrals {
		switch r.Status {
		case ReferralPending:
			s.Pending++
		case ReferralConverted:
			s.Converted++
			s.BonusEarned += r.BonusAmount
		case ReferralBonusPaid:
			s.Paid++
			s.BonusEarned += r.BonusAmount
			s.BonusPaid += r.BonusAmount
		}
	}
	return s
}
