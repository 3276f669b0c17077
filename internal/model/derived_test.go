package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressPercent(t *testing.T) {
	ms := []Milestone{
		{Status: MilestoneDone},
		{Status: MilestoneDone},
		{Status: MilestoneActive},
	}
	assert.Equal(t, 67, ProgressPercent(ms))
	assert.Equal(t, 0, ProgressPercent(nil))
	assert.Equal(t, 100, ProgressPercent(ms[:2]))
}

func TestActiveMilestone(t *testing.T) {
	ms := []Milestone{{Key: "contract", Status: MilestoneDone}, {Key: "installation", Status: MilestoneActive}}
	assert.Equal(t, "installation", ActiveMilestone(ms).Key)
	assert.Nil(t, ActiveMilestone(ms[:1]))
}

func TestCO2AndTrees(t *testing.T) {
	assert.InDelta(t, 4740.0, CO2ForKWh(10000), 1e-9)
	assert.Equal(t, 226, TreesForCO2(4740))
}

func TestSummarizeReferrals(t *testing.T) {
	s := SummarizeReferrals([]Referral{
		{Status: ReferralPending, BonusAmount: 250},
		{Status: ReferralConverted, BonusAmount: 250},
		{Status: ReferralBonusPaid, BonusAmount: 300},
	})
	assert.Equal(t, ReferralSummary{Total: 3, Pending: 1, Converted: 1, Paid: 1, BonusEarned: 550, BonusPaid: 300}, s)
}

func TestMilestoneStatusValid(t *testing.T) {
	assert.True(t, MilestoneActive.Valid())
	assert.False(t, MilestoneStatus("cancelled").Valid())
}
