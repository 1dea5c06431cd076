package evaluation

// Economics holds the unit costs used to price a retention campaign that
// targets every customer predicted to churn.
type Economics struct {
	RevenuePerCustomer   float64 `yaml:"revenue_per_customer" mapstructure:"revenue_per_customer" json:"revenue_per_customer" validate:"gte=0"`
	CampaignCost         float64 `yaml:"campaign_cost" mapstructure:"campaign_cost" json:"campaign_cost" validate:"gte=0"`
	RetentionSuccessRate float64 `yaml:"retention_success_rate" mapstructure:"retention_success_rate" json:"retention_success_rate" validate:"gte=0,lte=1"`
}

// DefaultEconomics returns revenue 1000, cost 50 and a success rate of 1.
func DefaultEconomics() Economics {
	return Economics{
		RevenuePerCustomer:   1000,
		CampaignCost:         50,
		RetentionSuccessRate: 1.0,
	}
}

// BusinessSummary is the campaign outcome implied by a confusion matrix.
type BusinessSummary struct {
	RetainedRevenue   float64 `json:"retained_revenue"`
	WastedSpend       float64 `json:"wasted_spend"`
	LostRevenue       float64 `json:"lost_revenue"`
	TotalCampaignCost float64 `json:"total_campaign_cost"`
	ROI               float64 `json:"roi"`
}

// Summarize prices cm. True positives are customers the campaign keeps,
// false positives are spend on customers who would have stayed, and false
// negatives are churners the campaign missed. ROI is 0 when nothing is spent.
func (e Economics) Summarize(cm ConfusionMatrix) BusinessSummary {
	s := BusinessSummary{
		RetainedRevenue:   float64(cm.TP) * e.RevenuePerCustomer * e.RetentionSuccessRate,
		WastedSpend:       float64(cm.FP) * e.CampaignCost,
		LostRevenue:       float64(cm.FN) * e.RevenuePerCustomer,
		TotalCampaignCost: float64(cm.TP+cm.FP) * e.CampaignCost,
	}
	if s.TotalCampaignCost > 0 {
		s.ROI = (s.RetainedRevenue - s.TotalCampaignCost) / s.TotalCampaignCost
	}
	return s
}
