package models

// QuotaStatus is a point-in-time view of one quota.
type QuotaStatus struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// NewQuotaStatus clamps Remaining at zero when usage overshoots the limit.
func NewQuotaStatus(used, limit int) QuotaStatus {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{Used: used, Limit: limit, Remaining: remaining}
}

func (q QuotaStatus) Exhausted() bool {
	return q.Used >= q.Limit
}
