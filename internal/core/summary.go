package core

// Period selects the trailing window of a time series.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	}
	return "", ErrInvalidPeriod
}

// Bucket is one day or month slot of a time series. Key is the calendar
// date ("2006-01-02") or month ("2006-01"); Label is for display.
type Bucket struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Summary is the compact dashboard view of a transaction set.
type Summary struct {
	Income       float64 `json:"income"`
	Expense      float64 `json:"expense"`
	Balance      float64 `json:"balance"`
	MonthIncome  float64 `json:"monthIncome"`
	MonthExpense float64 `json:"monthExpense"`
	Count        int     `json:"count"`
}

// ExportInput is everything an exporter receives. Transactions are sorted by
// date, newest first.
type ExportInput struct {
	Profile      UserProfile      `json:"profile"`
	Transactions []Transaction    `json:"transactions"`
	Summary      Summary          `json:"summary"`
	ByCategory   []CategoryAmount `json:"byCategory"`
}
