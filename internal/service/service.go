package service

// Policy carries the lending rules as deploy-time knobs.
type Policy struct {
	LoanPeriodDays   int     `envconfig:"LOAN_PERIOD_DAYS" default:"14"`
	DailyFineRate    float64 `envconfig:"DAILY_FINE_RATE" default:"0.5"`
	BorrowLimit      int     `envconfig:"BORROW_LIMIT" default:"3"`
	SuspendThreshold int     `envconfig:"SUSPEND_THRESHOLD" default:"3"`
}
