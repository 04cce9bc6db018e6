package core

// CategoryAmount is planned and realized spending aggregated by category.
type CategoryAmount struct {
	Category string  `json:"category"`
	Planned  float64 `json:"planned"`
	Actual   float64 `json:"actual"`
}

// RangeSummary is a compact report over an inclusive date range.
type RangeSummary struct {
	Start      string           `json:"start"`
	End        string           `json:"end"`
	Count      int              `json:"count"`
	Planned    float64          `json:"planned"`
	Actual     float64          `json:"actual"`
	Savings    float64          `json:"savings"`
	Categories []CategoryAmount `json:"categories"`
}
