package core

import (
	"errors"
	"strings"
)

const (
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"

	Recharge TransportEventType = "recharge"
	Trip     TransportEventType = "trip"
)

// TransportCategory is the expense category used for transport card recharges.
const TransportCategory = "Transporte"

// DefaultCategory is used when an expense has no category.
const DefaultCategory = "Otros"

// SuggestedCategories is the fixed suggestion set offered to users.
// Categories are free-form; this list is never enforced.
var SuggestedCategories = []string{"Comida", TransportCategory, "Casa", "Salud", DefaultCategory}

type (
	// Cadence is how often a plan rule fires. Legacy budget rules only use
	// Weekly and Monthly.
	Cadence string

	TransportEventType string

	Income struct {
		ID        string  `json:"id"`
		Date      string  `json:"date"`
		Amount    float64 `json:"amount"`
		Note      string  `json:"note"`
		CreatedAt int64   `json:"createdAt"`
	}

	Expense struct {
		ID            string  `json:"id"`
		Date          string  `json:"date"`
		PlannedAmount float64 `json:"plannedAmount"`
		ActualAmount  float64 `json:"actualAmount"`
		Category      string  `json:"category"`
		Title         string  `json:"title"`
		Note          string  `json:"note"`
		Done          bool    `json:"done"`
		// SourceBudgetID points at the rule that generated the expense.
		// It is only used for dedup lookups, never for ownership.
		SourceBudgetID *string `json:"sourceBudgetId"`
		CreatedAt      int64   `json:"createdAt"`
	}

	// PlanRule is a recurring-expense template. Days holds weekdays
	// (0=Sunday..6=Saturday) for weekly rules and days of month (1..31)
	// for monthly rules; it is empty for daily rules.
	PlanRule struct {
		ID        string  `json:"id"`
		Cadence   Cadence `json:"cadence"`
		Amount    float64 `json:"amount"`
		Category  string  `json:"category"`
		Title     string  `json:"title"`
		Days      []int   `json:"days"`
		CreatedAt int64   `json:"createdAt"`
	}

	// BudgetRule is the older shape of PlanRule, kept so persisted
	// ledgers created by the first app variant keep working.
	BudgetRule struct {
		ID        string  `json:"id"`
		Frequency Cadence `json:"frequency"`
		Amount    float64 `json:"amount"`
		Category  string  `json:"category"`
		Title     string  `json:"title"`
		Days      []int   `json:"days"`
		CreatedAt int64   `json:"createdAt"`
	}

	TransportEvent struct {
		ID        string             `json:"id"`
		Type      TransportEventType `json:"type"`
		Date      string             `json:"date"`
		Amount    float64            `json:"amount"`
		Note      string             `json:"note"`
		CreatedAt int64              `json:"createdAt"`
	}

	// TransportState is the prepaid transport card sub-ledger. Balance may
	// go negative; overdraft checks belong to the caller.
	TransportState struct {
		Balance float64          `json:"balance"`
		Events  []TransportEvent `json:"events"`
	}

	UIState struct {
		// FilterDate is "" (no filter) or an ISO date.
		FilterDate string `json:"filterDate"`
	}

	// LedgerState is the whole persisted document for one user.
	LedgerState struct {
		InitialBalance float64        `json:"initialBalance"`
		Incomes        []Income       `json:"incomes"`
		Expenses       []Expense      `json:"expenses"`
		Budgets        []BudgetRule   `json:"budgets"`
		PlanRules      []PlanRule     `json:"planRules"`
		Transport      TransportState `json:"transport"`
		UI             UIState        `json:"ui"`
	}

	// Totals are the derived aggregates shown to the user.
	Totals struct {
		IncomesTotal   float64 `json:"incomesTotal"`
		ExpenseDone    float64 `json:"expenseDone"`
		ExpensePending float64 `json:"expensePending"`
		SavingsDone    float64 `json:"savingsDone"`
		Balance        float64 `json:"balance"`
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidCadence      = errors.New("invalid cadence")
	ErrNoDays              = errors.New("non-daily rule requires at least one day")
	ErrInsufficientBalance = errors.New("insufficient transport balance")
)

// DefaultState returns an empty ledger with every collection initialized.
func DefaultState() LedgerState {
	return LedgerState{
		Incomes:   []Income{},
		Expenses:  []Expense{},
		Budgets:   []BudgetRule{},
		PlanRules: []PlanRule{},
		Transport: TransportState{Events: []TransportEvent{}},
	}
}

// IsValid reports whether c is a known cadence.
func (c Cadence) IsValid() bool {
	switch c {
	case Daily, Weekly, Monthly:
		return true
	default:
		return false
	}
}

func (c Cadence) String() string {
	return string(c)
}

// IsGenerated reports whether the expense was produced by plan expansion.
func (e Expense) IsGenerated() bool {
	return e.SourceBudgetID != nil && *e.SourceBudgetID != ""
}

// PlanRuleInput is what a caller submits to create a plan rule.
type PlanRuleInput struct {
	Cadence  Cadence
	Amount   float64
	Category string
	Title    string
	Days     []int
}

// Validate rejects input that would produce a rule that never fires.
// Mutators accept such rules anyway; callers are expected to validate first.
func (in PlanRuleInput) Validate() error {
	if !in.Cadence.IsValid() {
		return ErrInvalidCadence
	}
	if err := ValidateDays(in.Cadence, in.Days); err != nil {
		return err
	}
	if in.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateDays checks day selections against the cadence.
func ValidateDays(c Cadence, days []int) error {
	if c == Daily {
		return nil
	}
	if len(days) == 0 {
		return ErrNoDays
	}
	for _, d := range days {
		switch c {
		case Weekly:
			if d < 0 || d > 6 {
				return ErrInvalidDay
			}
		case Monthly:
			if d < 1 || d > 31 {
				return ErrInvalidDay
			}
		}
	}
	return nil
}

// TransportInput is a recharge or trip request.
type TransportInput struct {
	Date   string
	Amount float64
	Note   string
}

func (in TransportInput) Validate() error {
	if !IsISODate(in.Date) {
		return ErrInvalidDate
	}
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateTrip checks that a trip of amount can be paid from balance.
func ValidateTrip(balance, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if RoundMoney(balance-amount) < 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// CleanNote trims user-entered notes.
func CleanNote(s string) string {
	return strings.TrimSpace(s)
}

// Day presets offered when creating plan rules.
var (
	WeekdaysPreset          = []int{1, 2, 3, 4, 5}
	WeekendPreset           = []int{0, 6}
	AllWeekPreset           = []int{0, 1, 2, 3, 4, 5, 6}
	FirstOfMonthPreset      = []int{1}
	FifteenthPreset         = []int{15}
	FirstAndFifteenthPreset = []int{1, 15}
	AllMonthPreset          = func() []int {
		days := make([]int, 31)
		for i := range days {
			days[i] = i + 1
		}
		return days
	}()
)

// PresetDays returns a copy of a named day preset.
func PresetDays(name string) ([]int, bool) {
	var p []int
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "weekdays", "lv":
		p = WeekdaysPreset
	case "weekend":
		p = WeekendPreset
	case "all-week", "week":
		p = AllWeekPreset
	case "first":
		p = FirstOfMonthPreset
	case "fifteenth":
		p = FifteenthPreset
	case "first-and-fifteenth":
		p = FirstAndFifteenthPreset
	case "all-month", "month":
		p = AllMonthPreset
	default:
		return nil, false
	}
	return append([]int(nil), p...), true
}
