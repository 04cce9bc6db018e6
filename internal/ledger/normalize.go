package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"billetera/internal/core"
)

// ErrInvalidDocument is returned by Decode when the payload is not a JSON
// object. Callers fall back to core.DefaultState.
var ErrInvalidDocument = errors.New("invalid ledger document")

// Encode serializes a ledger in its canonical form.
func Encode(s core.LedgerState) ([]byte, error) {
	s, _ = Normalize(s)
	return json.Marshal(s)
}

// Decode reads a persisted ledger of any vintage and returns it in
// canonical form. The flag reports whether the input differed from the
// canonical form, in which case the caller should write the result back.
//
// Legacy and sloppy inputs are repaired rather than rejected:
//   - missing or non-array collections become empty
//   - a missing or non-object transport becomes a zero card
//   - an expense without plannedAmount/actualAmount is migrated from its
//     legacy "amount": planned = amount, actual = amount when done, else 0
//   - numbers sent as strings, booleans or null are coerced
func Decode(data []byte) (core.LedgerState, bool, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.DefaultState(), false, fmt.Errorf("decode ledger: %w", errors.Join(ErrInvalidDocument, err))
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return core.DefaultState(), false, fmt.Errorf("decode ledger: %w", ErrInvalidDocument)
	}

	d := &decoder{}
	s := d.state(obj)
	return s, d.changed, nil
}

// decoder accumulates the changed flag while coercing a raw document.
type decoder struct {
	changed bool
}

func (d *decoder) state(obj map[string]any) core.LedgerState {
	s := core.DefaultState()
	s.InitialBalance = d.number(obj["initialBalance"])

	for _, item := range d.array(obj, "incomes") {
		s.Incomes = append(s.Incomes, core.Income{
			ID:        d.text(item["id"]),
			Date:      d.text(item["date"]),
			Amount:    d.number(item["amount"]),
			Note:      d.text(item["note"]),
			CreatedAt: d.millis(item["createdAt"]),
		})
	}

	for _, item := range d.array(obj, "expenses") {
		s.Expenses = append(s.Expenses, d.expense(item))
	}

	for _, item := range d.array(obj, "budgets") {
		s.Budgets = append(s.Budgets, core.BudgetRule{
			ID:        d.text(item["id"]),
			Frequency: core.Cadence(d.text(item["frequency"])),
			Amount:    d.number(item["amount"]),
			Category:  d.text(item["category"]),
			Title:     d.text(item["title"]),
			Days:      d.days(item["days"]),
			CreatedAt: d.millis(item["createdAt"]),
		})
	}

	for _, item := range d.array(obj, "planRules") {
		s.PlanRules = append(s.PlanRules, core.PlanRule{
			ID:        d.text(item["id"]),
			Cadence:   core.Cadence(d.text(item["cadence"])),
			Amount:    d.number(item["amount"]),
			Category:  d.text(item["category"]),
			Title:     d.text(item["title"]),
			Days:      d.days(item["days"]),
			CreatedAt: d.millis(item["createdAt"]),
		})
	}

	if transport, ok := obj["transport"].(map[string]any); ok {
		s.Transport.Balance = d.number(transport["balance"])
		for _, item := range d.array(transport, "events") {
			s.Transport.Events = append(s.Transport.Events, core.TransportEvent{
				ID:        d.text(item["id"]),
				Type:      core.TransportEventType(d.text(item["type"])),
				Date:      d.text(item["date"]),
				Amount:    d.number(item["amount"]),
				Note:      d.text(item["note"]),
				CreatedAt: d.millis(item["createdAt"]),
			})
		}
	} else {
		d.changed = true
	}

	if ui, ok := obj["ui"].(map[string]any); ok {
		switch f := ui["filterDate"].(type) {
		case string:
			s.UI.FilterDate = f
		case nil:
		default:
			d.changed = true
		}
	}
	return s
}

func (d *decoder) expense(item map[string]any) core.Expense {
	e := core.Expense{
		ID:        d.text(item["id"]),
		Date:      d.text(item["date"]),
		Category:  d.text(item["category"]),
		Title:     d.text(item["title"]),
		Note:      d.text(item["note"]),
		Done:      d.flag(item["done"]),
		CreatedAt: d.millis(item["createdAt"]),
	}
	if src, ok := item["sourceBudgetId"]; ok && src != nil {
		id := d.text(src)
		if id != "" {
			e.SourceBudgetID = &id
		} else {
			// an empty source is stored as null
			d.changed = true
		}
	}

	planned, hasPlanned := item["plannedAmount"]
	actual, hasActual := item["actualAmount"]
	if hasPlanned && hasActual {
		e.PlannedAmount = d.number(planned)
		e.ActualAmount = d.number(actual)
		return e
	}

	d.changed = true
	if hasPlanned {
		e.PlannedAmount = d.number(planned)
	} else {
		e.PlannedAmount = d.number(item["amount"])
	}
	switch {
	case hasActual:
		e.ActualAmount = d.number(actual)
	case e.Done:
		e.ActualAmount = e.PlannedAmount
	}
	return e
}

// array returns the object elements of obj[key]. A missing or non-array
// value, or any non-object element, marks the document as changed.
func (d *decoder) array(obj map[string]any, key string) []map[string]any {
	list, ok := obj[key].([]any)
	if !ok {
		d.changed = true
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			d.changed = true
			continue
		}
		out = append(out, m)
	}
	return out
}

// number coerces v to a finite amount. JSON numbers pass through; other
// present values are converted and flag the document as changed.
func (d *decoder) number(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			d.changed = true
			return 0
		}
		return x
	case string:
		d.changed = true
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	case bool:
		d.changed = true
		if x {
			return 1
		}
		return 0
	default:
		d.changed = true
		return 0
	}
}

func (d *decoder) millis(v any) int64 {
	return int64(d.number(v))
}

func (d *decoder) text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		d.changed = true
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		d.changed = true
		return strconv.FormatBool(x)
	default:
		d.changed = true
		return ""
	}
}

func (d *decoder) days(v any) []int {
	list, ok := v.([]any)
	if !ok {
		if v != nil {
			d.changed = true
		}
		return []int{}
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		n := d.number(item)
		if item == nil || n != math.Trunc(n) {
			d.changed = true
		}
		out = append(out, int(n))
	}
	return out
}

// flag reads a done marker. Non-boolean values are coerced and flag the
// document as changed; "false" and "0" read as false.
func (d *decoder) flag(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		d.changed = true
		return x != 0 && !math.IsNaN(x)
	case string:
		d.changed = true
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return strings.TrimSpace(x) != ""
		}
		return b
	default:
		d.changed = true
		return true
	}
}

// Normalize repairs a typed ledger: nil collections become empty and
// non-finite amounts become 0. It reports whether anything changed.
// Normalizing an already normalized ledger changes nothing.
func Normalize(s core.LedgerState) (core.LedgerState, bool) {
	changed := false
	fix := func(x float64) float64 {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			changed = true
			return 0
		}
		return x
	}

	s.InitialBalance = fix(s.InitialBalance)
	s.Transport.Balance = fix(s.Transport.Balance)

	if s.Incomes == nil {
		s.Incomes, changed = []core.Income{}, true
	} else if hasBadIncome(s.Incomes) {
		next := append([]core.Income(nil), s.Incomes...)
		for i := range next {
			next[i].Amount = fix(next[i].Amount)
		}
		s.Incomes = next
	}

	if s.Expenses == nil {
		s.Expenses, changed = []core.Expense{}, true
	} else if hasBadExpense(s.Expenses) {
		next := append([]core.Expense(nil), s.Expenses...)
		for i := range next {
			next[i].PlannedAmount = fix(next[i].PlannedAmount)
			next[i].ActualAmount = fix(next[i].ActualAmount)
		}
		s.Expenses = next
	}

	if s.Budgets == nil {
		s.Budgets, changed = []core.BudgetRule{}, true
	} else if hasBudgetRepair(s.Budgets) {
		next := append([]core.BudgetRule(nil), s.Budgets...)
		for i := range next {
			next[i].Amount = fix(next[i].Amount)
			if next[i].Days == nil {
				next[i].Days, changed = []int{}, true
			}
		}
		s.Budgets = next
	}

	if s.PlanRules == nil {
		s.PlanRules, changed = []core.PlanRule{}, true
	} else if hasPlanRepair(s.PlanRules) {
		next := append([]core.PlanRule(nil), s.PlanRules...)
		for i := range next {
			next[i].Amount = fix(next[i].Amount)
			if next[i].Days == nil {
				next[i].Days, changed = []int{}, true
			}
		}
		s.PlanRules = next
	}

	if s.Transport.Events == nil {
		s.Transport.Events, changed = []core.TransportEvent{}, true
	} else if hasBadEvent(s.Transport.Events) {
		next := append([]core.TransportEvent(nil), s.Transport.Events...)
		for i := range next {
			next[i].Amount = fix(next[i].Amount)
		}
		s.Transport.Events = next
	}

	return s, changed
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func hasBadIncome(list []core.Income) bool {
	for _, x := range list {
		if !finite(x.Amount) {
			return true
		}
	}
	return false
}

func hasBadExpense(list []core.Expense) bool {
	for _, x := range list {
		if !finite(x.PlannedAmount) || !finite(x.ActualAmount) {
			return true
		}
	}
	return false
}

func hasBudgetRepair(list []core.BudgetRule) bool {
	for _, x := range list {
		if !finite(x.Amount) || x.Days == nil {
			return true
		}
	}
	return false
}

func hasPlanRepair(list []core.PlanRule) bool {
	for _, x := range list {
		if !finite(x.Amount) || x.Days == nil {
			return true
		}
	}
	return false
}

func hasBadEvent(list []core.TransportEvent) bool {
	for _, x := range list {
		if !finite(x.Amount) {
			return true
		}
	}
	return false
}
