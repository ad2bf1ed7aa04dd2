package engine

type Expense struct {
	ID          string
	PayerID     string
	Amount      int64
	Description string
	AllMembers  bool
	TargetIDs   []string
}

// Targets resolves who shares the expense.
func (e Expense) Targets(allPlayerIDs []string) []string {
	if e.AllMembers {
		return allPlayerIDs
	}
	return e.TargetIDs
}

// ComputeExpenseBalances credits each payer the full amount and debits every
// target an equal share. The first remainder targets, in list order, pay one
// extra unit. Expenses with no targets are skipped.
func ComputeExpenseBalances(expenses []Expense, allPlayerIDs []string) map[string]int64 {
	balance := make(map[string]int64)
	for _, e := range expenses {
		targets := e.Targets(allPlayerIDs)
		if len(targets) == 0 {
			continue
		}

		n := int64(len(targets))
		perPerson := floorDiv(e.Amount, n)
		remainder := e.Amount - perPerson*n

		balance[e.PayerID] += e.Amount
		for i, t := range targets {
			share := perPerson
			if int64(i) < remainder {
				share++
			}
			balance[t] -= share
		}
	}
	return balance
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
