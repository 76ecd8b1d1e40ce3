package core

// BalanceSummary is the derived or remotely-computed triple of total
// income, total expense, and net balance. Balance = Incomes - Expenses and
// may be negative.
type BalanceSummary struct {
	Incomes  Money
	Expenses Money
	Balance  Money
}

// Summarize computes the summary locally from the raw collections. Callers
// with a balance endpoint should prefer the remote value so the store's
// arithmetic wins; both agree on integer cents.
func Summarize(incomes []Income, expenses []Expense) BalanceSummary {
	var in, out Money
	for _, i := range incomes {
		in = in.Add(i.Amount)
	}
	for _, e := range expenses {
		out = out.Add(e.Amount)
	}
	return BalanceSummary{Incomes: in, Expenses: out, Balance: in.Sub(out)}
}
