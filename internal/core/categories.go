package core

// Default categories seeded once at storage initialization. The seed is
// versioned configuration data: the migration that applies it and this list
// must stay in sync. Deleting any of these ids is rejected at the
// repository boundary.
var DefaultCategories = []Category{
	{ID: "income_salary", Name: "Salary", Type: Income, Color: "#1E88E5"},
	{ID: "income_investment", Name: "Investment", Type: Income, Color: "#7CB342"},
	{ID: "income_bonus", Name: "Bonus", Type: Income, Color: "#FFB300"},
	{ID: "other", Name: "Other", Type: Income, Color: "#757575"},
	{ID: "expense_groceries", Name: "Groceries", Type: Expense, Color: "#E53935"},
	{ID: "expense_bills", Name: "Bills", Type: Expense, Color: "#5E35B1"},
	{ID: "expense_entertainment", Name: "Entertainment", Type: Expense, Color: "#FF7043"},
	{ID: "expense_travel", Name: "Travel", Type: Expense, Color: "#039BE5"},
	{ID: "expense_shopping", Name: "Shopping", Type: Expense, Color: "#EC407A"},
	{ID: "expense_health", Name: "Health", Type: Expense, Color: "#00ACC1"},
	{ID: "expense_transport", Name: "Transport", Type: Expense, Color: "#43A047"},
}

// IsDefaultCategory reports whether id belongs to the seeded set.
func IsDefaultCategory(id string) bool {
	for _, c := range DefaultCategories {
		if c.ID == id {
			return true
		}
	}
	return false
}
