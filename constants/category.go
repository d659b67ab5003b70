package constants

// IRS tax-deduction category labels. These exact strings are stored in DB and
// surfaced in reports.
const (
	IRSMeals        = "Meals & Entertainment"
	IRSTravel       = "Travel"
	IRSOffice       = "Office Supplies"
	IRSVehicle      = "Vehicle Expenses"
	IRSUtilities    = "Utilities"
	IRSRent         = "Rent"
	IRSProfessional = "Professional Services"
	IRSSoftware     = "Software & Subscriptions"
	IRSMarketing    = "Marketing & Advertising"
	IRSInsurance    = "Insurance"
	IRSOther        = "Other Business Expenses"
)

// IRSCategories lists every IRS label, in display order.
var IRSCategories = []string{
	IRSMeals,
	IRSTravel,
	IRSOffice,
	IRSVehicle,
	IRSUtilities,
	IRSRent,
	IRSProfessional,
	IRSSoftware,
	IRSMarketing,
	IRSInsurance,
	IRSOther,
}

// DefaultCategory describes one entry of the seed set created lazily the
// first time a user has zero categories.
type DefaultCategory struct {
	Name        string
	IRSCategory string
	Color       string
}

// DefaultCategories is the fixed seed set for new users.
var DefaultCategories = []DefaultCategory{
	{Name: "Meals & Entertainment", IRSCategory: IRSMeals, Color: "#ef4444"},
	{Name: "Travel", IRSCategory: IRSTravel, Color: "#3b82f6"},
	{Name: "Office Supplies", IRSCategory: IRSOffice, Color: "#10b981"},
	{Name: "Vehicle Expenses", IRSCategory: IRSVehicle, Color: "#f59e0b"},
	{Name: "Utilities", IRSCategory: IRSUtilities, Color: "#8b5cf6"},
	{Name: "Rent", IRSCategory: IRSRent, Color: "#ec4899"},
	{Name: "Professional Services", IRSCategory: IRSProfessional, Color: "#06b6d4"},
	{Name: "Software & Subscriptions", IRSCategory: IRSSoftware, Color: "#6366f1"},
	{Name: "Marketing & Advertising", IRSCategory: IRSMarketing, Color: "#f97316"},
	{Name: "Insurance", IRSCategory: IRSInsurance, Color: "#84cc16"},
	{Name: "Other", IRSCategory: IRSOther, Color: "#6b7280"},
}

// UncategorizedLabel is the reporting bucket for receipts without a category.
const UncategorizedLabel = "Uncategorized"
