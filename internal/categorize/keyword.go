package categorize

import (
	"strings"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/extract"
)

// keywordSet maps one category name to the substrings that vote for it.
// Order matters: the highest score wins and ties go to the first-defined set.
type keywordSet struct {
	name     string
	keywords []string
}

var keywordSets = []keywordSet{
	{constants.IRSMeals, []string{
		"restaurant", "cafe", "coffee", "food", "dining", "lunch", "dinner",
		"starbucks", "mcdonald", "subway", "pizza", "bar", "grill", "bistro",
	}},
	{constants.IRSTravel, []string{
		"hotel", "motel", "airline", "flight", "uber", "lyft", "taxi", "gas",
		"fuel", "parking", "rental car", "airbnb", "booking", "expedia",
	}},
	{constants.IRSOffice, []string{
		"office", "staples", "depot", "supplies", "paper", "printer", "ink",
		"pens", "notebooks", "folders", "desk",
	}},
	{constants.IRSVehicle, []string{
		"gas station", "shell", "chevron", "exxon", "bp", "tire", "auto",
		"car wash", "repair", "maintenance",
	}},
	{constants.IRSUtilities, []string{
		"electric", "gas company", "water", "internet", "phone", "cable",
		"utility", "power", "at&t", "verizon", "comcast",
	}},
	{constants.IRSRent, []string{
		"rent", "lease", "landlord", "apartment", "office space",
	}},
	{constants.IRSProfessional, []string{
		"lawyer", "attorney", "accountant", "consultant", "legal", "cpa",
		"advisory", "professional",
	}},
	{constants.IRSSoftware, []string{
		"software", "subscription", "saas", "adobe", "microsoft", "apple",
		"cloud", "hosting", "domain", "github", "slack", "zoom",
	}},
	{constants.IRSMarketing, []string{
		"advertising", "marketing", "google ads", "facebook ads", "promotion",
		"seo", "social media",
	}},
	{constants.IRSInsurance, []string{
		"insurance", "premium", "coverage", "policy",
	}},
}

// Keyword scores the merchant name and item names against the fixed keyword
// table and returns the best-guess category, or nil when nothing matches.
// Pure and deterministic; no I/O.
func Keyword(merchant string, items []extract.LineItem, existing []CategoryRef) *Suggestion {
	var b strings.Builder
	b.WriteString(merchant)
	for _, item := range items {
		b.WriteByte(' ')
		b.WriteString(item.Name)
	}
	searchText := strings.ToLower(b.String())

	bestName := ""
	bestScore := 0
	for _, set := range keywordSets {
		score := 0
		for _, kw := range set.keywords {
			if strings.Contains(searchText, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			bestName = set.name
			bestScore = score
		}
	}
	if bestScore == 0 {
		return nil
	}

	confidence := float64(bestScore) / 3
	if confidence > 1 {
		confidence = 1
	}

	// Prefer an existing category whose name (case-insensitive) or IRS label
	// matches the winning keyword set.
	for _, cat := range existing {
		if strings.EqualFold(cat.Name, bestName) || cat.IRSCategory == bestName {
			return &Suggestion{
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
				Confidence:   confidence,
				IRSCategory:  cat.IRSCategory,
			}
		}
	}

	// Propose a new category; the keyword-set name doubles as the IRS label.
	return &Suggestion{
		CategoryName: bestName,
		Confidence:   confidence,
		IRSCategory:  bestName,
	}
}
