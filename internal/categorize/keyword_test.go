package categorize

import (
	"testing"

	"github.com/receiptvault/receiptvault/constants"
	"github.com/receiptvault/receiptvault/internal/extract"
)

func TestKeyword(t *testing.T) {
	t.Run("merchant keyword match", func(t *testing.T) {
		s := Keyword("Starbucks Coffee #1234", nil, nil)
		if s == nil {
			t.Fatal("expected a suggestion")
		}
		if s.CategoryName != constants.IRSMeals {
			t.Errorf("category = %q, want %q", s.CategoryName, constants.IRSMeals)
		}
		// "starbucks" and "coffee" both hit
		if s.Confidence != 2.0/3 {
			t.Errorf("confidence = %v, want 2/3", s.Confidence)
		}
		if s.CategoryID != "" {
			t.Error("no existing categories were supplied, ID must be empty")
		}
	})

	t.Run("item names contribute", func(t *testing.T) {
		items := []extract.LineItem{
			{Name: "Printer paper", Price: 12.99, Quantity: 1},
			{Name: "Ink cartridge", Price: 34.99, Quantity: 2},
		}
		s := Keyword("Generic Retailer", items, nil)
		if s == nil {
			t.Fatal("expected a suggestion")
		}
		if s.CategoryName != constants.IRSOffice {
			t.Errorf("category = %q, want %q", s.CategoryName, constants.IRSOffice)
		}
	})

	t.Run("confidence caps at one", func(t *testing.T) {
		s := Keyword("cafe restaurant coffee food dining", nil, nil)
		if s == nil {
			t.Fatal("expected a suggestion")
		}
		if s.Confidence != 1 {
			t.Errorf("confidence = %v, want 1", s.Confidence)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if s := Keyword("Zzyzx Holdings", nil, nil); s != nil {
			t.Errorf("unexpected suggestion %+v", s)
		}
	})

	t.Run("empty merchant", func(t *testing.T) {
		if s := Keyword("", nil, nil); s != nil {
			t.Errorf("unexpected suggestion %+v", s)
		}
	})

	t.Run("tie goes to first defined set", func(t *testing.T) {
		// "gas" votes for travel, "shell" for vehicle; one hit each, and
		// travel is defined first
		s := Keyword("Shell gas", nil, nil)
		if s == nil {
			t.Fatal("expected a suggestion")
		}
		if s.CategoryName != constants.IRSTravel {
			t.Errorf("category = %q, want %q", s.CategoryName, constants.IRSTravel)
		}
	})

	t.Run("adopts matching existing category", func(t *testing.T) {
		existing := []CategoryRef{
			{ID: "cat-1", Name: "Dining Out", IRSCategory: constants.IRSMeals},
			{ID: "cat-2", Name: "Fuel", IRSCategory: constants.IRSVehicle},
		}
		s := Keyword("Pizza Bar", nil, existing)
		if s == nil {
			t.Fatal("expected a suggestion")
		}
		if s.CategoryID != "cat-1" {
			t.Errorf("category id = %q, want cat-1", s.CategoryID)
		}
		if s.CategoryName != "Dining Out" {
			t.Errorf("category name = %q", s.CategoryName)
		}
	})

	t.Run("proposes new category when nothing matches existing", func(t *testing.T) {
		existing := []CategoryRef{{ID: "cat-9", Name: "Travel", IRSCategory: constants.IRSTravel}}
		s := Keyword("Adobe subscription", nil, existing)
		if s == nil {
			t.Fatal("expected a suggestion")
		}
		if s.CategoryID != "" {
			t.Errorf("category id = %q, want empty (proposal)", s.CategoryID)
		}
		if s.CategoryName != constants.IRSSoftware {
			t.Errorf("category name = %q", s.CategoryName)
		}
		if s.IRSCategory != constants.IRSSoftware {
			t.Errorf("irs label = %q", s.IRSCategory)
		}
	})
}
