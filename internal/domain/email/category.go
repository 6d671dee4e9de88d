package email

import "strings"

type Category string

const (
	CategoryNewsletter           Category = "newsletter"
	CategoryPromotional          Category = "promotional"
	CategorySocial               Category = "social"
	CategoryAutomated            Category = "automated"
	CategoryPotentiallyImportant Category = "potentially_important"
	CategoryUncategorized        Category = "uncategorized"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryNewsletter,
	CategoryPromotional,
	CategorySocial,
	CategoryAutomated,
	CategoryPotentiallyImportant,
	CategoryUncategorized,
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryNewsletter, CategoryPromotional, CategorySocial,
		CategoryAutomated, CategoryPotentiallyImportant, CategoryUncategorized:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory maps free-form model output onto a known category.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.IsValid() {
		return c
	}
	return CategoryUncategorized
}
