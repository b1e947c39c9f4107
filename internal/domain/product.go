package domain

const (
	CategoryLaptops     = "laptops"
	CategoryDesktops    = "desktops"
	CategoryGaming      = "gaming"
	CategoryMonitors    = "monitors"
	CategoryAccessories = "accessories"
	CategoryAllInOne    = "all-in-one"
)

// Categories is the closed set, in the order the storefront shows them.
var Categories = []string{
	CategoryLaptops,
	CategoryDesktops,
	CategoryGaming,
	CategoryMonitors,
	CategoryAccessories,
	CategoryAllInOne,
}

var categoryTitles = map[string]string{
	CategoryLaptops:     "Laptops",
	CategoryDesktops:    "Desktops",
	CategoryGaming:      "Gaming PCs",
	CategoryMonitors:    "Monitors",
	CategoryAccessories: "Accessories",
	CategoryAllInOne:    "All-in-One PCs",
}

const (
	ConditionNew         = "New"
	ConditionRefurbished = "Refurbished"
	ConditionExUK        = "Ex-UK"
)

var Conditions = []string{ConditionNew, ConditionRefurbished, ConditionExUK}

func IsCategory(s string) bool {
	_, ok := categoryTitles[s]
	return ok
}

func IsCondition(s string) bool {
	for _, c := range Conditions {
		if c == s {
			return true
		}
	}
	return false
}

// CategoryTitle falls back to "Products" for anything outside the set.
func CategoryTitle(category string) string {
	if t, ok := categoryTitles[category]; ok {
		return t
	}
	return "Products"
}
