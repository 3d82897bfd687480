package prefs

const (
	// MaxCategories bounds how many categories a user may select.
	MaxCategories = 3
	// FallbackCategory is used when the requested default is not allowed.
	FallbackCategory = "General"
)

// AllowList is the ordered set of category names users may choose from.
type AllowList struct {
	names []string
	index map[string]struct{}
}

func NewAllowList(names []string) AllowList {
	a := AllowList{index: make(map[string]struct{}, len(names))}
	for _, name := range names {
		if _, dup := a.index[name]; dup {
			continue
		}
		a.index[name] = struct{}{}
		a.names = append(a.names, name)
	}
	return a
}

func (a AllowList) Contains(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Names returns a copy of the allowed names in declaration order.
func (a AllowList) Names() []string {
	return append([]string(nil), a.names...)
}

type Preferences struct {
	Categories      []string `json:"categories"`
	DefaultCategory string   `json:"default_category"`
}

// Normalize never fails: unknown names are dropped, duplicates keep their
// first position, and anything past MaxCategories is discarded in input order.
func Normalize(rawCategories []string, rawDefault string, allow AllowList) Preferences {
	seen := make(map[string]struct{}, len(rawCategories))
	categories := make([]string, 0, MaxCategories)
	for _, name := range rawCategories {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if !allow.Contains(name) {
			continue
		}
		categories = append(categories, name)
		if len(categories) == MaxCategories {
			break
		}
	}

	defaultCategory := FallbackCategory
	if allow.Contains(rawDefault) {
		defaultCategory = rawDefault
	}

	return Preferences{Categories: categories, DefaultCategory: defaultCategory}
}
