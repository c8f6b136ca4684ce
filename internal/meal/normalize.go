package meal

import "strings"

// Payload is the body of POST /meals and PUT /meals/{id}.
type Payload struct {
	MealName string `json:"meal_name"`
	MealType string `json:"meal_type"`
	MealDate string `json:"meal_date"`
	MealID   string `json:"meal_id"`
	Calories int    `json:"calories"`
	IsVeg    bool   `json:"isVeg"`
}

// Row is a planned-meal record as the backend returns it. See UnmarshalJSON
// for the shapes accepted on decode.
type Row struct {
	ID string `json:"id"`
	Payload
}

// CatalogEntry is a recipe as known to the catalog. Search results carry
// the full detail; filter-by-origin results only ID, Name and Image.
type CatalogEntry struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Image          string   `json:"image"`
	Classification string   `json:"classification"`
	Area           string   `json:"area"`
	Ingredients    []string `json:"ingredients,omitempty"`
	Instructions   string   `json:"instructions,omitempty"`
	Calories       int      `json:"calories,omitempty"`
}

// meatKeywords mark a catalog classification as Non-Veg.
var meatKeywords = []string{"chicken", "beef", "pork", "lamb", "goat", "mutton", "fish", "seafood"}

// ClassifyDiet derives the diet from a free-text catalog classification.
func ClassifyDiet(classification string) DietCategory {
	c := strings.ToLower(classification)
	for _, kw := range meatKeywords {
		if strings.Contains(c, kw) {
			return NonVeg
		}
	}
	return Veg
}

// FromRow normalizes a backend row. Rows with an unknown meal_type keep
// an empty MealTime and are not slottable.
func FromRow(r Row) Meal {
	slot, _ := ParseMealTime(r.MealType)
	return Meal{
		ID:           r.ID,
		CatalogID:    r.MealID,
		Name:         strings.TrimSpace(r.MealName),
		MealTime:     slot,
		DietCategory: DietFromFlag(r.IsVeg),
		Calories:     nonNegative(r.Calories),
		Date:         DateOnly(r.MealDate),
	}
}

// FromRows normalizes a list of backend rows.
func FromRows(rows []Row) []Meal {
	out := make([]Meal, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromRow(r))
	}
	return out
}

// FromCatalog normalizes a catalog entry into an unslotted meal.
// The catalog has no calorie data, so Calories stays 0 unless the entry
// comes from a source that knows it.
func FromCatalog(e CatalogEntry) Meal {
	m := Meal{
		CatalogID:      e.ID,
		Name:           strings.TrimSpace(e.Name),
		Image:          e.Image,
		DietCategory:   ClassifyDiet(e.Classification),
		Calories:       nonNegative(e.Calories),
		Area:           e.Area,
		Classification: e.Classification,
		Instructions:   e.Instructions,
	}
	if len(e.Ingredients) > 0 {
		m.Ingredients = append([]string(nil), e.Ingredients...)
	}
	return m
}

// ToPayload derives the backend body for a slotted meal.
func ToPayload(m Meal) Payload {
	return Payload{
		MealName: m.Name,
		MealType: string(m.MealTime),
		MealDate: m.Date,
		MealID:   m.CatalogID,
		Calories: nonNegative(m.Calories),
		IsVeg:    m.DietCategory.IsVeg(),
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
