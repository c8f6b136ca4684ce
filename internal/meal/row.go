package meal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UnmarshalJSON accepts rows from backends that store ids as integers,
// isVeg as 0/1 and calories as null or a numeric string.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       json.RawMessage `json:"id"`
		MealName *string         `json:"meal_name"`
		MealType *string         `json:"meal_type"`
		MealDate *string         `json:"meal_date"`
		MealID   json.RawMessage `json:"meal_id"`
		Calories json.RawMessage `json:"calories"`
		IsVeg    json.RawMessage `json:"isVeg"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := looseString(raw.ID)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	mealID, err := looseString(raw.MealID)
	if err != nil {
		return fmt.Errorf("meal_id: %w", err)
	}
	calories, err := looseInt(raw.Calories)
	if err != nil {
		return fmt.Errorf("calories: %w", err)
	}
	isVeg, err := looseBool(raw.IsVeg)
	if err != nil {
		return fmt.Errorf("isVeg: %w", err)
	}

	*r = Row{
		ID: id,
		Payload: Payload{
			MealName: deref(raw.MealName),
			MealType: deref(raw.MealType),
			MealDate: deref(raw.MealDate),
			MealID:   mealID,
			Calories: calories,
			IsVeg:    isVeg,
		},
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// looseString takes a JSON string or number.
func looseString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("want string or number, got %s", raw)
	}
	return n.String(), nil
}

// looseInt takes a JSON number or numeric string; fractions are rounded.
func looseInt(raw json.RawMessage) (int, error) {
	s, err := looseString(raw)
	if err != nil || s == "" {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("want number, got %s", raw)
	}
	return int(math.Round(f)), nil
}

// looseBool takes a JSON bool, a number (non-zero is true) or a string
// strconv.ParseBool understands.
func looseBool(raw json.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	s, err := looseString(raw)
	if err != nil {
		return false, fmt.Errorf("want bool, got %s", raw)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0, nil
	}
	b, err = strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("want bool, got %s", raw)
	}
	return b, nil
}
