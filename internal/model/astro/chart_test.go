package astro

import (
	"errors"
	"strings"
	"testing"
)

func TestChartLookupCaseInsensitive(t *testing.T) {
	chart := Chart{
		"sun": {Name: "Sun", Quality: "Cardinal", Element: "Fire", Sign: "Aries", Position: 1.2, House: "First"},
	}

	for _, name := range []string{"sun", "Sun", "SUN"} {
		if _, ok := chart.Lookup(name); !ok {
			t.Errorf("Lookup(%q) missed", name)
		}
	}

	if _, ok := chart.Lookup("Mars"); ok {
		t.Error("Lookup must miss for absent bodies")
	}
}

func TestBodyRecordValidate(t *testing.T) {
	valid := BodyRecord{Name: "Moon", Quality: "Cardinal", Element: "Water", Sign: "Cancer", Position: 0, House: "Tenth"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	for _, field := range []string{"name", "quality", "element", "sign", "house"} {
		record := valid
		switch field {
		case "name":
			record.Name = ""
		case "quality":
			record.Quality = " "
		case "element":
			record.Element = ""
		case "sign":
			record.Sign = ""
		case "house":
			record.House = ""
		}

		err := record.Validate()
		if !errors.Is(err, ErrMissingAttribute) {
			t.Fatalf("missing %s: err = %v, want ErrMissingAttribute", field, err)
		}
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not name the missing field %s", err, field)
		}
	}
}
