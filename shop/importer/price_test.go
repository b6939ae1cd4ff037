package importer

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		cell string
		want Price
		ok   bool
	}{
		{"79 990", Price{Text: "79 990"}, true},
		{"  1.299.990  ₽ ", Price{Text: "1.299.990 ₽"}, true},
		{"от 49 990", Price{Text: "49 990", From: true}, true},
		{"From $799", Price{Text: "$799", From: true}, true},
		{"По запросу", Price{Request: true}, true},
		{"on request", Price{Request: true}, true},
		{"уточняйте", Price{Request: true}, true},
		{"0", Price{}, false},
		{"0,00", Price{}, false},
		{"", Price{}, false},
		{"от", Price{}, false},
		{"отличная", Price{}, false},
		{"fromage 5", Price{}, false},
		{"-100", Price{}, false},
		{"n/a 1", Price{}, false},
		{"от -5", Price{}, false},
		{".", Price{}, false},
		{"7,99", Price{Text: "7,99"}, true},
		{"1 099 руб.", Price{Text: "1 099 руб."}, true},
		{"79990р", Price{Text: "79990р"}, true},
	}
	for _, tc := range cases {
		got, ok := ParsePrice(tc.cell)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParsePrice(%q) = %+v, %v; want %+v, %v", tc.cell, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"79 990":      79990,
		"1.299.990 ₽": 1299990,
		"1,299":       1299,
		"7,99":        7.99,
		"1.299,50":    1299.5,
		"$799":        799,
		"49 990 RUB":  49990,
	}
	for cell, want := range cases {
		got, err := parseAmount(cell)
		if err != nil || got != want {
			t.Errorf("parseAmount(%q) = %v, %v; want %v", cell, got, err, want)
		}
	}
	for _, cell := range []string{"", "-1", "12a", "n/a", "1-2"} {
		if _, err := parseAmount(cell); err == nil {
			t.Errorf("parseAmount(%q) must fail", cell)
		}
	}
}
