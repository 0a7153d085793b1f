package prompts

import (
	"strings"
	"testing"

	"github.com/voicedesk/callflow/internal/domain/call"
)

func TestFormatOrderNumberForSpeech(t *testing.T) {
	if got := FormatOrderNumberForSpeech("12345"); got != "1 2 3 4 5" {
		t.Fatalf("FormatOrderNumberForSpeech(12345) = %q", got)
	}
	if got := FormatOrderNumberForSpeech(""); got != "" {
		t.Fatalf("empty input must stay empty, got %q", got)
	}
}

func TestValidateOrderNumber(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"12345678", true},
		{"12", true},
		{"12345678901234567890", true},
		{"", false},
		{"1", false},
		{"123456789012345678901", false},
		{"12a45", false},
		{"12 45", false},
		{"12-45", false},
	}

	for _, tc := range cases {
		if got := ValidateOrderNumber(tc.input); got != tc.want {
			t.Errorf("ValidateOrderNumber(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestPick_UnknownLanguageFallsBackToGerman(t *testing.T) {
	if got := Greeting("fr"); got != Greeting(call.LanguageGerman) {
		t.Fatalf("unknown language must fall back to German")
	}
}

func TestStatusNarration_German(t *testing.T) {
	text := StatusNarration(call.LanguageGerman, StatusInfo{
		OrderNumber:         "1234",
		CustomerName:        "Max",
		AlreadyPaid:         "1680",
		FullAmount:          "3360",
		OrderDate:           "18.10.2025",
		ProductionStart:     "25.10.2025",
		ProductionMinWeeks:  8,
		ProductionMaxWeeks:  12,
		DeliveryWeek:        7,
		DeliveryYear:        2026,
		DeliveryWindowStart: "09.02.2026",
		DeliveryWindowEnd:   "15.02.2026",
	})

	for _, want := range []string{
		"1 2 3 4",
		"1680 Euro",
		"3360 Euro",
		"Max",
		"8 bis 12 Wochen",
		"Kalenderwoche 7/2026",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("German narration missing %q:\n%s", want, text)
		}
	}
}

func TestStatusNarration_English(t *testing.T) {
	text := StatusNarration(call.LanguageEnglish, StatusInfo{
		OrderNumber:        "1234",
		CustomerName:       "Max",
		AlreadyPaid:        "1680",
		FullAmount:         "3360",
		ProductionMinWeeks: 8,
		ProductionMaxWeeks: 12,
		DeliveryWeek:       7,
		DeliveryYear:       2026,
	})

	for _, want := range []string{"1234", "1680 Euros", "3360 Euros", "8 to 12 weeks", "week 7/2026"} {
		if !strings.Contains(text, want) {
			t.Errorf("English narration missing %q:\n%s", want, text)
		}
	}
}
