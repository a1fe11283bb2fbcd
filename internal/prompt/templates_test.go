package prompt

import (
	"strings"
	"testing"
)

func TestForLocale_AllTemplatesRender(t *testing.T) {
	for _, locale := range Locales() {
		t.Run(string(locale), func(t *testing.T) {
			set, err := ForLocale(locale)
			if err != nil {
				t.Fatalf("ForLocale: %v", err)
			}

			condensed, err := set.Condense.Format(map[string]any{
				VarChatHistory: "Human: hi\nAssistant: hello",
				VarQuestion:    "and then?",
			})
			if err != nil {
				t.Fatalf("condense format: %v", err)
			}
			if !strings.Contains(condensed, "Human: hi\nAssistant: hello") || !strings.Contains(condensed, "and then?") {
				t.Errorf("condense prompt missing slots:\n%s", condensed)
			}

			answer, err := set.Answer.Format(map[string]any{
				VarContext:     "Paris is the capital of France.",
				VarChatHistory: "",
				VarQuestion:    "What is the capital of France?",
			})
			if err != nil {
				t.Fatalf("answer format: %v", err)
			}
			if !strings.Contains(answer, "Paris is the capital of France.") {
				t.Errorf("answer prompt missing context:\n%s", answer)
			}
			if strings.Contains(answer, "{question}") || strings.Contains(answer, "{context}") {
				t.Errorf("answer prompt has unreplaced slots:\n%s", answer)
			}
		})
	}
}

func TestForLocale_DefaultsToEnglish(t *testing.T) {
	set, err := ForLocale("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(set.Answer.Template, "DO NOT try to make up an answer") {
		t.Error("empty locale should select the strict English answer template")
	}
}

func TestForLocale_Unknown(t *testing.T) {
	if _, err := ForLocale("fr"); err == nil {
		t.Fatal("expected error for unknown locale")
	}
}

func TestForLocale_LocalizedAnswersDecline(t *testing.T) {
	declines := map[Locale]string{
		LocaleEnglish: "politely respond",
		LocaleKorean:  "정중하게 답하십시오",
		LocaleDutch:   "reageer dan beleefd",
	}
	for locale, phrase := range declines {
		set, err := ForLocale(locale)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(set.Answer.Template, phrase) {
			t.Errorf("%s answer template should decline unrelated questions", locale)
		}
	}
}
