package i18n

import (
	"sort"
	"strings"
	"testing"
)

func TestTextReturnsTemplateForEveryKey(t *testing.T) {
	for _, lang := range Languages() {
		tr := New(lang, "")
		for _, key := range Keys(lang) {
			want, _ := Lookup(lang, key)
			if got := tr.Text(key); got != want {
				t.Fatalf("Text(%q) in %s = %q, want %q", key, lang, got, want)
			}
		}
	}
}

func TestTextFallsBackToKey(t *testing.T) {
	tr := New("en", ".")
	if got := tr.Text("does_not_exist"); got != "does_not_exist" {
		t.Fatalf("Text(missing) = %q, want key", got)
	}
}

func TestTablesDefineTheSameKeys(t *testing.T) {
	ru := Keys("ru")
	en := Keys("en")
	sort.Strings(ru)
	sort.Strings(en)
	if strings.Join(ru, ",") != strings.Join(en, ",") {
		t.Fatalf("ru keys %v differ from en keys %v", ru, en)
	}
}

func TestSetLanguageSwitchesHelpText(t *testing.T) {
	tr := New("ru", "")
	ruHelp := tr.Text("help_text")

	if !tr.SetLanguage("en") {
		t.Fatal("SetLanguage(en) = false")
	}
	want, _ := Lookup("en", "help_text")
	got := tr.Text("help_text")
	if got != want {
		t.Fatalf("help_text = %q, want English template", got)
	}
	if got == ruHelp {
		t.Fatal("help_text still Russian after SetLanguage(en)")
	}
}

func TestSetLanguageRejectsUnknown(t *testing.T) {
	tr := New("en", "")
	if tr.SetLanguage("de") {
		t.Fatal("SetLanguage(de) = true, want false")
	}
	if tr.Language() != "en" {
		t.Fatalf("language = %q, want en", tr.Language())
	}
}

func TestNewFallsBackToRussian(t *testing.T) {
	if got := New("xx", "").Language(); got != "ru" {
		t.Fatalf("language = %q, want ru", got)
	}
}

func TestHelpTextRendersPrefix(t *testing.T) {
	tr := New("en", "!")
	help := tr.Text("help_text")
	if !strings.Contains(help, "`!ping`") {
		t.Fatalf("help text does not mention !ping: %q", help)
	}
	if strings.Contains(help, prefixToken) {
		t.Fatalf("help text still contains %s", prefixToken)
	}
}

func TestFormat(t *testing.T) {
	tr := New("en", "")
	if got := tr.Format("module_loaded", "hello"); got != "✅ Module hello loaded" {
		t.Fatalf("Format = %q", got)
	}
}
