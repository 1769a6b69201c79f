package i18n

import "testing"

func TestTranslationLookup(t *testing.T) {
	en := New("en")
	if got := en.T("finish_selection"); got != "Finish Selection" {
		t.Errorf("en finish_selection = %q", got)
	}

	zh := New("zh")
	if got := zh.T("finish_selection"); got != "完成选择" {
		t.Errorf("zh finish_selection = %q", got)
	}
}

func TestMissingKeyFallsBackToKeyName(t *testing.T) {
	s := New("zh")
	if got := s.T("no_such_key"); got != "no_such_key" {
		t.Errorf("missing key should return key name, got %q", got)
	}
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	s := New("fr")
	if s.Lang() != "en" {
		t.Errorf("lang = %q, want en", s.Lang())
	}
}

func TestTemplateArgs(t *testing.T) {
	s := New("en")
	if got := s.T("render_failed", "boom"); got != "Failed to render diagram: boom" {
		t.Errorf("render_failed = %q", got)
	}
}
