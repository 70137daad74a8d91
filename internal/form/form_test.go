package form

import (
	"net/url"
	"testing"
)

func TestRequired(t *testing.T) {
	f := New(url.Values{
		"present": {"value"},
		"blank":   {"   "},
	}, nil)

	f.Required("present", "blank", "absent")

	if f.Valid() {
		t.Fatal("form reported valid")
	}
	if _, ok := f.Errors["present"]; ok {
		t.Error("present field failed Required")
	}
	if _, ok := f.Errors["blank"]; !ok {
		t.Error("whitespace-only field passed Required")
	}
	if _, ok := f.Errors["absent"]; !ok {
		t.Error("absent field passed Required")
	}
}

func TestTypedRules(t *testing.T) {
	f := New(url.Values{
		"good_int":   {"42"},
		"bad_int":    {"forty-two"},
		"good_float": {"3.14"},
		"bad_float":  {"pi"},
		"good_email": {"user@example.com"},
		"bad_email":  {"not-an-address"},
		"good_date":  {"2025-06-01"},
		"bad_date":   {"June 1st"},
	}, nil)

	f.Int("good_int").Int("bad_int").
		Float("good_float").Float("bad_float").
		Email("good_email").Email("bad_email").
		Date("good_date", "2006-01-02").Date("bad_date", "2006-01-02")

	for _, field := range []string{"good_int", "good_float", "good_email", "good_date"} {
		if msg, ok := f.Errors[field]; ok {
			t.Errorf("%s failed: %s", field, msg)
		}
	}
	for _, field := range []string{"bad_int", "bad_float", "bad_email", "bad_date"} {
		if _, ok := f.Errors[field]; !ok {
			t.Errorf("%s passed validation", field)
		}
	}
}

func TestTypedRulesSkipAbsentFields(t *testing.T) {
	f := New(url.Values{}, nil)
	f.Int("n").Float("x").Email("e").Date("d", "2006-01-02").In("c", "a", "b")
	if !f.Valid() {
		t.Errorf("absent optional fields failed validation: %v", f.Errors)
	}
}

func TestMaxLen(t *testing.T) {
	f := New(url.Values{
		"short":   {"abc"},
		"long":    {"abcdef"},
		"unicode": {"héllo"}, // 5 runes, 6 bytes
	}, nil)

	f.MaxLen("short", 5).MaxLen("long", 5).MaxLen("unicode", 5)

	if _, ok := f.Errors["short"]; ok {
		t.Error("short value failed MaxLen")
	}
	if _, ok := f.Errors["long"]; !ok {
		t.Error("long value passed MaxLen")
	}
	if _, ok := f.Errors["unicode"]; ok {
		t.Error("MaxLen counted bytes instead of runes")
	}
}

func TestIn(t *testing.T) {
	f := New(url.Values{
		"ok":  {"open"},
		"bad": {"bogus"},
	}, nil)

	f.In("ok", "open", "closed").In("bad", "open", "closed")

	if _, ok := f.Errors["ok"]; ok {
		t.Error("allowed choice failed In")
	}
	if _, ok := f.Errors["bad"]; !ok {
		t.Error("disallowed choice passed In")
	}
}

func TestFirstErrorWins(t *testing.T) {
	f := New(url.Values{}, nil)
	f.Required("field").Int("field")

	if f.Errors["field"] != "This field is required" {
		t.Errorf("error = %q, want the Required message", f.Errors["field"])
	}
}

func TestGetters(t *testing.T) {
	f := New(url.Values{
		"n": {" 42 "},
		"x": {"2.5"},
		"s": {"  padded  "},
	}, nil)

	if got := f.Get("s"); got != "padded" {
		t.Errorf("Get = %q, want trimmed value", got)
	}
	if got := f.GetInt("n"); got != 42 {
		t.Errorf("GetInt = %d, want 42", got)
	}
	if got := f.GetFloat("x"); got != 2.5 {
		t.Errorf("GetFloat = %v, want 2.5", got)
	}
	if !f.Has("n") || f.Has("missing") {
		t.Error("Has gave the wrong answer")
	}
}
