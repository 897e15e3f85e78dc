package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		"  city  ", "  Toronto  ",
		"ignored", "   ",
		"   ", "empty key",
		"dangling",
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "city" || fields[0].String != "Toronto" {
		t.Fatalf("unexpected field: %+v", fields[0])
	}

	if got := StringFields(); len(got) != 0 {
		t.Fatalf("expected no fields, got %d", len(got))
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	l := WithFields(nil, zap.String("k", "v"))
	if l == nil {
		t.Fatal("expected a no-op logger")
	}
	l.Info("does not panic")
}

func TestWithAI(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithAI(zap.New(core), "gemini", " gemini-2.5-flash ").Info("generated")
	WithAI(zap.New(core), "static", "").Info("served")

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0].ContextMap()
	if first[FieldProvider] != "gemini" || first[FieldModel] != "gemini-2.5-flash" {
		t.Fatalf("unexpected ai fields: %+v", first)
	}

	second := entries[1].ContextMap()
	if _, ok := second[FieldModel]; ok {
		t.Fatalf("empty model must be omitted: %+v", second)
	}
}

func TestPersonaFields(t *testing.T) {
	fields := PersonaFields(3, " The Music Obsessive ")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != FieldPersonaID || fields[0].Integer != 3 {
		t.Fatalf("unexpected id field: %+v", fields[0])
	}
	if fields[1].Key != FieldPersonaName || fields[1].String != "The Music Obsessive" {
		t.Fatalf("unexpected name field: %+v", fields[1])
	}

	if got := PersonaFields(0, ""); len(got) != 1 {
		t.Fatalf("expected only the id field, got %d", len(got))
	}
}

func TestMaskToken(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"short":                "*****",
		"12345678":             "********",
		"bt_1700000000000_abc": "bt_1************_abc",
	}

	for in, want := range tests {
		if got := MaskToken(in); got != want {
			t.Fatalf("MaskToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProfileAndTokenFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	l := WithFields(zap.New(core), ProfileFields("p-1", 2)...)
	l.Info("saved", TokenField("bt_1700000000000_secretvalue"))

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldProfileID] != "p-1" || ctx[FieldPersonaID] != int64(2) {
		t.Fatalf("unexpected profile fields: %+v", ctx)
	}
	if ctx[FieldToken] == "bt_1700000000000_secretvalue" {
		t.Fatalf("token logged in clear")
	}
}
