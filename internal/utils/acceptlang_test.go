package utils

import "testing"

func TestDetermineLocale_QueryParamWins(t *testing.T) {
	got := DetermineLocale("id-ID", "en-US,en;q=0.9,id;q=0.8")
	if got != "id" {
		t.Fatalf("want id, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguageOrder(t *testing.T) {
	got := DetermineLocale("", "en-US,en;q=0.9,id;q=0.8")
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguagePrefersHigherQ(t *testing.T) {
	got := DetermineLocale("", "id;q=0.9,en;q=0.8")
	if got != "id" {
		t.Fatalf("want id, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("", "fr-FR,es;q=0.9")
	if got != "en" {
		t.Fatalf("want en fallback, got %s", got)
	}
}

func TestDetermineLocale_GarbageQueryFallsThrough(t *testing.T) {
	got := DetermineLocale("??", "id")
	if got != "id" {
		t.Fatalf("want id from header, got %s", got)
	}
}
