package types

import (
	"reflect"
	"testing"
)

func TestDomainsFirstSeenOrder(t *testing.T) {
	tabs := []TabRef{
		{URL: "https://b.example.com/x"},
		{URL: "https://a.example.com/"},
		{URL: "https://b.example.com/y"},
		{URL: "about:blank"},
		{URL: "::not a url"},
	}
	got := Domains(tabs)
	want := []string{"b.example.com", "a.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Domains = %v, want %v", got, want)
	}
}

func TestRecordProvenance(t *testing.T) {
	if !(WindowRecord{Provenance: ProvenancePreserved}).IsNative() {
		t.Error("preserved record should be native")
	}
	if (WindowRecord{Provenance: ProvenanceSaved}).IsNative() {
		t.Error("saved record should not be native")
	}
	if !(WindowRecord{Provenance: ProvenanceOpen}).IsOpen() {
		t.Error("open record should be open")
	}
}
