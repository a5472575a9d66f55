package catalog

import "testing"

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range All() {
		if p.ID == "" {
			t.Fatal("descriptor with empty id")
		}
		if seen[p.ID] {
			t.Fatalf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestLookup(t *testing.T) {
	for _, p := range All() {
		got, ok := Lookup(p.ID)
		if !ok {
			t.Fatalf("Lookup(%q) not found", p.ID)
		}
		if got.ID != p.ID {
			t.Fatalf("Lookup(%q) returned descriptor for %q", p.ID, got.ID)
		}
	}

	if _, ok := Lookup("does-not-exist"); ok {
		t.Fatal("Lookup of unknown id succeeded")
	}
}

func TestDefaultExists(t *testing.T) {
	d := Default()
	if d.ID != DefaultID {
		t.Fatalf("Default().ID = %q, want %q", d.ID, DefaultID)
	}
}

func TestModelsEmptyOnlyForFreeFormProvider(t *testing.T) {
	for _, p := range All() {
		if len(p.Models) > 0 {
			continue
		}
		// A provider without curated models must accept a free-form model
		// id through extra configuration.
		var hasModelField bool
		for _, f := range p.ExtraFields {
			if f.Key == "modelId" {
				hasModelField = true
			}
		}
		if !hasModelField {
			t.Errorf("provider %q has no models and no modelId extra field", p.ID)
		}
	}
}

func TestCloudProvidersDeclareRequiredFields(t *testing.T) {
	tests := []struct {
		provider string
		field    string
	}{
		{Azure, "resourceName"},
		{Bedrock, "secretAccessKey"},
		{Bedrock, "region"},
		{Vertex, "project"},
		{Vertex, "location"},
		{OpenAICompatible, "baseURL"},
	}

	for _, tt := range tests {
		desc, ok := Lookup(tt.provider)
		if !ok {
			t.Fatalf("provider %q missing from catalogue", tt.provider)
		}
		found := false
		for _, f := range desc.ExtraFields {
			if f.Key == tt.field && f.Required {
				found = true
			}
		}
		if !found {
			t.Errorf("provider %q does not require extra field %q", tt.provider, tt.field)
		}
	}
}

func TestCredentialModes(t *testing.T) {
	for _, id := range []string{Vertex, Ollama} {
		desc, _ := Lookup(id)
		if desc.RequiresAPIKey {
			t.Errorf("provider %q should not require an API key", id)
		}
	}
	for _, id := range []string{OpenAI, Anthropic, Azure, OpenAICompatible} {
		desc, _ := Lookup(id)
		if !desc.RequiresAPIKey {
			t.Errorf("provider %q should require an API key", id)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0].ID = "mutated"
	if second := All(); second[0].ID == "mutated" {
		t.Fatal("All() exposed internal descriptor slice")
	}
}
