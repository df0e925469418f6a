package services

import (
	"context"
	"errors"
	"testing"
)

func TestLLMConfigService_ChainOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewLLMConfigService(db)
	ctx := context.Background()

	mustCreate := func(req *CreateLLMConfigRequest) uint {
		t.Helper()
		cfg, err := svc.Create(ctx, req)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", req.Name, err)
		}
		return cfg.ID
	}

	mustCreate(&CreateLLMConfigRequest{Name: "low", Model: "m1", Priority: 5, IsActive: true})
	mustCreate(&CreateLLMConfigRequest{Name: "high", Model: "m2", Priority: 1, IsActive: true})
	mustCreate(&CreateLLMConfigRequest{Name: "off", Model: "m3", Priority: 0, IsActive: false})
	mustCreate(&CreateLLMConfigRequest{Name: "default", Model: "m4", Priority: 9, IsActive: true, IsDefault: true})

	chain, err := svc.Chain(ctx)
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}

	var names []string
	for _, c := range chain {
		names = append(names, c.Name)
	}
	expected := []string{"default", "high", "low"}
	if len(names) != len(expected) {
		t.Fatalf("Chain() = %v, expected %v", names, expected)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Chain()[%d] = %q, expected %q", i, names[i], expected[i])
		}
	}
}

func TestLLMConfigService_SingleDefault(t *testing.T) {
	db := newTestDB(t)
	svc := NewLLMConfigService(db)
	ctx := context.Background()

	first, err := svc.Create(ctx, &CreateLLMConfigRequest{Name: "a", Model: "m", IsActive: true, IsDefault: true})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Create(ctx, &CreateLLMConfigRequest{Name: "b", Model: "m", IsActive: true})
	if err != nil {
		t.Fatal(err)
	}

	makeDefault := true
	if _, err := svc.Update(ctx, second.ID, &UpdateLLMConfigRequest{IsDefault: &makeDefault}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	reloaded, err := svc.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.IsDefault {
		t.Error("previous default should have been cleared")
	}
}

func TestLLMConfigService_MasksKey(t *testing.T) {
	db := newTestDB(t)
	svc := NewLLMConfigService(db)

	cfg, err := svc.Create(context.Background(), &CreateLLMConfigRequest{
		Name: "k", Model: "m", APIKey: "sk-1234567890abcd", IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKeyMask != "sk-1****abcd" {
		t.Errorf("APIKeyMask = %q, expected %q", cfg.APIKeyMask, "sk-1****abcd")
	}
}

func TestLLMConfigService_DeleteMissing(t *testing.T) {
	db := newTestDB(t)
	svc := NewLLMConfigService(db)

	err := svc.Delete(context.Background(), 42)
	if !errors.Is(err, ErrLLMConfigNotFound) {
		t.Errorf("Delete() error = %v, expected ErrLLMConfigNotFound", err)
	}
}
