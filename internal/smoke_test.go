package main

import (
	"os"
	"testing"

	schemagen "github.com/blimu-dev/schema-gen"
)

func TestValidateSpec_NoFile(t *testing.T) {
	// Smoke: ensure the facade builds and ValidateSpec errors on missing file
	if _, err := os.Stat("/no/such/file.yaml"); err == nil {
		t.Fatal("expected no file")
	}
	if err := schemagen.ValidateSpec("/no/such/file.yaml"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateForTypes_NoRoots(t *testing.T) {
	if err := schemagen.GenerateForTypes("./...", t.TempDir()+"/schemas.yaml"); err == nil {
		t.Fatal("expected error without root types")
	}
}
