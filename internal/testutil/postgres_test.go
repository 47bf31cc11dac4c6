package testutil

import (
	"errors"
	"strings"
	"testing"
)

func TestGuardStartRecoversProviderPanic(t *testing.T) {
	pg, err := guardStart(func() (*Postgres, error) {
		panic("rootless Docker not found")
	})
	if pg != nil {
		t.Fatalf("Expected no container, got %+v", pg)
	}
	if err == nil || !strings.Contains(err.Error(), "rootless Docker not found") {
		t.Fatalf("Expected recovered panic as error, got %v", err)
	}
}

func TestGuardStartPassesThroughErrors(t *testing.T) {
	want := errors.New("pull failed")
	_, err := guardStart(func() (*Postgres, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Expected %v, got %v", want, err)
	}
}

func TestTerminateSharedWithoutStart(t *testing.T) {
	if err := TerminateShared(t.Context()); err != nil {
		t.Fatalf("TerminateShared: %v", err)
	}
}
