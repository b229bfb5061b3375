package store

import (
	"context"
	"testing"

	"github.com/erazemk/labborrow/internal/db"
)

func TestCreateAndGetLab(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	lab, err := CreateLab(ctx, database, "Chemistry Lab")
	if err != nil {
		t.Fatalf("CreateLab: %v", err)
	}
	if lab.Name != "Chemistry Lab" || lab.ID == "" {
		t.Errorf("unexpected lab %+v", lab)
	}

	missing, err := GetLab(ctx, database, "nope")
	if err != nil {
		t.Fatalf("GetLab: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing lab")
	}
}

func TestListLabsOrderedByName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateLab(ctx, database, "Physics Lab")
	CreateLab(ctx, database, "Biology Lab")

	labs, err := ListLabs(ctx, database)
	if err != nil {
		t.Fatalf("ListLabs: %v", err)
	}
	if len(labs) != 2 {
		t.Fatalf("expected 2 labs, got %d", len(labs))
	}
	if labs[0].Name != "Biology Lab" {
		t.Errorf("expected Biology Lab first, got %q", labs[0].Name)
	}
}
