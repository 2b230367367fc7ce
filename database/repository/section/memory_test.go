package sectionRepo

import (
	"context"
	"errors"
	"testing"

	"folio/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func section(userID string, t models.SectionType, order int) models.Document {
	return models.Document{
		"id":      models.SectionID(userID, t),
		"userId":  userID,
		"type":    string(t),
		"title":   string(t),
		"order":   order,
		"visible": true,
		"data":    map[string]interface{}{},
	}
}

func TestCreateIfAbsentKeepsExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySectionRepo()

	first := section("u1", models.SectionIntro, 0)
	first["title"] = "Hello"
	if err := repo.CreateIfAbsent(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateIfAbsent(ctx, section("u1", models.SectionIntro, 3)); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByType(ctx, "u1", models.SectionIntro)
	if err != nil {
		t.Fatal(err)
	}
	if got["title"] != "Hello" || got["order"] != 0 {
		t.Fatalf("existing section overwritten: %v", got)
	}
}

func TestSetFieldMissingSection(t *testing.T) {
	repo := NewMemorySectionRepo()
	err := repo.SetField(context.Background(), "u1", models.SectionSkills, "title", "x", "now")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetFieldNested(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySectionRepo()
	_ = repo.Replace(ctx, section("u1", models.SectionIntro, 0))

	if err := repo.SetField(ctx, "u1", models.SectionIntro, "data.headline", "Engineer", "ts"); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetByType(ctx, "u1", models.SectionIntro)
	data := got["data"].(map[string]interface{})
	if data["headline"] != "Engineer" || got["lastUpdated"] != "ts" {
		t.Fatalf("unexpected document %v", got)
	}
}

func TestApplyLayoutIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySectionRepo()
	_ = repo.Replace(ctx, section("u1", models.SectionIntro, 0))
	_ = repo.Replace(ctx, section("u1", models.SectionSkills, 1))

	err := repo.ApplyLayout(ctx, "u1", []models.LayoutPatch{
		{Type: models.SectionIntro, Order: 1, Visible: true},
		{Type: models.SectionProjects, Order: 0, Visible: true},
	}, "ts")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, _ := repo.GetByType(ctx, "u1", models.SectionIntro)
	if got["order"] != 0 {
		t.Fatalf("partial layout applied: %v", got)
	}

	err = repo.ApplyLayout(ctx, "u1", []models.LayoutPatch{
		{Type: models.SectionIntro, Order: 1, Visible: false},
		{Type: models.SectionSkills, Order: 0, Visible: true},
	}, "ts")
	if err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetByType(ctx, "u1", models.SectionIntro)
	if got["order"] != 1 || got["visible"] != false {
		t.Fatalf("layout not applied: %v", got)
	}
}

func TestListByUserIsScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySectionRepo()
	_ = repo.Replace(ctx, section("u1", models.SectionIntro, 0))
	_ = repo.Replace(ctx, section("u2", models.SectionIntro, 0))
	_ = repo.Replace(ctx, section("u2", models.SectionSkills, 1))

	docs, err := repo.ListByUser(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(docs))
	}
	for _, d := range docs {
		if d["userId"] != "u2" {
			t.Fatalf("leaked section %v", d)
		}
	}
}

func TestDecodeDocumentFlattensDriverTypes(t *testing.T) {
	raw := bson.M{
		"_id":   primitive.NewObjectID(),
		"order": int32(2),
		"data":  primitive.M{"items": primitive.A{int64(1), primitive.D{{Key: "name", Value: "x"}}}},
	}
	doc := decodeDocument(raw)
	if _, ok := doc["_id"]; ok {
		t.Fatal("_id should be dropped")
	}
	if doc["order"] != 2 {
		t.Fatalf("order = %#v", doc["order"])
	}
	items := doc["data"].(map[string]interface{})["items"].([]interface{})
	if items[0] != 1 || items[1].(map[string]interface{})["name"] != "x" {
		t.Fatalf("unexpected items %#v", items)
	}
}

func TestFromFirestoreConvertsIntegers(t *testing.T) {
	got := fromFirestore(map[string]interface{}{"order": int64(2), "items": []interface{}{int64(1)}})
	m := got.(map[string]interface{})
	if m["order"] != 2 || m["items"].([]interface{})[0] != 1 {
		t.Fatalf("unexpected conversion %v", m)
	}
}
