package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
)

func TestProjectCreateDefaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := f.registerUser(t, "p@example.com")
	svc := NewProjectService(f.db)

	p, err := svc.Create(context.Background(), owner, &dto.CreateProjectRequest{Name: "  Garden  "})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name != "Garden" || p.ProjectType != models.ProjectTypeGeneric ||
		p.ProjectPriority != models.PriorityMedium || p.ProjectStatus != models.StatusPending {
		t.Errorf("Unexpected defaults: %+v", p)
	}
	if p.OwnerID != owner {
		t.Errorf("Expected owner %s, got %s", owner, p.OwnerID)
	}
}

func TestProjectCreateValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := f.registerUser(t, "pv@example.com")
	svc := NewProjectService(f.db)

	tests := []struct {
		name string
		req  dto.CreateProjectRequest
	}{
		{"empty name", dto.CreateProjectRequest{Name: "   "}},
		{"bad priority", dto.CreateProjectRequest{Name: "x", ProjectPriority: "critical"}},
		{"bad status", dto.CreateProjectRequest{Name: "x", ProjectStatus: "done"}},
		{"bad type", dto.CreateProjectRequest{Name: "x", ProjectType: "shared"}},
		{"second primary", dto.CreateProjectRequest{Name: "x", ProjectType: models.ProjectTypePrimary}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, &tt.req)
			assertCode(t, err, apperr.BadRequest, http.StatusBadRequest)
		})
	}
}

func TestPrimaryProjectRecreatedWhenMissing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := f.registerUser(t, "noprimary@example.com")
	svc := NewProjectService(f.db)

	if err := f.db.Where("owner_id = ? AND project_type = ?", owner, models.ProjectTypePrimary).
		Delete(&models.Project{}).Error; err != nil {
		t.Fatal(err)
	}

	p, err := svc.Create(ctx, owner, &dto.CreateProjectRequest{Name: "Inbox", ProjectType: models.ProjectTypePrimary})
	if err != nil {
		t.Fatalf("Expected primary project to be created, got %v", err)
	}
	if !p.IsPrimary() {
		t.Errorf("Expected primary type, got %q", p.ProjectType)
	}

	_, err = svc.Create(ctx, owner, &dto.CreateProjectRequest{Name: "Another", ProjectType: models.ProjectTypePrimary})
	assertCode(t, err, apperr.BadRequest, http.StatusBadRequest)

	primaries, err := svc.List(ctx, owner, dto.ProjectFilter{Type: models.ProjectTypePrimary})
	if err != nil {
		t.Fatal(err)
	}
	if len(primaries) != 1 {
		t.Errorf("Expected exactly one primary project, got %d", len(primaries))
	}
}

func TestProjectListOrderingAndFilters(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := f.registerUser(t, "pl@example.com")
	stranger := f.registerUser(t, "stranger@example.com")
	svc := NewProjectService(f.db)

	if _, err := svc.Create(ctx, owner, &dto.CreateProjectRequest{Name: "Work"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, owner, &dto.CreateProjectRequest{Name: "Homework", ProjectStatus: models.StatusOnProcess}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, stranger, &dto.CreateProjectRequest{Name: "Work"}); err != nil {
		t.Fatal(err)
	}

	all, err := svc.List(ctx, owner, dto.ProjectFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 projects, got %d", len(all))
	}
	if !all[0].IsPrimary() {
		t.Errorf("Expected primary project first, got %q", all[0].Name)
	}
	if all[1].Name != "Homework" || all[2].Name != "Work" {
		t.Errorf("Expected newest first after primary, got %q, %q", all[1].Name, all[2].Name)
	}
	for _, p := range all {
		if p.OwnerID != owner {
			t.Errorf("List leaked project %s of %s", p.ID, p.OwnerID)
		}
	}

	matched, err := svc.List(ctx, owner, dto.ProjectFilter{Query: "WORK"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 2 {
		t.Errorf("Expected 2 name matches, got %d", len(matched))
	}

	active, err := svc.List(ctx, owner, dto.ProjectFilter{Status: models.StatusOnProcess})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Name != "Homework" {
		t.Errorf("Expected only Homework, got %+v", active)
	}
}

func TestProjectOwnership(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := f.registerUser(t, "own@example.com")
	intruder := f.registerUser(t, "intruder@example.com")
	svc := NewProjectService(f.db)

	p, err := svc.Create(ctx, owner, &dto.CreateProjectRequest{Name: "Mine"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Get(ctx, intruder, p.ID)
	assertCode(t, err, apperr.Unauthorized, http.StatusForbidden)

	_, err = svc.Update(ctx, intruder, p.ID, &dto.UpdateProjectRequest{Name: ptr("Theirs")})
	assertCode(t, err, apperr.Unauthorized, http.StatusForbidden)

	err = svc.Delete(ctx, intruder, p.ID)
	assertCode(t, err, apperr.Unauthorized, http.StatusForbidden)

	got, err := svc.Get(ctx, owner, p.ID)
	if err != nil || got.Name != "Mine" {
		t.Errorf("Project should be untouched, got %+v, %v", got, err)
	}
}

func TestProjectUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := f.registerUser(t, "pu@example.com")
	svc := NewProjectService(f.db)

	p, err := svc.Create(ctx, owner, &dto.CreateProjectRequest{Name: "Old", Description: "keep"})
	if err != nil {
		t.Fatal(err)
	}

	high := models.PriorityHigh
	updated, err := svc.Update(ctx, owner, p.ID, &dto.UpdateProjectRequest{
		Name:            ptr("New"),
		ProjectPriority: &high,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "New" || updated.ProjectPriority != high || updated.Description != "keep" {
		t.Errorf("Unexpected result %+v", updated)
	}

	primary := models.ProjectTypePrimary
	_, err = svc.Update(ctx, owner, p.ID, &dto.UpdateProjectRequest{ProjectType: &primary})
	assertCode(t, err, apperr.BadRequest, 0)

	_, err = svc.Update(ctx, owner, p.ID, &dto.UpdateProjectRequest{Name: ptr("")})
	assertCode(t, err, apperr.BadRequest, 0)
}

func TestPrimaryProjectProtected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := f.registerUser(t, "prim@example.com")
	svc := NewProjectService(f.db)

	primary, err := svc.Primary(ctx, owner)
	if err != nil {
		t.Fatalf("Primary failed: %v", err)
	}

	err = svc.Delete(ctx, owner, primary.ID)
	assertCode(t, err, apperr.BadRequest, 0)

	archived := models.StatusArchived
	_, err = svc.Update(ctx, owner, primary.ID, &dto.UpdateProjectRequest{ProjectStatus: &archived})
	assertCode(t, err, apperr.BadRequest, 0)

	if _, err := svc.Update(ctx, owner, primary.ID, &dto.UpdateProjectRequest{Name: ptr("Personal")}); err != nil {
		t.Errorf("Renaming the primary project should be allowed: %v", err)
	}
}

func TestProjectDeleteRemovesTasks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	owner := f.registerUser(t, "pd@example.com")
	projects := NewProjectService(f.db)
	tasks := NewTaskService(f.db, nil)

	p, err := projects.Create(ctx, owner, &dto.CreateProjectRequest{Name: "Doomed"})
	if err != nil {
		t.Fatal(err)
	}
	parent, err := tasks.Create(ctx, owner, &dto.CreateTaskRequest{ProjectID: p.ID, Name: "parent"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tasks.Create(ctx, owner, &dto.CreateTaskRequest{ProjectID: p.ID, ParentTaskID: &parent.ID, Name: "child"}); err != nil {
		t.Fatal(err)
	}

	if err := projects.Delete(ctx, owner, p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var n int64
	f.db.Model(&models.Task{}).Where("project_id = ?", p.ID).Count(&n)
	if n != 0 {
		t.Errorf("Expected tasks to be deleted, %d left", n)
	}
	_, err = projects.Get(ctx, owner, p.ID)
	assertCode(t, err, apperr.NotFound, http.StatusNotFound)
}
