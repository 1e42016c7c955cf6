package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProject(title string) Project {
	return Project{
		Title:        title,
		Description:  "A portfolio site",
		Image:        "https://img.example.com/p.png",
		Technologies: []string{"Go", " ", "React"},
		DemoLink:     "https://demo.example.com",
		GithubLink:   "https://github.com/example/p",
	}
}

func TestCollection_CreateListInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	projects := NewCollection[Project](KindProject, NewMemoryStore())

	for _, title := range []string{"Zeta", "Alpha", "Mid"} {
		created, err := projects.Create(ctx, sampleProject("  "+title+" "))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, title, created.Title)
		assert.Equal(t, []string{"Go", "React"}, created.Technologies)
		assert.False(t, created.CreatedAt.IsZero())
	}

	list, err := projects.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Zeta", list[0].Title)
	assert.Equal(t, "Alpha", list[1].Title)
	assert.Equal(t, "Mid", list[2].Title)
}

func TestCollection_KindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	projects := NewCollection[Project](KindProject, store)
	skills := NewCollection[Skill](KindSkill, store)

	created, err := projects.Create(ctx, sampleProject("Site"))
	require.NoError(t, err)

	_, err = skills.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := skills.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCollection_CreateValidates(t *testing.T) {
	projects := NewCollection[Project](KindProject, NewMemoryStore())

	_, err := projects.Create(context.Background(), Project{Title: "Only a title"})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))

	list, err := projects.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCollection_UpdateKeepsMeta(t *testing.T) {
	ctx := context.Background()
	projects := NewCollection[Project](KindProject, NewMemoryStore())
	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	created, err := projects.Create(ctx, sampleProject("Site"))
	require.NoError(t, err)
	projects.now = func() time.Time { return later }

	updated, err := projects.Update(ctx, created.ID, func(p *Project) error {
		p.Title = "Renamed"
		p.ID = "forged"
		p.CreatedAt = later
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, "Renamed", updated.Title)

	fetched, err := projects.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fetched.Title)
	assert.Equal(t, created.ID, fetched.ID)
}

func TestCollection_UpdateRejectsInvalidResult(t *testing.T) {
	ctx := context.Background()
	projects := NewCollection[Project](KindProject, NewMemoryStore())

	created, err := projects.Create(ctx, sampleProject("Site"))
	require.NoError(t, err)

	_, err = projects.Update(ctx, created.ID, func(p *Project) error {
		p.DemoLink = "javascript:alert(1)"
		return nil
	})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))

	fetched, err := projects.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://demo.example.com", fetched.DemoLink)

	_, err = projects.Update(ctx, "missing", func(*Project) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollection_Delete(t *testing.T) {
	ctx := context.Background()
	projects := NewCollection[Project](KindProject, NewMemoryStore())

	created, err := projects.Create(ctx, sampleProject("Site"))
	require.NoError(t, err)

	require.NoError(t, projects.Delete(ctx, created.ID))
	assert.ErrorIs(t, projects.Delete(ctx, created.ID), ErrNotFound)
}
