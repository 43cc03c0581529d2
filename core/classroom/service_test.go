package classroom_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/storage/database/inmem"
	"github.com/trezcool/kelasi/testutil"
)

type cacheMock struct {
	entries     map[int][]classroom.Class
	gets, sets  int
	invalidated []int
	getErr      error
}

func newCacheMock() *cacheMock {
	return &cacheMock{entries: make(map[int][]classroom.Class)}
}

func (c *cacheMock) GetClasses(_ context.Context, schoolID int) ([]classroom.Class, bool, error) {
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	classes, ok := c.entries[schoolID]
	return classes, ok, nil
}

func (c *cacheMock) SetClasses(_ context.Context, schoolID int, classes []classroom.Class) error {
	c.sets++
	c.entries[schoolID] = classes
	return nil
}

func (c *cacheMock) Invalidate(_ context.Context, schoolID int) error {
	c.invalidated = append(c.invalidated, schoolID)
	delete(c.entries, schoolID)
	return nil
}

type classServiceFixture struct {
	svc      *classroom.Service
	repo     classroom.Repository
	cache    *cacheMock
	schoolID int
}

func setupClassService(t *testing.T) classServiceFixture {
	store := inmemdb.NewStore(inmemdb.Open())
	sch := testutil.CreateSchool(t, store.Schools(), "Kelasi", "KEL")

	translator := core.NewTranslator()
	cache := newCacheMock()
	svc := classroom.NewService(store.Classes(), cache, testutil.NewLogger(t), core.NewValidator(translator), translator)
	return classServiceFixture{svc: svc, repo: store.Classes(), cache: cache, schoolID: sch.ID}
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := setupClassService(t)

	c1 := testutil.CreateClass(t, f.repo, f.schoolID, "6A", "2025-2026", 30, 30)
	c2 := testutil.CreateClass(t, f.repo, f.schoolID, "6B", "2025-2026", 30, 12)
	testutil.CreateClass(t, f.repo, f.schoolID, "6C", "2025-2026", 30, 0, false)

	classes, err := f.svc.List(ctx, f.schoolID, classroom.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, classes, 2)
	assert.Equal(t, c1.ID, classes[0].ID)
	assert.Equal(t, c2.ID, classes[1].ID)
	assert.Equal(t, 1, f.cache.sets)

	// served from cache
	classes, err = f.svc.List(ctx, f.schoolID, classroom.QueryFilter{WithSeats: true})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, c2.ID, classes[0].ID)
	assert.Equal(t, 1, f.cache.sets)
	assert.Equal(t, 2, f.cache.gets)
}

func TestService_List_cacheFailure(t *testing.T) {
	f := setupClassService(t)
	testutil.CreateClass(t, f.repo, f.schoolID, "6A", "2025-2026", 30, 0)
	f.cache.getErr = errors.New("connection refused")

	classes, err := f.svc.List(context.Background(), f.schoolID, classroom.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, classes, 1)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := setupClassService(t)

	tests := []struct {
		name       string
		nc         classroom.NewClass
		wantFields map[string]string
	}{
		{
			name: "valid",
			nc:   classroom.NewClass{SchoolID: f.schoolID, Label: "6A", Level: "Primary", SchoolYear: "2025-2026", MaxCapacity: 30},
		},
		{
			name: "invalid",
			nc:   classroom.NewClass{SchoolID: f.schoolID, Label: "6A", Level: "Primary", SchoolYear: "2025", MaxCapacity: -1},
			wantFields: map[string]string{
				"school_year":  "school_year must look like 2024-2025",
				"max_capacity": "max_capacity must be greater than 0",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, err := f.svc.Create(ctx, tt.nc)
			if tt.wantFields != nil {
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "Create() error = %v", err)
				assert.Equal(t, tt.wantFields, vErr.FieldMap())
				return
			}
			require.NoError(t, err)
			assert.True(t, class.IsActive)
			assert.Zero(t, class.CurrentOccupancy)
			assert.Equal(t, []int{f.schoolID}, f.cache.invalidated)
		})
	}
}

func TestService_Deactivate(t *testing.T) {
	ctx := context.Background()
	f := setupClassService(t)
	class := testutil.CreateClass(t, f.repo, f.schoolID, "6A", "2025-2026", 30, 0)

	_, err := f.svc.List(ctx, f.schoolID, classroom.QueryFilter{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(ctx, f.schoolID, class.ID))
	assert.Equal(t, []int{f.schoolID}, f.cache.invalidated)

	classes, err := f.svc.List(ctx, f.schoolID, classroom.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, classes)

	_, err = classroom.CheckAvailability(ctx, f.repo, f.schoolID, class.ID)
	assert.Equal(t, classroom.ErrUnavailable, err)

	assert.Equal(t, classroom.ErrNotFound, f.svc.Deactivate(ctx, f.schoolID, 404))
}
