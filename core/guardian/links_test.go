package guardian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildLinks(t *testing.T) {
	payloads := []NewGuardian{
		{Relationship: RelMother, CanPickUp: true},
		{Relationship: RelFather},
		{Relationship: RelOther},
	}

	tests := []struct {
		name        string
		guardianIDs []int
		want        []Link
	}{
		{name: "no guardian", want: []Link{}},
		{
			name:        "first is primary",
			guardianIDs: []int{4, 7},
			want: []Link{
				{StudentID: 1, GuardianID: 4, Relationship: RelMother, IsPrimary: true, CanPickUp: true, IsActive: true},
				{StudentID: 1, GuardianID: 7, Relationship: RelFather, IsActive: true},
			},
		},
		{
			name:        "repeated guardian",
			guardianIDs: []int{4, 4, 9},
			want: []Link{
				{StudentID: 1, GuardianID: 4, Relationship: RelMother, IsPrimary: true, CanPickUp: true, IsActive: true},
				{StudentID: 1, GuardianID: 9, Relationship: RelOther, IsActive: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildLinks(1, tt.guardianIDs, payloads))
		})
	}
}

func TestReconcile(t *testing.T) {
	mother := Link{ID: 10, StudentID: 1, GuardianID: 4, Relationship: RelMother, IsPrimary: true, CanPickUp: true, IsActive: true}
	father := Link{ID: 11, StudentID: 1, GuardianID: 7, Relationship: RelFather, IsActive: true}
	uncle := Link{ID: 12, StudentID: 1, GuardianID: 9, Relationship: RelOther, IsActive: false}

	tests := []struct {
		name    string
		current []Link
		desired []Link
		want    Plan
	}{
		{
			name:    "nothing changes",
			current: []Link{mother, father},
			desired: []Link{
				{GuardianID: 4, Relationship: RelMother, IsPrimary: true, CanPickUp: true},
				{GuardianID: 7, Relationship: RelFather},
			},
			want: Plan{},
		},
		{
			name:    "new guardian",
			current: []Link{mother},
			desired: []Link{
				{StudentID: 1, GuardianID: 4, Relationship: RelMother, IsPrimary: true, CanPickUp: true},
				{ID: 99, StudentID: 1, GuardianID: 8, Relationship: RelLegalGuardian},
			},
			want: Plan{
				Insert: []Link{{StudentID: 1, GuardianID: 8, Relationship: RelLegalGuardian, IsActive: true}},
			},
		},
		{
			name:    "guardian dropped",
			current: []Link{mother, father},
			desired: []Link{{GuardianID: 7, Relationship: RelFather, IsPrimary: true}},
			want: Plan{
				Deactivate: []Link{{ID: 10, StudentID: 1, GuardianID: 4, Relationship: RelMother, CanPickUp: true}},
				Update:     []Link{{ID: 11, StudentID: 1, GuardianID: 7, Relationship: RelFather, IsPrimary: true, IsActive: true}},
			},
		},
		{
			name:    "inactive link comes back",
			current: []Link{mother, uncle},
			desired: []Link{
				{GuardianID: 4, Relationship: RelMother, IsPrimary: true, CanPickUp: true},
				{GuardianID: 9, Relationship: RelOther},
			},
			want: Plan{
				Update: []Link{{ID: 12, StudentID: 1, GuardianID: 9, Relationship: RelOther, IsActive: true}},
			},
		},
		{
			name:    "inactive link stays inactive",
			current: []Link{mother, uncle},
			desired: []Link{{GuardianID: 4, Relationship: RelMother, IsPrimary: true, CanPickUp: true}},
			want:    Plan{},
		},
		{
			name:    "repeated guardian",
			current: nil,
			desired: []Link{
				{GuardianID: 4, Relationship: RelMother, IsPrimary: true},
				{GuardianID: 4, Relationship: RelOther},
			},
			want: Plan{
				Insert: []Link{{GuardianID: 4, Relationship: RelMother, IsPrimary: true, IsActive: true}},
			},
		},
		{
			name:    "all dropped",
			current: []Link{mother},
			desired: nil,
			want: Plan{
				Deactivate: []Link{{ID: 10, StudentID: 1, GuardianID: 4, Relationship: RelMother, CanPickUp: true}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.current, tt.desired)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.IsEmpty(), got.IsEmpty())
		})
	}
}
