package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kelasi/apps/api/echo"
	"github.com/trezcool/kelasi/core/guardian"
	"github.com/trezcool/kelasi/core/student"
	"github.com/trezcool/kelasi/testutil"
)

func enrollRequest(classID int, email string) student.EnrollRequest {
	return student.EnrollRequest{
		Student: student.NewStudent{
			LastName:  "Kabila",
			FirstName: "Esther",
			Sex:       student.SexFemale,
			BirthDate: "2014-06-30",
			Email:     email,
		},
		Guardians: []guardian.NewGuardian{
			{LastName: "Kabila", FirstName: "Ruth", Phone: "0820000000", Email: "ruth@mail.cd", Relationship: guardian.RelMother},
			{}, // blank: skipped
		},
		ClassID: classID,
	}
}

func TestStudentAPI_enroll(t *testing.T) {
	env := setup(t)
	path := "/v1/students"
	class := testutil.CreateClass(t, env.store.Classes(), env.schoolID, "5B", "2025-2026", 2, 1)
	full := testutil.CreateClass(t, env.store.Classes(), env.schoolID, "5C", "2025-2026", 10, 10)
	closed := testutil.CreateClass(t, env.store.Classes(), env.schoolID, "5D", "2025-2026", 10, 0, false)

	registrar := getToken(t, env.conf, env.schoolID, false, echoapi.RoleRegistrar)
	teacher := getToken(t, env.conf, env.schoolID, false, echoapi.RoleTeacher)

	invalid := enrollRequest(0, "")
	invalid.Student.Sex = ""

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, enrollRequest(class.ID, "")),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "teacher",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, enrollRequest(class.ID, "")),
			token:    teacher,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "invalid",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, invalid),
			token:    registrar,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"sex":      "this field is required",
				"class_id": "this field is required",
			}),
		},
		{
			name:     "full class",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, enrollRequest(full.ID, "")),
			token:    registrar,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "class has no seat left", Kind: "capacity_exceeded"}),
		},
		{
			name:     "inactive class",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, enrollRequest(closed.ID, "")),
			token:    registrar,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, httpErr{Error: "class is no longer available", Kind: "class_unavailable"}),
		},
		{
			name:     "unknown class",
			method:   http.MethodPost,
			path:     path,
			body:     marchallObj(t, enrollRequest(999, "")),
			token:    registrar,
			wantCode: http.StatusUnprocessableEntity,
			wantData: marchallObj(t, httpErr{Error: "class is no longer available", Kind: "class_unavailable"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
	// nothing was written by the failed attempts
	assert.Zero(t, env.db.Counts().Students)

	t.Run("success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, registrar, marchallObj(t, enrollRequest(class.ID, "esther@mail.cd")))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res student.EnrollmentResult
		unmarshallBody(t, rec, &res)
		assert.Equal(t, "TJG250001", res.Matricule)
		assert.Equal(t, class.ID, res.ClassID)
		assert.Equal(t, "2025-2026", res.SchoolYear)
		assert.Len(t, res.GuardianIDs, 1)

		stu, err := env.store.Students().GetStudent(context.Background(), env.schoolID, res.StudentID)
		require.NoError(t, err)
		assert.Equal(t, 7, stu.CreatedBy)
		assert.Len(t, env.mailer.SentMessages(), 1)
	})

	t.Run("duplicate email", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: student.ErrDuplicateEmail.Error(), Kind: "duplicate_email"}),
		}
		req, rec := newAuthRequest(http.MethodPost, path, registrar, marchallObj(t, enrollRequest(class.ID, "Esther@Mail.cd")))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("last seat taken", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "class has no seat left", Kind: "capacity_exceeded"}),
		}
		req, rec := newAuthRequest(http.MethodPost, path, registrar, marchallObj(t, enrollRequest(class.ID, "")))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func TestStudentAPI_detail(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	class := testutil.CreateClass(t, env.store.Classes(), env.schoolID, "4A", "2025-2026", 30, 0)
	next := testutil.CreateClass(t, env.store.Classes(), env.schoolID, "5A", "2026-2027", 30, 0)

	registrar := getToken(t, env.conf, env.schoolID, false, echoapi.RoleRegistrar)
	teacher := getToken(t, env.conf, env.schoolID, false, echoapi.RoleTeacher)
	otherSchool := getToken(t, env.conf, env.schoolID+100, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/students", registrar, marchallObj(t, enrollRequest(class.ID, "")))
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res student.EnrollmentResult
	unmarshallBody(t, rec, &res)
	path := fmt.Sprintf("/v1/students/%d", res.StudentID)

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, teacher)
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var details student.Details
		unmarshallBody(t, rec, &details)
		assert.Equal(t, res.Matricule, details.Matricule)
		assert.Len(t, details.Guardians, 1)
		assert.True(t, details.Guardians[0].IsPrimary)
		assert.Len(t, details.Enrollments, 1)
	})

	notFound := marchallObj(t, httpErr{Error: student.ErrNotFound.Error(), Kind: "not_found"})
	tests := []httpTest{
		{
			name:     "other school",
			method:   http.MethodGet,
			path:     path,
			token:    otherSchool,
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "unknown",
			method:   http.MethodGet,
			path:     "/v1/students/999",
			token:    teacher,
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "malformed id",
			method:   http.MethodGet,
			path:     "/v1/students/abc",
			token:    teacher,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "stale update",
			method:   http.MethodPut,
			path:     path,
			body:     marchallObj(t, student.UpdateStudent{NewStudent: enrollRequest(0, "").Student, Version: 5}),
			token:    registrar,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: student.ErrStaleVersion.Error(), Kind: "stale_version"}),
		},
		{
			name:     "update by teacher",
			method:   http.MethodPut,
			path:     path,
			body:     marchallObj(t, student.UpdateStudent{NewStudent: enrollRequest(0, "").Student, Version: 1}),
			token:    teacher,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "re-enroll in same class",
			method:   http.MethodPost,
			path:     path + "/enrollments",
			body:     marchallObj(t, echoapi.ReenrollRequest{ClassID: class.ID}),
			token:    registrar,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: student.ErrAlreadyEnrolled.Error(), Kind: "already_enrolled"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update", func(t *testing.T) {
		data := student.UpdateStudent{NewStudent: enrollRequest(0, "").Student, Version: 1}
		data.City = "Kolwezi"
		data.Guardians = []guardian.NewGuardian{
			{LastName: "Kabila", FirstName: "Paul", Phone: "0970000000", Relationship: guardian.RelFather},
		}
		req, rec := newAuthRequest(http.MethodPut, path, registrar, marchallObj(t, data))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var stu student.Student
		unmarshallBody(t, rec, &stu)
		assert.Equal(t, "Kolwezi", stu.City)
		assert.Equal(t, 2, stu.Version)

		links, err := env.store.Guardians().QueryLinks(ctx, res.StudentID)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.False(t, links[0].IsActive) // the mother was dropped
		assert.True(t, links[1].IsActive)
	})

	t.Run("re-enroll", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path+"/enrollments", registrar, marchallObj(t, echoapi.ReenrollRequest{ClassID: next.ID}))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var enr student.Enrollment
		unmarshallBody(t, rec, &enr)
		assert.Equal(t, next.ID, enr.ClassID)
		assert.Equal(t, "2026-2027", enr.SchoolYear)

		cls, err := env.store.Classes().GetClass(ctx, env.schoolID, next.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, cls.CurrentOccupancy)
	})
}
