package student

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kelasi/core"
)

func TestNewStudent_Validate(t *testing.T) {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)

	valid := func() NewStudent {
		return NewStudent{
			LastName:  "  Mukendi ",
			FirstName: "Grace",
			Sex:       "female",
			BirthDate: " 2015-03-14 ",
			Email:     " Grace@Kelasi.CD ",
		}
	}

	tests := []struct {
		name       string
		mutate     func(ns *NewStudent)
		wantFields []string
	}{
		{name: "valid", mutate: func(ns *NewStudent) {}},
		{name: "missing sex", mutate: func(ns *NewStudent) { ns.Sex = "" }, wantFields: []string{"sex"}},
		{name: "unknown sex", mutate: func(ns *NewStudent) { ns.Sex = "x" }, wantFields: []string{"sex"}},
		{name: "bad birth date", mutate: func(ns *NewStudent) { ns.BirthDate = "14/03/2015" }, wantFields: []string{"birth_date"}},
		{
			name:       "missing names",
			mutate:     func(ns *NewStudent) { ns.LastName, ns.FirstName = " ", "" },
			wantFields: []string{"last_name", "first_name"},
		},
		{name: "bad email", mutate: func(ns *NewStudent) { ns.Email = "grace" }, wantFields: []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := valid()
			tt.mutate(&ns)
			err := ns.Validate(validate)
			var fields []string
			for _, fe := range core.TranslateValidationErrors(err, translator) {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}

	ns := valid()
	assert.NoError(t, ns.Validate(validate))
	assert.Equal(t, "Mukendi", ns.LastName)
	assert.Equal(t, SexFemale, ns.Sex)
	assert.Equal(t, "grace@kelasi.cd", ns.Email)
	assert.Equal(t, time.Date(2015, 3, 14, 0, 0, 0, 0, time.UTC), ns.ParsedBirthDate())
}

func TestNormalizeSex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"M", "M"},
		{"male", "M"},
		{" Female ", "F"},
		{"o", "O"},
		{"OTHER", "O"},
		{"", ""},
		{" x ", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeSex(tt.in))
		})
	}
}

func TestStudent_FullName(t *testing.T) {
	s := Student{FirstName: "Grace", LastName: "Mukendi"}
	assert.Equal(t, "Grace Mukendi", s.FullName())
	s.MiddleName = "Ilunga"
	assert.Equal(t, "Grace Ilunga Mukendi", s.FullName())
}
