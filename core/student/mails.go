package student

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/core/guardian"
)

type enrollmentConfirmationData struct {
	GuardianName string
	StudentName  string
	Matricule    string
	ClassLabel   string
	ClassLevel   string
	SchoolYear   string
	StudentURL   string
}

// sendEnrollmentConfirmation mails the primary guardian, when they have an email address.
// A reused guardian may have been submitted without email: the stored one is used then.
func (svc *Service) sendEnrollmentConfirmation(
	ctx context.Context,
	stu Student,
	class classroom.Class,
	guardianID int,
	payload *guardian.NewGuardian,
) {
	var to mail.Address
	if payload != nil && payload.Email != "" {
		to = mail.Address{Name: payload.FirstName + " " + payload.LastName, Address: payload.Email}
	} else {
		g, err := svc.store.Guardians().GetGuardian(ctx, stu.SchoolID, guardianID)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("student.Service: loading guardian %d: %v", guardianID, err), err)
			return
		}
		if g.Email == "" {
			return
		}
		to = mail.Address{Name: g.FullName(), Address: g.Email}
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{to},
		Subject:      "Enrollment of " + stu.FullName(),
		TemplateName: "enrollment_confirmation",
		TemplateData: enrollmentConfirmationData{
			GuardianName: to.Name,
			StudentName:  stu.FullName(),
			Matricule:    stu.Matricule,
			ClassLabel:   class.Label,
			ClassLevel:   class.Level,
			SchoolYear:   class.SchoolYear,
			StudentURL:   fmt.Sprintf("%s/students/%d", svc.frontendURL, stu.ID),
		},
	})
}
