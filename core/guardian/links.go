package guardian

// Plan is the set of writes that turns the current links of a student into the desired ones.
type Plan struct {
	Deactivate []Link
	Insert     []Link
	Update     []Link
}

func (p Plan) IsEmpty() bool {
	return len(p.Deactivate) == 0 && len(p.Insert) == 0 && len(p.Update) == 0
}

// Reconcile diffs the current links of a student (active or not) against the desired ones, keyed by guardian.
//   - an active link that is not desired anymore is deactivated;
//   - a desired link with no counterpart is inserted;
//   - a desired link matching an existing one is updated when its attributes differ or it was inactive.
//
// Desired links are expected active; the first one wins when a guardian is listed twice.
func Reconcile(current, desired []Link) Plan {
	var plan Plan

	byGuardian := make(map[int]Link, len(current))
	for _, l := range current {
		byGuardian[l.GuardianID] = l
	}

	wanted := make(map[int]bool, len(desired))
	for _, d := range desired {
		if wanted[d.GuardianID] {
			continue
		}
		wanted[d.GuardianID] = true
		d.IsActive = true

		cur, ok := byGuardian[d.GuardianID]
		if !ok {
			d.ID = 0
			plan.Insert = append(plan.Insert, d)
			continue
		}
		if cur.sameAttrs(d) {
			continue
		}
		cur.Relationship = d.Relationship
		cur.IsPrimary = d.IsPrimary
		cur.CanPickUp = d.CanPickUp
		cur.IsActive = true
		plan.Update = append(plan.Update, cur)
	}

	for _, cur := range current {
		if cur.IsActive && !wanted[cur.GuardianID] {
			cur.IsActive = false
			cur.IsPrimary = false
			plan.Deactivate = append(plan.Deactivate, cur)
		}
	}
	return plan
}

// BuildLinks turns resolved guardian ids into the links of a student, in submission order.
// The first guardian is primary; repeated ids are linked once.
func BuildLinks(studentID int, guardianIDs []int, payloads []NewGuardian) []Link {
	links := make([]Link, 0, len(guardianIDs))
	seen := make(map[int]bool, len(guardianIDs))
	for i, gid := range guardianIDs {
		if seen[gid] {
			continue
		}
		seen[gid] = true
		links = append(links, Link{
			StudentID:    studentID,
			GuardianID:   gid,
			Relationship: payloads[i].Relationship,
			IsPrimary:    len(links) == 0,
			CanPickUp:    payloads[i].CanPickUp,
			IsActive:     true,
		})
	}
	return links
}
