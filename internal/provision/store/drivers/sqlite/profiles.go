package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
)

type profilesRepo struct {
	q queryer
}

// profileDataColumns must stay in the order of profileDataRefs.
var profileDataColumns = []string{
	"full_name", "gender", "marital_status", "race", "religion",
	"date_of_birth", "born_place", "passport_number", "arc_number", "identity_card_number",
	"telephone_malaysia", "telephone_korea", "address_malaysia", "address_korea",
	"studying_place", "study_course", "study_level", "study_start_date", "study_end_date",
	"study_year", "ppmk_batch", "sponsorship", "sponsorship_address", "sponsorship_phone_number",
	"blood_type", "allergy", "medical_condition",
	"next_of_kin", "next_of_kin_relationship", "next_of_kin_contact_number",
}

func profileDataRefs(d *domain.ProfileData) []any {
	return []any{
		&d.FullName, &d.Gender, &d.MaritalStatus, &d.Race, &d.Religion,
		&d.DateOfBirth, &d.BornPlace, &d.PassportNumber, &d.ARCNumber, &d.IdentityCardNumber,
		&d.TelephoneMalaysia, &d.TelephoneKorea, &d.AddressMalaysia, &d.AddressKorea,
		&d.StudyingPlace, &d.StudyCourse, &d.StudyLevel, &d.StudyStartDate, &d.StudyEndDate,
		&d.StudyYear, &d.PPMKBatch, &d.Sponsorship, &d.SponsorshipAddress, &d.SponsorshipPhoneNumber,
		&d.BloodType, &d.Allergy, &d.MedicalCondition,
		&d.NextOfKin, &d.NextOfKinRelationship, &d.NextOfKinContactNumber,
	}
}

func profileDataValues(d domain.ProfileData) []any {
	refs := profileDataRefs(&d)
	vals := make([]any, len(refs))
	for i, ref := range refs {
		if v := *ref.(**string); v != nil {
			vals[i] = *v
		}
	}
	return vals
}

var profileColumns = "p.user_id, p.username, p.display_name, p.email, p.must_change_password, p.bio, p." +
	strings.Join(profileDataColumns, ", p.") + ", p.created_at, p.updated_at"

func (r *profilesRepo) Upsert(ctx context.Context, p domain.Profile) error {
	return r.insert(ctx, p, true)
}

func (r *profilesRepo) CreateIfAbsent(ctx context.Context, p domain.Profile) error {
	return r.insert(ctx, p, false)
}

func (r *profilesRepo) insert(ctx context.Context, p domain.Profile, replace bool) error {
	cols := append([]string{"user_id", "username", "display_name", "email", "must_change_password", "bio"}, profileDataColumns...)
	cols = append(cols, "created_at", "updated_at")

	onConflict := "DO NOTHING"
	if replace {
		sets := make([]string, 0, len(cols))
		for _, c := range cols {
			if c == "user_id" || c == "created_at" {
				continue
			}
			sets = append(sets, c+" = excluded."+c)
		}
		onConflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	args := []any{p.UserID, p.Username, p.DisplayName, p.Email, p.MustChangePassword, p.Bio}
	args = append(args, profileDataValues(p.Data)...)
	args = append(args, p.CreatedAt.UTC(), p.UpdatedAt.UTC())

	query := `INSERT INTO profiles (` + strings.Join(cols, ", ") + `)
		VALUES (?` + strings.Repeat(", ?", len(cols)-1) + `)
		ON CONFLICT (user_id) ` + onConflict

	_, err := r.q.ExecContext(ctx, query, args...)
	return err
}

func (r *profilesRepo) Get(ctx context.Context, userID string) (domain.Profile, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles p WHERE p.user_id = ?`, userID)

	var p domain.Profile
	if err := row.Scan(profileScanDest(&p)...); err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return p, nil
}

func (r *profilesRepo) SetMustChangePassword(ctx context.Context, userID string, v bool, at time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE profiles SET must_change_password = ?, updated_at = ? WHERE user_id = ?`, v, at.UTC(), userID))
}

func (r *profilesRepo) Search(ctx context.Context, query string, limit int) ([]domain.Member, error) {
	sqlq := `SELECT ` + profileColumns + `, COALESCE(ur.role, 'member')
		FROM profiles p
		LEFT JOIN user_roles ur ON ur.user_id = p.user_id`

	var args []any
	if q := strings.TrimSpace(query); q != "" {
		searchable := []string{
			"p.full_name", "p.display_name", "p.email", "p.username", "p.study_course",
			"p.study_level", "p.telephone_malaysia", "p.telephone_korea", "ur.role",
		}
		conds := make([]string, len(searchable))
		pattern := likePattern(q)
		for i, col := range searchable {
			conds[i] = "LOWER(COALESCE(" + col + ", '')) LIKE ? ESCAPE '\\'"
			args = append(args, pattern)
		}
		sqlq += ` WHERE ` + strings.Join(conds, " OR ")
	}

	sqlq += ` ORDER BY p.created_at DESC, p.user_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.q.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var (
			m    domain.Member
			role string
		)
		if err := rows.Scan(append(profileScanDest(&m.Profile), &role)...); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

func profileScanDest(p *domain.Profile) []any {
	dest := []any{&p.UserID, &p.Username, &p.DisplayName, &p.Email, &p.MustChangePassword, &p.Bio}
	dest = append(dest, profileDataRefs(&p.Data)...)
	return append(dest, &p.CreatedAt, &p.UpdatedAt)
}
