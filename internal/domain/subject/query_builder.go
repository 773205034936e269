package subject

import (
	"fmt"
	"strings"

	"github.com/ombhardwajj/avni-server/internal/platform/query"
)

const (
	joinGender           = "gender"
	joinSubjectType      = "subjectType"
	joinEncounter        = "encounter"
	joinProgramEnrolment = "programEnrolment"
	joinProgramEncounter = "programEncounter"
)

var joinClauses = map[string]string{
	joinGender:           "LEFT OUTER JOIN gender ON i.gender_id = gender.id",
	joinSubjectType:      "LEFT OUTER JOIN subject_type st ON i.subject_type_id = st.id AND st.is_voided IS FALSE",
	joinEncounter:        "INNER JOIN encounter e ON e.individual_id = i.id AND e.is_voided IS FALSE",
	joinProgramEnrolment: "INNER JOIN program_enrolment penr ON penr.individual_id = i.id AND penr.is_voided IS FALSE",
	joinProgramEncounter: "INNER JOIN program_encounter pe ON pe.program_enrolment_id = penr.id AND pe.is_voided IS FALSE",
}

const fullNameExpr = "cast(concat_ws(' ', i.first_name, i.middle_name, i.last_name) AS text)"

// sortColumns maps the sortable result fields onto expressions in the select list.
var sortColumns = map[string]string{
	"id":          "i.id",
	"firstName":   "i.first_name",
	"lastName":    "i.last_name",
	"fullName":    `"fullName"`,
	"dateOfBirth": "i.date_of_birth",
}

// CustomFieldAlias names the result column projecting the n-th custom field.
func CustomFieldAlias(n int) string {
	return fmt.Sprintf("customField%d", n)
}

// ResultQuery renders the paginated select for req. When st is non-nil its
// name is selected as a literal and the subject_type join is left out.
func ResultQuery(req SearchRequest, st *SubjectType) (query.Statement, error) {
	b := newSearch(req, st)

	cols := []string{
		`i.id AS "id"`,
		`i.first_name AS "firstName"`,
		`i.last_name AS "lastName"`,
		`i.profile_picture AS "profilePicture"`,
		fullNameExpr + ` AS "fullName"`,
		`i.uuid AS "uuid"`,
		`i.address_id AS "addressId"`,
	}
	if st != nil {
		cols = append(cols, query.Literal(st.Name)+` AS "subjectTypeName"`)
	} else {
		cols = append(cols, `st.name AS "subjectTypeName"`)
	}
	cols = append(cols, `gender.name AS "gender"`, `i.date_of_birth AS "dateOfBirth"`)
	for n, conceptUUID := range req.CustomFields {
		alias := CustomFieldAlias(n)
		cols = append(cols, fmt.Sprintf("i.observations ->> @%s AS %s", alias, query.Ident(alias)))
		b.Bind(alias, conceptUUID)
	}
	b.Select(cols...)

	sortExpr, ok := sortColumns[req.PageElement.SortColumn]
	if !ok {
		sortExpr = "i.id"
	}
	dir := "ASC"
	if strings.EqualFold(req.PageElement.SortOrder, "desc") {
		dir = "DESC"
	}
	b.OrderBy(sortExpr + " " + dir)
	if sortExpr != "i.id" {
		b.OrderBy("i.id ASC")
	}

	b.Page(req.PageElement.limit(), req.PageElement.offset())
	return b.Build()
}

// CountQuery renders the count of subjects matching req.
func CountQuery(req SearchRequest, st *SubjectType) (query.Statement, error) {
	b := newSearch(req, st)
	if oneToManyJoined(b) {
		return b.BuildCount("DISTINCT i.id")
	}
	return b.BuildCount("*")
}

func newSearch(req SearchRequest, st *SubjectType) *query.Builder {
	b := query.New("individual i")
	b.Join(joinGender, joinClauses[joinGender])
	if st == nil {
		b.Join(joinSubjectType, joinClauses[joinSubjectType])
	}

	if !req.IncludeVoided {
		b.Where("i.is_voided IS FALSE", nil)
	}
	withName(b, req.Name)
	for n, cf := range req.Concept {
		withConcept(b, n, cf)
	}
	withSearchAll(b, req.SearchAll)
	if st != nil {
		b.Where("i.subject_type_id = @subjectTypeId", query.Params{"subjectTypeId": st.ID})
	}
	if len(req.Gender) > 0 {
		b.Where("gender.uuid = ANY(@genders)", query.Params{"genders": req.Gender})
	}
	withAge(b, req.Age)

	withRange(b, req.RegistrationDate, "registrationDate", "i.registration_date", "", "")
	withRange(b, req.EncounterDate, "encounterDate", "e.encounter_date_time", "", joinEncounter)
	withRange(b, req.ProgramEnrolmentDate, "programEnrolmentDate", "penr.enrolment_date_time", "trim", joinProgramEnrolment)
	withRange(b, req.ProgramEncounterDate, "programEncounterDate", "pe.encounter_date_time", "", joinProgramEncounter)

	if len(req.AddressIDs) > 0 {
		b.Where("i.address_id = ANY(@addressIds)", query.Params{"addressIds": req.AddressIDs})
	}

	if oneToManyJoined(b) {
		b.Distinct()
	}
	return b
}

func oneToManyJoined(b *query.Builder) bool {
	return b.HasJoin(joinEncounter) || b.HasJoin(joinProgramEnrolment) || b.HasJoin(joinProgramEncounter)
}

// joinFor adds the join behind key along with anything it depends on.
func joinFor(b *query.Builder, key string) {
	switch key {
	case "":
		return
	case joinProgramEncounter:
		b.Join(joinProgramEnrolment, joinClauses[joinProgramEnrolment])
	}
	b.Join(key, joinClauses[key])
}

func withName(b *query.Builder, name string) {
	for n, token := range strings.Fields(name) {
		p := fmt.Sprintf("name%d", n)
		b.Where(
			fmt.Sprintf("(i.first_name ILIKE @%[1]s OR i.middle_name ILIKE @%[1]s OR i.last_name ILIKE @%[1]s)", p),
			query.Params{p: "%" + token + "%"},
		)
	}
}

func withSearchAll(b *query.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.Where(
		"("+fullNameExpr+" ILIKE @searchAll OR cast(i.observations AS text) ILIKE @searchAll)",
		query.Params{"searchAll": "%" + text + "%"},
	)
}

func withAge(b *query.Builder, age *AgeRange) {
	if age == nil {
		return
	}
	if age.MinValue != nil {
		b.Where("date_part('year', age(i.date_of_birth)) >= @ageMin", query.Params{"ageMin": *age.MinValue})
	}
	if age.MaxValue != nil {
		b.Where("date_part('year', age(i.date_of_birth)) <= @ageMax", query.Params{"ageMax": *age.MaxValue})
	}
}

// withRange adds the bounds of r on column, activating join first. The
// enrolment date bounds are trimmed before casting.
func withRange(b *query.Builder, r *DateRange, param, column, fn, join string) {
	if r.IsEmpty() {
		return
	}
	joinFor(b, join)
	cast := func(p string) string {
		if fn != "" {
			return fmt.Sprintf("cast(%s(@%s) AS date)", fn, p)
		}
		return fmt.Sprintf("cast(@%s AS date)", p)
	}
	if r.HasMin() {
		p := param + "Min"
		b.Where(column+" >= "+cast(p), query.Params{p: strings.TrimSpace(*r.MinValue)})
	}
	if r.HasMax() {
		p := param + "Max"
		b.Where(column+" <= "+cast(p), query.Params{p: strings.TrimSpace(*r.MaxValue)})
	}
}

var scopeAliases = map[string]struct{ alias, join string }{
	ScopeRegistration:     {"i", ""},
	ScopeEncounter:        {"e", joinEncounter},
	ScopeProgramEnrolment: {"penr", joinProgramEnrolment},
	ScopeProgramEncounter: {"pe", joinProgramEncounter},
}

func withConcept(b *query.Builder, n int, cf ConceptFilter) {
	scope, ok := scopeAliases[cf.SearchScope]
	if !ok {
		scope = scopeAliases[ScopeRegistration]
	}

	p := fmt.Sprintf("concept%d", n)
	obs := scope.alias + ".observations"
	params := query.Params{p: cf.UUID}

	var pred string
	switch cf.DataType {
	case "Coded":
		if len(cf.Values) > 0 {
			params[p+"Values"] = cf.Values
			pred = fmt.Sprintf("%s -> @%s ?| @%sValues", obs, p, p)
		}
	case "Numeric", "Date", "DateTime":
		target := "numeric"
		if cf.DataType != "Numeric" {
			target = "date"
		}
		var preds []string
		if cf.MinValue != nil {
			params[p+"Min"] = *cf.MinValue
			preds = append(preds, fmt.Sprintf("cast(%s ->> @%s AS %s) >= cast(@%sMin AS %s)", obs, p, target, p, target))
		}
		if cf.MaxValue != nil {
			params[p+"Max"] = *cf.MaxValue
			preds = append(preds, fmt.Sprintf("cast(%s ->> @%s AS %s) <= cast(@%sMax AS %s)", obs, p, target, p, target))
		}
		if len(preds) == 0 && cf.Value != nil {
			params[p+"Value"] = *cf.Value
			preds = append(preds, fmt.Sprintf("cast(%s ->> @%s AS %s) = cast(@%sValue AS %s)", obs, p, target, p, target))
		}
		pred = strings.Join(preds, " AND ")
	default:
		if cf.Value != nil && *cf.Value != "" {
			params[p+"Value"] = "%" + *cf.Value + "%"
			pred = fmt.Sprintf("%s ->> @%s ILIKE @%sValue", obs, p, p)
		}
	}
	if pred == "" {
		return
	}
	joinFor(b, scope.join)
	b.Where(pred, params)
}
