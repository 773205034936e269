package subject

import "strings"

// Concept filter search scopes: which table's observations are searched.
const (
	ScopeRegistration     = "registration"
	ScopeEncounter        = "encounter"
	ScopeProgramEnrolment = "programEnrolment"
	ScopeProgramEncounter = "programEncounter"
)

// DateRange bounds are ISO dates; either may be absent for an open range.
type DateRange struct {
	MinValue *string `json:"minValue,omitempty"`
	MaxValue *string `json:"maxValue,omitempty"`
}

func (r *DateRange) HasMin() bool { return r != nil && r.MinValue != nil && strings.TrimSpace(*r.MinValue) != "" }
func (r *DateRange) HasMax() bool { return r != nil && r.MaxValue != nil && strings.TrimSpace(*r.MaxValue) != "" }

func (r *DateRange) IsEmpty() bool { return !r.HasMin() && !r.HasMax() }

type AgeRange struct {
	MinValue *int `json:"minValue,omitempty" validate:"omitempty,gte=0"`
	MaxValue *int `json:"maxValue,omitempty" validate:"omitempty,gte=0"`
}

// ConceptFilter matches one concept's recorded value. Coded concepts match
// any of Values; numeric and date concepts use the Min/Max bounds; every
// other data type does a substring match on Value.
type ConceptFilter struct {
	UUID        string   `json:"uuid" validate:"required"`
	SearchScope string   `json:"searchScope,omitempty" validate:"omitempty,oneof=registration encounter programEnrolment programEncounter"`
	DataType    string   `json:"dataType" validate:"required"`
	Values      []string `json:"values,omitempty"`
	Value       *string  `json:"value,omitempty"`
	MinValue    *string  `json:"minValue,omitempty"`
	MaxValue    *string  `json:"maxValue,omitempty"`
}

type PageElement struct {
	PageNumber                int    `json:"pageNumber" validate:"gte=0"`
	NumberOfRecordsOnEachPage int    `json:"numberOfRecordsOnEachPage" validate:"gte=0,lte=500"`
	SortColumn                string `json:"sortColumn,omitempty"`
	SortOrder                 string `json:"sortOrder,omitempty" validate:"omitempty,oneof=asc desc ASC DESC"`
}

const defaultPageSize = 10

func (p PageElement) limit() int {
	if p.NumberOfRecordsOnEachPage <= 0 {
		return defaultPageSize
	}
	return p.NumberOfRecordsOnEachPage
}

func (p PageElement) offset() int {
	return p.PageNumber * p.limit()
}

// SearchRequest carries the optional filters of a subject search. An absent
// filter places no constraint on the result.
type SearchRequest struct {
	Name                 string          `json:"name,omitempty"`
	SearchAll            string          `json:"searchAll,omitempty"`
	Concept              []ConceptFilter `json:"concept,omitempty" validate:"dive"`
	Gender               []string        `json:"gender,omitempty"`
	Age                  *AgeRange       `json:"age,omitempty"`
	RegistrationDate     *DateRange      `json:"registrationDate,omitempty"`
	EncounterDate        *DateRange      `json:"encounterDate,omitempty"`
	ProgramEnrolmentDate *DateRange      `json:"programEnrolmentDate,omitempty"`
	ProgramEncounterDate *DateRange      `json:"programEncounterDate,omitempty"`
	AddressIDs           []int64         `json:"addressIds,omitempty"`
	IncludeVoided        bool            `json:"includeVoided,omitempty"`
	SubjectType          string          `json:"subjectType,omitempty"`
	CustomFields         []string        `json:"customFields,omitempty"`
	PageElement          PageElement     `json:"pageElement"`
}

// SearchResponse is one page of matching subjects plus the full match count.
type SearchResponse struct {
	TotalElements int64                    `json:"totalElements"`
	ListOfRecords []map[string]interface{} `json:"listOfRecords"`
}
