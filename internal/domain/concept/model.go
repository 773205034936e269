package concept

import (
	"time"
)

type DataType string

const (
	DataCoded            DataType = "Coded"
	DataNumeric          DataType = "Numeric"
	DataText             DataType = "Text"
	DataDate             DataType = "Date"
	DataDateTime         DataType = "DateTime"
	DataTime             DataType = "Time"
	DataDuration         DataType = "Duration"
	DataImage            DataType = "Image"
	DataID               DataType = "Id"
	DataNotes            DataType = "Notes"
	DataLocation         DataType = "Location"
	DataSubject          DataType = "Subject"
	DataPhoneNumber      DataType = "PhoneNumber"
	DataGroupAffiliation DataType = "GroupAffiliation"
	DataAudio            DataType = "Audio"
	DataFile             DataType = "File"
	DataQuestionGroup    DataType = "QuestionGroup"
	DataVideo            DataType = "Video"
	DataEncounter        DataType = "Encounter"
	DataNA               DataType = "NA"
)

var dataTypes = map[DataType]bool{
	DataCoded: true, DataNumeric: true, DataText: true, DataDate: true, DataDateTime: true,
	DataTime: true, DataDuration: true, DataImage: true, DataID: true, DataNotes: true,
	DataLocation: true, DataSubject: true, DataPhoneNumber: true, DataGroupAffiliation: true,
	DataAudio: true, DataFile: true, DataQuestionGroup: true, DataVideo: true,
	DataEncounter: true, DataNA: true,
}

func (d DataType) Valid() bool { return dataTypes[d] }

type KeyValue struct {
	Key   string      `json:"key" yaml:"key"`
	Value interface{} `json:"value" yaml:"value"`
}

type Concept struct {
	ID             int64      `json:"id"`
	UUID           string     `json:"uuid"`
	Name           string     `json:"name"`
	DataType       DataType   `json:"dataType"`
	KeyValues      []KeyValue `json:"keyValues,omitempty"`
	LowAbsolute    *float64   `json:"lowAbsolute,omitempty"`
	HighAbsolute   *float64   `json:"highAbsolute,omitempty"`
	LowNormal      *float64   `json:"lowNormal,omitempty"`
	HighNormal     *float64   `json:"highNormal,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	Voided         bool       `json:"voided"`
	OrganisationID int64      `json:"organisationId"`
	Answers        []*Answer  `json:"answers,omitempty"`
	CreatedAt      time.Time  `json:"createdDateTime"`
	LastModifiedAt time.Time  `json:"lastModifiedDateTime"`
}

func (c *Concept) IsNew() bool { return c.ID == 0 }

// FindAnswer returns the answer link to answerConceptUUID, or nil.
func (c *Concept) FindAnswer(answerConceptUUID string) *Answer {
	for _, a := range c.Answers {
		if a.AnswerConceptUUID == answerConceptUUID {
			return a
		}
	}
	return nil
}

// AddAll appends the answers not already linked. Existing links are updated
// in place by the caller.
func (c *Concept) AddAll(answers []*Answer) {
	for _, a := range answers {
		if c.FindAnswer(a.AnswerConceptUUID) == nil {
			c.Answers = append(c.Answers, a)
		}
	}
}

// Answer links a coded concept to one of its answer concepts.
type Answer struct {
	ID                int64   `json:"id"`
	UUID              string  `json:"uuid"`
	ConceptID         int64   `json:"-"`
	AnswerConceptID   int64   `json:"answerConceptId"`
	AnswerConceptUUID string  `json:"answerConceptUUID"`
	AnswerConceptName string  `json:"answerConceptName,omitempty"`
	Order             float64 `json:"order"`
	Abnormal          bool    `json:"abnormal"`
	Unique            bool    `json:"unique"`
	Voided            bool    `json:"voided"`
	OrganisationID    int64   `json:"organisationId"`
}

// EditableBy reports whether organisation orgID may change the answer. An
// answer owned by a parent organisation is left alone.
func (a *Answer) EditableBy(orgID int64) bool {
	return a.OrganisationID == 0 || a.OrganisationID == orgID
}

// Contract is the external form of a concept, also used for its answers.
type Contract struct {
	UUID             string     `json:"uuid" yaml:"uuid"`
	Name             string     `json:"name,omitempty" yaml:"name,omitempty"`
	DataType         DataType   `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Answers          []Contract `json:"answers,omitempty" yaml:"answers,omitempty"`
	Order            *float64   `json:"order,omitempty" yaml:"order,omitempty"`
	Abnormal         bool       `json:"abnormal,omitempty" yaml:"abnormal,omitempty"`
	Unique           bool       `json:"unique,omitempty" yaml:"unique,omitempty"`
	Voided           bool       `json:"voided,omitempty" yaml:"voided,omitempty"`
	LowAbsolute      *float64   `json:"lowAbsolute,omitempty" yaml:"lowAbsolute,omitempty"`
	HighAbsolute     *float64   `json:"highAbsolute,omitempty" yaml:"highAbsolute,omitempty"`
	LowNormal        *float64   `json:"lowNormal,omitempty" yaml:"lowNormal,omitempty"`
	HighNormal       *float64   `json:"highNormal,omitempty" yaml:"highNormal,omitempty"`
	Unit             *string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	KeyValues        []KeyValue `json:"keyValues,omitempty" yaml:"keyValues,omitempty"`
	OrganisationUUID *string    `json:"organisationUUID,omitempty" yaml:"organisationUUID,omitempty"`
}
