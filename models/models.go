package models

import "github.com/google/uuid"

// QuestionType identifies the kind of a question
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice" // Lettered alternatives
	QuestionTrueFalse      QuestionType = "true_false"      // Certo/Errado statement
	QuestionDiscursive     QuestionType = "discursive"      // Open answer with lines to write on
)

const (
	DefaultTitle       = "Nova Avaliação"
	UntitledTitle      = "Sem Título"
	DefaultFont        = "Arial"
	DefaultColumns     = 2
	DefaultAnswerLines = 5
	MinChoiceOptions   = 2
	MaxChoiceOptions   = 10
	defaultChoiceSlots = 5
)

// Fonts lists the font families the print layout knows how to use
var Fonts = []string{"Arial", "Times New Roman", "Helvetica", "Georgia", "Verdana", "Courier New"}

// Assessment represents one printable exam
type Assessment struct {
	// Storage key, generated once
	ID           string     `json:"id" validate:"required,assessmentid"`
	Title        string     `json:"title" validate:"max=300"`
	ClassName    string     `json:"class_name" validate:"max=300"`
	Date         string     `json:"date" validate:"max=100"`
	Instructions string     `json:"instructions"`
	SchoolLogo   string     `json:"school_logo"`
	Questions    []Question `json:"questions" validate:"dive"`
	Essay        Essay      `json:"essay"`
	Settings     Settings   `json:"settings"`
}

// Question is a single numbered item; Type selects which of the optional fields apply
type Question struct {
	// Client generated, usually a ms timestamp
	ID   int64        `json:"id"`
	Type QuestionType `json:"type" validate:"oneof=multiple_choice true_false discursive"`
	// HTML from the rich text editor
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
	// Alternatives, multiple_choice only
	Options []string `json:"options"`
	// Answer lines, discursive only
	Lines int `json:"lines,omitempty" validate:"gte=0,lte=40"`
}

// Essay is the optional writing section printed after the questions
type Essay struct {
	Enabled      bool     `json:"enabled"`
	Theme        string   `json:"theme"`
	Instructions string   `json:"instructions"`
	Texts        []string `json:"texts"` // Supporting texts, printed in order
}

// Settings holds layout hints for the print view
type Settings struct {
	Font    string `json:"font" validate:"omitempty,font"`
	Columns int    `json:"columns" validate:"gte=1,lte=2"`
}

// Summary is the reduced view shown on the dashboard
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	ClassName string `json:"class_name"`
}

// NewAssessment returns an unsaved assessment with default content and a fresh ID
func NewAssessment() *Assessment {
	return &Assessment{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Questions: []Question{},
		Essay: Essay{
			Texts: []string{},
		},
		Settings: Settings{
			Font:    DefaultFont,
			Columns: DefaultColumns,
		},
	}
}

// NewQuestion returns an empty question of the given kind, mirroring what the editor adds
func NewQuestion(id int64, t QuestionType) Question {
	q := Question{ID: id, Type: t, Options: []string{}}
	switch t {
	case QuestionMultipleChoice:
		q.Options = make([]string, defaultChoiceSlots)
	case QuestionDiscursive:
		q.Lines = DefaultAnswerLines
	}
	return q
}

// Summary extracts the dashboard view of the assessment
func (a *Assessment) Summary() Summary {
	title := a.Title
	if title == "" {
		title = UntitledTitle
	}
	return Summary{
		ID:        a.ID,
		Title:     title,
		Date:      a.Date,
		ClassName: a.ClassName,
	}
}

// Normalize fills zero-valued layout fields and nil slices with their defaults
func (a *Assessment) Normalize() {
	if a.Questions == nil {
		a.Questions = []Question{}
	}
	if a.Essay.Texts == nil {
		a.Essay.Texts = []string{}
	}
	if a.Settings.Font == "" {
		a.Settings.Font = DefaultFont
	}
	if a.Settings.Columns == 0 {
		a.Settings.Columns = DefaultColumns
	}
	for i := range a.Questions {
		q := &a.Questions[i]
		if q.Options == nil {
			q.Options = []string{}
		}
		if q.Type == QuestionDiscursive && q.Lines == 0 {
			q.Lines = DefaultAnswerLines
		}
	}
}
