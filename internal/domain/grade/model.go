package grade

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"scolarite/internal/domain/draft"
)

// MaxScore is the top of the grading scale.
const MaxScore = 20

// ErrNotFinite rejects NaN and infinite scores.
var ErrNotFinite = errors.New("score is not a finite number")

// Ref points to a user or course. The backend sends either the bare ID or
// the populated document.
type Ref struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Name      string `json:"name,omitempty"`
}

// UnmarshalJSON accepts a string ID or an object.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("grade ref: %w", err)
	}
	*r = Ref(p)
	return nil
}

// MarshalJSON writes the populated form plus its display label. Writes to the
// backend go through Payload, which carries bare IDs.
func (r Ref) MarshalJSON() ([]byte, error) {
	type plain Ref
	return json.Marshal(struct {
		plain
		Label string `json:"label"`
	}{plain(r), r.Label()})
}

// Label returns a display name: the course name, the person's full name, or the ID.
func (r Ref) Label() string {
	if r.Name != "" {
		return r.Name
	}
	if full := strings.TrimSpace(r.FirstName + " " + r.LastName); full != "" {
		return full
	}
	return r.ID
}

// Score is a grade value. The backend may send a number or a numeric string.
type Score float64

// UnmarshalJSON accepts a number, a numeric string or null.
func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		f, err := ParseScore(str)
		if err != nil {
			return err
		}
		*s = Score(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("grade score: %w", err)
	}
	*s = Score(f)
	return nil
}

// String formats the score without trailing zeros, French style.
func (s Score) String() string {
	return strings.Replace(strconv.FormatFloat(float64(s), 'f', -1, 64), ".", ",", 1)
}

// ParseScore reads a score typed with a dot or a comma.
func ParseScore(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid score %q: %w", s, ErrNotFinite)
	}
	return f, nil
}

// Grade is a score given to a student for a course on a date.
type Grade struct {
	ID      string    `json:"_id"`
	Student Ref       `json:"student"`
	Course  Ref       `json:"course"`
	Value   Score     `json:"grade"`
	Date    time.Time `json:"date"`
}

// UnmarshalJSON accepts RFC 3339 timestamps, plain dates or no date at all.
func (g *Grade) UnmarshalJSON(b []byte) error {
	type wire struct {
		ID      string `json:"_id"`
		Student Ref    `json:"student"`
		Course  Ref    `json:"course"`
		Value   Score  `json:"grade"`
		Date    string `json:"date"`
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*g = Grade{ID: w.ID, Student: w.Student, Course: w.Course, Value: w.Value}
	if w.Date != "" {
		d, err := ParseDate(w.Date)
		if err != nil {
			return err
		}
		g.Date = d
	}
	return nil
}

// ParseDate reads an RFC 3339 timestamp or a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// FormattedDate renders the date as DD/MM/YYYY, or "" when unset.
func (g Grade) FormattedDate() string {
	if g.Date.IsZero() {
		return ""
	}
	return g.Date.Format("02/01/2006")
}

// PeriodKey returns the semester of t: YYYY-S1 for January to June, YYYY-S2 otherwise.
func PeriodKey(t time.Time) string {
	half := "S1"
	if t.Month() >= time.July {
		half = "S2"
	}
	return fmt.Sprintf("%d-%s", t.Year(), half)
}

// Period returns the semester of the grade.
func (g Grade) Period() string {
	return PeriodKey(g.Date)
}

// Filter narrows a grade listing.
type Filter struct {
	Keyword string
}

// Fields lists the form field names of a grade draft.
var Fields = []string{"student", "course", "grade", "date"}

// Input is a validated grade form.
type Input struct {
	Student string `form:"student" validate:"required"`
	Course  string `form:"course" validate:"required"`
	Value   string `form:"grade" validate:"required"`
	Date    string `form:"date" validate:"required,datetime=2006-01-02"`
}

// Payload is the wire body of a grade create or update.
type Payload struct {
	Student string  `json:"student"`
	Course  string  `json:"course"`
	Grade   float64 `json:"grade"`
	Date    string  `json:"date"`
}

// NewDraft returns a create draft dated today.
func NewDraft(today time.Time) draft.Draft {
	return draft.NewCreate(map[string]string{"date": today.Format(time.DateOnly)})
}

// DraftOf pre-populates an edit draft from g.
func DraftOf(g Grade, today time.Time) draft.Draft {
	date := today
	if !g.Date.IsZero() {
		date = g.Date
	}
	return draft.NewEdit(g.ID, map[string]string{
		"student": g.Student.ID,
		"course":  g.Course.ID,
		"grade":   strconv.FormatFloat(float64(g.Value), 'f', -1, 64),
		"date":    date.Format(time.DateOnly),
	})
}

// FromDraft validates a draft into a Payload.
// POST: the score is within [0, MaxScore]
func FromDraft(d draft.Draft) (Payload, error) {
	in := Input{Student: d.Get("student"), Course: d.Get("course"), Value: d.Get("grade"), Date: d.Get("date")}
	if err := draft.Validate(in); err != nil {
		return Payload{}, err
	}
	v, err := ParseScore(in.Value)
	if err != nil {
		return Payload{}, draft.FieldError("grade", "La note doit être un nombre.")
	}
	if v < 0 || v > MaxScore {
		return Payload{}, draft.FieldError("grade", fmt.Sprintf("La note doit être comprise entre 0 et %d.", MaxScore))
	}
	return Payload{Student: in.Student, Course: in.Course, Grade: v, Date: in.Date}, nil
}
