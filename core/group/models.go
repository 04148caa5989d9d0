package group

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/rollcall/core"
)

// Comparators
const (
	GreaterThan Comparator = "GREATER_THAN"
	LessThan    Comparator = "LESS_THAN"
)

var (
	Comparators = []Comparator{GreaterThan, LessThan}

	comparatorAliases = map[string]Comparator{
		">":  GreaterThan,
		"gt": GreaterThan,
		"<":  LessThan,
		"lt": LessThan,
	}

	// sortable Group columns
	orderingFields = map[string]bool{
		"id":              true,
		"name":            true,
		"number_of_weeks": true,
		"incidents":       true,
		"run_at":          true,
		"student_count":   true,
	}
)

// Comparator tells how a student's incident count is compared to a Group's threshold (aka ltmt).
type Comparator string

// ParseComparator accepts a comparator name or its symbol, case-insensitively.
func ParseComparator(s string) Comparator {
	s = core.CleanString(s)
	if cmp, ok := comparatorAliases[strings.ToLower(s)]; ok {
		return cmp
	}
	return Comparator(strings.ToUpper(s))
}

func (c Comparator) IsValid() bool {
	return c == GreaterThan || c == LessThan
}

// Qualifies tells whether `count` incidents pass the `incidents` threshold.
// both comparisons are strict: a count equal to the threshold never qualifies.
func (c Comparator) Qualifies(incidents, count int) bool {
	switch c {
	case GreaterThan:
		return incidents < count
	case LessThan:
		return incidents > count
	default:
		return false
	}
}

func (c *Comparator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "unmarshalling ltmt")
	}
	*c = ParseComparator(s)
	return nil
}

// RollStates is the set of roll states a Group filters on.
// it is kept in insertion order, without duplicates, and travels as a comma-joined string.
type RollStates []string

// ParseRollStates splits a comma-joined list of states.
func ParseRollStates(s string) RollStates {
	return NewRollStates(strings.Split(s, ",")...)
}

func NewRollStates(states ...string) RollStates {
	rs := make(RollStates, 0, len(states))
	seen := make(map[string]bool, len(states))
	for _, state := range states {
		state = core.CleanString(state, true /* lower */)
		if state == "" || seen[state] {
			continue
		}
		seen[state] = true
		rs = append(rs, state)
	}
	return rs
}

func (rs RollStates) String() string {
	return strings.Join(rs, ",")
}

func (rs RollStates) Contains(state string) bool {
	for _, s := range rs {
		if s == state {
			return true
		}
	}
	return false
}

func (rs RollStates) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.String())
}

// UnmarshalJSON accepts either a comma-joined string or a list of states.
func (rs *RollStates) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*rs = ParseRollStates(s)
		return nil
	}
	var states []string
	if err := json.Unmarshal(data, &states); err != nil {
		return errors.Wrap(err, "unmarshalling roll_states")
	}
	*rs = NewRollStates(states...)
	return nil
}

func (rs RollStates) Value() (driver.Value, error) {
	return rs.String(), nil
}

func (rs *RollStates) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*rs = RollStates{}
	case string:
		*rs = ParseRollStates(v)
	case []byte:
		*rs = ParseRollStates(string(v))
	default:
		return errors.Errorf("cannot scan %T into RollStates", src)
	}
	return nil
}

// Group is a named filter rule over attendance incidents.
type Group struct {
	ID            int        `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	NumberOfWeeks int        `json:"number_of_weeks" db:"number_of_weeks"`
	RollStates    RollStates `json:"roll_states" db:"roll_states"`
	Incidents     int        `json:"incidents" db:"incidents"`
	LTMT          Comparator `json:"ltmt" db:"ltmt"`
	RunAt         null.Time  `json:"run_at" db:"run_at"` // UTC; set by the filter job
	StudentCount  int        `json:"student_count" db:"student_count"`
}

// Membership links a Group to a student matching its filter, as of the last filter run.
type Membership struct {
	ID            int `json:"id" db:"id"`
	GroupID       int `json:"group_id" db:"group_id"`
	StudentID     int `json:"student_id" db:"student_id"`
	IncidentCount int `json:"incident_count" db:"incident_count"`
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name          string     `json:"name" validate:"required,notblank,max=255"`
	NumberOfWeeks int        `json:"number_of_weeks" validate:"required,min=1,max=520"`
	RollStates    RollStates `json:"roll_states" validate:"required,min=1,rollstates"`
	Incidents     int        `json:"incidents" validate:"min=0"`
	LTMT          Comparator `json:"ltmt" validate:"required,ltmt"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
// empty fields keep their current value. RunAt & StudentCount are owned by the filter job
// and are only accepted for compatibility.
type UpdateGroup struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	NumberOfWeeks *int       `json:"number_of_weeks"`
	RollStates    RollStates `json:"roll_states"`
	Incidents     *int       `json:"incidents"`
	LTMT          Comparator `json:"ltmt"`
	RunAt         null.Time  `json:"run_at"`
	StudentCount  *int       `json:"student_count"`
}

// Validate merges `ug` with the current Group then validates the result as a NewGroup.
func (ug *UpdateGroup) Validate(orig Group, validate *validator.Validate) error {
	ng := NewGroup{
		Name:          orig.Name,
		NumberOfWeeks: orig.NumberOfWeeks,
		RollStates:    orig.RollStates,
		Incidents:     orig.Incidents,
		LTMT:          orig.LTMT,
	}
	if name := core.CleanString(ug.Name); name != "" {
		ng.Name = name
	}
	if ug.NumberOfWeeks != nil {
		ng.NumberOfWeeks = *ug.NumberOfWeeks
	}
	if len(ug.RollStates) > 0 {
		ng.RollStates = ug.RollStates
	}
	if ug.Incidents != nil {
		ng.Incidents = *ug.Incidents
	}
	if ug.LTMT != "" {
		ng.LTMT = ug.LTMT
	}

	if err := ng.Validate(validate); err != nil {
		return err
	}

	ug.Name = ng.Name
	ug.NumberOfWeeks = &ng.NumberOfWeeks
	ug.RollStates = ng.RollStates
	ug.Incidents = &ng.Incidents
	ug.LTMT = ng.LTMT
	return nil
}

// apply returns a copy of `grp` with the (validated) changes of `ug`.
func (ug UpdateGroup) apply(grp Group) Group {
	if ug.Name != "" {
		grp.Name = ug.Name
	}
	if ug.NumberOfWeeks != nil {
		grp.NumberOfWeeks = *ug.NumberOfWeeks
	}
	if len(ug.RollStates) > 0 {
		grp.RollStates = ug.RollStates
	}
	if ug.Incidents != nil {
		grp.Incidents = *ug.Incidents
	}
	if ug.LTMT != "" {
		grp.LTMT = ug.LTMT
	}
	return grp
}

// CleanOrdering rejects unknown ordering fields and drops duplicates.
func CleanOrdering(ordering []core.DBOrdering) ([]core.DBOrdering, error) {
	if len(ordering) == 0 {
		return nil, nil
	}
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	seen := make(map[string]bool, len(ordering))
	for _, ord := range ordering {
		if !orderingFields[ord.Field] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "ordering", Error: "unknown field: " + ord.Field})
		}
		if seen[ord.Field] {
			continue
		}
		seen[ord.Field] = true
		cleaned = append(cleaned, ord)
	}
	return cleaned, nil
}

// GroupOutcome is the result of the filter run of a single Group.
type GroupOutcome struct {
	GroupID         int    `json:"group_id"`
	GroupName       string `json:"group_name"`
	StudentsTallied int    `json:"students_tallied"` // stored as the Group's StudentCount
	Members         int    `json:"members"`
	Error           string `json:"error,omitempty"`
	Err             error  `json:"-"`
}

func (o GroupOutcome) Failed() bool { return o.Err != nil }

// RunReport summarizes a run of the group filters.
type RunReport struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Groups      []GroupOutcome `json:"groups"`
	Memberships []Membership   `json:"memberships"`
}

func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r RunReport) Failed() []GroupOutcome {
	var failed []GroupOutcome
	for _, o := range r.Groups {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}
