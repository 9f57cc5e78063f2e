package query

// Mode selects which statement Build renders.
type Mode int

const (
	ModeUnset Mode = iota
	ModeSelect
	ModeSelectCount
	ModeInsert
	ModeUpdate
	ModeDelete
)

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeSelectCount:
		return "select-count"
	case ModeInsert:
		return "insert"
	case ModeUpdate:
		return "update"
	case ModeDelete:
		return "delete"
	default:
		return "unset"
	}
}

// Upsert resolves insert conflicts on ConflictColumns by updating
// UpdateColumns from the incoming row. With no UpdateColumns the conflicting
// insert becomes a no-op.
type Upsert struct {
	ConflictColumns []string `mapstructure:"conflictColumns"`
	UpdateColumns   []string `mapstructure:"updateColumns"`
}

// Command is one normalized, validated request, built fresh per request and
// discarded after the response. Table may be schema-qualified
// ("public.sessions"); a bare name defaults to the public schema.
type Command struct {
	Mode    Mode
	Table   string
	Filter  *Filter
	Sort    Sort
	Page    *Page
	Columns []string
	Rows    []Row
	Upsert  *Upsert
}
