package store

// NamespaceCategory is the category tag scoping all long-term facts.
// Every fact for a user lives under the ("memories", user_id) namespace;
// cross-namespace queries are not supported.
const NamespaceCategory = "memories"

// FactType classifies a remembered atom about a user.
type FactType string

const (
	FactTypePersonName   FactType = "person_name"
	FactTypeAge          FactType = "age"
	FactTypeProfession   FactType = "profession"
	FactTypeLocation     FactType = "location"
	FactTypePreference   FactType = "preference"
	FactTypeFact         FactType = "fact"
	FactTypeRelationship FactType = "relationship"
)

// TemporalStatus disambiguates contradictory facts accumulated over time,
// e.g. a past and a current location. Reconciliation of conflicting facts is
// a read-time concern for the consuming model, not a store invariant.
type TemporalStatus string

const (
	TemporalPast    TemporalStatus = "past"
	TemporalCurrent TemporalStatus = "current"
	TemporalFuture  TemporalStatus = "future"
	TemporalNone    TemporalStatus = "none"
)

// Fact is a single persisted memory atom. Facts are immutable after insert;
// a newer statement supersedes an older one only by inserting a new row with
// a newer temporal status.
type Fact struct {
	ID                string
	Category          string
	UserID            string
	Type              FactType
	Value             string
	Confidence        float64
	Importance        float64
	TemporalStatus    TemporalStatus
	ReferenceSentence string
	OriginMessage     string
	Context           string
	CreatedTs         int64
}

// Display renders a fact the way it is surfaced to the model and the API,
// e.g. "location: Hong Kong (past)".
func (f *Fact) Display() string {
	label := string(f.Type) + ": " + f.Value
	if f.TemporalStatus != "" && f.TemporalStatus != TemporalNone {
		label += " (" + string(f.TemporalStatus) + ")"
	}
	return label
}

type FindFact struct {
	ID     *string
	UserID *string
}

type DeleteFact struct {
	UserID string
}
