package records

// Outcome is the reported result of one application.
type Outcome string

const (
	Admitted   Outcome = "ADMITTED"
	Rejected   Outcome = "REJECTED"
	Waitlisted Outcome = "WAITLISTED"
	Deferred   Outcome = "DEFERRED"
)

// Round is the application round.
type Round string

const (
	EarlyAction     Round = "EA"
	EarlyDecision   Round = "ED"
	EarlyDecision2  Round = "ED2"
	RestrictiveEA   Round = "REA"
	RegularDecision Round = "RD"
)

// Numeric bounds shared by the extractor, synthesizer and verifier.
// Unverified GPAs may run up to the 5.0 weighted scale, the quality
// gate caps surviving records at 4.33.
const (
	GpaMax         = 5.0
	GpaVerifiedMax = 4.33
	SatMin         = 400
	SatMax         = 1600
	ActMin         = 1
	ActMax         = 36
	ToeflMin       = 60
	ToeflMax       = 120
)

// Candidate is an admission record that has not been through the
// quality gate yet. Score fields are normalized numeric strings, empty
// when the value is unknown.
type Candidate struct {
	School  string
	Outcome Outcome
	Round   Round
	Year    int
	Gpa     string
	Sat     string
	Act     string
	Toefl   string
	Tags    []string
}

// AddTag appends a tag unless it is already present, tag sets stay
// duplicate-free without caring about order.
func (c *Candidate) AddTag(tag string) {
	for _, t := range c.Tags {
		if t == tag {
			return
		}
	}
	c.Tags = append(c.Tags, tag)
}
