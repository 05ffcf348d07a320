package contract

// ContractDescriptor documents one pre- or post-condition.
type ContractDescriptor struct {
	Enforced    bool   `json:"enforced" yaml:"enforced"`
	Text        string `json:"text" yaml:"text"`
	Language    string `json:"language" yaml:"language"`
	StatusCode  int    `json:"statusCode" yaml:"statusCode"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Synthetic   bool   `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// SnapshotDescriptor documents one snapshot.
type SnapshotDescriptor struct {
	Name      string `json:"name" yaml:"name"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Text      string `json:"text" yaml:"text"`
	Language  string `json:"language" yaml:"language"`
	Synthetic bool   `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// Record documents all contracts of one handler, in evaluation order.
// It is independent of enforcement: documentation-only contracts appear with Enforced false.
type Record struct {
	Preconditions  []ContractDescriptor `json:"preconditions" yaml:"preconditions"`
	Snapshots      []SnapshotDescriptor `json:"snapshots" yaml:"snapshots"`
	Postconditions []ContractDescriptor `json:"postconditions" yaml:"postconditions"`
}

// IsEmpty reports whether the record documents nothing.
func (r Record) IsEmpty() bool {
	return len(r.Preconditions) == 0 && len(r.Snapshots) == 0 && len(r.Postconditions) == 0
}

// Clone returns a deep copy of the record; slices are never nil.
func (r Record) Clone() Record {
	return Record{
		Preconditions:  append(make([]ContractDescriptor, 0, len(r.Preconditions)), r.Preconditions...),
		Snapshots:      append(make([]SnapshotDescriptor, 0, len(r.Snapshots)), r.Snapshots...),
		Postconditions: append(make([]ContractDescriptor, 0, len(r.Postconditions)), r.Postconditions...),
	}
}

func (r *Record) prependPrecondition(d ContractDescriptor) {
	r.Preconditions = append([]ContractDescriptor{d}, r.Preconditions...)
}

func (r *Record) prependPostcondition(d ContractDescriptor) {
	r.Postconditions = append([]ContractDescriptor{d}, r.Postconditions...)
}

func (r *Record) prependSnapshot(d SnapshotDescriptor) {
	r.Snapshots = append([]SnapshotDescriptor{d}, r.Snapshots...)
}
