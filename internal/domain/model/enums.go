package model

// PRStatus represents the lifecycle state of a pull request.
type PRStatus string

const (
	PRStatusOpen       PRStatus = "open"
	PRStatusClosed     PRStatus = "closed"
	PRStatusIntegrated PRStatus = "integrated"
)

// Well-known pull request labels consulted by the readiness gate.
const (
	LabelReadyForReview = "rfr"
	LabelIntegrated     = "integrated"
)

// RefKind distinguishes branch refs from tag refs.
type RefKind string

const (
	RefKindBranch RefKind = "branch"
	RefKindTag    RefKind = "tag"
)

// ChangeKind names an attribute of a pull request whose change triggered a
// notification.
type ChangeKind string

const (
	ChangeNew        ChangeKind = "new"        // First notification for this pull request.
	ChangeStatus     ChangeKind = "status"     // Open/closed/integrated transition.
	ChangeHead       ChangeKind = "head"       // New head commit pushed.
	ChangeIntegrated ChangeKind = "integrated" // Integration commit recorded.
)
