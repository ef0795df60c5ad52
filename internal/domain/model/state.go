package model

import "time"

// PullRequestState is the last state of a pull request that was successfully
// delivered to every listener.
type PullRequestState struct {
	RepoFullName     string
	Number           int
	Status           PRStatus
	HeadSHA          string
	IntegratedCommit string
	NotifiedAt       time.Time
}
