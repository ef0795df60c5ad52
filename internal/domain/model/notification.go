package model

import "time"

// NotificationTarget distinguishes pull request notifications from
// repository notifications in the history log.
type NotificationTarget string

const (
	TargetPullRequest NotificationTarget = "pull_request"
	TargetRepository  NotificationTarget = "repository"
)

// Notification is one delivered change as recorded by the history listener.
type Notification struct {
	ID           int64
	RepoFullName string
	Target       NotificationTarget
	Subject      string // "#42" for pull requests, "branch:master" or "tag:v1" for refs.
	Summary      string
	CreatedAt    time.Time
}
