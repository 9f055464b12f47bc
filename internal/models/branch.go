package models

import "time"

// BranchInfo is one row of the snapshots view: a local branch, its tip
// commit, and whether it is currently checked out.
type BranchInfo struct {
	Name           string    `json:"name"`
	Commit         string    `json:"commit"`
	Head           bool      `json:"head"`
	LastCommitDate time.Time `json:"lastCommitDate"`
}
