package domain

import "fmt"

// MergeResult counts what a guest-to-account merge did.
type MergeResult struct {
	Merged       int `json:"merged"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	ListsRemoved int `json:"lists_removed"`
	ListsCreated int `json:"lists_created"`
}

// Message is the one-time notice shown to the account after a merge.
func (r MergeResult) Message() string {
	return fmt.Sprintf("%d item(s) merged, %d duplicate(s) skipped", r.Merged, r.Skipped)
}
