package output

import "fmt"

// Redownload decides whether an existing local file is fetched again.
type Redownload string

// Redownload policy values. The "smart" variants compare the supplied
// modification time against the value the ledger recorded last run.
const (
	// RedownloadNever keeps an existing local file unconditionally.
	RedownloadNever Redownload = "never"

	// RedownloadNeverSmart keeps an existing file unless the remote
	// modification time is strictly newer than the recorded one.
	RedownloadNeverSmart Redownload = "never-smart"

	// RedownloadAlways refetches unconditionally.
	RedownloadAlways Redownload = "always"

	// RedownloadAlwaysSmart refetches whenever the remote modification
	// time differs from the recorded one.
	RedownloadAlwaysSmart Redownload = "always-smart"
)

// ParseRedownload converts a string to a Redownload policy.
func ParseRedownload(s string) (Redownload, error) {
	switch Redownload(s) {
	case RedownloadNever, RedownloadNeverSmart, RedownloadAlways, RedownloadAlwaysSmart:
		return Redownload(s), nil
	}
	return "", fmt.Errorf("unknown redownload policy %q (expected never, never-smart, always or always-smart)", s)
}

// OnConflict decides what happens to local content that is not explained
// by the previous run's ledger.
type OnConflict string

// OnConflict policy values.
const (
	// OnConflictPrompt asks the user interactively and acts on the answer.
	OnConflictPrompt OnConflict = "prompt"

	// OnConflictOverwrite replaces the unexplained local content.
	OnConflictOverwrite OnConflict = "overwrite"

	// OnConflictSkip keeps the unexplained local content untouched.
	OnConflictSkip OnConflict = "skip"
)

// ParseOnConflict converts a string to an OnConflict policy.
func ParseOnConflict(s string) (OnConflict, error) {
	switch OnConflict(s) {
	case OnConflictPrompt, OnConflictOverwrite, OnConflictSkip:
		return OnConflict(s), nil
	}
	return "", fmt.Errorf("unknown on_conflict policy %q (expected prompt, overwrite or skip)", s)
}
